package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/cbodonnell/openworld-api/pkg/api/middleware"
	"github.com/cbodonnell/openworld-api/pkg/api/response"
	"github.com/cbodonnell/openworld-api/pkg/repositories"
	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

// fakeRepository is an in-memory Repository with the same observable
// semantics as the real stores, plus call counters for asserting what the
// handlers did and did not touch.
type fakeRepository struct {
	players    map[string]*models.Player // keyed by auth id
	characters map[uuid.UUID]*models.Character

	err error // when set, every call fails with it

	reads        int
	writes       int
	inserts      int
	deletes      int
	lastUpdate   map[string]interface{}
	lastPlaytime int64
}

var _ repositories.Repository = &fakeRepository{}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		players:    make(map[string]*models.Player),
		characters: make(map[uuid.UUID]*models.Character),
	}
}

func (f *fakeRepository) addPlayer(authID, username string) *models.Player {
	now := time.Now().UTC()
	player := &models.Player{
		ID:        uuid.New(),
		AuthID:    authID,
		Username:  username,
		Settings:  models.DefaultPlayerSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.players[authID] = player
	return player
}

func (f *fakeRepository) addCharacter(playerID uuid.UUID, name string, slot int) *models.Character {
	create := &models.CharacterCreate{Name: name, SlotNumber: slot}
	create.Normalize()
	character := models.NewCharacter(playerID, create)
	now := time.Now().UTC()
	character.CreatedAt = now
	character.UpdatedAt = now
	character.LastPlayedAt = now
	f.characters[character.ID] = character
	return character
}

func (f *fakeRepository) Close(ctx context.Context) error {
	return nil
}

func (f *fakeRepository) GetPlayerByAuthID(ctx context.Context, authID string) (*models.Player, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	player, ok := f.players[authID]
	if !ok {
		return nil, &repositories.ErrNotFound{}
	}
	return player, nil
}

func (f *fakeRepository) UpdatePlayer(ctx context.Context, playerID uuid.UUID, fields map[string]interface{}) (*models.Player, error) {
	f.writes++
	f.lastUpdate = fields
	if f.err != nil {
		return nil, f.err
	}
	for _, player := range f.players {
		if player.ID != playerID {
			continue
		}
		applyPlayerFields(player, fields)
		player.UpdatedAt = time.Now().UTC()
		return player, nil
	}
	return nil, &repositories.ErrNotFound{}
}

func (f *fakeRepository) SlotTaken(ctx context.Context, playerID uuid.UUID, slot int) (bool, error) {
	f.reads++
	if f.err != nil {
		return false, f.err
	}
	for _, character := range f.characters {
		if character.PlayerID == playerID && character.SlotNumber == slot {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) CreateCharacter(ctx context.Context, character *models.Character) (*models.Character, error) {
	f.inserts++
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.characters {
		if existing.PlayerID == character.PlayerID && existing.SlotNumber == character.SlotNumber {
			return nil, &repositories.ErrConflict{}
		}
	}
	now := time.Now().UTC()
	character.CreatedAt = now
	character.UpdatedAt = now
	character.LastPlayedAt = now
	f.characters[character.ID] = character
	return character, nil
}

func (f *fakeRepository) ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*models.Character, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	var characters []*models.Character
	for _, character := range f.characters {
		if character.PlayerID == playerID {
			characters = append(characters, character)
		}
	}
	sort.Slice(characters, func(i, j int) bool {
		return characters[i].SlotNumber < characters[j].SlotNumber
	})
	return characters, nil
}

func (f *fakeRepository) GetCharacterWithOwner(ctx context.Context, characterID uuid.UUID) (*models.Character, string, error) {
	f.reads++
	if f.err != nil {
		return nil, "", f.err
	}
	character, ok := f.characters[characterID]
	if !ok {
		return nil, "", &repositories.ErrNotFound{}
	}
	for authID, player := range f.players {
		if player.ID == character.PlayerID {
			return character, authID, nil
		}
	}
	return nil, "", &repositories.ErrNotFound{}
}

func (f *fakeRepository) UpdateCharacter(ctx context.Context, characterID uuid.UUID, fields map[string]interface{}) (*models.Character, error) {
	f.writes++
	f.lastUpdate = fields
	if f.err != nil {
		return nil, f.err
	}
	character, ok := f.characters[characterID]
	if !ok {
		return nil, &repositories.ErrNotFound{}
	}
	applyCharacterFields(character, fields)
	character.UpdatedAt = time.Now().UTC()
	return character, nil
}

func (f *fakeRepository) DeleteCharacter(ctx context.Context, characterID uuid.UUID) error {
	f.deletes++
	if f.err != nil {
		return f.err
	}
	if _, ok := f.characters[characterID]; !ok {
		return &repositories.ErrNotFound{}
	}
	delete(f.characters, characterID)
	return nil
}

func (f *fakeRepository) AddPlaytime(ctx context.Context, characterID uuid.UUID, playerID uuid.UUID, seconds int64) (*models.Character, error) {
	f.writes++
	f.lastPlaytime = seconds
	if f.err != nil {
		return nil, f.err
	}
	character, ok := f.characters[characterID]
	if !ok {
		return nil, &repositories.ErrNotFound{}
	}
	character.TotalPlayTimeSeconds += seconds
	character.LastPlayedAt = time.Now().UTC()
	for _, player := range f.players {
		if player.ID == playerID {
			player.TotalPlayTimeSeconds += seconds
			return character, nil
		}
	}
	return nil, &repositories.ErrNotFound{}
}

func applyPlayerFields(player *models.Player, fields map[string]interface{}) {
	for column, value := range fields {
		switch column {
		case "display_name":
			player.DisplayName = value.(string)
		case "avatar_url":
			player.AvatarURL = value.(string)
		case "settings":
			raw, _ := json.Marshal(value)
			_ = json.Unmarshal(raw, &player.Settings)
		case "login_count":
			player.LoginCount = value.(int)
		case "last_login":
			t := value.(time.Time)
			player.LastLogin = &t
		}
	}
}

func applyCharacterFields(character *models.Character, fields map[string]interface{}) {
	for column, value := range fields {
		switch column {
		case "position_x":
			character.PositionX = value.(float64)
		case "position_y":
			character.PositionY = value.(float64)
		case "position_z":
			character.PositionZ = value.(float64)
		case "rotation_y":
			character.RotationY = value.(float64)
		case "current_zone":
			character.CurrentZone = value.(string)
		case "health":
			character.Health = value.(int)
		case "stamina":
			character.Stamina = value.(int)
		case "mana":
			character.Mana = value.(int)
		case "experience":
			character.Experience = value.(int)
		case "gold":
			character.Gold = value.(int)
		case "is_dead":
			character.IsDead = value.(bool)
		case "last_played_at":
			character.LastPlayedAt = value.(time.Time)
		}
	}
}

// authedRequest builds a request that already passed the auth middleware and
// the request pipeline.
func authedRequest(method, target, callerUID string, body interface{}) *http.Request {
	var r *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(raw))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	ctx := response.WithRequestInfo(r.Context(), "test-request-id", time.Now())
	ctx = context.WithValue(ctx, middleware.CallerContextKey, callerUID)
	return r.WithContext(ctx)
}

func withCharacterID(r *http.Request, characterID uuid.UUID) *http.Request {
	return mux.SetURLVars(r, map[string]string{"characterID": characterID.String()})
}

// envelope mirrors response.Envelope with a raw data payload so tests can
// decode data into the type they expect.
type envelope struct {
	Success bool                  `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
	Meta    response.Meta         `json:"meta"`
}

// perform runs a handler through the error translator, the same boundary the
// server wires in.
func perform(fn response.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	response.NewTranslator(false).Handle(fn)(w, r)
	return w
}

func decodeEnvelope(w *httptest.ResponseRecorder) (envelope, error) {
	var env envelope
	err := json.Unmarshal(w.Body.Bytes(), &env)
	return env, err
}
