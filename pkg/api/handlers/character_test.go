package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbodonnell/openworld-api/pkg/apierrors"
	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

func TestHandleCreateCharacter(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlayer("auth-1", "testplayer")

	body := map[string]interface{}{
		"name":         "Aria",
		"slot_number":  1,
		"strength":     15,
		"dexterity":    15,
		"intelligence": 15,
		"vitality":     15,
	}
	w := perform(HandleCreateCharacter(repo), authedRequest(http.MethodPost, "/api/v1/player/characters", "auth-1", body))

	require.Equal(t, http.StatusCreated, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)

	var character models.Character
	require.NoError(t, json.Unmarshal(env.Data, &character))
	assert.Equal(t, "Aria", character.Name)
	assert.Equal(t, 1, character.Level)
	assert.Equal(t, "starting_area", character.CurrentZone)
	assert.Equal(t, 175, character.MaxHealth)
	assert.Equal(t, 130, character.MaxStamina)
	assert.Equal(t, 95, character.MaxMana)
	assert.Equal(t, character.MaxHealth, character.Health)
	assert.Equal(t, character.MaxStamina, character.Stamina)
	assert.Equal(t, character.MaxMana, character.Mana)
}

func TestHandleCreateCharacterDefaultAttributes(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlayer("auth-1", "testplayer")

	body := map[string]interface{}{"name": "Brin", "slot_number": 2}
	w := perform(HandleCreateCharacter(repo), authedRequest(http.MethodPost, "/api/v1/player/characters", "auth-1", body))

	require.Equal(t, http.StatusCreated, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)

	var character models.Character
	require.NoError(t, json.Unmarshal(env.Data, &character))
	assert.Equal(t, 10, character.Strength)
	assert.Equal(t, 10, character.Vitality)
	assert.Equal(t, 150, character.MaxHealth)
	assert.Equal(t, 120, character.MaxStamina)
	assert.Equal(t, 80, character.MaxMana)
}

func TestHandleCreateCharacterValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"name too short", map[string]interface{}{"name": "A", "slot_number": 1}},
		{"slot out of range", map[string]interface{}{"name": "Aria", "slot_number": 6}},
		{"attribute above creation range", map[string]interface{}{"name": "Aria", "slot_number": 1, "strength": 16}},
		{"attribute below creation range", map[string]interface{}{"name": "Aria", "slot_number": 1, "vitality": 7}},
		// a submitted zero is below the creation range, not a request for the default
		{"explicit zero attribute", map[string]interface{}{"name": "Aria", "slot_number": 1, "strength": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			repo.addPlayer("auth-1", "testplayer")

			w := perform(HandleCreateCharacter(repo), authedRequest(http.MethodPost, "/api/v1/player/characters", "auth-1", tt.body))

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			env, err := decodeEnvelope(w)
			require.NoError(t, err)
			require.NotNil(t, env.Error)
			assert.Equal(t, apierrors.CodeValidation, env.Error.Code)
			assert.Equal(t, 0, repo.inserts)
		})
	}
}

func TestHandleCreateCharacterSlotTaken(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	repo.addCharacter(player.ID, "Aria", 1)

	body := map[string]interface{}{"name": "Brin", "slot_number": 1}
	w := perform(HandleCreateCharacter(repo), authedRequest(http.MethodPost, "/api/v1/player/characters", "auth-1", body))

	require.Equal(t, http.StatusConflict, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)
	require.NotNil(t, env.Error)
	assert.Equal(t, apierrors.CodeConflict, env.Error.Code)
	assert.Equal(t, float64(1), env.Error.Details["slot_number"])
	// rejected before the insert is attempted
	assert.Equal(t, 0, repo.inserts)
}

// racingRepository reports every slot as free so the insert itself hits the
// uniqueness backstop, mimicking a lost check-then-insert race.
type racingRepository struct {
	*fakeRepository
}

func (r *racingRepository) SlotTaken(ctx context.Context, playerID uuid.UUID, slot int) (bool, error) {
	return false, nil
}

func TestHandleCreateCharacterSlotRace(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	repo.addCharacter(player.ID, "Aria", 1)

	body := map[string]interface{}{"name": "Brin", "slot_number": 1}
	w := perform(HandleCreateCharacter(&racingRepository{repo}), authedRequest(http.MethodPost, "/api/v1/player/characters", "auth-1", body))

	require.Equal(t, http.StatusConflict, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)
	require.NotNil(t, env.Error)
	assert.Equal(t, apierrors.CodeConflict, env.Error.Code)
}

func TestHandleListCharacters(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	repo.addCharacter(player.ID, "Third", 3)
	repo.addCharacter(player.ID, "First", 1)
	other := repo.addPlayer("auth-2", "otherplayer")
	repo.addCharacter(other.ID, "Foreign", 1)

	w := perform(HandleListCharacters(repo), authedRequest(http.MethodGet, "/api/v1/player/characters", "auth-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)

	var summaries []models.CharacterSummary
	require.NoError(t, json.Unmarshal(env.Data, &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "First", summaries[0].Name)
	assert.Equal(t, "Third", summaries[1].Name)

	// the listing is a projection, full state stays out of it
	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.NotContains(t, raw[0], "health")
	assert.NotContains(t, raw[0], "position_x")
}

func TestHandleListCharactersEmpty(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlayer("auth-1", "testplayer")

	w := perform(HandleListCharacters(repo), authedRequest(http.MethodGet, "/api/v1/player/characters", "auth-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestHandleGetCharacter(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	r := withCharacterID(authedRequest(http.MethodGet, "/api/v1/player/characters/"+character.ID.String(), "auth-1", nil), character.ID)
	w := perform(HandleGetCharacter(repo), r)

	require.Equal(t, http.StatusOK, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)

	var got models.Character
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, character.ID, got.ID)
	assert.Equal(t, "Aria", got.Name)
}

func TestHandleGetCharacterOwnership(t *testing.T) {
	repo := newFakeRepository()
	owner := repo.addPlayer("auth-1", "testplayer")
	repo.addPlayer("auth-2", "otherplayer")
	character := repo.addCharacter(owner.ID, "Aria", 1)

	t.Run("foreign owner is forbidden", func(t *testing.T) {
		r := withCharacterID(authedRequest(http.MethodGet, "/api/v1/player/characters/"+character.ID.String(), "auth-2", nil), character.ID)
		w := perform(HandleGetCharacter(repo), r)

		require.Equal(t, http.StatusForbidden, w.Code)
		env, err := decodeEnvelope(w)
		require.NoError(t, err)
		require.NotNil(t, env.Error)
		assert.Equal(t, apierrors.CodeForbidden, env.Error.Code)
	})

	t.Run("absence beats ownership", func(t *testing.T) {
		// an unknown id yields 404 for any caller, never 403
		missing := uuid.New()
		r := withCharacterID(authedRequest(http.MethodGet, "/api/v1/player/characters/"+missing.String(), "auth-2", nil), missing)
		w := perform(HandleGetCharacter(repo), r)

		require.Equal(t, http.StatusNotFound, w.Code)
		env, err := decodeEnvelope(w)
		require.NoError(t, err)
		require.NotNil(t, env.Error)
		assert.Equal(t, apierrors.CodeNotFound, env.Error.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		r := authedRequest(http.MethodGet, "/api/v1/player/characters/not-a-uuid", "auth-1", nil)
		r = mux.SetURLVars(r, map[string]string{"characterID": "not-a-uuid"})
		w := perform(HandleGetCharacter(repo), r)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env, err := decodeEnvelope(w)
		require.NoError(t, err)
		require.NotNil(t, env.Error)
		assert.Equal(t, apierrors.CodeValidation, env.Error.Code)
	})
}

func TestHandleUpdateCharacter(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	body := map[string]interface{}{"position_x": 12.5, "gold": 250, "current_zone": "ember_wastes"}
	r := withCharacterID(authedRequest(http.MethodPatch, "/api/v1/player/characters/"+character.ID.String(), "auth-1", body), character.ID)
	w := perform(HandleUpdateCharacter(repo), r)

	require.Equal(t, http.StatusOK, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)

	var got models.Character
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 12.5, got.PositionX)
	assert.Equal(t, 250, got.Gold)
	assert.Equal(t, "ember_wastes", got.CurrentZone)
	// untouched fields survive the sparse patch
	assert.Equal(t, "Aria", got.Name)
	assert.Equal(t, character.MaxHealth, got.MaxHealth)
}

func TestHandleUpdateCharacterEmptyPatch(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	r := withCharacterID(authedRequest(http.MethodPatch, "/api/v1/player/characters/"+character.ID.String(), "auth-1", map[string]interface{}{}), character.ID)
	w := perform(HandleUpdateCharacter(repo), r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)
	require.NotNil(t, env.Error)
	assert.Equal(t, apierrors.CodeValidation, env.Error.Code)
	assert.Equal(t, 0, repo.writes)
}

func TestHandleUpdateCharacterNegativeResource(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	body := map[string]interface{}{"health": -10}
	r := withCharacterID(authedRequest(http.MethodPatch, "/api/v1/player/characters/"+character.ID.String(), "auth-1", body), character.ID)
	w := perform(HandleUpdateCharacter(repo), r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 0, repo.writes)
}

func TestHandleSaveCharacter(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)
	before := character.LastPlayedAt

	body := map[string]interface{}{
		"position":     map[string]interface{}{"x": 100.0, "y": 5.0, "z": -40.0},
		"rotation_y":   1.57,
		"current_zone": "ember_wastes",
		"health":       80,
		"stamina":      60,
		"mana":         40,
		"is_dead":      false,
	}
	r := withCharacterID(authedRequest(http.MethodPost, "/api/v1/player/characters/"+character.ID.String()+"/save", "auth-1", body), character.ID)
	w := perform(HandleSaveCharacter(repo), r)

	require.Equal(t, http.StatusOK, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)

	var got models.Character
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 100.0, got.PositionX)
	assert.Equal(t, -40.0, got.PositionZ)
	assert.Equal(t, "ember_wastes", got.CurrentZone)
	assert.Equal(t, 80, got.Health)
	assert.False(t, got.IsDead)
	assert.True(t, got.LastPlayedAt.After(before) || got.LastPlayedAt.Equal(before))
	// the save stamps last_played_at alongside the snapshot fields
	_, stamped := repo.lastUpdate["last_played_at"].(time.Time)
	assert.True(t, stamped)
}

func TestHandleSaveCharacterMissingZone(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	body := map[string]interface{}{
		"position": map[string]interface{}{"x": 1.0, "y": 2.0, "z": 3.0},
		"health":   50,
	}
	r := withCharacterID(authedRequest(http.MethodPost, "/api/v1/player/characters/"+character.ID.String()+"/save", "auth-1", body), character.ID)
	w := perform(HandleSaveCharacter(repo), r)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env, err := decodeEnvelope(w)
	require.NoError(t, err)
	require.NotNil(t, env.Error)
	assert.Equal(t, apierrors.CodeValidation, env.Error.Code)
	assert.Equal(t, 0, repo.writes)
}

func TestHandleDeleteCharacter(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	r := withCharacterID(authedRequest(http.MethodDelete, "/api/v1/player/characters/"+character.ID.String(), "auth-1", nil), character.ID)
	w := perform(HandleDeleteCharacter(repo), r)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Empty(t, repo.characters)

	// the character is gone, a second delete is a 404
	r = withCharacterID(authedRequest(http.MethodDelete, "/api/v1/player/characters/"+character.ID.String(), "auth-1", nil), character.ID)
	w = perform(HandleDeleteCharacter(repo), r)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUpdatePlaytime(t *testing.T) {
	repo := newFakeRepository()
	player := repo.addPlayer("auth-1", "testplayer")
	character := repo.addCharacter(player.ID, "Aria", 1)

	addPlaytime := func(seconds int64) models.Character {
		body := map[string]interface{}{"seconds": seconds}
		r := withCharacterID(authedRequest(http.MethodPost, "/api/v1/player/characters/"+character.ID.String()+"/playtime", "auth-1", body), character.ID)
		w := perform(HandleUpdatePlaytime(repo), r)
		require.Equal(t, http.StatusOK, w.Code)
		env, err := decodeEnvelope(w)
		require.NoError(t, err)
		var got models.Character
		require.NoError(t, json.Unmarshal(env.Data, &got))
		return got
	}

	got := addPlaytime(30)
	assert.Equal(t, int64(30), got.TotalPlayTimeSeconds)

	// increments accumulate on both the character and the owning player
	got = addPlaytime(45)
	assert.Equal(t, int64(75), got.TotalPlayTimeSeconds)
	assert.Equal(t, int64(75), player.TotalPlayTimeSeconds)

	// a replayed increment double-counts, the endpoint records as submitted
	got = addPlaytime(75)
	assert.Equal(t, int64(150), got.TotalPlayTimeSeconds)
	assert.Equal(t, int64(150), player.TotalPlayTimeSeconds)
}
