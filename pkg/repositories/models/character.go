package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinCharacterSlot = 1
	MaxCharacterSlot = 5

	baseHealth  = 100
	baseStamina = 100
	baseMana    = 50

	defaultZone = "starting_area"
)

// Position is a 3D world position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Character is owned by exactly one player. Ownership is enforced by the
// handlers on every access, not by the schema.
type Character struct {
	ID       uuid.UUID `json:"id"`
	PlayerID uuid.UUID `json:"player_id"`

	Name       string `json:"name" validate:"required,min=2,max=30"`
	SlotNumber int    `json:"slot_number" validate:"required,gte=1,lte=5"`

	PositionX   float64 `json:"position_x"`
	PositionY   float64 `json:"position_y"`
	PositionZ   float64 `json:"position_z"`
	RotationY   float64 `json:"rotation_y"`
	CurrentZone string  `json:"current_zone"`

	Level                 int `json:"level"`
	Experience            int `json:"experience"`
	ExperienceToNextLevel int `json:"experience_to_next_level"`

	Health     int `json:"health"`
	MaxHealth  int `json:"max_health"`
	Stamina    int `json:"stamina"`
	MaxStamina int `json:"max_stamina"`
	Mana       int `json:"mana"`
	MaxMana    int `json:"max_mana"`

	Gold            int `json:"gold"`
	PremiumCurrency int `json:"premium_currency"`
	SkillPoints     int `json:"skill_points"`
	AttributePoints int `json:"attribute_points"`

	Strength     int `json:"strength" validate:"omitempty,gte=1"`
	Dexterity    int `json:"dexterity" validate:"omitempty,gte=1"`
	Intelligence int `json:"intelligence" validate:"omitempty,gte=1"`
	Vitality     int `json:"vitality" validate:"omitempty,gte=1"`

	// Alignment runs from -100 (dark) to +100 (light).
	Alignment int `json:"alignment" validate:"gte=-100,lte=100"`

	IsDead        bool    `json:"is_dead"`
	RespawnPointX float64 `json:"respawn_point_x"`
	RespawnPointY float64 `json:"respawn_point_y"`
	RespawnPointZ float64 `json:"respawn_point_z"`

	TotalPlayTimeSeconds int64   `json:"total_play_time_seconds"`
	EnemiesKilled        int     `json:"enemies_killed"`
	Deaths               int     `json:"deaths"`
	QuestsCompleted      int     `json:"quests_completed"`
	DistanceTraveled     float64 `json:"distance_traveled"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastPlayedAt time.Time `json:"last_played_at"`
}

// CharacterSummary is the read-only projection used by the character
// selection screen.
type CharacterSummary struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	SlotNumber           int       `json:"slot_number"`
	Level                int       `json:"level"`
	CurrentZone          string    `json:"current_zone"`
	TotalPlayTimeSeconds int64     `json:"total_play_time_seconds"`
	LastPlayedAt         time.Time `json:"last_played_at"`
	Alignment            int       `json:"alignment"`
}

// Summary projects a Character to its listing shape.
func (c *Character) Summary() *CharacterSummary {
	return &CharacterSummary{
		ID:                   c.ID,
		Name:                 c.Name,
		SlotNumber:           c.SlotNumber,
		Level:                c.Level,
		CurrentZone:          c.CurrentZone,
		TotalPlayTimeSeconds: c.TotalPlayTimeSeconds,
		LastPlayedAt:         c.LastPlayedAt,
		Alignment:            c.Alignment,
	}
}

// CharacterCreate is the request body for creating a character. Attributes
// can be customized within the creation range; omitted attributes default
// to 10 via Normalize. Pointers keep an omitted attribute distinguishable
// from a submitted zero, which must fail validation.
type CharacterCreate struct {
	Name       string `json:"name" validate:"required,min=2,max=30"`
	SlotNumber int    `json:"slot_number" validate:"required,gte=1,lte=5"`

	Strength     *int `json:"strength" validate:"required,gte=8,lte=15"`
	Dexterity    *int `json:"dexterity" validate:"required,gte=8,lte=15"`
	Intelligence *int `json:"intelligence" validate:"required,gte=8,lte=15"`
	Vitality     *int `json:"vitality" validate:"required,gte=8,lte=15"`
}

// Normalize applies attribute defaults for fields the client omitted. Must
// run before Validate, which expects every attribute to be present.
func (c *CharacterCreate) Normalize() {
	if c.Strength == nil {
		c.Strength = defaultAttribute()
	}
	if c.Dexterity == nil {
		c.Dexterity = defaultAttribute()
	}
	if c.Intelligence == nil {
		c.Intelligence = defaultAttribute()
	}
	if c.Vitality == nil {
		c.Vitality = defaultAttribute()
	}
}

func defaultAttribute() *int {
	v := 10
	return &v
}

// NewCharacter builds a fresh level-1 character from a creation request.
// Max resources derive from the submitted attributes:
//
//	max_health  = 100 + vitality * 5
//	max_stamina = 100 + dexterity * 2
//	max_mana    = 50 + intelligence * 3
//
// Current resources start at their max.
func NewCharacter(playerID uuid.UUID, req *CharacterCreate) *Character {
	maxHealth := baseHealth + *req.Vitality*5
	maxStamina := baseStamina + *req.Dexterity*2
	maxMana := baseMana + *req.Intelligence*3

	return &Character{
		ID:                    uuid.New(),
		PlayerID:              playerID,
		Name:                  req.Name,
		SlotNumber:            req.SlotNumber,
		CurrentZone:           defaultZone,
		Level:                 1,
		Experience:            0,
		ExperienceToNextLevel: 100,
		Health:                maxHealth,
		MaxHealth:             maxHealth,
		Stamina:               maxStamina,
		MaxStamina:            maxStamina,
		Mana:                  maxMana,
		MaxMana:               maxMana,
		Strength:              *req.Strength,
		Dexterity:             *req.Dexterity,
		Intelligence:          *req.Intelligence,
		Vitality:              *req.Vitality,
	}
}

// CharacterUpdate is a sparse patch. A nil field is left untouched.
type CharacterUpdate struct {
	PositionX   *float64 `json:"position_x"`
	PositionY   *float64 `json:"position_y"`
	PositionZ   *float64 `json:"position_z"`
	RotationY   *float64 `json:"rotation_y"`
	CurrentZone *string  `json:"current_zone" validate:"omitempty,min=1"`

	Health  *int `json:"health" validate:"omitempty,gte=0"`
	Stamina *int `json:"stamina" validate:"omitempty,gte=0"`
	Mana    *int `json:"mana" validate:"omitempty,gte=0"`

	Experience *int `json:"experience" validate:"omitempty,gte=0"`
	Gold       *int `json:"gold" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (u *CharacterUpdate) IsEmpty() bool {
	return u.PositionX == nil && u.PositionY == nil && u.PositionZ == nil &&
		u.RotationY == nil && u.CurrentZone == nil &&
		u.Health == nil && u.Stamina == nil && u.Mana == nil &&
		u.Experience == nil && u.Gold == nil
}

// Fields returns the column -> value map to persist.
func (u *CharacterUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.PositionX != nil {
		fields["position_x"] = *u.PositionX
	}
	if u.PositionY != nil {
		fields["position_y"] = *u.PositionY
	}
	if u.PositionZ != nil {
		fields["position_z"] = *u.PositionZ
	}
	if u.RotationY != nil {
		fields["rotation_y"] = *u.RotationY
	}
	if u.CurrentZone != nil {
		fields["current_zone"] = *u.CurrentZone
	}
	if u.Health != nil {
		fields["health"] = *u.Health
	}
	if u.Stamina != nil {
		fields["stamina"] = *u.Stamina
	}
	if u.Mana != nil {
		fields["mana"] = *u.Mana
	}
	if u.Experience != nil {
		fields["experience"] = *u.Experience
	}
	if u.Gold != nil {
		fields["gold"] = *u.Gold
	}
	return fields
}

// CharacterSave is the full snapshot of transient gameplay state written by
// the save endpoint.
type CharacterSave struct {
	Position    Position `json:"position"`
	RotationY   float64  `json:"rotation_y"`
	CurrentZone string   `json:"current_zone" validate:"required"`

	Health  int `json:"health" validate:"gte=0"`
	Stamina int `json:"stamina" validate:"gte=0"`
	Mana    int `json:"mana" validate:"gte=0"`

	IsDead bool `json:"is_dead"`
}

// Fields returns the column -> value map to persist. The save endpoint also
// stamps last_played_at; the handler adds that field.
func (s *CharacterSave) Fields() map[string]interface{} {
	return map[string]interface{}{
		"position_x":   s.Position.X,
		"position_y":   s.Position.Y,
		"position_z":   s.Position.Z,
		"rotation_y":   s.RotationY,
		"current_zone": s.CurrentZone,
		"health":       s.Health,
		"stamina":      s.Stamina,
		"mana":         s.Mana,
		"is_dead":      s.IsDead,
	}
}

// PlaytimeUpdate is the request body for the playtime increment endpoint.
// The increment is recorded as-is; there is no upper bound or sign check.
type PlaytimeUpdate struct {
	Seconds int64 `json:"seconds"`
}
