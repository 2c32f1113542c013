package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GraphicsSettings holds client rendering preferences.
type GraphicsSettings struct {
	Quality      string `json:"quality" validate:"omitempty,oneof=low medium high ultra"`
	Shadows      bool   `json:"shadows"`
	Particles    bool   `json:"particles"`
	ViewDistance int    `json:"view_distance" validate:"omitempty,gte=100,lte=5000"`
}

// AudioSettings holds the four volume sliders, each in [0.0, 1.0].
type AudioSettings struct {
	Master float64 `json:"master" validate:"gte=0,lte=1"`
	Music  float64 `json:"music" validate:"gte=0,lte=1"`
	SFX    float64 `json:"sfx" validate:"gte=0,lte=1"`
	Voice  float64 `json:"voice" validate:"gte=0,lte=1"`
}

// ControlSettings holds input preferences.
type ControlSettings struct {
	MouseSensitivity float64 `json:"mouse_sensitivity" validate:"omitempty,gte=0.1,lte=5"`
	InvertY          bool    `json:"invert_y"`
}

// PlayerSettings is the nested settings object embedded in a Player. It has
// no independent lifecycle.
type PlayerSettings struct {
	Graphics GraphicsSettings `json:"graphics"`
	Audio    AudioSettings    `json:"audio"`
	Controls ControlSettings  `json:"controls"`
}

// DefaultPlayerSettings returns the settings assigned to a player that has
// never saved any.
func DefaultPlayerSettings() PlayerSettings {
	return PlayerSettings{
		Graphics: GraphicsSettings{
			Quality:      "high",
			Shadows:      true,
			Particles:    true,
			ViewDistance: 1000,
		},
		Audio: AudioSettings{
			Master: 1.0,
			Music:  0.7,
			SFX:    0.8,
			Voice:  1.0,
		},
		Controls: ControlSettings{
			MouseSensitivity: 1.0,
			InvertY:          false,
		},
	}
}

// Player is the identity anchor. Exactly one player exists per auth identity;
// the record itself is created on signup, outside this API.
type Player struct {
	ID                   uuid.UUID      `json:"id"`
	AuthID               string         `json:"auth_id"`
	Username             string         `json:"username" validate:"required,username,min=3,max=30"`
	DisplayName          string         `json:"display_name" validate:"omitempty,max=50"`
	AvatarURL            string         `json:"avatar_url"`
	Settings             PlayerSettings `json:"settings"`
	TotalPlayTimeSeconds int64          `json:"total_play_time_seconds"`
	LastLogin            *time.Time     `json:"last_login"`
	LoginCount           int            `json:"login_count"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// PlayerUpdate is a sparse profile patch. A nil field is left untouched.
type PlayerUpdate struct {
	DisplayName *string         `json:"display_name" validate:"omitempty,max=50"`
	AvatarURL   *string         `json:"avatar_url"`
	Settings    *PlayerSettings `json:"settings"`
}

// IsEmpty reports whether the patch carries no fields at all. An empty patch
// is a validation error, checked before any store access.
func (u *PlayerUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.AvatarURL == nil && u.Settings == nil
}

// Fields returns the column -> value map to persist. Nested settings are
// normalized to a plain map so the store sees a flat JSON document rather
// than a typed struct.
func (u *PlayerUpdate) Fields() (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if u.DisplayName != nil {
		fields["display_name"] = *u.DisplayName
	}
	if u.AvatarURL != nil {
		fields["avatar_url"] = *u.AvatarURL
	}
	if u.Settings != nil {
		raw, err := json.Marshal(u.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal settings: %w", err)
		}
		settings := make(map[string]interface{})
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, fmt.Errorf("failed to normalize settings: %w", err)
		}
		fields["settings"] = settings
	}
	return fields, nil
}
