package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

// Repository is the hosted store behind the API. The API holds no
// authoritative copy of any record; every call is a pass-through.
type Repository interface {
	Close(ctx context.Context) error

	// GetPlayerByAuthID fetches the player linked to an auth identity.
	// Returns ErrNotFound if no player exists for it.
	GetPlayerByAuthID(ctx context.Context, authID string) (*models.Player, error)
	// UpdatePlayer persists the given column -> value fields and returns the
	// merged player. Returns ErrNotFound if the player does not exist.
	UpdatePlayer(ctx context.Context, playerID uuid.UUID, fields map[string]interface{}) (*models.Player, error)

	// SlotTaken reports whether the player already has a character in the slot.
	SlotTaken(ctx context.Context, playerID uuid.UUID, slot int) (bool, error)
	// CreateCharacter inserts a new character. Returns ErrConflict if the
	// player's slot is already occupied.
	CreateCharacter(ctx context.Context, character *models.Character) (*models.Character, error)
	// ListCharacters returns the player's characters ordered by slot number
	// ascending.
	ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*models.Character, error)
	// GetCharacterWithOwner fetches a character together with the owning
	// player's auth identity in one lookup, so ownership can be checked
	// without a second round trip. Returns ErrNotFound if the character does
	// not exist.
	GetCharacterWithOwner(ctx context.Context, characterID uuid.UUID) (*models.Character, string, error)
	// UpdateCharacter persists the given column -> value fields and returns
	// the merged character. Returns ErrNotFound if the character does not
	// exist.
	UpdateCharacter(ctx context.Context, characterID uuid.UUID, fields map[string]interface{}) (*models.Character, error)
	// DeleteCharacter permanently removes a character. There is no
	// soft-delete. Returns ErrNotFound if the character does not exist.
	DeleteCharacter(ctx context.Context, characterID uuid.UUID) error
	// AddPlaytime adds a seconds increment to both the character's and the
	// owning player's cumulative counters and stamps the character's
	// last_played_at, all in a single transaction.
	AddPlaytime(ctx context.Context, characterID uuid.UUID, playerID uuid.UUID, seconds int64) (*models.Character, error)
}
