package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

// SQLiteRepository is a file-backed store for local development, where the
// hosted database is not configured.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = &SQLiteRepository{}

// NewSQLiteRepository opens (or creates) the database at path and applies
// every migration file found in the migrations directory, in name order.
func NewSQLiteRepository(ctx context.Context, path string, migrations string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dir, err := os.ReadDir(migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", migrationPath, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return nil, fmt.Errorf("failed to execute migration %s: %w", migrationPath, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetPlayerByAuthID(ctx context.Context, authID string) (*models.Player, error) {
	q := fmt.Sprintf(`SELECT %s FROM players WHERE auth_id = ?`, playerColumns)
	player, err := scanPlayerRow(r.db.QueryRowContext(ctx, q, authID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (r *SQLiteRepository) UpdatePlayer(ctx context.Context, playerID uuid.UUID, fields map[string]interface{}) (*models.Player, error) {
	set := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for column, value := range fields {
		set = append(set, column+" = ?")
		args = append(args, sqliteValue(column, value))
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, playerID)

	q := fmt.Sprintf(`UPDATE players SET %s WHERE id = ?`, strings.Join(set, ", "))
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, &ErrNotFound{}
	}

	q = fmt.Sprintf(`SELECT %s FROM players WHERE id = ?`, playerColumns)
	player, err := scanPlayerRow(r.db.QueryRowContext(ctx, q, playerID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload player: %w", err)
	}
	return player, nil
}

func (r *SQLiteRepository) SlotTaken(ctx context.Context, playerID uuid.UUID, slot int) (bool, error) {
	q := `SELECT EXISTS(SELECT 1 FROM characters WHERE player_id = ? AND slot_number = ?)`
	var taken bool
	if err := r.db.QueryRowContext(ctx, q, playerID, slot).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *SQLiteRepository) CreateCharacter(ctx context.Context, character *models.Character) (*models.Character, error) {
	now := time.Now().UTC()
	q := fmt.Sprintf(`
	INSERT INTO characters (%s)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, characterColumns)
	_, err := r.db.ExecContext(ctx, q,
		character.ID, character.PlayerID, character.Name, character.SlotNumber,
		character.PositionX, character.PositionY, character.PositionZ, character.RotationY, character.CurrentZone,
		character.Level, character.Experience, character.ExperienceToNextLevel,
		character.Health, character.MaxHealth, character.Stamina, character.MaxStamina, character.Mana, character.MaxMana,
		character.Gold, character.PremiumCurrency, character.SkillPoints, character.AttributePoints,
		character.Strength, character.Dexterity, character.Intelligence, character.Vitality, character.Alignment,
		character.IsDead, character.RespawnPointX, character.RespawnPointY, character.RespawnPointZ,
		character.TotalPlayTimeSeconds, character.EnemiesKilled, character.Deaths, character.QuestsCompleted, character.DistanceTraveled,
		now, now, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, &ErrConflict{}
		}
		return nil, fmt.Errorf("failed to insert character: %w", err)
	}
	return r.getCharacter(ctx, character.ID)
}

func (r *SQLiteRepository) ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*models.Character, error) {
	q := fmt.Sprintf(`SELECT %s FROM characters WHERE player_id = ? ORDER BY slot_number ASC`, characterColumns)
	rows, err := r.db.QueryContext(ctx, q, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query characters: %w", err)
	}
	defer rows.Close()

	var characters []*models.Character
	for rows.Next() {
		character := &models.Character{}
		if err := rows.Scan(characterScanTargets(character)...); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		characters = append(characters, character)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read characters: %w", err)
	}
	return characters, nil
}

func (r *SQLiteRepository) GetCharacterWithOwner(ctx context.Context, characterID uuid.UUID) (*models.Character, string, error) {
	q := fmt.Sprintf(`
	SELECT %s, p.auth_id
	FROM characters c
	JOIN players p ON p.id = c.player_id
	WHERE c.id = ?`, prefixColumns("c", characterColumns))

	character := &models.Character{}
	var ownerAuthID string
	targets := append(characterScanTargets(character), &ownerAuthID)
	if err := r.db.QueryRowContext(ctx, q, characterID).Scan(targets...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", &ErrNotFound{}
		}
		return nil, "", fmt.Errorf("failed to get character: %w", err)
	}
	return character, ownerAuthID, nil
}

func (r *SQLiteRepository) UpdateCharacter(ctx context.Context, characterID uuid.UUID, fields map[string]interface{}) (*models.Character, error) {
	set := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for column, value := range fields {
		set = append(set, column+" = ?")
		args = append(args, sqliteValue(column, value))
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, characterID)

	q := fmt.Sprintf(`UPDATE characters SET %s WHERE id = ?`, strings.Join(set, ", "))
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update character: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, &ErrNotFound{}
	}
	return r.getCharacter(ctx, characterID)
}

func (r *SQLiteRepository) DeleteCharacter(ctx context.Context, characterID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, characterID)
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &ErrNotFound{}
	}
	return nil
}

func (r *SQLiteRepository) AddPlaytime(ctx context.Context, characterID uuid.UUID, playerID uuid.UUID, seconds int64) (*models.Character, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
	UPDATE characters
	SET total_play_time_seconds = total_play_time_seconds + ?, last_played_at = ?, updated_at = ?
	WHERE id = ?`, seconds, now, now, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to update character playtime: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	} else if affected == 0 {
		return nil, &ErrNotFound{}
	}

	result, err = tx.ExecContext(ctx, `
	UPDATE players
	SET total_play_time_seconds = total_play_time_seconds + ?, updated_at = ?
	WHERE id = ?`, seconds, now, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update player playtime: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	} else if affected == 0 {
		return nil, &ErrNotFound{}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return r.getCharacter(ctx, characterID)
}

func (r *SQLiteRepository) getCharacter(ctx context.Context, characterID uuid.UUID) (*models.Character, error) {
	q := fmt.Sprintf(`SELECT %s FROM characters WHERE id = ?`, characterColumns)
	character := &models.Character{}
	if err := r.db.QueryRowContext(ctx, q, characterID).Scan(characterScanTargets(character)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return character, nil
}

// sqliteValue adapts values database/sql cannot bind directly. Settings
// arrive as a plain map and are stored as a JSON text column.
func sqliteValue(column string, value interface{}) interface{} {
	if column != "settings" {
		return value
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}
	return string(raw)
}

func scanPlayerRow(row *sql.Row) (*models.Player, error) {
	player := &models.Player{}
	var settings []byte
	err := row.Scan(
		&player.ID, &player.AuthID, &player.Username, &player.DisplayName, &player.AvatarURL, &settings,
		&player.TotalPlayTimeSeconds, &player.LastLogin, &player.LoginCount, &player.CreatedAt, &player.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &player.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	} else {
		player.Settings = models.DefaultPlayerSettings()
	}
	return player, nil
}
