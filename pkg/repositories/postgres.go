package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cbodonnell/openworld-api/pkg/log"
	"github.com/cbodonnell/openworld-api/pkg/repositories/models"
)

const pgUniqueViolationCode = "23505"

const playerColumns = `id, auth_id, username, display_name, avatar_url, settings, ` +
	`total_play_time_seconds, last_login, login_count, created_at, updated_at`

const characterColumns = `id, player_id, name, slot_number, ` +
	`position_x, position_y, position_z, rotation_y, current_zone, ` +
	`level, experience, experience_to_next_level, ` +
	`health, max_health, stamina, max_stamina, mana, max_mana, ` +
	`gold, premium_currency, skill_points, attribute_points, ` +
	`strength, dexterity, intelligence, vitality, alignment, ` +
	`is_dead, respawn_point_x, respawn_point_y, respawn_point_z, ` +
	`total_play_time_seconds, enemies_killed, deaths, quests_completed, distance_traveled, ` +
	`created_at, updated_at, last_played_at`

type PostgresRepository struct {
	conn *pgx.Conn
}

var _ Repository = &PostgresRepository{}

// NewPostgresRepository connects to the hosted store. The connection is
// created once per process and reused across requests; the caller is
// responsible for calling Close.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var username string
	var database string
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	log.Info("Connected to %s as %s", database, username)

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) GetPlayerByAuthID(ctx context.Context, authID string) (*models.Player, error) {
	q := fmt.Sprintf(`SELECT %s FROM players WHERE auth_id = $1`, playerColumns)
	player, err := scanPlayer(r.conn.QueryRow(ctx, q, authID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (r *PostgresRepository) UpdatePlayer(ctx context.Context, playerID uuid.UUID, fields map[string]interface{}) (*models.Player, error) {
	// column names come from the patch models, never from the request body
	set := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	i := 1
	for column, value := range fields {
		set = append(set, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC())
	i++
	args = append(args, playerID)

	q := fmt.Sprintf(`UPDATE players SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), i, playerColumns)
	player, err := scanPlayer(r.conn.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	return player, nil
}

func (r *PostgresRepository) SlotTaken(ctx context.Context, playerID uuid.UUID, slot int) (bool, error) {
	q := `SELECT EXISTS(SELECT 1 FROM characters WHERE player_id = $1 AND slot_number = $2)`
	var taken bool
	if err := r.conn.QueryRow(ctx, q, playerID, slot).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *PostgresRepository) CreateCharacter(ctx context.Context, character *models.Character) (*models.Character, error) {
	q := fmt.Sprintf(`
	INSERT INTO characters (%s)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36,
		now(), now(), now())
	RETURNING %s`, characterColumns, characterColumns)

	created := &models.Character{}
	err := r.conn.QueryRow(ctx, q,
		character.ID, character.PlayerID, character.Name, character.SlotNumber,
		character.PositionX, character.PositionY, character.PositionZ, character.RotationY, character.CurrentZone,
		character.Level, character.Experience, character.ExperienceToNextLevel,
		character.Health, character.MaxHealth, character.Stamina, character.MaxStamina, character.Mana, character.MaxMana,
		character.Gold, character.PremiumCurrency, character.SkillPoints, character.AttributePoints,
		character.Strength, character.Dexterity, character.Intelligence, character.Vitality, character.Alignment,
		character.IsDead, character.RespawnPointX, character.RespawnPointY, character.RespawnPointZ,
		character.TotalPlayTimeSeconds, character.EnemiesKilled, character.Deaths, character.QuestsCompleted, character.DistanceTraveled,
	).Scan(characterScanTargets(created)...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &ErrConflict{}
		}
		return nil, fmt.Errorf("failed to insert character: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*models.Character, error) {
	q := fmt.Sprintf(`SELECT %s FROM characters WHERE player_id = $1 ORDER BY slot_number ASC`, characterColumns)
	rows, err := r.conn.Query(ctx, q, playerID)
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

func (r *PostgresRepository) GetCharacterWithOwner(ctx context.Context, characterID uuid.UUID) (*models.Character, string, error) {
	q := fmt.Sprintf(`
	SELECT %s, p.auth_id
	FROM characters c
	JOIN players p ON p.id = c.player_id
	WHERE c.id = $1`, prefixColumns("c", characterColumns))

	character := &models.Character{}
	var ownerAuthID string
	targets := append(characterScanTargets(character), &ownerAuthID)
	if err := r.conn.QueryRow(ctx, q, characterID).Scan(targets...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", &ErrNotFound{}
		}
		return nil, "", fmt.Errorf("failed to get character: %w", err)
	}
	return character, ownerAuthID, nil
}

func (r *PostgresRepository) UpdateCharacter(ctx context.Context, characterID uuid.UUID, fields map[string]interface{}) (*models.Character, error) {
	set := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	i := 1
	for column, value := range fields {
		set = append(set, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC())
	i++
	args = append(args, characterID)

	q := fmt.Sprintf(`UPDATE characters SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), i, characterColumns)
	character := &models.Character{}
	if err := r.conn.QueryRow(ctx, q, args...).Scan(characterScanTargets(character)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to update character: %w", err)
	}
	return character, nil
}

func (r *PostgresRepository) DeleteCharacter(ctx context.Context, characterID uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM characters WHERE id = $1`, characterID)
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{}
	}
	return nil
}

func (r *PostgresRepository) AddPlaytime(ctx context.Context, characterID uuid.UUID, playerID uuid.UUID, seconds int64) (*models.Character, error) {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	q := fmt.Sprintf(`
	UPDATE characters
	SET total_play_time_seconds = total_play_time_seconds + $1, last_played_at = $2, updated_at = $2
	WHERE id = $3
	RETURNING %s`, characterColumns)
	character := &models.Character{}
	if err := tx.QueryRow(ctx, q, seconds, now, characterID).Scan(characterScanTargets(character)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to update character playtime: %w", err)
	}

	tag, err := tx.Exec(ctx, `
	UPDATE players
	SET total_play_time_seconds = total_play_time_seconds + $1, updated_at = $2
	WHERE id = $3`, seconds, now, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update player playtime: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &ErrNotFound{}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return character, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

func prefixColumns(prefix string, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, part := range parts {
		parts[i] = prefix + "." + part
	}
	return strings.Join(parts, ", ")
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
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

func characterScanTargets(c *models.Character) []interface{} {
	return []interface{}{
		&c.ID, &c.PlayerID, &c.Name, &c.SlotNumber,
		&c.PositionX, &c.PositionY, &c.PositionZ, &c.RotationY, &c.CurrentZone,
		&c.Level, &c.Experience, &c.ExperienceToNextLevel,
		&c.Health, &c.MaxHealth, &c.Stamina, &c.MaxStamina, &c.Mana, &c.MaxMana,
		&c.Gold, &c.PremiumCurrency, &c.SkillPoints, &c.AttributePoints,
		&c.Strength, &c.Dexterity, &c.Intelligence, &c.Vitality, &c.Alignment,
		&c.IsDead, &c.RespawnPointX, &c.RespawnPointY, &c.RespawnPointZ,
		&c.TotalPlayTimeSeconds, &c.EnemiesKilled, &c.Deaths, &c.QuestsCompleted, &c.DistanceTraveled,
		&c.CreatedAt, &c.UpdatedAt, &c.LastPlayedAt,
	}
}
