// Package sqlite provides SQLite-backed persistence for notifier state.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sqlitemigrate "github.com/clubblackout/reborn/internal/platform/storage/sqlitemigrate"
	"github.com/clubblackout/reborn/internal/services/notifier/storage"
	"github.com/clubblackout/reborn/internal/services/notifier/storage/sqlite/migrations"
)

// Store persists game documents, private states, and push subscriptions.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a notifier SQLite store at the provided path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetGame loads the latest stored version of one game document.
func (s *Store) GetGame(ctx context.Context, joinCode string) (storage.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GameRecord{}, err
	}
	joinCode = strings.TrimSpace(joinCode)
	if joinCode == "" {
		return storage.GameRecord{}, fmt.Errorf("join code is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT join_code, document_json, updated_at FROM games WHERE join_code = ?",
		joinCode,
	)
	var record storage.GameRecord
	var updatedAt int64
	if err := row.Scan(&record.JoinCode, &record.DocumentJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GameRecord{}, storage.ErrNotFound
		}
		return storage.GameRecord{}, fmt.Errorf("scan game row: %w", err)
	}
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// PutGame stores one game document version, replacing any prior version.
func (s *Store) PutGame(ctx context.Context, record storage.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.JoinCode = strings.TrimSpace(record.JoinCode)
	if record.JoinCode == "" {
		return fmt.Errorf("join code is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO games (join_code, document_json, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (join_code) DO UPDATE SET
    document_json = excluded.document_json,
    updated_at = excluded.updated_at
`, record.JoinCode, record.DocumentJSON, toMillis(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	return nil
}

// GetPrivateState loads one player's latest private document version.
func (s *Store) GetPrivateState(ctx context.Context, joinCode string, playerID string) (storage.PrivateStateRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PrivateStateRecord{}, err
	}
	joinCode = strings.TrimSpace(joinCode)
	playerID = strings.TrimSpace(playerID)
	if joinCode == "" || playerID == "" {
		return storage.PrivateStateRecord{}, fmt.Errorf("join code and player id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT join_code, player_id, document_json, updated_at FROM private_states WHERE join_code = ? AND player_id = ?",
		joinCode, playerID,
	)
	var record storage.PrivateStateRecord
	var updatedAt int64
	if err := row.Scan(&record.JoinCode, &record.PlayerID, &record.DocumentJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PrivateStateRecord{}, storage.ErrNotFound
		}
		return storage.PrivateStateRecord{}, fmt.Errorf("scan private state row: %w", err)
	}
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// PutPrivateState stores one private document version, replacing any prior
// version for the same player.
func (s *Store) PutPrivateState(ctx context.Context, record storage.PrivateStateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.JoinCode = strings.TrimSpace(record.JoinCode)
	record.PlayerID = strings.TrimSpace(record.PlayerID)
	if record.JoinCode == "" || record.PlayerID == "" {
		return fmt.Errorf("join code and player id are required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO private_states (join_code, player_id, document_json, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (join_code, player_id) DO UPDATE SET
    document_json = excluded.document_json,
    updated_at = excluded.updated_at
`, record.JoinCode, record.PlayerID, record.DocumentJSON, toMillis(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert private state: %w", err)
	}
	return nil
}

// GetSubscription loads one player's push destination for one game.
func (s *Store) GetSubscription(ctx context.Context, joinCode string, playerID string) (storage.SubscriptionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SubscriptionRecord{}, err
	}
	joinCode = strings.TrimSpace(joinCode)
	playerID = strings.TrimSpace(playerID)
	if joinCode == "" || playerID == "" {
		return storage.SubscriptionRecord{}, fmt.Errorf("join code and player id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT id, join_code, player_id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE join_code = ? AND player_id = ?",
		joinCode, playerID,
	)
	var record storage.SubscriptionRecord
	var createdAt int64
	if err := row.Scan(&record.ID, &record.JoinCode, &record.PlayerID, &record.Endpoint, &record.P256dh, &record.Auth, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SubscriptionRecord{}, storage.ErrNotFound
		}
		return storage.SubscriptionRecord{}, fmt.Errorf("scan subscription row: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// PutSubscription stores one push destination, replacing any prior
// registration for the same player in the same game.
func (s *Store) PutSubscription(ctx context.Context, record storage.SubscriptionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.JoinCode = strings.TrimSpace(record.JoinCode)
	record.PlayerID = strings.TrimSpace(record.PlayerID)
	if record.JoinCode == "" || record.PlayerID == "" {
		return fmt.Errorf("join code and player id are required")
	}
	if record.ID == "" {
		return fmt.Errorf("subscription id is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO push_subscriptions (id, join_code, player_id, endpoint, p256dh, auth, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (join_code, player_id) DO UPDATE SET
    id = excluded.id,
    endpoint = excluded.endpoint,
    p256dh = excluded.p256dh,
    auth = excluded.auth,
    created_at = excluded.created_at
`, record.ID, record.JoinCode, record.PlayerID, record.Endpoint, record.P256dh, record.Auth, toMillis(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes one player's push destination. Deleting a
// missing registration is not an error.
func (s *Store) DeleteSubscription(ctx context.Context, joinCode string, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	joinCode = strings.TrimSpace(joinCode)
	playerID = strings.TrimSpace(playerID)
	if joinCode == "" || playerID == "" {
		return fmt.Errorf("join code and player id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM push_subscriptions WHERE join_code = ? AND player_id = ?",
		joinCode, playerID,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
