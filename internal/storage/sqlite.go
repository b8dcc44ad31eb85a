package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwebster45206/novel-engine/internal/storage/migrations"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/storage"
)

// SQLiteStorage implements the Storage interface on a local SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStorage implements Storage interface
var _ storage.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database at path and applies embedded migrations.
func NewSQLiteStorage(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite storage opened", "path", path)
	return &SQLiteStorage{db: db, logger: logger}, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Health and lifecycle methods

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save slot operations

func (s *SQLiteStorage) SaveSlot(ctx context.Context, save *state.Save) error {
	if save == nil {
		return fmt.Errorf("save cannot be nil")
	}
	// Millisecond precision matches what the column stores
	save.UpdatedAt = fromMillis(toMillis(time.Now()))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saves (player_id, slot, chapter, scene_id, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (player_id, slot) DO UPDATE SET
		   chapter = excluded.chapter,
		   scene_id = excluded.scene_id,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		save.PlayerID.String(),
		save.Slot,
		save.Chapter,
		save.SceneID,
		save.Payload,
		toMillis(save.UpdatedAt),
	)
	if err != nil {
		s.logger.Error("Failed to save slot", "player_id", save.PlayerID, "slot", save.Slot, "error", err)
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadSlot(ctx context.Context, playerID uuid.UUID, slot int) (*state.Save, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT chapter, scene_id, payload, updated_at FROM saves WHERE player_id = ? AND slot = ?`,
		playerID.String(), slot,
	)

	save := &state.Save{PlayerID: playerID, Slot: slot}
	var updatedAt int64
	if err := row.Scan(&save.Chapter, &save.SceneID, &save.Payload, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil for not found
		}
		s.logger.Error("Failed to load slot", "player_id", playerID, "slot", slot, "error", err)
		return nil, fmt.Errorf("failed to load slot: %w", err)
	}
	save.UpdatedAt = fromMillis(updatedAt)
	return save, nil
}

func (s *SQLiteStorage) DeleteSlot(ctx context.Context, playerID uuid.UUID, slot int) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM saves WHERE player_id = ? AND slot = ?`,
		playerID.String(), slot,
	); err != nil {
		s.logger.Error("Failed to delete slot", "player_id", playerID, "slot", slot, "error", err)
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ListSlots(ctx context.Context, playerID uuid.UUID) ([]*state.Save, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, chapter, scene_id, payload, updated_at FROM saves WHERE player_id = ? ORDER BY slot`,
		playerID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	saves := []*state.Save{}
	for rows.Next() {
		save := &state.Save{PlayerID: playerID}
		var updatedAt int64
		if err := rows.Scan(&save.Slot, &save.Chapter, &save.SceneID, &save.Payload, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		save.UpdatedAt = fromMillis(updatedAt)
		saves = append(saves, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return saves, nil
}
