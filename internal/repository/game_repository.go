package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/karataya/karata-server-go/internal/game"
)

// ErrGameNotFound is returned when no game exists under the given code.
var ErrGameNotFound = errors.New("game not found")

const schema = `
CREATE TABLE IF NOT EXISTS games (
	code       TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	checksum   TEXT NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// GameRepository persists game states in postgres with an optimistic version
// column. Saves succeed only when the stored version still matches the
// version the caller loaded, so two near-simultaneous commands cannot both
// commit against the same base state. Each save is also mirrored to a JSON
// backup file, best-effort.
type GameRepository struct {
	db        *DB
	backupDir string
	logger    *zap.Logger
}

// NewGameRepository creates a game repository. backupDir may be empty to
// disable file backups.
func NewGameRepository(db *DB, backupDir string, logger *zap.Logger) *GameRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameRepository{db: db, backupDir: backupDir, logger: logger}
}

// EnsureSchema creates the games table if it does not exist.
func (r *GameRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool().Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create games table: %w", err)
	}
	return nil
}

// Load fetches a game state and its stored version. The stored checksum is
// verified against the decoded state to catch corruption early.
func (r *GameRepository) Load(ctx context.Context, code string) (*game.GameState, int64, error) {
	var (
		data     []byte
		checksum string
		version  int64
	)
	err := r.db.Pool().QueryRow(ctx,
		`SELECT state, checksum, version FROM games WHERE code = $1`, code,
	).Scan(&data, &checksum, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrGameNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load game %s: %w", code, err)
	}

	state, err := game.DecodeState(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode game %s: %w", code, err)
	}
	if actual := game.StateChecksum(state); actual != checksum {
		return nil, 0, fmt.Errorf("checksum mismatch for game %s: stored %s, computed %s",
			code, checksum, actual)
	}
	return state, version, nil
}

// Create inserts a brand-new game at version 1.
func (r *GameRepository) Create(ctx context.Context, code string, state *game.GameState) error {
	data, err := game.EncodeState(state)
	if err != nil {
		return fmt.Errorf("failed to encode game %s: %w", code, err)
	}
	_, err = r.db.Pool().Exec(ctx,
		`INSERT INTO games (code, state, checksum, version) VALUES ($1, $2, $3, 1)`,
		code, data, game.StateChecksum(state),
	)
	if err != nil {
		return fmt.Errorf("failed to insert game %s: %w", code, err)
	}
	r.backup(code, data)
	return nil
}

// Save writes a game state, guarded by the version the caller loaded.
// Returns game.ErrVersionConflict when another writer committed first.
func (r *GameRepository) Save(ctx context.Context, code string, state *game.GameState, expectedVersion int64) error {
	data, err := game.EncodeState(state)
	if err != nil {
		return fmt.Errorf("failed to encode game %s: %w", code, err)
	}
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE games
		 SET state = $2, checksum = $3, version = version + 1, updated_at = now()
		 WHERE code = $1 AND version = $4`,
		code, data, game.StateChecksum(state), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return game.ErrVersionConflict
	}
	r.backup(code, data)
	return nil
}

// List returns all game codes, newest first.
func (r *GameRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT code FROM games ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Delete removes a finished game.
func (r *GameRepository) Delete(ctx context.Context, code string) error {
	_, err := r.db.Pool().Exec(ctx, `DELETE FROM games WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", code, err)
	}
	return nil
}

// backup mirrors the encoded state to a JSON file. Failures are logged and
// otherwise ignored; the database row is the source of truth.
func (r *GameRepository) backup(code string, data []byte) {
	if r.backupDir == "" {
		return
	}
	if err := os.MkdirAll(r.backupDir, 0o755); err != nil {
		r.logger.Warn("failed to create backup dir", zap.Error(err))
		return
	}
	path := filepath.Join(r.backupDir, code+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.logger.Warn("failed to write backup file",
			zap.String("game_code", code),
			zap.Error(err),
		)
	}
}
