package database

import (
	"context"
	"fmt"
)

// Well-known game_state keys
const (
	StateUniverseInitialized = "universe_initialized"
	StateUniverseSeed        = "universe_seed"
)

// State reads a game flag. ok is false when the key has never been set.
func (q *Queries) State(ctx context.Context, key string) (value string, ok bool, err error) {
	err = q.q.QueryRowContext(ctx, `SELECT value FROM game_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read game state %s: %w", key, err)
	}
	return value, true, nil
}

// SetState upserts a game flag
func (q *Queries) SetState(ctx context.Context, key, value string) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO game_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(q.now()))
	if err != nil {
		return fmt.Errorf("failed to write game state %s: %w", key, err)
	}
	return nil
}
