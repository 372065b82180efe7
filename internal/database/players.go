package database

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

const playerColumns = "id, identity, name, credits, turns, score, total_warps, total_trades, created_at, last_login"

// CreatePlayer inserts a new player and returns it with its assigned id
func (q *Queries) CreatePlayer(ctx context.Context, identity, name string, credits, turns int) (Player, error) {
	now := q.now()
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO players (identity, name, credits, turns, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?)`,
		identity, name, credits, turns, formatTime(now), formatTime(now))
	if err != nil {
		return Player{}, fmt.Errorf("failed to create player %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Player{}, fmt.Errorf("failed to read player id: %w", err)
	}
	return Player{
		ID:        id,
		Identity:  identity,
		Name:      name,
		Credits:   credits,
		Turns:     turns,
		CreatedAt: now.UTC(),
		LastLogin: now.UTC(),
	}, nil
}

// PlayerByIdentity looks a player up by the host-supplied identity
func (q *Queries) PlayerByIdentity(ctx context.Context, identity string) (Player, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE identity = ?", identity)
	p, err := scanPlayer(row)
	if err != nil {
		return Player{}, notFound(err)
	}
	return p, nil
}

func (q *Queries) PlayerByID(ctx context.Context, id int64) (Player, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id = ?", id)
	p, err := scanPlayer(row)
	if err != nil {
		return Player{}, notFound(err)
	}
	return p, nil
}

// PlayerNameExists reports whether a commander already uses name
func (q *Queries) PlayerNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM players WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check player name: %w", err)
	}
	return exists, nil
}

// CountPlayers returns the number of registered commanders
func (q *Queries) CountPlayers(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func scanPlayer(row rowScanner) (Player, error) {
	var (
		p                    Player
		createdAt, lastLogin string
	)
	if err := row.Scan(&p.ID, &p.Identity, &p.Name, &p.Credits, &p.Turns, &p.Score,
		&p.TotalWarps, &p.TotalTrades, &createdAt, &lastLogin); err != nil {
		return Player{}, err
	}
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return Player{}, err
	}
	if p.LastLogin, err = parseTime(lastLogin); err != nil {
		return Player{}, err
	}
	return p, nil
}

// PlayerUpdate collects column changes for a single player row.
// Only the columns that were touched are written.
type PlayerUpdate struct {
	updates map[string]any
	guards  squirrel.And
}

func NewPlayerUpdate() *PlayerUpdate {
	return &PlayerUpdate{updates: make(map[string]any)}
}

func (u *PlayerUpdate) SetTurns(turns int) *PlayerUpdate {
	u.updates["turns"] = turns
	return u
}

// AddCredits applies a relative change, computed by the database
func (u *PlayerUpdate) AddCredits(delta int) *PlayerUpdate {
	u.updates["credits"] = squirrel.Expr("credits + ?", delta)
	return u
}

// SpendTurns deducts n turns and refuses to apply when fewer remain
func (u *PlayerUpdate) SpendTurns(n int) *PlayerUpdate {
	u.updates["turns"] = squirrel.Expr("turns - ?", n)
	u.guards = append(u.guards, squirrel.GtOrEq{"turns": n})
	return u
}

func (u *PlayerUpdate) IncrementWarps() *PlayerUpdate {
	u.updates["total_warps"] = squirrel.Expr("total_warps + 1")
	return u
}

func (u *PlayerUpdate) IncrementTrades() *PlayerUpdate {
	u.updates["total_trades"] = squirrel.Expr("total_trades + 1")
	return u
}

// TouchLogin stamps last_login with the current time
func (u *PlayerUpdate) TouchLogin() *PlayerUpdate {
	u.updates["last_login"] = nil
	return u
}

// HasUpdates reports whether anything would be written
func (u *PlayerUpdate) HasUpdates() bool {
	return len(u.updates) > 0
}

// UpdatePlayer writes u to player id. It returns false when the row was not
// changed, either because it does not exist or a guard refused the update.
func (q *Queries) UpdatePlayer(ctx context.Context, id int64, u *PlayerUpdate) (bool, error) {
	if !u.HasUpdates() {
		return true, nil
	}

	set := make(map[string]any, len(u.updates))
	for col, val := range u.updates {
		set[col] = val
	}
	if _, ok := set["last_login"]; ok {
		set["last_login"] = formatTime(q.now())
	}

	where := squirrel.And{squirrel.Eq{"id": id}}
	where = append(where, u.guards...)

	query, args, err := sq.Update("players").SetMap(set).Where(where).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build player update: %w", err)
	}

	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update player %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}
