package database

import (
	"context"
	"encoding/json"
	"fmt"
)

const shipColumns = "id, player_id, current_sector, cargo_holds, cargo, created_at"

// CreateShip gives a player their ship, parked in sector with empty holds
func (q *Queries) CreateShip(ctx context.Context, playerID int64, sector, holds int) (Ship, error) {
	now := q.now()
	cargo := EmptyCargo()
	data, err := json.Marshal(cargo)
	if err != nil {
		return Ship{}, fmt.Errorf("failed to encode cargo: %w", err)
	}

	res, err := q.q.ExecContext(ctx, `
		INSERT INTO ships (player_id, current_sector, cargo_holds, cargo, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		playerID, sector, holds, string(data), formatTime(now))
	if err != nil {
		return Ship{}, fmt.Errorf("failed to create ship for player %d: %w", playerID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Ship{}, fmt.Errorf("failed to read ship id: %w", err)
	}
	return Ship{
		ID:            id,
		PlayerID:      playerID,
		CurrentSector: sector,
		CargoHolds:    holds,
		Cargo:         cargo,
		CreatedAt:     now.UTC(),
	}, nil
}

// ShipByPlayerID returns the ship owned by playerID
func (q *Queries) ShipByPlayerID(ctx context.Context, playerID int64) (Ship, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+shipColumns+" FROM ships WHERE player_id = ?", playerID)
	var (
		s                Ship
		cargo, createdAt string
	)
	if err := row.Scan(&s.ID, &s.PlayerID, &s.CurrentSector, &s.CargoHolds, &cargo, &createdAt); err != nil {
		return Ship{}, notFound(err)
	}
	s.Cargo = EmptyCargo()
	if err := json.Unmarshal([]byte(cargo), &s.Cargo); err != nil {
		return Ship{}, fmt.Errorf("corrupt cargo for ship %d: %w", s.ID, err)
	}
	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return Ship{}, err
	}
	return s, nil
}

func (q *Queries) UpdateShipSector(ctx context.Context, shipID int64, sector int) error {
	_, err := q.q.ExecContext(ctx, `UPDATE ships SET current_sector = ? WHERE id = ?`, sector, shipID)
	if err != nil {
		return fmt.Errorf("failed to move ship %d: %w", shipID, err)
	}
	return nil
}

func (q *Queries) UpdateShipCargo(ctx context.Context, shipID int64, cargo Cargo) error {
	data, err := json.Marshal(cargo)
	if err != nil {
		return fmt.Errorf("failed to encode cargo: %w", err)
	}
	if _, err := q.q.ExecContext(ctx, `UPDATE ships SET cargo = ? WHERE id = ?`, string(data), shipID); err != nil {
		return fmt.Errorf("failed to update cargo for ship %d: %w", shipID, err)
	}
	return nil
}

// ShipsInSector counts the ships currently parked in sector
func (q *Queries) ShipsInSector(ctx context.Context, sector int) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM ships WHERE current_sector = ?`, sector).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count ships in sector %d: %w", sector, err)
	}
	return n, nil
}
