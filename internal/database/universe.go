package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CreateSector inserts a sector with its warp list and no port
func (q *Queries) CreateSector(ctx context.Context, id int, warps []int) error {
	if warps == nil {
		warps = []int{}
	}
	data, err := json.Marshal(warps)
	if err != nil {
		return fmt.Errorf("failed to encode warps: %w", err)
	}
	if _, err := q.q.ExecContext(ctx, `INSERT INTO sectors (id, warps) VALUES (?, ?)`, id, string(data)); err != nil {
		return fmt.Errorf("failed to create sector %d: %w", id, err)
	}
	return nil
}

// SetSectorPort links a sector to the port it hosts
func (q *Queries) SetSectorPort(ctx context.Context, sectorID int, portID int64) error {
	if _, err := q.q.ExecContext(ctx, `UPDATE sectors SET port_id = ? WHERE id = ?`, portID, sectorID); err != nil {
		return fmt.Errorf("failed to attach port %d to sector %d: %w", portID, sectorID, err)
	}
	return nil
}

func (q *Queries) Sector(ctx context.Context, id int) (Sector, error) {
	row := q.q.QueryRowContext(ctx, `SELECT id, warps, port_id FROM sectors WHERE id = ?`, id)
	s, err := scanSector(row)
	if err != nil {
		return Sector{}, notFound(err)
	}
	return s, nil
}

// AllSectors returns the whole universe ordered by sector id
func (q *Queries) AllSectors(ctx context.Context) ([]Sector, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, warps, port_id FROM sectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	var sectors []Sector
	for rows.Next() {
		s, err := scanSector(rows)
		if err != nil {
			return nil, err
		}
		sectors = append(sectors, s)
	}
	return sectors, rows.Err()
}

// CountSectors returns how many sectors have been created
func (q *Queries) CountSectors(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sectors: %w", err)
	}
	return n, nil
}

func scanSector(row rowScanner) (Sector, error) {
	var (
		s      Sector
		warps  string
		portID sql.NullInt64
	)
	if err := row.Scan(&s.ID, &warps, &portID); err != nil {
		return Sector{}, err
	}
	if err := json.Unmarshal([]byte(warps), &s.Warps); err != nil {
		return Sector{}, fmt.Errorf("corrupt warps for sector %d: %w", s.ID, err)
	}
	if portID.Valid {
		s.PortID = portID.Int64
	}
	return s, nil
}

const portColumns = "id, sector_id, name, credits, inventory, last_regeneration"

// CreatePort inserts a port and returns its id
func (q *Queries) CreatePort(ctx context.Context, sectorID int, name string, credits int, inv Inventory, regenerated time.Time) (int64, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return 0, fmt.Errorf("failed to encode inventory: %w", err)
	}
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO ports (sector_id, name, credits, inventory, last_regeneration)
		VALUES (?, ?, ?, ?, ?)`,
		sectorID, name, credits, string(data), formatTime(regenerated))
	if err != nil {
		return 0, fmt.Errorf("failed to create port in sector %d: %w", sectorID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read port id: %w", err)
	}
	return id, nil
}

func (q *Queries) Port(ctx context.Context, id int64) (Port, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+portColumns+" FROM ports WHERE id = ?", id)
	p, err := scanPort(row)
	if err != nil {
		return Port{}, notFound(err)
	}
	return p, nil
}

func (q *Queries) PortBySector(ctx context.Context, sectorID int) (Port, error) {
	row := q.q.QueryRowContext(ctx, "SELECT "+portColumns+" FROM ports WHERE sector_id = ?", sectorID)
	p, err := scanPort(row)
	if err != nil {
		return Port{}, notFound(err)
	}
	return p, nil
}

// PortSectors returns the ids of every sector that hosts a port, ascending
func (q *Queries) PortSectors(ctx context.Context) ([]int, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT sector_id FROM ports ORDER BY sector_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query port sectors: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdatePort writes back a port's credits, inventory and regeneration stamp
func (q *Queries) UpdatePort(ctx context.Context, p Port) error {
	data, err := json.Marshal(p.Inventory)
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}

	query, args, err := sq.Update("ports").
		SetMap(map[string]any{
			"credits":           p.Credits,
			"inventory":         string(data),
			"last_regeneration": formatTime(p.LastRegeneration),
		}).
		Where("id = ?", p.ID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build port update: %w", err)
	}

	if _, err := q.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update port %d: %w", p.ID, err)
	}
	return nil
}

func scanPort(row rowScanner) (Port, error) {
	var (
		p                Port
		inv, regenerated string
	)
	if err := row.Scan(&p.ID, &p.SectorID, &p.Name, &p.Credits, &inv, &regenerated); err != nil {
		return Port{}, err
	}
	if err := json.Unmarshal([]byte(inv), &p.Inventory); err != nil {
		return Port{}, fmt.Errorf("corrupt inventory for port %d: %w", p.ID, err)
	}
	var err error
	if p.LastRegeneration, err = parseTime(regenerated); err != nil {
		return Port{}, err
	}
	return p, nil
}
