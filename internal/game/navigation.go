package game

import (
	"context"
	"errors"

	"meshwars/internal/database"
	"meshwars/internal/gameerr"
	"meshwars/internal/log"
	"meshwars/internal/universe"
)

// SectorInfo is everything the sector screen shows
type SectorInfo struct {
	Commander Commander
	Sector    database.Sector
	Ships     int
}

// Sector describes the commander's current location
func (w *World) Sector(ctx context.Context, playerID int64) (SectorInfo, error) {
	c, err := w.CommanderByID(ctx, playerID)
	if err != nil {
		return SectorInfo{}, err
	}
	sector, err := w.db.Sector(ctx, c.Ship.CurrentSector)
	if errors.Is(err, database.ErrNotFound) {
		return SectorInfo{}, gameerr.Invariantf("ship %d is in missing sector %d", c.Ship.ID, c.Ship.CurrentSector)
	}
	if err != nil {
		return SectorInfo{}, gameerr.WrapPersistence("failed to load sector", err)
	}
	ships, err := w.db.ShipsInSector(ctx, sector.ID)
	if err != nil {
		return SectorInfo{}, gameerr.WrapPersistence("failed to count ships", err)
	}
	return SectorInfo{Commander: c, Sector: sector, Ships: ships}, nil
}

// WarpResult describes a completed warp
type WarpResult struct {
	From      int
	To        int
	Path      []int
	Cost      int
	TurnsLeft int
}

// Warp moves the commander's ship along a shortest path to dest, charging one
// turn per hop. Turns, position and the warp counter change together or not
// at all.
func (w *World) Warp(ctx context.Context, playerID int64, dest int) (WarpResult, error) {
	pf, err := w.PathFinder(ctx)
	if err != nil {
		return WarpResult{}, err
	}
	if dest < 1 || dest > pf.Sectors() {
		return WarpResult{}, gameerr.Validationf("Sector must be 1-%d", pf.Sectors())
	}

	var res WarpResult
	err = w.db.WithTx(ctx, func(q *database.Queries) error {
		player, err := q.PlayerByID(ctx, playerID)
		if err != nil {
			return err
		}
		c, err := loadCommander(ctx, q, player)
		if err != nil {
			return err
		}

		from := c.Ship.CurrentSector
		if from == dest {
			return gameerr.Domainf("Already in sector %d", dest)
		}

		path, err := pf.Path(from, dest)
		if errors.Is(err, universe.ErrUnreachable) {
			return gameerr.Domainf("Sector %d unreachable", dest)
		}
		if err != nil {
			return err
		}

		cost := len(path) - 1
		if player.Turns < cost {
			return gameerr.Domainf("Insufficient turns: need %d, have %d", cost, player.Turns)
		}

		ok, err := q.UpdatePlayer(ctx, playerID, database.NewPlayerUpdate().SpendTurns(cost).IncrementWarps())
		if err != nil {
			return err
		}
		if !ok {
			return gameerr.Domainf("Insufficient turns: need %d, have %d", cost, player.Turns)
		}
		if err := q.UpdateShipSector(ctx, c.Ship.ID, dest); err != nil {
			return err
		}

		res = WarpResult{From: from, To: dest, Path: path, Cost: cost, TurnsLeft: player.Turns - cost}
		return nil
	})
	if err != nil {
		return WarpResult{}, persistence("failed to warp", err)
	}

	log.Debug("warp", "player", playerID, "from", res.From, "to", res.To, "cost", res.Cost)
	return res, nil
}

// NearestPortResult locates the closest port
type NearestPortResult struct {
	Sector   int
	Distance int
}

// NearestPort finds the port closest to the commander, preferring the lowest
// sector id on ties.
func (w *World) NearestPort(ctx context.Context, playerID int64) (NearestPortResult, error) {
	pf, err := w.PathFinder(ctx)
	if err != nil {
		return NearestPortResult{}, err
	}
	ports, err := w.PortSectors(ctx)
	if err != nil {
		return NearestPortResult{}, err
	}
	c, err := w.CommanderByID(ctx, playerID)
	if err != nil {
		return NearestPortResult{}, err
	}

	sector, dist, err := pf.NearestPort(c.Ship.CurrentSector, ports)
	if errors.Is(err, universe.ErrNoPorts) || errors.Is(err, universe.ErrUnreachable) {
		return NearestPortResult{}, gameerr.Domainf("No ports in range")
	}
	if err != nil {
		return NearestPortResult{}, gameerr.WrapPersistence("failed to find port", err)
	}
	return NearestPortResult{Sector: sector, Distance: dist}, nil
}
