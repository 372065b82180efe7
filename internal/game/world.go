package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"meshwars/internal/config"
	"meshwars/internal/database"
	"meshwars/internal/economy"
	"meshwars/internal/gameerr"
	"meshwars/internal/log"
	"meshwars/internal/universe"
)

// World coordinates the shared universe: one-time bootstrap, the cached path
// finder and every multi-row game action. Safe for concurrent use.
type World struct {
	db   *database.Database
	cfg  *config.Config
	econ *economy.Economy
	now  func() time.Time

	genMu sync.Mutex
	gen   *universe.Generator
	seed  int64

	mu          sync.RWMutex
	pf          *universe.PathFinder
	portSectors []int
}

// NewWorld creates a world manager over db. A zero universe seed picks a
// time-based one; the seed actually used is persisted on bootstrap.
func NewWorld(db *database.Database, cfg *config.Config) *World {
	seed := cfg.Universe.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	econSeed := cfg.Economy.Seed
	if econSeed == 0 {
		econSeed = seed + 1
	}
	return &World{
		db:   db,
		cfg:  cfg,
		econ: economy.New(cfg.Economy, econSeed),
		now:  time.Now,
		gen:  universe.NewGenerator(cfg.Universe, seed),
		seed: seed,
	}
}

// SetClock overrides the time source, e.g. to exercise regeneration in tests
func (w *World) SetClock(now func() time.Time) {
	w.now = now
	w.db.SetClock(now)
}

// EnsureUniverse generates and stores the universe unless the
// universe_initialized flag is already set. Everything is written in one
// transaction, so a failed bootstrap leaves nothing behind.
func (w *World) EnsureUniverse(ctx context.Context) error {
	w.genMu.Lock()
	defer w.genMu.Unlock()

	created := false
	err := w.db.WithTx(ctx, func(q *database.Queries) error {
		_, initialized, err := q.State(ctx, database.StateUniverseInitialized)
		if err != nil {
			return err
		}
		if initialized {
			return nil
		}

		adj := w.gen.Generate()
		if err := universe.Validate(adj, w.cfg.Universe.Sectors); err != nil {
			return fmt.Errorf("generated universe is invalid: %w", err)
		}

		for id := 1; id <= w.cfg.Universe.Sectors; id++ {
			if err := q.CreateSector(ctx, id, adj[id]); err != nil {
				return err
			}
		}

		stamp := w.now()
		ports := w.gen.SelectPortSectors()
		for _, sector := range ports {
			portID, err := q.CreatePort(ctx, sector, w.gen.PortName(sector), w.cfg.Universe.PortCredits, w.econ.GenerateInventory(), stamp)
			if err != nil {
				return err
			}
			if err := q.SetSectorPort(ctx, sector, portID); err != nil {
				return err
			}
		}

		if err := q.SetState(ctx, database.StateUniverseSeed, strconv.FormatInt(w.seed, 10)); err != nil {
			return err
		}
		if err := q.SetState(ctx, database.StateUniverseInitialized, "true"); err != nil {
			return err
		}
		created = true
		log.Info("universe initialized", "sectors", w.cfg.Universe.Sectors, "ports", len(ports), "seed", w.seed)
		return nil
	})
	if err != nil {
		return gameerr.WrapPersistence("failed to initialize universe", err)
	}
	if !created {
		log.Debug("universe already initialized")
	}
	return nil
}

// PathFinder returns the path finder for the stored universe, building it on
// first use. Sectors never change after bootstrap so the result is cached.
func (w *World) PathFinder(ctx context.Context) (*universe.PathFinder, error) {
	w.mu.RLock()
	pf := w.pf
	w.mu.RUnlock()
	if pf != nil {
		return pf, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pf != nil {
		return w.pf, nil
	}

	sectors, err := w.db.AllSectors(ctx)
	if err != nil {
		return nil, gameerr.WrapPersistence("failed to load sectors", err)
	}
	if len(sectors) == 0 {
		return nil, gameerr.Invariantf("universe has not been initialized")
	}

	adj := make(universe.Adjacency, len(sectors))
	var ports []int
	for _, s := range sectors {
		adj[s.ID] = s.Warps
		if s.HasPort() {
			ports = append(ports, s.ID)
		}
	}

	pf, err = universe.NewPathFinder(adj, ports)
	if err != nil {
		return nil, gameerr.Invariantf("stored universe is unusable: %v", err)
	}
	w.pf = pf
	w.portSectors = ports
	log.Debug("path finder built", "sectors", len(sectors), "ports", len(ports))
	return pf, nil
}

// PortSectors returns the sectors hosting ports, ascending
func (w *World) PortSectors(ctx context.Context) ([]int, error) {
	if _, err := w.PathFinder(ctx); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.portSectors, nil
}

// persistence wraps storage failures, passing typed game errors through
func persistence(message string, err error) error {
	var gameErr *gameerr.Error
	if errors.As(err, &gameErr) {
		return err
	}
	return gameerr.WrapPersistence(message, err)
}
