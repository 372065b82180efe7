package game

import (
	"context"
	"errors"
	"strings"

	"meshwars/internal/database"
	"meshwars/internal/gameerr"
	"meshwars/internal/log"
)

// MaxNameLength is the longest call sign a commander may register
const MaxNameLength = 8

// ErrNotRegistered is returned for identities that have no player yet
var ErrNotRegistered = errors.New("not registered")

// Commander is a player together with their ship
type Commander struct {
	Player database.Player
	Ship   database.Ship
}

// NormalizeName upper-cases a candidate call sign and checks it is 1-8 ASCII
// letters or digits.
func NormalizeName(raw string) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return "", gameerr.Validationf("Name required")
	}
	if len(name) > MaxNameLength {
		return "", gameerr.Validationf("Max %d chars", MaxNameLength)
	}
	for _, r := range name {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", gameerr.Validationf("Letters/numbers only")
		}
	}
	return name, nil
}

func loadCommander(ctx context.Context, q *database.Queries, player database.Player) (Commander, error) {
	ship, err := q.ShipByPlayerID(ctx, player.ID)
	if errors.Is(err, database.ErrNotFound) {
		return Commander{}, gameerr.Invariantf("player %d has no ship", player.ID)
	}
	if err != nil {
		return Commander{}, gameerr.WrapPersistence("failed to load ship", err)
	}
	return Commander{Player: player, Ship: ship}, nil
}

// Commander loads the player registered under identity.
// It returns ErrNotRegistered when there is none.
func (w *World) Commander(ctx context.Context, identity string) (Commander, error) {
	player, err := w.db.PlayerByIdentity(ctx, identity)
	if errors.Is(err, database.ErrNotFound) {
		return Commander{}, ErrNotRegistered
	}
	if err != nil {
		return Commander{}, gameerr.WrapPersistence("failed to load player", err)
	}
	return loadCommander(ctx, w.db.Queries, player)
}

// CommanderByID loads a player and ship by player id
func (w *World) CommanderByID(ctx context.Context, playerID int64) (Commander, error) {
	player, err := w.db.PlayerByID(ctx, playerID)
	if errors.Is(err, database.ErrNotFound) {
		return Commander{}, gameerr.Invariantf("player %d vanished", playerID)
	}
	if err != nil {
		return Commander{}, gameerr.WrapPersistence("failed to load player", err)
	}
	return loadCommander(ctx, w.db.Queries, player)
}

// NameAvailable reports whether name can still be registered
func (w *World) NameAvailable(ctx context.Context, name string) (bool, error) {
	exists, err := w.db.PlayerNameExists(ctx, name)
	if err != nil {
		return false, gameerr.WrapPersistence("failed to check name", err)
	}
	return !exists, nil
}

// Register creates a player and their ship in one transaction. The ship
// starts in a random sector between 1 and the configured maximum.
func (w *World) Register(ctx context.Context, identity, rawName string) (Commander, error) {
	name, err := NormalizeName(rawName)
	if err != nil {
		return Commander{}, err
	}

	w.genMu.Lock()
	start := w.gen.StartingSector(w.cfg.Player.StartingSectorMax)
	w.genMu.Unlock()

	var c Commander
	err = w.db.WithTx(ctx, func(q *database.Queries) error {
		if _, err := q.PlayerByIdentity(ctx, identity); err == nil {
			return gameerr.Domainf("Already registered")
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		exists, err := q.PlayerNameExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return gameerr.Domainf("Name taken")
		}

		player, err := q.CreatePlayer(ctx, identity, name, w.cfg.Player.StartingCredits, w.cfg.Player.StartingTurns)
		if err != nil {
			return err
		}
		ship, err := q.CreateShip(ctx, player.ID, start, w.cfg.Player.CargoHolds)
		if err != nil {
			return err
		}
		c = Commander{Player: player, Ship: ship}
		return nil
	})
	if err != nil {
		return Commander{}, persistence("failed to register player", err)
	}

	log.Info("player registered", "name", name, "identity", identity, "sector", start)
	return c, nil
}

// TouchLogin records that a commander opened a session
func (w *World) TouchLogin(ctx context.Context, playerID int64) error {
	if _, err := w.db.UpdatePlayer(ctx, playerID, database.NewPlayerUpdate().TouchLogin()); err != nil {
		return gameerr.WrapPersistence("failed to record login", err)
	}
	return nil
}
