package game

import (
	"context"
	"errors"
	"fmt"

	"meshwars/internal/database"
	"meshwars/internal/economy"
	"meshwars/internal/gameerr"
	"meshwars/internal/log"
)

// Side is the player's side of a trade
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Dock is a commander at a port
type Dock struct {
	Commander Commander
	Port      database.Port
}

// loadDock reads the commander and port inside q, regenerating the port's
// stock when it is due. portID 0 means the port in the ship's sector.
func (w *World) loadDock(ctx context.Context, q *database.Queries, playerID, portID int64) (Dock, error) {
	player, err := q.PlayerByID(ctx, playerID)
	if err != nil {
		return Dock{}, err
	}
	c, err := loadCommander(ctx, q, player)
	if err != nil {
		return Dock{}, err
	}

	var port database.Port
	if portID == 0 {
		port, err = q.PortBySector(ctx, c.Ship.CurrentSector)
	} else {
		port, err = q.Port(ctx, portID)
	}
	if errors.Is(err, database.ErrNotFound) {
		return Dock{}, gameerr.Domainf("No port here")
	}
	if err != nil {
		return Dock{}, err
	}
	if port.SectorID != c.Ship.CurrentSector {
		return Dock{}, gameerr.Domainf("Not docked at %s", port.Name)
	}

	if w.econ.Regenerate(&port, w.now()) {
		if err := q.UpdatePort(ctx, port); err != nil {
			return Dock{}, err
		}
		log.Debug("port regenerated", "port", port.ID, "sector", port.SectorID)
	}
	return Dock{Commander: c, Port: port}, nil
}

// OpenPort docks the commander at a port, applying any regeneration that has
// come due. portID 0 opens the port in the commander's current sector.
func (w *World) OpenPort(ctx context.Context, playerID, portID int64) (Dock, error) {
	var d Dock
	err := w.db.WithTx(ctx, func(q *database.Queries) error {
		var err error
		d, err = w.loadDock(ctx, q, playerID, portID)
		return err
	})
	if err != nil {
		return Dock{}, persistence("failed to open port", err)
	}
	return d, nil
}

// Quote is the answer to "how much of this commodity can I trade"
type Quote struct {
	Dock      Dock
	Commodity database.Commodity
	Side      Side
	Price     float64
	Check     economy.Check
}

func check(d Dock, c database.Commodity, side Side, qty int) economy.Check {
	if side == Buy {
		return economy.CheckBuy(d.Port.Inventory, c, qty,
			d.Commander.Player.Credits, d.Commander.Ship.Cargo.Used(), d.Commander.Ship.CargoHolds)
	}
	return economy.CheckSell(d.Port.Inventory, c, qty,
		d.Commander.Ship.Cargo[c], d.Port.Credits)
}

// QuoteTrade checks whether a single unit of c can be traded and reports the
// most that could be.
func (w *World) QuoteTrade(ctx context.Context, playerID, portID int64, c database.Commodity, side Side) (Quote, error) {
	d, err := w.OpenPort(ctx, playerID, portID)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Dock:      d,
		Commodity: c,
		Side:      side,
		Price:     d.Port.Inventory[c].Price,
		Check:     check(d, c, side, 1),
	}, nil
}

// TradeResult is the receipt of an executed trade
type TradeResult struct {
	Side      Side
	Commodity database.Commodity
	Quantity  int
	Price     float64
	Amount    int
	Credits   int
	CargoUsed int
	Holds     int
}

// ExecuteTrade re-validates against fresh rows and then moves credits, cargo
// and port stock in one transaction.
func (w *World) ExecuteTrade(ctx context.Context, playerID, portID int64, c database.Commodity, side Side, qty int) (TradeResult, error) {
	if !c.Valid() {
		return TradeResult{}, gameerr.Validationf("Invalid commodity")
	}
	if qty < 1 {
		return TradeResult{}, gameerr.Validationf("Invalid amount")
	}

	var res TradeResult
	err := w.db.WithTx(ctx, func(q *database.Queries) error {
		d, err := w.loadDock(ctx, q, playerID, portID)
		if err != nil {
			return err
		}

		verdict := check(d, c, side, qty)
		if !verdict.OK() {
			return gameerr.Domainf("%s. Max:%d", verdict.Describe(c, side == Buy), verdict.Max)
		}

		port := d.Port
		port.Inventory = d.Port.Inventory.Clone()
		price := port.Inventory[c].Price
		cargo := d.Commander.Ship.Cargo.Clone()
		update := database.NewPlayerUpdate().IncrementTrades()

		var amount int
		if side == Buy {
			amount, err = w.econ.ApplyBuy(&port, c, qty)
			if err != nil {
				return err
			}
			cargo[c] += qty
			update.AddCredits(-amount)
		} else {
			amount, err = w.econ.ApplySell(&port, c, qty)
			if err != nil {
				return err
			}
			cargo[c] -= qty
			update.AddCredits(amount)
		}

		if cargo.Used() > d.Commander.Ship.CargoHolds || cargo[c] < 0 {
			return gameerr.Invariantf("cargo out of bounds for ship %d", d.Commander.Ship.ID)
		}

		ok, err := q.UpdatePlayer(ctx, playerID, update)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("player %d not updated", playerID)
		}
		if err := q.UpdateShipCargo(ctx, d.Commander.Ship.ID, cargo); err != nil {
			return err
		}
		if err := q.UpdatePort(ctx, port); err != nil {
			return err
		}

		credits := d.Commander.Player.Credits
		if side == Buy {
			credits -= amount
		} else {
			credits += amount
		}
		res = TradeResult{
			Side:      side,
			Commodity: c,
			Quantity:  qty,
			Price:     price,
			Amount:    amount,
			Credits:   credits,
			CargoUsed: cargo.Used(),
			Holds:     d.Commander.Ship.CargoHolds,
		}
		return nil
	})
	if err != nil {
		return TradeResult{}, persistence("failed to execute trade", err)
	}

	log.Info("trade", "player", playerID, "side", side, "commodity", c, "quantity", qty, "amount", res.Amount)
	return res, nil
}
