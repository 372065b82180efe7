package economy

import (
	"fmt"

	"meshwars/internal/database"
)

// Reason explains the outcome of a trade check
type Reason int

const (
	Allowed Reason = iota
	NotTraded
	WrongRegime
	InsufficientStock
	InsufficientHolds
	InsufficientCredits
	InsufficientCargo
	PortCredits
)

var reasonNames = map[Reason]string{
	Allowed:             "allowed",
	NotTraded:           "not traded",
	WrongRegime:         "wrong regime",
	InsufficientStock:   "insufficient stock",
	InsufficientHolds:   "insufficient holds",
	InsufficientCredits: "insufficient credits",
	InsufficientCargo:   "insufficient cargo",
	PortCredits:         "port credits",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Check is the verdict of CheckBuy or CheckSell. Limit is the bound that
// failed; Max is the largest quantity that would pass every check.
type Check struct {
	Reason Reason
	Limit  int
	Max    int
}

func (c Check) OK() bool {
	return c.Reason == Allowed
}

// Describe renders the refusal for a player. buying is the player's side.
func (c Check) Describe(commodity database.Commodity, buying bool) string {
	switch c.Reason {
	case Allowed:
		return ""
	case NotTraded:
		return fmt.Sprintf("Port doesn't trade %s", commodity)
	case WrongRegime:
		if buying {
			return fmt.Sprintf("Port not selling %s", commodity)
		}
		return fmt.Sprintf("Port not buying %s", commodity)
	case InsufficientStock:
		return fmt.Sprintf("Only %d available", c.Limit)
	case InsufficientHolds:
		return fmt.Sprintf("Only %d holds free", c.Limit)
	case InsufficientCredits:
		return fmt.Sprintf("Only %d units affordable", c.Limit)
	case InsufficientCargo:
		return fmt.Sprintf("You only have %d units", c.Limit)
	case PortCredits:
		return fmt.Sprintf("Port can only buy %d units", c.Limit)
	}
	return c.Reason.String()
}

// affordable returns the most units whose Cost fits within credits
func affordable(credits int, price float64) int {
	if price <= 0 || credits <= 0 {
		return 0
	}
	n := int(float64(credits) / price)
	for n > 0 && Cost(n, price) > credits {
		n--
	}
	return n
}

// CheckBuy validates a player buying qty units of c from a port
func CheckBuy(inv database.Inventory, c database.Commodity, qty, credits, cargoUsed, holds int) Check {
	item, ok := inv[c]
	if !ok {
		return Check{Reason: NotTraded}
	}
	if item.Regime != database.Selling {
		return Check{Reason: WrongRegime}
	}

	free := max(holds-cargoUsed, 0)
	afford := affordable(credits, item.Price)
	most := min(item.Quantity, free, afford)

	switch {
	case qty > item.Quantity:
		return Check{Reason: InsufficientStock, Limit: item.Quantity, Max: most}
	case qty > free:
		return Check{Reason: InsufficientHolds, Limit: free, Max: most}
	case Cost(qty, item.Price) > credits:
		return Check{Reason: InsufficientCredits, Limit: afford, Max: most}
	}
	return Check{Reason: Allowed, Max: most}
}

// CheckSell validates a player selling qty units of c, of which they hold held
func CheckSell(inv database.Inventory, c database.Commodity, qty, held, portCredits int) Check {
	item, ok := inv[c]
	if !ok {
		return Check{Reason: NotTraded}
	}
	if item.Regime != database.Buying {
		return Check{Reason: WrongRegime}
	}

	afford := affordable(portCredits, item.Price)
	most := min(held, afford)

	switch {
	case qty > held:
		return Check{Reason: InsufficientCargo, Limit: held, Max: most}
	case Cost(qty, item.Price) > portCredits:
		return Check{Reason: PortCredits, Limit: afford, Max: most}
	}
	return Check{Reason: Allowed, Max: most}
}

// ApplyBuy moves qty units of c out of port to a player and returns what
// the player pays. The caller must have passed CheckBuy.
func (e *Economy) ApplyBuy(port *database.Port, c database.Commodity, qty int) (int, error) {
	item, ok := port.Inventory[c]
	if !ok || qty <= 0 || qty > item.Quantity {
		return 0, fmt.Errorf("cannot sell %d %s from port %d", qty, c, port.ID)
	}

	cost := Cost(qty, item.Price)
	item.Quantity -= qty
	item.Price = RecomputePrice(item, qty)
	item.Regime = e.RegimeFor(item.Quantity)
	port.Inventory[c] = item
	port.Credits += cost
	return cost, nil
}

// ApplySell moves qty units of c from a player into port and returns what
// the port pays. The caller must have passed CheckSell.
func (e *Economy) ApplySell(port *database.Port, c database.Commodity, qty int) (int, error) {
	item, ok := port.Inventory[c]
	if !ok || qty <= 0 {
		return 0, fmt.Errorf("cannot buy %d %s into port %d", qty, c, port.ID)
	}

	revenue := Cost(qty, item.Price)
	if revenue > port.Credits {
		return 0, fmt.Errorf("port %d cannot pay %d credits", port.ID, revenue)
	}
	item.Quantity += qty
	item.Price = RecomputePrice(item, -qty)
	item.Regime = e.RegimeFor(item.Quantity)
	port.Inventory[c] = item
	port.Credits -= revenue
	return revenue, nil
}
