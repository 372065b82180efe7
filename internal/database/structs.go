package database

import (
	"fmt"
	"strings"
	"time"
)

// Commodity identifies one of the five goods every port tracks.
// The order is the menu order players pick from (1-5).
type Commodity int

const (
	Ore Commodity = iota
	Organics
	Equipment
	Armor
	Batteries
)

// NumCommodities is the number of tradeable goods
const NumCommodities = 5

var commodityNames = [NumCommodities]string{"Ore", "Organics", "Equipment", "Armor", "Batteries"}

// Commodities returns all goods in menu order
func Commodities() []Commodity {
	return []Commodity{Ore, Organics, Equipment, Armor, Batteries}
}

// CommodityAt maps a 1-based menu index to a commodity
func CommodityAt(index int) (Commodity, bool) {
	if index < 1 || index > NumCommodities {
		return 0, false
	}
	return Commodity(index - 1), true
}

func (c Commodity) Valid() bool {
	return c >= 0 && c < NumCommodities
}

func (c Commodity) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Commodity(%d)", int(c))
	}
	return commodityNames[c]
}

func (c Commodity) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid commodity %d", int(c))
	}
	return []byte(commodityNames[c]), nil
}

func (c *Commodity) UnmarshalText(text []byte) error {
	for i, name := range commodityNames {
		if strings.EqualFold(name, string(text)) {
			*c = Commodity(i)
			return nil
		}
	}
	return fmt.Errorf("unknown commodity %q", text)
}

// Regime records whether a port is currently buying or selling a commodity
type Regime int

const (
	Buying Regime = iota
	Selling
)

func (r Regime) String() string {
	if r == Selling {
		return "Selling"
	}
	return "Buying"
}

func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Regime) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "buying":
		*r = Buying
	case "selling":
		*r = Selling
	default:
		return fmt.Errorf("unknown regime %q", text)
	}
	return nil
}

// Item is a port's position in a single commodity
type Item struct {
	Regime     Regime  `json:"status"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	BasePrice  int     `json:"base_price"`
	Volatility int     `json:"volatility"`
}

// Inventory is a port's full stock sheet
type Inventory map[Commodity]Item

// Clone returns a deep copy so callers can mutate without touching the original
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for c, item := range inv {
		out[c] = item
	}
	return out
}

// Cargo is the contents of a ship's holds
type Cargo map[Commodity]int

// EmptyCargo returns a hold manifest with every commodity at zero
func EmptyCargo() Cargo {
	cargo := make(Cargo, NumCommodities)
	for _, c := range Commodities() {
		cargo[c] = 0
	}
	return cargo
}

// Used returns the number of holds in use
func (c Cargo) Used() int {
	used := 0
	for _, qty := range c {
		used += qty
	}
	return used
}

func (c Cargo) Clone() Cargo {
	out := make(Cargo, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Player is a registered commander, keyed by the host's opaque identity
type Player struct {
	ID          int64     `json:"id"`
	Identity    string    `json:"identity"`
	Name        string    `json:"name"`
	Credits     int       `json:"credits"`
	Turns       int       `json:"turns"`
	Score       int       `json:"score"`
	TotalWarps  int       `json:"total_warps"`
	TotalTrades int       `json:"total_trades"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}

// Ship is owned 1:1 by a player
type Ship struct {
	ID            int64     `json:"id"`
	PlayerID      int64     `json:"player_id"`
	CurrentSector int       `json:"current_sector"`
	CargoHolds    int       `json:"cargo_holds"`
	Cargo         Cargo     `json:"cargo"`
	CreatedAt     time.Time `json:"created_at"`
}

// FreeHolds returns the unused cargo capacity
func (s Ship) FreeHolds() int {
	free := s.CargoHolds - s.Cargo.Used()
	if free < 0 {
		return 0
	}
	return free
}

// Sector is a node of the universe graph. Immutable once created.
type Sector struct {
	ID    int   `json:"id"`
	Warps []int `json:"warps"`
	// PortID is 0 when the sector has no port
	PortID int64 `json:"port_id"`
}

func (s Sector) HasPort() bool {
	return s.PortID != 0
}

// Port is a trading station attached to exactly one sector
type Port struct {
	ID               int64     `json:"id"`
	SectorID         int       `json:"sector_id"`
	Name             string    `json:"name"`
	Credits          int       `json:"credits"`
	Inventory        Inventory `json:"inventory"`
	LastRegeneration time.Time `json:"last_regeneration"`
}
