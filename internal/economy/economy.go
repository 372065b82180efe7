package economy

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"meshwars/internal/config"
	"meshwars/internal/database"
)

// Goods describes the fixed market parameters of a commodity
type Goods struct {
	Short      string
	BasePrice  int
	Volatility int
}

var goods = [database.NumCommodities]Goods{
	database.Ore:       {Short: "Or", BasePrice: 250, Volatility: 1000},
	database.Organics:  {Short: "Og", BasePrice: 180, Volatility: 800},
	database.Equipment: {Short: "Eq", BasePrice: 3800, Volatility: 5000},
	database.Armor:     {Short: "Ar", BasePrice: 1200, Volatility: 3000},
	database.Batteries: {Short: "Ba", BasePrice: 11, Volatility: 20},
}

// GoodsOf returns the market parameters for c
func GoodsOf(c database.Commodity) Goods {
	return goods[c]
}

// Stock ranges drawn when a port is created
const (
	buyingMinQty  = 5000
	buyingMaxQty  = 100000
	sellingMinQty = 1000
	sellingMaxQty = 50000

	minPriceFactor = 0.5
	maxPriceFactor = 2.0
)

// Economy generates port inventories and applies trades and regeneration.
// Its random source is private, so inventories are reproducible per seed.
type Economy struct {
	cfg config.EconomyConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg config.EconomyConfig, seed int64) *Economy {
	return &Economy{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0xda942042e4dd58b5)),
	}
}

// GenerateInventory draws a fresh stock sheet for a new port
func (e *Economy) GenerateInventory() database.Inventory {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv := make(database.Inventory, database.NumCommodities)
	for _, c := range database.Commodities() {
		g := goods[c]
		item := database.Item{
			BasePrice:  g.BasePrice,
			Volatility: g.Volatility,
		}
		if e.rng.IntN(2) == 0 {
			item.Regime = database.Buying
			item.Quantity = buyingMinQty + e.rng.IntN(buyingMaxQty-buyingMinQty+1)
		} else {
			item.Regime = database.Selling
			item.Quantity = sellingMinQty + e.rng.IntN(sellingMaxQty-sellingMinQty+1)
		}
		modifier := 0.7 + e.rng.Float64()*0.6
		item.Price = ClampPrice(g.BasePrice, float64(g.BasePrice)*modifier)
		inv[c] = item
	}
	return inv
}

// ClampPrice bounds price to [0.5, 2.0] times base and rounds to a tenth
func ClampPrice(base int, price float64) float64 {
	lo := float64(base) * minPriceFactor
	hi := float64(base) * maxPriceFactor
	price = math.Round(price*10) / 10
	return math.Min(hi, math.Max(lo, price))
}

// RecomputePrice moves item's price by delta/volatility of its base price.
// delta is positive when stock leaves the port and negative when it arrives.
func RecomputePrice(item database.Item, delta int) float64 {
	if item.Volatility <= 0 {
		return ClampPrice(item.BasePrice, item.Price)
	}
	change := float64(delta) / float64(item.Volatility) * float64(item.BasePrice)
	return ClampPrice(item.BasePrice, item.Price+change)
}

// RegimeFor returns the regime a port takes for the given stock level.
// Stock below the flip threshold makes the port a buyer.
func (e *Economy) RegimeFor(quantity int) database.Regime {
	if quantity < e.cfg.RegimeFlipThreshold {
		return database.Buying
	}
	return database.Selling
}

// Cost is what qty units fetch at price, rounded to whole credits
func Cost(qty int, price float64) int {
	return int(math.Round(float64(qty) * price))
}

// RegenerationDue reports whether port may regenerate at now
func (e *Economy) RegenerationDue(port database.Port, now time.Time) bool {
	return now.Sub(port.LastRegeneration) >= e.cfg.RegenInterval
}

// Regenerate drifts each stock level RegenRate of the way toward RegenTarget
// and stamps the port. It returns false, leaving port untouched, when the
// regeneration interval has not yet elapsed.
func (e *Economy) Regenerate(port *database.Port, now time.Time) bool {
	if !e.RegenerationDue(*port, now) {
		return false
	}

	target := e.cfg.RegenTarget
	for c, item := range port.Inventory {
		diff := target - item.Quantity
		step := int(math.Round(float64(diff) * e.cfg.RegenRate))
		switch {
		case diff > 0:
			item.Quantity = min(item.Quantity+step, target)
		case diff < 0:
			item.Quantity = max(item.Quantity+step, target)
		}
		item.Price = ClampPrice(item.BasePrice, item.Price)
		port.Inventory[c] = item
	}
	port.LastRegeneration = now
	return true
}
