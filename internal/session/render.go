package session

import (
	"fmt"
	"strconv"
	"strings"

	"meshwars/internal/database"
	"meshwars/internal/economy"
	"meshwars/internal/game"
)

const (
	msgDatabaseError = "Database error. Try again later."
	msgSessionError  = "Game error. Session ended."
	msgRegister      = "Welcome to TradeWars!\nYour call sign? (8 chars max)"
	msgConfirmYN     = "Y or N?"
	msgHelp          = "TradeWars Help:\nM=move M#=warp P=port\nC=cargo S=stats F=find port\nR=scan Q=quit"
	msgPortOptions   = "1)Buy 2)Sell 3)List 0)Exit"
	msgPortPrompt    = "Enter 1-3 or 0 to exit"
	msgPickGoods     = "Enter 1-5 or 0 to back"
	msgBadAmount     = "Invalid amount\nEnter number:"
	msgUnknown       = "Unknown command. H=help"
)

// truncate caps text at limit characters, marking the cut with "..."
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func formatCredits(n int) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return strconv.Itoa(n)
}

func formatQuantity(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return strconv.Itoa(n)
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func short(c database.Commodity) string {
	return economy.GoodsOf(c).Short
}

func (e *Engine) renderSector(info game.SectorInfo) string {
	warps := info.Sector.Warps
	if len(warps) > e.cfg.ConnectionsShown {
		warps = warps[:e.cfg.ConnectionsShown]
	}
	port := "N"
	if info.Sector.HasPort() {
		port = "Y"
	}
	p := info.Commander.Player
	return fmt.Sprintf("Sec%d[→%s]\nPort:%s Ships:%d\nTurns:%d Cr:%s\nH=help M=move P=port C=cargo",
		info.Sector.ID, joinInts(warps), port, info.Ships, p.Turns, formatCredits(p.Credits))
}

func renderConfirm(name string) string {
	return fmt.Sprintf("Cmdr %s, ready? Y/N", name)
}

func renderInvalidName(reason string) string {
	return fmt.Sprintf("Invalid: %s\nTry again:", reason)
}

func renderWelcome(c game.Commander) string {
	return fmt.Sprintf("Cmdr %s reporting!\nSec:%d Cr:%s T:%d",
		c.Player.Name, c.Ship.CurrentSector, formatCredits(c.Player.Credits), c.Player.Turns)
}

func renderNavigation(sector int, warps []int) string {
	return fmt.Sprintf("Sector %d\nWarp to? (%s)\nOr enter sector# (0=cancel)", sector, joinInts(warps))
}

func renderWarped(res game.WarpResult) string {
	return fmt.Sprintf("Warped to Sec%d (-%dT)", res.To, res.Cost)
}

func renderPortMenu(d game.Dock) string {
	return fmt.Sprintf("%s You:%s Port:%s\n%s",
		d.Port.Name, formatCredits(d.Commander.Player.Credits), formatCredits(d.Port.Credits), msgPortOptions)
}

func renderPortList(d game.Dock) string {
	var b strings.Builder
	b.WriteString("PORT:")
	for i, c := range database.Commodities() {
		item, ok := d.Port.Inventory[c]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%d)%s:%.0fcr %c %s", i+1, short(c), item.Price, item.Regime.String()[0], formatQuantity(item.Quantity))
	}
	b.WriteString("\n" + msgPortOptions)
	return b.String()
}

func renderBuyMenu(d game.Dock) string {
	var lines []string
	for i, c := range database.Commodities() {
		item, ok := d.Port.Inventory[c]
		if !ok || item.Regime != database.Selling {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d)%s:%.0fcr %s avail", i+1, short(c), item.Price, formatQuantity(item.Quantity)))
	}
	if len(lines) == 0 {
		return "BUY FROM PORT:\nNothing for sale\n0)Back"
	}
	return "BUY FROM PORT:\n" + strings.Join(lines, "\n") + "\n0)Back"
}

func renderSellMenu(d game.Dock) string {
	var lines []string
	cargo := d.Commander.Ship.Cargo
	for i, c := range database.Commodities() {
		item, ok := d.Port.Inventory[c]
		if !ok || item.Regime != database.Buying || cargo[c] == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d)%s:%.0fcr (have:%d)", i+1, short(c), item.Price, cargo[c]))
	}
	if len(lines) == 0 {
		return "SELL TO PORT:\nNothing to sell\n0)Back"
	}
	return "SELL TO PORT:\n" + strings.Join(lines, "\n") + "\n0)Back"
}

func renderQuantityPrompt(q game.Quote) string {
	verb := "Buy"
	if q.Side == game.Sell {
		verb = "Sell"
	}
	return fmt.Sprintf("%s %s@%.0fcr\nMax:%d Cr:%s\nHow many? (0=back)",
		verb, short(q.Commodity), q.Price, q.Check.Max, formatCredits(q.Dock.Commander.Player.Credits))
}

func renderTradeError(reason string) string {
	return fmt.Sprintf("Can't trade: %s\n0=back", reason)
}

func renderReceipt(r game.TradeResult) string {
	if r.Side == game.Buy {
		return fmt.Sprintf("Bought %d %s\nCost: %dcr\nBalance:%s Cargo:%d/%d\n%s",
			r.Quantity, short(r.Commodity), r.Amount, formatCredits(r.Credits), r.CargoUsed, r.Holds, msgPortOptions)
	}
	return fmt.Sprintf("Sold %d %s\nRevenue: %dcr\nBalance:%s Cargo:%d/%d\n%s",
		r.Quantity, short(r.Commodity), r.Amount, formatCredits(r.Credits), r.CargoUsed, r.Holds, msgPortOptions)
}

func renderCargo(c game.Commander) string {
	var parts []string
	for _, commodity := range database.Commodities() {
		if qty := c.Ship.Cargo[commodity]; qty > 0 {
			parts = append(parts, fmt.Sprintf("%s:%s", short(commodity), formatQuantity(qty)))
		}
	}
	head := fmt.Sprintf("CARGO %d/%d:\n", c.Ship.Cargo.Used(), c.Ship.CargoHolds)
	if len(parts) == 0 {
		return head + "Empty\nAny key=back"
	}
	return head + strings.Join(parts, " ") + "\nAny key=back"
}

func renderStats(c game.Commander) string {
	p := c.Player
	return fmt.Sprintf("%s Stats:\nCr:%s T:%d Sc:%d\nWarps:%d Trades:%d\nLoc:Sec%d\nAny key=back",
		p.Name, formatCredits(p.Credits), p.Turns, p.Score, p.TotalWarps, p.TotalTrades, c.Ship.CurrentSector)
}

func renderNearestPort(res game.NearestPortResult) string {
	if res.Distance == 0 {
		return "Port here! P=enter"
	}
	return fmt.Sprintf("Nearest port: Sec%d\n%d jumps, %d turns\nM%d to warp", res.Sector, res.Distance, res.Distance, res.Sector)
}
