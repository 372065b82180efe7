package session

import (
	"context"
	"strings"

	"meshwars/internal/database"
	"meshwars/internal/game"
	"meshwars/internal/gameerr"
)

// isRefusal reports whether err is the player's fault rather than the system's
func isRefusal(err error) bool {
	kind := gameerr.KindOf(err)
	return kind == gameerr.KindValidation || kind == gameerr.KindDomain
}

func (e *Engine) handleRegistration(ctx context.Context, t *turn, st Registration) (reply, error) {
	if st.PendingName == "" {
		if t.input == "" {
			return stay(msgRegister, st), nil
		}
		name, err := game.NormalizeName(t.input)
		if err != nil {
			return stay(renderInvalidName(gameerr.Message(err)), st), nil
		}
		available, err := e.world.NameAvailable(ctx, name)
		if err != nil {
			return reply{}, err
		}
		if !available {
			return stay(renderInvalidName("Name taken"), st), nil
		}
		return stay(renderConfirm(name), Registration{PendingName: name}), nil
	}

	switch {
	case isYes(t.input):
		c, err := e.world.Register(ctx, t.identity, st.PendingName)
		if isRefusal(err) {
			return stay(renderInvalidName(gameerr.Message(err)), Registration{}), nil
		}
		if err != nil {
			return reply{}, err
		}
		info, err := e.world.Sector(ctx, c.Player.ID)
		if err != nil {
			return reply{}, err
		}
		e.logger.Info("commander joined", "identity", t.identity, "name", c.Player.Name)
		return stay(renderWelcome(c)+"\n"+e.renderSector(info), SectorView{}), nil
	case isNo(t.input):
		return stay("Call sign discarded.\nYour call sign? (8 chars max)", Registration{}), nil
	}
	return stay(msgConfirmYN, st), nil
}

// showSector renders the sector screen, optionally prefixed by a notice
func (e *Engine) showSector(ctx context.Context, t *turn, notice string) (reply, error) {
	info, err := e.world.Sector(ctx, t.commander.Player.ID)
	if err != nil {
		return reply{}, err
	}
	text := e.renderSector(info)
	if notice != "" {
		text = notice + "\n" + text
	}
	return stay(text, SectorView{}), nil
}

func (e *Engine) handleSectorView(ctx context.Context, t *turn, st SectorView) (reply, error) {
	c := t.commander
	switch in := t.input; {
	case in == "" || in == "R" || in == "SCAN":
		return e.showSector(ctx, t, "")
	case in == "H" || in == "HELP" || in == "?":
		return stay(msgHelp, st), nil
	case in == "M":
		pf, err := e.world.PathFinder(ctx)
		if err != nil {
			return reply{}, err
		}
		return stay(renderNavigation(c.Ship.CurrentSector, pf.Neighbors(c.Ship.CurrentSector)), Navigation{}), nil
	case strings.HasPrefix(in, "M"):
		dest, ok := parseNumber(strings.TrimSpace(in[1:]))
		if !ok {
			return stay(msgUnknown, st), nil
		}
		return e.warp(ctx, t, dest, st)
	case in == "P":
		d, err := e.world.OpenPort(ctx, c.Player.ID, 0)
		if isRefusal(err) {
			return stay("No port in this sector", st), nil
		}
		if err != nil {
			return reply{}, err
		}
		return stay(renderPortMenu(d), InPort{PortID: d.Port.ID}), nil
	case in == "C":
		return stay(renderCargo(*c), ViewCargo{}), nil
	case in == "S":
		return stay(renderStats(*c), ViewStats{}), nil
	case in == "F":
		res, err := e.world.NearestPort(ctx, c.Player.ID)
		if isRefusal(err) {
			return stay(gameerr.Message(err), st), nil
		}
		if err != nil {
			return reply{}, err
		}
		return stay(renderNearestPort(res), st), nil
	case in == "Q" || in == "QUIT":
		return reply{text: "Fly safe, Cmdr " + c.Player.Name + ".", done: true}, nil
	}
	return stay(msgUnknown, st), nil
}

func (e *Engine) handleNavigation(ctx context.Context, t *turn, st Navigation) (reply, error) {
	if t.input == "0" {
		return e.showSector(ctx, t, "")
	}
	dest, ok := parseNumber(t.input)
	if !ok {
		return stay("Enter sector# (0=cancel)", st), nil
	}
	return e.warp(ctx, t, dest, st)
}

// warp moves the commander to dest. Refusals leave the session in from.
func (e *Engine) warp(ctx context.Context, t *turn, dest int, from State) (reply, error) {
	res, err := e.world.Warp(ctx, t.commander.Player.ID, dest)
	if gameerr.KindOf(err) == gameerr.KindValidation {
		pf, pfErr := e.world.PathFinder(ctx)
		if pfErr != nil {
			return reply{}, pfErr
		}
		return stay("Invalid sector\nTry: "+joinInts(pf.Neighbors(t.commander.Ship.CurrentSector)), from), nil
	}
	if isRefusal(err) {
		return stay(gameerr.Message(err), from), nil
	}
	if err != nil {
		return reply{}, err
	}
	return e.showSector(ctx, t, renderWarped(res))
}

func (e *Engine) handleInPort(ctx context.Context, t *turn, st InPort) (reply, error) {
	if t.input == "0" {
		return e.showSector(ctx, t, "")
	}

	d, err := e.world.OpenPort(ctx, t.commander.Player.ID, st.PortID)
	if isRefusal(err) {
		return e.showSector(ctx, t, gameerr.Message(err))
	}
	if err != nil {
		return reply{}, err
	}

	switch t.input {
	case "":
		return stay(renderPortMenu(d), st), nil
	case "1":
		return stay(renderBuyMenu(d), PortBuy{PortID: st.PortID}), nil
	case "2":
		return stay(renderSellMenu(d), PortSell{PortID: st.PortID}), nil
	case "3":
		return stay(renderPortList(d), st), nil
	}
	return stay(msgPortPrompt, st), nil
}

// backToPort reopens the port menu
func (e *Engine) backToPort(ctx context.Context, t *turn, portID int64) (reply, error) {
	d, err := e.world.OpenPort(ctx, t.commander.Player.ID, portID)
	if isRefusal(err) {
		return e.showSector(ctx, t, gameerr.Message(err))
	}
	if err != nil {
		return reply{}, err
	}
	return stay(renderPortMenu(d), InPort{PortID: portID}), nil
}

func (e *Engine) handlePortMenu(ctx context.Context, t *turn, portID int64, side game.Side, st State) (reply, error) {
	if t.input == "0" {
		return e.backToPort(ctx, t, portID)
	}
	index, ok := parseNumber(t.input)
	commodity, valid := database.CommodityAt(index)
	if !ok || !valid {
		return stay(msgPickGoods, st), nil
	}

	q, err := e.world.QuoteTrade(ctx, t.commander.Player.ID, portID, commodity, side)
	if isRefusal(err) {
		return e.showSector(ctx, t, gameerr.Message(err))
	}
	if err != nil {
		return reply{}, err
	}
	if !q.Check.OK() {
		return stay(renderTradeError(q.Check.Describe(commodity, side == game.Buy)), st), nil
	}
	return stay(renderQuantityPrompt(q), TradeQuantity{PortID: portID, Commodity: commodity, Side: side}), nil
}

func (e *Engine) handleTradeQuantity(ctx context.Context, t *turn, st TradeQuantity) (reply, error) {
	if t.input == "0" {
		return e.backToPort(ctx, t, st.PortID)
	}
	qty, ok := parseNumber(t.input)
	if !ok || qty < 1 {
		return stay(msgBadAmount, st), nil
	}

	res, err := e.world.ExecuteTrade(ctx, t.commander.Player.ID, st.PortID, st.Commodity, st.Side, qty)
	if isRefusal(err) {
		return stay(renderTradeError(gameerr.Message(err)), st), nil
	}
	if err != nil {
		return reply{}, err
	}
	return stay(renderReceipt(res), InPort{PortID: st.PortID}), nil
}
