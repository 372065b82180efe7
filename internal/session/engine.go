package session

import (
	"context"
	"errors"
	"log/slog"

	"meshwars/internal/config"
	"meshwars/internal/game"
	"meshwars/internal/gameerr"
	"meshwars/internal/log"
)

// Response is what the host relays back to the player
type Response struct {
	Text     string
	Continue bool
	// State is the opaque blob to pass to the next Handle call
	State []byte
}

// Engine turns single input lines into game actions. It keeps no per-player
// memory; everything a turn needs travels in the state blob or lives in the
// database, so sessions survive restarts. Safe for concurrent use.
type Engine struct {
	world  *game.World
	cfg    config.SessionConfig
	logger *slog.Logger
}

func NewEngine(world *game.World, cfg config.SessionConfig) *Engine {
	return &Engine{
		world:  world,
		cfg:    cfg,
		logger: log.With("component", "session"),
	}
}

// turn carries what a handler knows about the current input
type turn struct {
	identity string
	input    string
	// commander is nil until the identity registers
	commander *game.Commander
}

// reply is a handler's outcome
type reply struct {
	text string
	next State
	// done ends the session
	done bool
}

func stay(text string, s State) reply {
	return reply{text: text, next: s}
}

// Start greets an identity opening a session
func (e *Engine) Start(ctx context.Context, identity string) Response {
	c, err := e.world.Commander(ctx, identity)
	if errors.Is(err, game.ErrNotRegistered) {
		return e.respond(stay(msgRegister, Registration{}))
	}
	if err != nil {
		return e.fail(identity, Registration{}, err)
	}

	if err := e.world.TouchLogin(ctx, c.Player.ID); err != nil {
		return e.fail(identity, SectorView{}, err)
	}
	info, err := e.world.Sector(ctx, c.Player.ID)
	if err != nil {
		return e.fail(identity, SectorView{}, err)
	}
	return e.respond(stay("Welcome back, Cmdr "+c.Player.Name+"\n"+e.renderSector(info), SectorView{}))
}

// Handle processes one input line for identity. state is the blob returned
// by the previous call; an empty or unreadable blob restarts from the
// identity's natural state.
func (e *Engine) Handle(ctx context.Context, identity, line string, state []byte) Response {
	t := &turn{identity: identity, input: normalizeInput(line)}

	c, err := e.world.Commander(ctx, identity)
	switch {
	case errors.Is(err, game.ErrNotRegistered):
	case err != nil:
		return e.fail(identity, nil, err)
	default:
		t.commander = &c
	}

	current, err := Decode(state)
	if err != nil {
		e.logger.Warn("discarding unreadable session state", "identity", identity, "error", err)
		current = nil
	}
	current = e.reconcile(t, current)

	r, err := e.dispatch(ctx, t, current)
	if err != nil {
		return e.fail(identity, current, err)
	}
	return e.respond(r)
}

// reconcile replaces states that make no sense for the identity: anything
// but Registration for a stranger, and Registration for a known commander.
func (e *Engine) reconcile(t *turn, s State) State {
	if t.commander == nil {
		if reg, ok := s.(Registration); ok {
			return reg
		}
		return Registration{}
	}
	if s == nil || s.Kind() == KindRegistration {
		return SectorView{}
	}
	return s
}

func (e *Engine) dispatch(ctx context.Context, t *turn, s State) (reply, error) {
	switch st := s.(type) {
	case Registration:
		return e.handleRegistration(ctx, t, st)
	case SectorView:
		return e.handleSectorView(ctx, t, st)
	case Navigation:
		return e.handleNavigation(ctx, t, st)
	case InPort:
		return e.handleInPort(ctx, t, st)
	case PortBuy:
		return e.handlePortMenu(ctx, t, st.PortID, game.Buy, st)
	case PortSell:
		return e.handlePortMenu(ctx, t, st.PortID, game.Sell, st)
	case TradeQuantity:
		return e.handleTradeQuantity(ctx, t, st)
	case ViewCargo, ViewStats:
		return e.showSector(ctx, t, "")
	}
	return e.showSector(ctx, t, "")
}

func (e *Engine) respond(r reply) Response {
	resp := Response{
		Text:     truncate(r.text, e.cfg.MaxMessageLength),
		Continue: !r.done,
	}
	if !r.done {
		resp.State = Encode(r.next)
	}
	return resp
}

// fail maps an error that escaped a handler onto a response. Validation and
// domain errors keep the current state; persistence errors drop it so the
// next turn reloads from the database; invariant violations end the session.
func (e *Engine) fail(identity string, current State, err error) Response {
	switch gameerr.KindOf(err) {
	case gameerr.KindValidation, gameerr.KindDomain:
		return e.respond(stay(gameerr.Message(err), current))
	case gameerr.KindInvariant:
		e.logger.Error("session aborted", "identity", identity, "error", err)
		return Response{Text: msgSessionError, Continue: false}
	default:
		e.logger.Error("persistence failure", "identity", identity, "error", err)
		return Response{Text: msgDatabaseError, Continue: true}
	}
}
