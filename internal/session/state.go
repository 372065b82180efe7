package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"meshwars/internal/database"
	"meshwars/internal/game"
)

// Kind names a session state in the encoded blob
type Kind string

const (
	KindRegistration  Kind = "registration"
	KindSectorView    Kind = "sector_view"
	KindNavigation    Kind = "navigation"
	KindInPort        Kind = "in_port"
	KindPortBuy       Kind = "port_buy"
	KindPortSell      Kind = "port_sell"
	KindTradeQuantity Kind = "trade_quantity"
	KindViewCargo     Kind = "view_cargo"
	KindViewStats     Kind = "view_stats"
)

// State is one node of the session state machine. Each concrete type carries
// only the fields that node needs.
type State interface {
	Kind() Kind
}

// Registration asks for a call sign, then confirms PendingName
type Registration struct {
	PendingName string
}

type SectorView struct{}

type Navigation struct{}

type InPort struct {
	PortID int64
}

type PortBuy struct {
	PortID int64
}

type PortSell struct {
	PortID int64
}

// TradeQuantity waits for the amount of Commodity to trade
type TradeQuantity struct {
	PortID    int64
	Commodity database.Commodity
	Side      game.Side
}

type ViewCargo struct{}

type ViewStats struct{}

func (Registration) Kind() Kind  { return KindRegistration }
func (SectorView) Kind() Kind    { return KindSectorView }
func (Navigation) Kind() Kind    { return KindNavigation }
func (InPort) Kind() Kind        { return KindInPort }
func (PortBuy) Kind() Kind       { return KindPortBuy }
func (PortSell) Kind() Kind      { return KindPortSell }
func (TradeQuantity) Kind() Kind { return KindTradeQuantity }
func (ViewCargo) Kind() Kind     { return KindViewCargo }
func (ViewStats) Kind() Kind     { return KindViewStats }

const stateVersion = 1

// ErrBadState is returned by Decode for blobs it cannot interpret
var ErrBadState = errors.New("unrecognized session state")

type envelope struct {
	Version     int                 `json:"v"`
	Kind        Kind                `json:"kind"`
	PendingName string              `json:"pending_name,omitempty"`
	PortID      int64               `json:"port_id,omitempty"`
	Commodity   *database.Commodity `json:"commodity,omitempty"`
	Side        string              `json:"side,omitempty"`
}

// Encode serializes s into the opaque blob handed back to the host
func Encode(s State) []byte {
	if s == nil {
		return nil
	}
	env := envelope{Version: stateVersion, Kind: s.Kind()}
	switch st := s.(type) {
	case Registration:
		env.PendingName = st.PendingName
	case InPort:
		env.PortID = st.PortID
	case PortBuy:
		env.PortID = st.PortID
	case PortSell:
		env.PortID = st.PortID
	case TradeQuantity:
		c := st.Commodity
		env.PortID = st.PortID
		env.Commodity = &c
		env.Side = st.Side.String()
	}
	data, err := json.Marshal(env)
	if err != nil {
		// only an out-of-range commodity can fail to marshal
		return nil
	}
	return data
}

// Decode parses a blob produced by Encode. Empty input yields (nil, nil).
func Decode(data []byte) (State, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	if env.Version != stateVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadState, env.Version)
	}

	needPort := func() error {
		if env.PortID <= 0 {
			return fmt.Errorf("%w: %s without port", ErrBadState, env.Kind)
		}
		return nil
	}

	switch env.Kind {
	case KindRegistration:
		return Registration{PendingName: env.PendingName}, nil
	case KindSectorView:
		return SectorView{}, nil
	case KindNavigation:
		return Navigation{}, nil
	case KindInPort:
		if err := needPort(); err != nil {
			return nil, err
		}
		return InPort{PortID: env.PortID}, nil
	case KindPortBuy:
		if err := needPort(); err != nil {
			return nil, err
		}
		return PortBuy{PortID: env.PortID}, nil
	case KindPortSell:
		if err := needPort(); err != nil {
			return nil, err
		}
		return PortSell{PortID: env.PortID}, nil
	case KindTradeQuantity:
		if err := needPort(); err != nil {
			return nil, err
		}
		if env.Commodity == nil || !env.Commodity.Valid() {
			return nil, fmt.Errorf("%w: trade without commodity", ErrBadState)
		}
		st := TradeQuantity{PortID: env.PortID, Commodity: *env.Commodity}
		switch env.Side {
		case "buy":
			st.Side = game.Buy
		case "sell":
			st.Side = game.Sell
		default:
			return nil, fmt.Errorf("%w: trade side %q", ErrBadState, env.Side)
		}
		return st, nil
	case KindViewCargo:
		return ViewCargo{}, nil
	case KindViewStats:
		return ViewStats{}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrBadState, env.Kind)
}
