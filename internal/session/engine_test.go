package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshwars/internal/config"
	"meshwars/internal/database"
	"meshwars/internal/game"
	"meshwars/internal/log"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard, "text")
	os.Exit(m.Run())
}

func testConfig(path string) *config.Config {
	cfg := config.Default()
	cfg.Database.Path = path
	cfg.Universe.Seed = 42
	cfg.Economy.Seed = 7
	return cfg
}

type harness struct {
	t      *testing.T
	db     *database.Database
	world  *game.World
	engine *Engine
	// state is the blob returned by the last call, per identity
	state map[string][]byte
}

func newHarness(t *testing.T, path string) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig(path)
	w := game.NewWorld(db, cfg)
	require.NoError(t, w.EnsureUniverse(ctx))
	return &harness{
		t:      t,
		db:     db,
		world:  w,
		engine: NewEngine(w, cfg.Session),
		state:  map[string][]byte{},
	}
}

// send relays one line the way a host would, threading the state blob
func (h *harness) send(identity, line string) Response {
	h.t.Helper()
	resp := h.engine.Handle(context.Background(), identity, line, h.state[identity])
	assert.LessOrEqual(h.t, utf8.RuneCountInString(resp.Text), 200, resp.Text)
	h.state[identity] = resp.State
	return resp
}

func (h *harness) kind(identity string) Kind {
	h.t.Helper()
	s, err := Decode(h.state[identity])
	require.NoError(h.t, err)
	require.NotNil(h.t, s)
	return s.Kind()
}

func (h *harness) commander(identity string) game.Commander {
	h.t.Helper()
	c, err := h.world.Commander(context.Background(), identity)
	require.NoError(h.t, err)
	return c
}

func (h *harness) register(identity, name string) game.Commander {
	h.t.Helper()
	h.send(identity, name)
	resp := h.send(identity, "Y")
	require.Contains(h.t, resp.Text, "Cmdr "+name+" reporting!")
	return h.commander(identity)
}

func (h *harness) neighbor(sector int) int {
	h.t.Helper()
	pf, err := h.world.PathFinder(context.Background())
	require.NoError(h.t, err)
	neighbors := pf.Neighbors(sector)
	require.NotEmpty(h.t, neighbors)
	return neighbors[0]
}

// dockAtStockedPort moves the ship to the first port and gives that port a
// known sheet
func (h *harness) dockAtStockedPort(c game.Commander) database.Port {
	h.t.Helper()
	ctx := context.Background()
	ports, err := h.world.PortSectors(ctx)
	require.NoError(h.t, err)
	require.NoError(h.t, h.db.UpdateShipSector(ctx, c.Ship.ID, ports[0]))
	port, err := h.db.PortBySector(ctx, ports[0])
	require.NoError(h.t, err)

	port.Inventory = database.Inventory{
		database.Ore:       {Regime: database.Selling, Quantity: 60000, Price: 215.3, BasePrice: 250, Volatility: 1000},
		database.Organics:  {Regime: database.Buying, Quantity: 20000, Price: 150, BasePrice: 180, Volatility: 800},
		database.Equipment: {Regime: database.Selling, Quantity: 3, Price: 3800, BasePrice: 3800, Volatility: 5000},
		database.Armor:     {Regime: database.Buying, Quantity: 9000, Price: 1200, BasePrice: 1200, Volatility: 3000},
		database.Batteries: {Regime: database.Selling, Quantity: 70000, Price: 11, BasePrice: 11, Volatility: 20},
	}
	require.NoError(h.t, h.db.UpdatePort(ctx, port))
	return port
}

func fullWidth(n int) string {
	var b strings.Builder
	for _, r := range strconv.Itoa(n) {
		b.WriteRune('０' + (r - '0'))
	}
	return b.String()
}

func TestNewCommanderJourney(t *testing.T) {
	h := newHarness(t, ":memory:")

	resp := h.send("node-1", "")
	assert.Equal(t, msgRegister, resp.Text)
	assert.Equal(t, KindRegistration, h.kind("node-1"))

	resp = h.send("node-1", "ace")
	assert.Equal(t, "Cmdr ACE, ready? Y/N", resp.Text)
	assert.True(t, resp.Continue)

	resp = h.send("node-1", "maybe")
	assert.Equal(t, msgConfirmYN, resp.Text)

	resp = h.send("node-1", "y")
	assert.Contains(t, resp.Text, "Cmdr ACE reporting!")
	assert.Contains(t, resp.Text, "Turns:1000 Cr:10.0K")
	assert.Equal(t, KindSectorView, h.kind("node-1"))

	c := h.commander("node-1")
	assert.Equal(t, 10000, c.Player.Credits)
	assert.Equal(t, 1000, c.Player.Turns)
	assert.GreaterOrEqual(t, c.Ship.CurrentSector, 1)
	assert.LessOrEqual(t, c.Ship.CurrentSector, 10)

	t.Run("warp to a neighbor", func(t *testing.T) {
		dest := h.neighbor(c.Ship.CurrentSector)
		resp := h.send("node-1", "m"+strconv.Itoa(dest))
		assert.True(t, strings.HasPrefix(resp.Text, "Warped to Sec"+strconv.Itoa(dest)+" (-1T)\nSec"+strconv.Itoa(dest)+"[→"), resp.Text)
		assert.Equal(t, KindSectorView, h.kind("node-1"))

		after := h.commander("node-1")
		assert.Equal(t, dest, after.Ship.CurrentSector)
		assert.Equal(t, 999, after.Player.Turns)
		assert.Equal(t, 1, after.Player.TotalWarps)
	})

	t.Run("buy at a port", func(t *testing.T) {
		port := h.dockAtStockedPort(c)

		resp := h.send("node-1", "P")
		assert.Equal(t, port.Name+" You:10.0K Port:5.0M\n"+msgPortOptions, resp.Text)
		assert.Equal(t, KindInPort, h.kind("node-1"))

		resp = h.send("node-1", "1")
		assert.Contains(t, resp.Text, "1)Or:215cr 60.0K avail")
		assert.Equal(t, KindPortBuy, h.kind("node-1"))

		resp = h.send("node-1", "1")
		assert.Equal(t, "Buy Or@215cr\nMax:20 Cr:10.0K\nHow many? (0=back)", resp.Text)
		assert.Equal(t, KindTradeQuantity, h.kind("node-1"))

		resp = h.send("node-1", "lots")
		assert.Equal(t, msgBadAmount, resp.Text)

		resp = h.send("node-1", "10")
		assert.Equal(t, "Bought 10 Or\nCost: 2153cr\nBalance:7.8K Cargo:10/20\n"+msgPortOptions, resp.Text)
		assert.Equal(t, KindInPort, h.kind("node-1"))

		after := h.commander("node-1")
		assert.Equal(t, 10000-2153, after.Player.Credits)
		assert.Equal(t, 10, after.Ship.Cargo[database.Ore])
		assert.Equal(t, 1, after.Player.TotalTrades)

		resp = h.send("node-1", "0")
		assert.True(t, strings.HasPrefix(resp.Text, "Sec"), resp.Text)
		assert.Equal(t, KindSectorView, h.kind("node-1"))
	})

	t.Run("views return to the sector", func(t *testing.T) {
		resp := h.send("node-1", "C")
		assert.Equal(t, "CARGO 10/20:\nOr:10\nAny key=back", resp.Text)
		assert.Equal(t, KindViewCargo, h.kind("node-1"))

		resp = h.send("node-1", "anything")
		assert.True(t, strings.HasPrefix(resp.Text, "Sec"), resp.Text)

		resp = h.send("node-1", "S")
		assert.Contains(t, resp.Text, "ACE Stats:")
		assert.Contains(t, resp.Text, "Warps:1 Trades:1")
		assert.Equal(t, KindViewStats, h.kind("node-1"))
		h.send("node-1", "")

		assert.Equal(t, msgHelp, h.send("node-1", "?").Text)
		assert.Equal(t, msgUnknown, h.send("node-1", "XYZZY").Text)
		assert.Equal(t, "Port here! P=enter", h.send("node-1", "F").Text)
	})

	t.Run("quit ends the session", func(t *testing.T) {
		resp := h.send("node-1", "quit")
		assert.Equal(t, "Fly safe, Cmdr ACE.", resp.Text)
		assert.False(t, resp.Continue)
		assert.Nil(t, resp.State)
	})
}

func TestRegistrationRejects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ":memory:")
	_, err := h.world.Register(ctx, "node-1", "ACE")
	require.NoError(t, err)

	tests := []struct {
		input string
		want  string
	}{
		{"TOOLONGNAME", "Invalid: Max 8 chars\nTry again:"},
		{"A-CE", "Invalid: Letters/numbers only\nTry again:"},
		{"ace", "Invalid: Name taken\nTry again:"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			resp := h.send("node-2", tt.input)
			assert.Equal(t, tt.want, resp.Text)
			assert.True(t, resp.Continue)
			assert.Equal(t, KindRegistration, h.kind("node-2"))
		})
	}

	t.Run("no discards the pending name", func(t *testing.T) {
		h.send("node-2", "BOB")
		resp := h.send("node-2", "n")
		assert.Equal(t, "Call sign discarded.\nYour call sign? (8 chars max)", resp.Text)

		s, err := Decode(h.state["node-2"])
		require.NoError(t, err)
		assert.Equal(t, Registration{}, s)

		n, err := h.db.CountPlayers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("name claimed while confirming", func(t *testing.T) {
		assert.Equal(t, "Cmdr BOB, ready? Y/N", h.send("node-2", "BOB").Text)
		_, err := h.world.Register(ctx, "node-3", "BOB")
		require.NoError(t, err)

		resp := h.send("node-2", "Y")
		assert.Equal(t, "Invalid: Name taken\nTry again:", resp.Text)
		s, err := Decode(h.state["node-2"])
		require.NoError(t, err)
		assert.Equal(t, Registration{}, s)
	})
}

func TestWarpRefusals(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ":memory:")
	c := h.register("node-1", "ACE")
	dest := h.neighbor(c.Ship.CurrentSector)

	t.Run("out of range", func(t *testing.T) {
		resp := h.send("node-1", "M500")
		assert.True(t, strings.HasPrefix(resp.Text, "Invalid sector\nTry: "), resp.Text)
		assert.Equal(t, KindSectorView, h.kind("node-1"))
	})

	t.Run("same sector", func(t *testing.T) {
		resp := h.send("node-1", "M"+strconv.Itoa(c.Ship.CurrentSector))
		assert.Equal(t, "Already in sector "+strconv.Itoa(c.Ship.CurrentSector), resp.Text)
	})

	t.Run("not enough turns", func(t *testing.T) {
		ok, err := h.db.UpdatePlayer(ctx, c.Player.ID, database.NewPlayerUpdate().SetTurns(0))
		require.NoError(t, err)
		require.True(t, ok)

		resp := h.send("node-1", "M"+strconv.Itoa(dest))
		assert.Equal(t, "Insufficient turns: need 1, have 0", resp.Text)
		assert.Equal(t, KindSectorView, h.kind("node-1"))

		h.send("node-1", "M")
		assert.Equal(t, KindNavigation, h.kind("node-1"))
		resp = h.send("node-1", strconv.Itoa(dest))
		assert.Equal(t, "Insufficient turns: need 1, have 0", resp.Text)
		assert.Equal(t, KindNavigation, h.kind("node-1"))

		assert.Equal(t, c.Ship.CurrentSector, h.commander("node-1").Ship.CurrentSector)
	})

	t.Run("full-width digits", func(t *testing.T) {
		_, err := h.db.UpdatePlayer(ctx, c.Player.ID, database.NewPlayerUpdate().SetTurns(5))
		require.NoError(t, err)

		resp := h.send("node-1", fullWidth(dest))
		assert.Contains(t, resp.Text, "Warped to Sec"+strconv.Itoa(dest))
		assert.Equal(t, 4, h.commander("node-1").Player.Turns)
	})
}

func TestPortRequiresPort(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ":memory:")
	c := h.register("node-1", "ACE")

	sectors, err := h.db.AllSectors(ctx)
	require.NoError(t, err)
	empty := 0
	for _, s := range sectors {
		if !s.HasPort() {
			empty = s.ID
			break
		}
	}
	require.NotZero(t, empty)
	require.NoError(t, h.db.UpdateShipSector(ctx, c.Ship.ID, empty))

	resp := h.send("node-1", "P")
	assert.Equal(t, "No port in this sector", resp.Text)
	assert.Equal(t, KindSectorView, h.kind("node-1"))

	resp = h.send("node-1", "F")
	assert.True(t, strings.HasPrefix(resp.Text, "Nearest port: Sec"), resp.Text)
}

func TestTradeRefusalKeepsState(t *testing.T) {
	h := newHarness(t, ":memory:")
	c := h.register("node-1", "ACE")
	h.dockAtStockedPort(c)

	h.send("node-1", "P")
	resp := h.send("node-1", "2")
	assert.Equal(t, "SELL TO PORT:\nNothing to sell\n0)Back", resp.Text)

	resp = h.send("node-1", "2")
	assert.Equal(t, "Can't trade: You only have 0 units\n0=back", resp.Text)
	assert.Equal(t, KindPortSell, h.kind("node-1"))

	h.send("node-1", "0")
	h.send("node-1", "1")
	h.send("node-1", "3")
	resp = h.send("node-1", "4")
	assert.Equal(t, "Can't trade: Only 3 available. Max:2\n0=back", resp.Text)
	assert.Equal(t, KindTradeQuantity, h.kind("node-1"))
}

func TestStateRecovery(t *testing.T) {
	h := newHarness(t, ":memory:")
	h.register("node-1", "ACE")

	t.Run("corrupt blob for a commander", func(t *testing.T) {
		resp := h.engine.Handle(context.Background(), "node-1", "", []byte("{garbage"))
		assert.True(t, strings.HasPrefix(resp.Text, "Sec"), resp.Text)
		s, err := Decode(resp.State)
		require.NoError(t, err)
		assert.Equal(t, SectorView{}, s)
	})

	t.Run("registration blob for a commander", func(t *testing.T) {
		resp := h.engine.Handle(context.Background(), "node-1", "", Encode(Registration{PendingName: "ZED"}))
		assert.True(t, strings.HasPrefix(resp.Text, "Sec"), resp.Text)
	})

	t.Run("corrupt blob for a stranger", func(t *testing.T) {
		resp := h.engine.Handle(context.Background(), "node-2", "", []byte(`{"v":9}`))
		assert.Equal(t, msgRegister, resp.Text)
		s, err := Decode(resp.State)
		require.NoError(t, err)
		assert.Equal(t, Registration{}, s)
	})

	t.Run("port blob for a stranger", func(t *testing.T) {
		resp := h.engine.Handle(context.Background(), "node-2", "KIM", Encode(InPort{PortID: 1}))
		assert.Equal(t, "Cmdr KIM, ready? Y/N", resp.Text)
	})
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ":memory:")

	resp := h.engine.Start(ctx, "node-1")
	assert.Equal(t, msgRegister, resp.Text)

	h.register("node-1", "ACE")
	resp = h.engine.Start(ctx, "node-1")
	assert.True(t, strings.HasPrefix(resp.Text, "Welcome back, Cmdr ACE\nSec"), resp.Text)
	s, err := Decode(resp.State)
	require.NoError(t, err)
	assert.Equal(t, SectorView{}, s)
}

func TestSessionSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meshwars.db")

	first := newHarness(t, path)
	c := first.register("node-1", "ACE")
	dest := first.neighbor(c.Ship.CurrentSector)
	first.send("node-1", "M")
	state := first.state["node-1"]
	require.NoError(t, first.db.Close())

	second := newHarness(t, path)
	second.state["node-1"] = state
	resp := second.send("node-1", strconv.Itoa(dest))
	assert.Contains(t, resp.Text, "Warped to Sec"+strconv.Itoa(dest))

	after := second.commander("node-1")
	assert.Equal(t, dest, after.Ship.CurrentSector)
	assert.Equal(t, 999, after.Player.Turns)
}

func TestFailureModes(t *testing.T) {
	ctx := context.Background()

	t.Run("player without ship ends the session", func(t *testing.T) {
		h := newHarness(t, ":memory:")
		_, err := h.db.CreatePlayer(ctx, "node-9", "GHOST", 10000, 1000)
		require.NoError(t, err)

		resp := h.send("node-9", "")
		assert.Equal(t, msgSessionError, resp.Text)
		assert.False(t, resp.Continue)
		assert.Nil(t, resp.State)
	})

	t.Run("database unavailable", func(t *testing.T) {
		h := newHarness(t, ":memory:")
		h.register("node-1", "ACE")
		require.NoError(t, h.db.Close())

		resp := h.send("node-1", "M")
		assert.Equal(t, msgDatabaseError, resp.Text)
		assert.True(t, resp.Continue)
		assert.Nil(t, resp.State)
	})
}
