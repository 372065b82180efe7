package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSectors(t *testing.T, db *Database, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		var warps []int
		if i > 1 {
			warps = append(warps, i-1)
		}
		if i < n {
			warps = append(warps, i+1)
		}
		require.NoError(t, db.CreateSector(ctx, i, warps))
	}
}

func TestMigrations(t *testing.T) {
	db := openTestDB(t)
	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].ID, version)

	// re-running is a no-op
	require.NoError(t, db.runMigrations(context.Background()))
}

func TestPlayers(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	p, err := db.CreatePlayer(ctx, "node-1", "ACE", 10000, 1000)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	t.Run("lookup by identity and id", func(t *testing.T) {
		got, err := db.PlayerByIdentity(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, "ACE", got.Name)
		assert.Equal(t, 10000, got.Credits)
		assert.Equal(t, 1000, got.Turns)

		byID, err := db.PlayerByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, got, byID)
	})

	t.Run("unknown identity", func(t *testing.T) {
		_, err := db.PlayerByIdentity(ctx, "nobody")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("names and identities are unique", func(t *testing.T) {
		exists, err := db.PlayerNameExists(ctx, "ACE")
		require.NoError(t, err)
		assert.True(t, exists)

		_, err = db.CreatePlayer(ctx, "node-2", "ACE", 0, 0)
		assert.Error(t, err)
		_, err = db.CreatePlayer(ctx, "node-1", "BOB", 0, 0)
		assert.Error(t, err)
	})

	t.Run("partial update", func(t *testing.T) {
		ok, err := db.UpdatePlayer(ctx, p.ID, NewPlayerUpdate().AddCredits(-500).IncrementTrades())
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := db.PlayerByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 9500, got.Credits)
		assert.Equal(t, 1, got.TotalTrades)
		assert.Equal(t, 1000, got.Turns)
	})

	t.Run("turn guard refuses overspending", func(t *testing.T) {
		ok, err := db.UpdatePlayer(ctx, p.ID, NewPlayerUpdate().SpendTurns(2000).IncrementWarps())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = db.UpdatePlayer(ctx, p.ID, NewPlayerUpdate().SpendTurns(3).IncrementWarps())
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := db.PlayerByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 997, got.Turns)
		assert.Equal(t, 1, got.TotalWarps)
	})

	count, err := db.CountPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestShips(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedSectors(t, db, 5)

	p, err := db.CreatePlayer(ctx, "node-1", "ACE", 10000, 1000)
	require.NoError(t, err)
	ship, err := db.CreateShip(ctx, p.ID, 3, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, ship.Cargo.Used())
	assert.Equal(t, 20, ship.FreeHolds())

	require.NoError(t, db.UpdateShipSector(ctx, ship.ID, 4))
	require.NoError(t, db.UpdateShipCargo(ctx, ship.ID, Cargo{Ore: 5, Batteries: 2}))

	got, err := db.ShipByPlayerID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentSector)
	assert.Equal(t, 5, got.Cargo[Ore])
	assert.Equal(t, 2, got.Cargo[Batteries])
	assert.Equal(t, 0, got.Cargo[Armor])
	assert.Equal(t, 13, got.FreeHolds())

	n, err := db.ShipsInSector(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = db.CreateShip(ctx, p.ID, 1, 20)
	assert.Error(t, err, "a player owns exactly one ship")

	_, err = db.CreateShip(ctx, 999, 1, 20)
	assert.Error(t, err, "foreign key on player_id")
}

func TestUniverseStorage(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedSectors(t, db, 4)

	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	inv := Inventory{
		Ore:       {Regime: Selling, Quantity: 60000, Price: 250, BasePrice: 250, Volatility: 1000},
		Batteries: {Regime: Buying, Quantity: 100, Price: 11.5, BasePrice: 11, Volatility: 20},
	}
	portID, err := db.CreatePort(ctx, 2, "Dock-1", 5000000, inv, stamp)
	require.NoError(t, err)
	require.NoError(t, db.SetSectorPort(ctx, 2, portID))

	sector, err := db.Sector(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, sector.Warps)
	assert.True(t, sector.HasPort())
	assert.Equal(t, portID, sector.PortID)

	port, err := db.PortBySector(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Dock-1", port.Name)
	assert.Equal(t, inv, port.Inventory)
	assert.True(t, stamp.Equal(port.LastRegeneration))

	port.Credits -= 1000
	item := port.Inventory[Ore]
	item.Quantity -= 10
	port.Inventory[Ore] = item
	require.NoError(t, db.UpdatePort(ctx, port))

	reloaded, err := db.Port(ctx, portID)
	require.NoError(t, err)
	assert.Equal(t, 4999000, reloaded.Credits)
	assert.Equal(t, 59990, reloaded.Inventory[Ore].Quantity)

	all, err := db.AllSectors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.False(t, all[0].HasPort())

	ports, err := db.PortSectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ports)

	_, err = db.Sector(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	t.Run("commit", func(t *testing.T) {
		err := db.WithTx(ctx, func(q *Queries) error {
			return q.SetState(ctx, StateUniverseInitialized, "true")
		})
		require.NoError(t, err)

		v, ok, err := db.State(ctx, StateUniverseInitialized)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "true", v)
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTx(ctx, func(q *Queries) error {
			if err := q.SetState(ctx, StateUniverseSeed, "7"); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, ok, err := db.State(ctx, StateUniverseSeed)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileDatabaseReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "meshwars.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.SetState(ctx, StateUniverseSeed, "42"))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.State(ctx, StateUniverseSeed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestCommodityText(t *testing.T) {
	var c Commodity
	require.NoError(t, c.UnmarshalText([]byte("equipment")))
	assert.Equal(t, Equipment, c)
	assert.Error(t, c.UnmarshalText([]byte("spice")))

	got, ok := CommodityAt(5)
	assert.True(t, ok)
	assert.Equal(t, Batteries, got)
	_, ok = CommodityAt(0)
	assert.False(t, ok)
}

func TestInventoryClone(t *testing.T) {
	inv := Inventory{Ore: {Regime: Selling, Quantity: 100, Price: 250}}
	clone := inv.Clone()

	item := clone[Ore]
	item.Quantity = 1
	clone[Ore] = item

	assert.Equal(t, 100, inv[Ore].Quantity)
	assert.Equal(t, 1, clone[Ore].Quantity)
}
