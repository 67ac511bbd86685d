package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("REF%04d", g.n), nil
}

// fixture is two bases, one weapon type, one ammunition type and a user of
// every role.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *sql.DB
	clock *testClock
	svc   *Service

	ftl, ftb   *model.Base
	rifle      *model.EquipmentType
	ammo       *model.EquipmentType
	admin      model.Actor
	logistics  model.Actor
	commander  model.Actor // home base FTL
	remoteCmdr model.Actor // home base FTB
	soldier    *model.User // user at FTL
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithDB(t, db.NewTestDB(t))
}

func newFixtureWithDB(t *testing.T, database *sql.DB) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := &testClock{now: time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)}
	now := clock.Now()

	f := &fixture{
		t:     t,
		ctx:   ctx,
		db:    database,
		clock: clock,
		svc:   NewService(database, WithClock(clock), WithIDGen(&seqIDs{})),
	}

	var err error
	f.ftl, err = store.CreateBase(ctx, database, "Fort Lee", "FTL001", "Virginia", now)
	require.NoError(t, err)
	f.ftb, err = store.CreateBase(ctx, database, "Fort Bragg", "FTB001", "North Carolina", now)
	require.NoError(t, err)
	f.rifle, err = store.CreateEquipmentType(ctx, database, "M4A1", "WPN-M4A1", model.CategoryWeapon, "", now)
	require.NoError(t, err)
	f.ammo, err = store.CreateEquipmentType(ctx, database, "5.56mm NATO", "AMM-556", model.CategoryAmmunition, "", now)
	require.NoError(t, err)

	f.admin = f.user("admin", model.RoleAdmin, nil).Actor()
	f.logistics = f.user("logistics", model.RoleLogisticsOfficer, nil).Actor()
	f.commander = f.user("cmdr-ftl", model.RoleBaseCommander, &f.ftl.ID).Actor()
	f.remoteCmdr = f.user("cmdr-ftb", model.RoleBaseCommander, &f.ftb.ID).Actor()
	f.soldier = f.user("soldier", model.RoleUser, &f.ftl.ID)

	return f
}

func (f *fixture) user(username, role string, baseID *int64) *model.User {
	f.t.Helper()
	u, err := store.CreateUser(f.ctx, f.db, username, "x", "", role, baseID, f.clock.Now())
	require.NoError(f.t, err)
	return u
}

// asset creates an asset and advances the clock so creation order is strict.
func (f *fixture) asset(base *model.Base, et *model.EquipmentType, quantity int) *model.Asset {
	f.t.Helper()
	a, err := f.svc.CreateAsset(f.ctx, f.admin, CreateAssetInput{
		EquipmentTypeID: et.ID,
		BaseID:          base.ID,
		Quantity:        quantity,
	})
	require.NoError(f.t, err)
	f.clock.Advance(time.Minute)
	return a
}

func (f *fixture) reload(id int64) *model.Asset {
	f.t.Helper()
	a, err := store.GetAsset(f.ctx, f.db, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, a)
	return a
}
