package sync

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/showmeapp/showme/internal/client/kvstore"
	"github.com/showmeapp/showme/internal/client/models"
	"github.com/showmeapp/showme/internal/client/notify"
	"github.com/showmeapp/showme/internal/client/queue"
	"github.com/showmeapp/showme/internal/client/remote"
	"github.com/showmeapp/showme/internal/client/repositories/maps"
	"github.com/showmeapp/showme/internal/client/repositories/pins"
	"github.com/showmeapp/showme/internal/client/session"
	"github.com/showmeapp/showme/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeRemote struct {
	pingErr  error
	mapRows  []remote.MapRecord
	pinRows  []remote.PinRecord
	listsErr error
}

func (f *fakeRemote) Ping(context.Context) error { return f.pingErr }

func (f *fakeRemote) ListMaps(context.Context) ([]remote.MapRecord, error) {
	return f.mapRows, f.listsErr
}

func (f *fakeRemote) ListPins(context.Context) ([]remote.PinRecord, error) {
	return f.pinRows, f.listsErr
}

func (f *fakeRemote) CreateMap(context.Context, map[string]any) error { return nil }
func (f *fakeRemote) CreatePin(context.Context, map[string]any) error { return nil }
func (f *fakeRemote) MapExists(context.Context, string) (bool, error) { return false, nil }
func (f *fakeRemote) ListMapIDs(context.Context) ([]string, error)    { return nil, nil }
func (f *fakeRemote) ListPinIDs(context.Context) ([]string, error)    { return nil, nil }
func (f *fakeRemote) DeleteMaps(context.Context, []string) error      { return nil }
func (f *fakeRemote) DeletePins(context.Context, []string) error      { return nil }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE maps (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_private INTEGER NOT NULL DEFAULT 0,
  access_token TEXT,
  fuzzing_enabled INTEGER NOT NULL DEFAULT 1,
  fuzzing_radius REAL NOT NULL DEFAULT 100,
  created_at TEXT NOT NULL
);
CREATE TABLE pins (
  id TEXT PRIMARY KEY,
  map_id TEXT NOT NULL,
  lat REAL NOT NULL,
  lng REAL NOT NULL,
  type TEXT NOT NULL DEFAULT 'other',
  tags TEXT NOT NULL DEFAULT '[]',
  description TEXT NOT NULL DEFAULT '',
  photo_urls TEXT NOT NULL DEFAULT '[]',
  expires_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func setupSession(t *testing.T) *session.Session {
	t.Helper()
	kv, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return session.New(kv)
}

func TestPullOnce_AppliesUpstreamRows(t *testing.T) {
	db := setupDB(t)
	mapsRepo := maps.NewSQLiteRepository(db)
	pinsRepo := pins.NewSQLiteRepository(db)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	fr := &fakeRemote{
		mapRows: []remote.MapRecord{
			{ID: "m1", Name: "routes", FuzzingEnabled: true, FuzzingRadius: 100, CreatedAt: created},
		},
		pinRows: []remote.PinRecord{
			{ID: "p1", MapID: "m1", Lat: 1, Lng: 2, Type: "water", Tags: []string{"water"},
				CreatedAt: created, UpdatedAt: created},
		},
	}

	r := NewPullReplicator(fr, mapsRepo, pinsRepo, setupSession(t), logging.NewNoop(), time.Hour)
	require.NoError(t, r.pullOnce(ctx))

	m, err := mapsRepo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "routes", m.Name)

	got, err := pinsRepo.GetByMap(ctx, "m1", true, created)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.PinTypeWater, got[0].Type)
	assert.Equal(t, `["water"]`, got[0].Tags)
	assert.Equal(t, `[]`, got[0].PhotoURLs)

	// pulling the same snapshot again is idempotent
	require.NoError(t, r.pullOnce(ctx))
	got, err = pinsRepo.GetByMap(ctx, "m1", true, created)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPullOnce_SkippedDuringWipe(t *testing.T) {
	db := setupDB(t)
	mapsRepo := maps.NewSQLiteRepository(db)
	pinsRepo := pins.NewSQLiteRepository(db)
	sess := setupSession(t)
	require.NoError(t, sess.SetWipeActive(true))

	fr := &fakeRemote{mapRows: []remote.MapRecord{{ID: "m1", Name: "x", CreatedAt: time.Now()}}}
	r := NewPullReplicator(fr, mapsRepo, pinsRepo, sess, logging.NewNoop(), time.Hour)
	require.NoError(t, r.pullOnce(context.Background()))

	got, err := mapsRepo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPullOnce_PropagatesRemoteError(t *testing.T) {
	db := setupDB(t)
	fr := &fakeRemote{listsErr: errors.New("boom")}
	r := NewPullReplicator(fr, maps.NewSQLiteRepository(db), pins.NewSQLiteRepository(db),
		setupSession(t), logging.NewNoop(), time.Hour)

	require.Error(t, r.pullOnce(context.Background()))
}

func TestPoller_NotifiesOncePerChange(t *testing.T) {
	db := setupDB(t)
	mapsRepo := maps.NewSQLiteRepository(db)
	pinsRepo := pins.NewSQLiteRepository(db)
	ctx := context.Background()

	kv, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	broadcaster := notify.NewBroadcaster(kv, logging.NewNoop())

	var events []string
	broadcaster.Subscribe(func(ev notify.ChangeEvent) { events = append(events, ev.Table) })

	p := NewPoller(mapsRepo, pinsRepo, setupSession(t), broadcaster, logging.NewNoop(), time.Hour)
	require.NoError(t, p.prime(ctx))

	p.pollOnce(ctx)
	assert.Empty(t, events)

	require.NoError(t, mapsRepo.Insert(ctx, &models.Map{ID: "m1", Name: "x", CreatedAt: time.Now()}))
	p.pollOnce(ctx)
	assert.Equal(t, []string{"maps"}, events)

	// unchanged state stays quiet
	p.pollOnce(ctx)
	assert.Equal(t, []string{"maps"}, events)
}

func TestPoller_SuppressedDuringWipe(t *testing.T) {
	db := setupDB(t)
	mapsRepo := maps.NewSQLiteRepository(db)
	pinsRepo := pins.NewSQLiteRepository(db)
	sess := setupSession(t)
	ctx := context.Background()

	kv, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	broadcaster := notify.NewBroadcaster(kv, logging.NewNoop())

	var events []string
	broadcaster.Subscribe(func(ev notify.ChangeEvent) { events = append(events, ev.Table) })

	p := NewPoller(mapsRepo, pinsRepo, sess, broadcaster, logging.NewNoop(), time.Hour)
	require.NoError(t, p.prime(ctx))

	require.NoError(t, mapsRepo.Insert(ctx, &models.Map{ID: "m1", Name: "x", CreatedAt: time.Now()}))
	require.NoError(t, sess.SetWipeActive(true))
	p.pollOnce(ctx)

	assert.Empty(t, events)
}

func TestWatcher_TracksReachability(t *testing.T) {
	sess := setupSession(t)
	fr := &fakeRemote{pingErr: errors.New("down")}
	ctx := context.Background()

	kv, err := kvstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	q := queue.New(kv, fr, sess, logging.NewNoop())
	w := NewWatcher(fr, sess, q, logging.NewNoop(), time.Hour)

	w.checkOnce(ctx)
	assert.False(t, sess.Online())

	fr.pingErr = nil
	w.checkOnce(ctx)
	assert.True(t, sess.Online())

	fr.pingErr = errors.New("down again")
	w.checkOnce(ctx)
	assert.False(t, sess.Online())
}
