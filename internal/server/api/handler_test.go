package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/showmeapp/showme/internal/common"
	"github.com/showmeapp/showme/internal/logging"
	"github.com/showmeapp/showme/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore backs the handlers with in-memory state and the same sentinel
// errors the real store maps to.
type fakeStore struct {
	maps        map[string]storage.MapRow
	pins        map[string]storage.PinRow
	deletedPins [][]string
	deletedMaps [][]string
	pingErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		maps: map[string]storage.MapRow{},
		pins: map[string]storage.PinRow{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) InsertMap(_ context.Context, row storage.MapRow) error {
	if _, ok := f.maps[row.ID]; ok {
		return common.ErrDuplicateKey
	}
	f.maps[row.ID] = row
	return nil
}

func (f *fakeStore) InsertPin(_ context.Context, row storage.PinRow) error {
	if _, ok := f.maps[row.MapID]; !ok {
		return common.ErrForeignKey
	}
	if _, ok := f.pins[row.ID]; ok {
		return common.ErrDuplicateKey
	}
	f.pins[row.ID] = row
	return nil
}

func (f *fakeStore) Maps(_ context.Context, filterID string) ([]storage.MapRow, error) {
	var out []storage.MapRow
	for _, row := range f.maps {
		if filterID == "" || row.ID == filterID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) Pins(context.Context) ([]storage.PinRow, error) {
	var out []storage.PinRow
	for _, row := range f.pins {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStore) DeleteMaps(_ context.Context, ids []string) (int64, error) {
	f.deletedMaps = append(f.deletedMaps, ids)
	for _, id := range ids {
		delete(f.maps, id)
	}
	return int64(len(ids)), nil
}

func (f *fakeStore) DeletePins(_ context.Context, ids []string) (int64, error) {
	f.deletedPins = append(f.deletedPins, ids)
	for _, id := range ids {
		delete(f.pins, id)
	}
	return int64(len(ids)), nil
}

func doRequest(t *testing.T, store storage.Store, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(logging.NewNoop(), store)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCreateMap(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodPost, "/maps",
		`{"id":"m1","name":"routes","is_private":true,"access_token":"tok"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	row, ok := store.maps["m1"]
	require.True(t, ok)
	assert.Equal(t, "routes", row.Name)
	assert.True(t, row.IsPrivate)
	require.NotNil(t, row.AccessToken)
	assert.Equal(t, "tok", *row.AccessToken)
	assert.False(t, row.FuzzingEnabled) // default
	assert.Equal(t, 100.0, row.FuzzingRadius)
}

func TestCreateMap_DuplicateKeySignature(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodPost, "/maps", `{"id":"m1","name":"a"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, store, http.MethodPost, "/maps", `{"id":"m1","name":"b"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "23505")
	assert.Contains(t, rec.Body.String(), "duplicate key")
}

func TestCreateMap_UnknownColumnSignature(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodPost, "/maps", `{"id":"m1","name":"a","color":"red"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "PGRST204")
	assert.Contains(t, rec.Body.String(), "Could not find the 'color' column of 'maps'")
}

func TestCreateMap_MissingFields(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodPost, "/maps", `{"id":"m1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMaps_EqFilterAndProjection(t *testing.T) {
	store := newFakeStore()
	require.Equal(t, http.StatusCreated,
		doRequest(t, store, http.MethodPost, "/maps", `{"id":"m1","name":"a"}`).Code)

	rec := doRequest(t, store, http.MethodGet, "/maps?id=eq.m1&select=id", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []map[string]string{{"id": "m1"}}, got)

	rec = doRequest(t, store, http.MethodGet, "/maps?id=eq.unknown&select=id", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCreatePin_ForeignKeySignature(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodPost, "/pins",
		`{"id":"p1","map_id":"nope","lat":1,"lng":2}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "23503")
	assert.Contains(t, rec.Body.String(), "foreign key constraint")
}

func TestCreatePin_AcceptsFullPayload(t *testing.T) {
	store := newFakeStore()
	require.Equal(t, http.StatusCreated,
		doRequest(t, store, http.MethodPost, "/maps", `{"id":"m1","name":"a"}`).Code)

	rec := doRequest(t, store, http.MethodPost, "/pins",
		`{"id":"p1","map_id":"m1","lat":50.45,"lng":30.52,"type":"water",
		  "tags":["water","north"],"description":"well","photo_urls":[],
		  "expires_at":"2025-03-01T12:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	row := store.pins["p1"]
	assert.Equal(t, "water", row.Type)
	assert.Equal(t, []string{"water", "north"}, row.Tags)
	require.NotNil(t, row.ExpiresAt)
}

func TestCreatePin_UnknownColumnSignature(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodPost, "/pins",
		`{"id":"p1","map_id":"m1","lat":1,"lng":2,"severity":"high"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not find the 'severity' column of 'pins'")
}

func TestDeletePins_InFilter(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodDelete, "/pins?id=in.(p1,p2)", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, store.deletedPins, 1)
	assert.Equal(t, []string{"p1", "p2"}, store.deletedPins[0])
}

func TestDeletePins_RequiresFilter(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodDelete, "/pins", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	store := newFakeStore()

	rec := doRequest(t, store, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	store.pingErr = errors.New("down")
	rec = doRequest(t, store, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
