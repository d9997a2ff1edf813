package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/showmeapp/showme/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePin_ErrorSignatures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"foreign key code", http.StatusConflict, `{"code":"23503","message":"insert or update on table \"pins\" violates foreign key constraint"}`, common.ErrForeignKey},
		{"missing column", http.StatusBadRequest, `{"code":"PGRST204","message":"Could not find the 'type' column of 'pins' in the schema cache"}`, common.ErrUnknownColumn},
		{"missing column plain", http.StatusBadRequest, `{"message":"column \"expires_at\" of relation \"pins\" does not exist"}`, common.ErrUnknownColumn},
		{"duplicate key", http.StatusConflict, `{"code":"23505","message":"duplicate key value violates unique constraint"}`, common.ErrDuplicateKey},
		{"server error", http.StatusInternalServerError, `boom`, common.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL)
			err := c.CreatePin(context.Background(), map[string]any{"id": "p1"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateMap_SendsJSONBody(t *testing.T) {
	var gotPath, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	err := c.CreateMap(context.Background(), map[string]any{"id": "m1", "name": "routes"})
	require.NoError(t, err)
	assert.Equal(t, "/maps", gotPath)
	assert.Equal(t, "application/json", gotContentType)
}

func TestMapExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "id=eq.known") {
			_, _ = w.Write([]byte(`[{"id":"known"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)

	ok, err := c.MapExists(context.Background(), "known")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.MapExists(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeletePins_BatchesLargeSets(t *testing.T) {
	var batches []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		filter, err := url.QueryUnescape(r.URL.RawQuery)
		require.NoError(t, err)
		inner := strings.TrimSuffix(strings.TrimPrefix(filter, "id=in.("), ")")
		batches = append(batches, len(strings.Split(inner, ",")))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ids := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		ids = append(ids, "pin-"+string(rune('a'+i%26))+"-"+string(rune('0'+i%10)))
	}

	c := NewHTTPClient(srv.URL)
	require.NoError(t, c.DeletePins(context.Background(), ids))
	assert.Equal(t, []int{100, 100, 50}, batches)
}

func TestDeletePins_FailedBatchDoesNotStopTheRest(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ids := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		ids = append(ids, "pin-"+string(rune('a'+i%26))+"-"+string(rune('0'+i%10)))
	}

	c := NewHTTPClient(srv.URL)
	err := c.DeletePins(context.Background(), ids)
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, 2, requests) // the second batch still went out
}

func TestPing_UnreachableEndpoint(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1") // nothing listens here
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestListPinIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pins", r.URL.Path)
		require.Equal(t, "select=id", r.URL.RawQuery)
		_, _ = w.Write([]byte(`[{"id":"p1"},{"id":"p2"}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	ids, err := c.ListPinIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)
}
