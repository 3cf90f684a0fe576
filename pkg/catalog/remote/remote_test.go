package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartflow/pkg/catalog"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req lookupRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"A", "B"}, req.IDs)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"_id":"A","title":"Lamp","images":["lamp.png"],"price":500}]`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, srv.Client()).Lookup(context.Background(), []string{"A", "A", "B"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Lamp", got[0].Title)
	require.Equal(t, "lamp.png", got[0].Image())
	require.Equal(t, "500", got[0].Price.String())
}

func TestLookupFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := New(srv.URL, nil).Lookup(context.Background(), []string{"A"})
			require.ErrorIs(t, err, catalog.ErrLookupFailed)
		})
	}
}
