package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

const hitsBody = `{"hits":{"total":{"value":2},"hits":[
	{"_source":{"id":1,"name":"Pen","price":10,"description":"blue ink"}},
	{"_source":{"id":3,"name":"Pencil","price":4.5,"description":""}}
]}}`

func TestDecodeHits(t *testing.T) {
	total, prods, err := decodeHits(strings.NewReader(hitsBody))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, prods, 2)
	assert.Equal(t, "Pen", prods[0].Name)
	assert.Equal(t, uint(3), prods[1].ID)
	assert.Equal(t, 4.5, prods[1].Price)
}

// fakeES answers the handful of endpoints the client touches.
type fakeES struct {
	mu       sync.Mutex
	requests []string
	indexed  map[string]models.Product
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/products/_doc/"):
		var p models.Product
		_ = json.NewDecoder(r.Body).Decode(&p)
		f.indexed[strings.TrimPrefix(r.URL.Path, "/products/_doc/")] = p
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, hitsBody)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{}`)
	}
}

func TestClient_AgainstFakeCluster(t *testing.T) {
	fake := &fakeES{indexed: map[string]models.Product{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	c, err := NewClient(ctx, Config{URL: srv.URL, Index: "products"})
	require.NoError(t, err)

	require.NoError(t, c.IndexProduct(ctx, &models.Product{ID: 7, Name: "Pen", Price: 10}))
	assert.Equal(t, "Pen", fake.indexed["7"].Name)

	assert.NoError(t, c.DeleteProduct(ctx, 99))

	total, prods, err := c.Search(ctx, "pen", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, prods, 2)
}

func TestNewClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewClient(context.Background(), Config{URL: srv.URL, Index: "products"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
