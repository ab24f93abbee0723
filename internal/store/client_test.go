package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore stands in for the metrics store. The product header is
// required by the client's compatibility check.
func fakeStore(t *testing.T, health string, searchBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/_cluster/health"):
			_ = json.NewEncoder(w).Encode(map[string]any{"status": health})
		case strings.Contains(r.URL.Path, "_search"):
			_, _ = w.Write([]byte(searchBody))
		default:
			_, _ = w.Write([]byte("{}"))
		}
	}))
}

func TestNewClientHealthGate(t *testing.T) {
	srv := fakeStore(t, "green", `{}`)
	defer srv.Close()

	client, err := NewClient(context.Background(), Config{Hostname: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClientRejectsBadHealth(t *testing.T) {
	srv := fakeStore(t, "red", `{}`)
	defer srv.Close()

	_, err := NewClient(context.Background(), Config{Hostname: srv.URL}, zap.NewNop())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestNewClientAllowsConfiguredStatuses(t *testing.T) {
	srv := fakeStore(t, "yellow", `{}`)
	defer srv.Close()

	_, err := NewClient(context.Background(), Config{Hostname: srv.URL}, zap.NewNop())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	client, err := NewClient(context.Background(),
		Config{Hostname: srv.URL, OKStatuses: []string{"green", "yellow"}}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestSearchDecodesAggregations(t *testing.T) {
	srv := fakeStore(t, "green", `{
		"took": 12,
		"timed_out": false,
		"hits": {"total": {"value": 3}, "hits": []},
		"aggregations": {"A": {"buckets": [{"key": "a1", "doc_count": 3}]}}
	}`)
	defer srv.Close()

	client, err := NewClient(context.Background(), Config{Hostname: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	res, err := client.Search(context.Background(), "idx-2016.06", map[string]any{"size": 0})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Took)
	assert.Equal(t, 3, res.Hits.Total.Value)
	require.Contains(t, res.Aggregations, "A")

	rows, err := Flatten(res.Aggregations, []string{"A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{{"A": "a1", "count": 3.0}}, rows)
}

func TestSearchErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/_cluster/health") {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "green"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad query"}`))
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), Config{Hostname: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "idx", map[string]any{"size": 0})
	assert.ErrorIs(t, err, ErrStoreQuery)
}
