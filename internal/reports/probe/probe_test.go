package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/store"
	"gracc-reporting/internal/timeutil"
)

const probeConfigDoc = `
configured_vos = ["osg"]

[email]
smtphost = "smtp.example.com:25"

[email.from]
email = "reports@example.com"
name = "GRACC Operations"

[email.test]
emails = ["tester@example.com"]
names = ["Tester"]

[probe]
lookback_days = 2
history_file = %q
`

func probeConfig(t *testing.T, historyPath string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := fmt.Sprintf(probeConfigDoc, historyPath)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func probeWindow(t *testing.T) timeutil.Range {
	t.Helper()
	window, err := timeutil.NewRange(
		time.Date(2016, 6, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2016, 6, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return window
}

// 2016-06-10T00:00:00Z in epoch milliseconds, inside the lookback
// window.
const lastSeenMillis = 1465516800000.0

// lookback result: two probes active before the report window, with
// site and last-record detail.
var lookbackAggs = fmt.Sprintf(`{
	"buckets": [
		{"key": "probe1.example.com", "doc_count": 10, "OIM_Site": {"buckets": [
			{"key": "AGLT2", "doc_count": 10, "LastSeen": {"value": %.1f}}]}},
		{"key": "probe2.example.com", "doc_count": 4, "OIM_Site": {"buckets": [
			{"key": "Nebraska", "doc_count": 4, "LastSeen": {"value": %.1f}}]}}
	]
}`, lastSeenMillis, lastSeenMillis)

type stubSearcher struct {
	res *store.SearchResult
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ map[string]any) (*store.SearchResult, error) {
	return s.res, nil
}

func lookbackResult() *store.SearchResult {
	return &store.SearchResult{
		Aggregations: map[string]json.RawMessage{"ProbeName": json.RawMessage(lookbackAggs)},
	}
}

func currentResult(probes ...string) *store.SearchResult {
	buckets := make([]map[string]any, 0, len(probes))
	for _, p := range probes {
		buckets = append(buckets, map[string]any{"key": p, "doc_count": 1})
	}
	raw, _ := json.Marshal(map[string]any{"buckets": buckets})
	return &store.SearchResult{
		Aggregations: map[string]json.RawMessage{"ProbeName": json.RawMessage(raw)},
	}
}

func TestCollectReportsSilentProbe(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	rep, err := New(probeConfig(t, historyPath), zap.NewNop(), probeWindow(t))
	require.NoError(t, err)

	require.NoError(t, rep.PreQuery(context.Background(), &stubSearcher{res: lookbackResult()}))
	require.NoError(t, rep.Collect(context.Background(), currentResult("probe1.example.com")))

	tbl, _, err := rep.FormatTable()
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, []any{"probe2.example.com"}, tbl.Columns["Probe"])
	assert.Equal(t, []any{"Nebraska"}, tbl.Columns["Site"])
	assert.Equal(t, []any{string(StatusNew)}, tbl.Columns["Status"])
	assert.Equal(t,
		[]any{time.Date(2016, 6, 10, 0, 0, 0, 0, time.UTC)},
		tbl.Columns["Last Seen"])
}

func TestCollectAllProbesAliveIsEmpty(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	rep, err := New(probeConfig(t, historyPath), zap.NewNop(), probeWindow(t))
	require.NoError(t, err)

	require.NoError(t, rep.PreQuery(context.Background(), &stubSearcher{res: lookbackResult()}))
	require.NoError(t, rep.Collect(context.Background(),
		currentResult("probe1.example.com", "probe2.example.com")))

	tbl, _, err := rep.FormatTable()
	require.NoError(t, err)
	assert.Nil(t, tbl)
	assert.False(t, rep.Policy().EmptyIsFatal)
}

func TestCollectSuppressesRecentlyNotified(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(historyPath,
		[]byte("probe2.example.com\t2016-06-10\n"), 0o644))

	rep, err := New(probeConfig(t, historyPath), zap.NewNop(), probeWindow(t))
	require.NoError(t, err)

	require.NoError(t, rep.PreQuery(context.Background(), &stubSearcher{res: lookbackResult()}))
	require.NoError(t, rep.Collect(context.Background(), currentResult("probe1.example.com")))

	tbl, _, err := rep.FormatTable()
	require.NoError(t, err)
	assert.Nil(t, tbl)
}

func TestFinishPersistsHistory(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	rep, err := New(probeConfig(t, historyPath), zap.NewNop(), probeWindow(t))
	require.NoError(t, err)

	require.NoError(t, rep.PreQuery(context.Background(), &stubSearcher{res: lookbackResult()}))
	require.NoError(t, rep.Collect(context.Background(), currentResult("probe1.example.com")))
	require.NoError(t, rep.Finish())

	data, err := os.ReadFile(historyPath)
	require.NoError(t, err)
	assert.Equal(t, "probe2.example.com\t2016-06-12\n", string(data))
}

func TestLookbackQueryCarriesDetailAggregations(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	rep, err := New(probeConfig(t, historyPath), zap.NewNop(), probeWindow(t))
	require.NoError(t, err)

	req, err := rep.buildQuery(rep.lookback, true)
	require.NoError(t, err)
	probeAgg := req.Body["aggs"].(map[string]any)["ProbeName"].(map[string]any)
	require.Contains(t, probeAgg, "aggs")

	req, err = rep.Query()
	require.NoError(t, err)
	probeAgg = req.Body["aggs"].(map[string]any)["ProbeName"].(map[string]any)
	assert.NotContains(t, probeAgg, "aggs")
}
