package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawAggs(t *testing.T, doc string) map[string]json.RawMessage {
	t.Helper()
	var aggs map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(doc), &aggs))
	return aggs
}

const nestedAggs = `{
	"A": {"buckets": [
		{"key": "a1", "doc_count": 7, "B": {"buckets": [
			{"key": "b1", "doc_count": 3, "m": {"value": 10}},
			{"key": "b2", "doc_count": 4, "m": {"value": 20}}
		]}},
		{"key": "a2", "doc_count": 2, "B": {"buckets": [
			{"key": "b1", "doc_count": 2, "m": {"value": 5}}
		]}}
	]}
}`

func TestFlattenNested(t *testing.T) {
	rows, err := Flatten(rawAggs(t, nestedAggs), []string{"A", "B"}, []string{"m"})
	require.NoError(t, err)

	want := []Row{
		{"A": "a1", "B": "b1", "m": 10.0, "count": 3.0},
		{"A": "a1", "B": "b2", "m": 20.0, "count": 4.0},
		{"A": "a2", "B": "b1", "m": 5.0, "count": 2.0},
	}
	assert.Equal(t, want, rows)
}

func TestFlattenRowKeySet(t *testing.T) {
	rows, err := Flatten(rawAggs(t, nestedAggs), []string{"A", "B"}, []string{"m"})
	require.NoError(t, err)

	for _, row := range rows {
		assert.Len(t, row, 4)
		for _, key := range []string{"A", "B", "m", CountKey} {
			assert.Contains(t, row, key)
		}
	}
}

func TestFlattenSingleDimension(t *testing.T) {
	doc := `{"P": {"buckets": [
		{"key": "probe1", "doc_count": 5},
		{"key": "probe2", "doc_count": 1}
	]}}`
	rows, err := Flatten(rawAggs(t, doc), []string{"P"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"P": "probe1", "count": 5.0},
		{"P": "probe2", "count": 1.0},
	}, rows)
}

func TestFlattenEmptyChildEmitsPartialRow(t *testing.T) {
	// a2 has no B buckets; the partial row still surfaces.
	doc := `{
		"A": {"buckets": [
			{"key": "a1", "doc_count": 1, "B": {"buckets": [
				{"key": "b1", "doc_count": 1, "m": {"value": 1}}
			]}},
			{"key": "a2", "doc_count": 1, "B": {"buckets": []}}
		]}
	}`
	rows, err := Flatten(rawAggs(t, doc), []string{"A", "B"}, []string{"m"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"A": "a1", "B": "b1", "m": 1.0, "count": 1.0}, rows[0])
	assert.Equal(t, Row{"A": "a2"}, rows[1])
}

func TestFlattenEmptyRoot(t *testing.T) {
	rows, err := Flatten(rawAggs(t, `{"A": {"buckets": []}}`), []string{"A"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{}, rows[0])
}

func TestFlattenNoDimensions(t *testing.T) {
	_, err := Flatten(rawAggs(t, `{}`), nil, nil)
	assert.ErrorIs(t, err, ErrStoreQuery)
}

func TestFlattenNumericKeys(t *testing.T) {
	doc := `{"Year": {"buckets": [{"key": 2016, "doc_count": 9}]}}`
	rows, err := Flatten(rawAggs(t, doc), []string{"Year"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2016.0, rows[0]["Year"])
}
