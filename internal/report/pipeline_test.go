package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gracc-reporting/internal/store"
)

func TestPipelineOrderAndFiltering(t *testing.T) {
	var got []store.Row
	var touched []string

	double := func(row store.Row) (store.Row, bool) {
		touched = append(touched, row["id"].(string))
		row["v"] = row["v"].(float64) * 2
		return row, true
	}
	threshold := func(row store.Row) (store.Row, bool) {
		return row, row["v"].(float64) >= 10
	}

	pipeline := NewPipeline(func(row store.Row) { got = append(got, row) }, double, threshold)
	pipeline.ConsumeAll([]store.Row{
		{"id": "a", "v": 3.0},
		{"id": "b", "v": 7.0},
		{"id": "c", "v": 2.0},
	})

	// Every row passes through the first stage in input order.
	assert.Equal(t, []string{"a", "b", "c"}, touched)
	// Only the row clearing the threshold reaches the sink.
	if assert.Len(t, got, 1) {
		assert.Equal(t, "b", got[0]["id"])
		assert.Equal(t, 14.0, got[0]["v"])
	}
}

func TestPipelineNoStages(t *testing.T) {
	var got []store.Row
	pipeline := NewPipeline(func(row store.Row) { got = append(got, row) })
	pipeline.Consume(store.Row{"x": 1})
	assert.Len(t, got, 1)
}
