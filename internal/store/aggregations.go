package store

import (
	"encoding/json"
	"fmt"
)

// MissingSentinel is passed to the store as the bucket key for records
// that lack a dimension field, so they surface as explicit rows.
const MissingSentinel = "UNKNOWN"

// CountKey is the row key holding a bucket's document count.
const CountKey = "count"

// Row is one flattened record: dimension values plus terminal metrics
// plus the document count.
type Row map[string]any

// Copy returns a shallow copy of the row.
func (r Row) Copy() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// bucket is one node of the aggregation tree. Unknown fields carry
// either child dimension aggregations or metric values, so they decode
// generically.
type bucket map[string]any

// Flatten walks the nested bucket tree in aggs depth-first and emits
// one row per leaf path. dims names the nested dimensions in
// declaration order; metrics names the scalar values read from the
// innermost buckets. Emit order is the store's bucket order; callers
// needing a different order sort afterward.
func Flatten(aggs map[string]json.RawMessage, dims, metrics []string) ([]Row, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no dimensions declared", ErrStoreQuery)
	}

	node := make(bucket, len(aggs))
	for name, raw := range aggs {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("%w: undecodable aggregation %q: %v", ErrStoreQuery, name, err)
		}
		node[name] = decoded
	}

	var rows []Row
	flatten(node, dims, metrics, 0, Row{}, func(r Row) {
		rows = append(rows, r)
	})
	return rows, nil
}

// flatten recurses one dimension level at a time, copying the partial
// row on descent. Recursion depth equals the number of dimensions.
func flatten(node bucket, dims, metrics []string, level int, partial Row, emit func(Row)) {
	buckets := childBuckets(node, dims[level])
	if len(buckets) == 0 {
		// A later dimension with no data still yields the record.
		emit(partial.Copy())
		return
	}

	last := level == len(dims)-1
	for _, b := range buckets {
		row := partial.Copy()
		row[dims[level]] = b["key"]
		if last {
			for _, m := range metrics {
				row[m] = metricValue(b, m)
			}
			row[CountKey] = numeric(b["doc_count"])
			emit(row)
		} else {
			flatten(b, dims, metrics, level+1, row, emit)
		}
	}
}

// childBuckets extracts the bucket list for the named dimension.
func childBuckets(node bucket, dim string) []bucket {
	agg, ok := node[dim].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := agg["buckets"].([]any)
	if !ok {
		return nil
	}
	out := make([]bucket, 0, len(raw))
	for _, item := range raw {
		if b, ok := item.(map[string]any); ok {
			out = append(out, bucket(b))
		}
	}
	return out
}

// metricValue reads a scalar metric from a bucket. Metric aggregations
// wrap the number in {"value": n}.
func metricValue(b bucket, name string) any {
	wrapper, ok := b[name].(map[string]any)
	if !ok {
		return nil
	}
	return wrapper["value"]
}

// numeric normalizes a decoded JSON number to float64.
func numeric(v any) float64 {
	f, _ := v.(float64)
	return f
}
