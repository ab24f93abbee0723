package report

import "gracc-reporting/internal/store"

// Stage transforms one row and reports whether it continues downstream.
// Stages run strictly sequentially in declaration order.
type Stage func(store.Row) (store.Row, bool)

// Pipeline chains stages in front of a sink. It is primed by
// construction; feeding rows drives every stage to completion before
// the next row enters.
type Pipeline struct {
	stages []Stage
	sink   func(store.Row)
}

// NewPipeline builds a pipeline ending in sink.
func NewPipeline(sink func(store.Row), stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, sink: sink}
}

// Consume passes one row through the stages; a stage returning false
// drops the row.
func (p *Pipeline) Consume(row store.Row) {
	for _, stage := range p.stages {
		next, ok := stage(row)
		if !ok {
			return
		}
		row = next
	}
	p.sink(row)
}

// ConsumeAll feeds rows in order.
func (p *Pipeline) ConsumeAll(rows []store.Row) {
	for _, row := range rows {
		p.Consume(row)
	}
}
