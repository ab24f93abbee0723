// Package report supplies the shared report lifecycle: a small contract
// each report implements and a runner that drives query, flatten,
// format and delivery.
package report

import (
	"context"
	"errors"

	"gracc-reporting/internal/store"
	"gracc-reporting/internal/table"
)

// ErrEmptyReport is returned when a report that requires data produced
// none.
var ErrEmptyReport = errors.New("empty report")

// Request describes one store query: the index selector and the JSON
// search body.
type Request struct {
	Index string
	Body  map[string]any
}

// Policy declares per-report behavior the runner honours.
type Policy struct {
	// EmptyIsFatal makes a data-less run an error; otherwise the run
	// succeeds with delivery skipped.
	EmptyIsFatal bool
	// AttachXLSX adds a spreadsheet rendering of the table to the
	// message.
	AttachXLSX bool
	// AltHostKey selects elasticsearch.<key> as the store host.
	AltHostKey string
}

// Contract is what a concrete report implements. The runner owns
// everything else: recipients, store access, rendering, delivery.
type Contract interface {
	// Name is the report's lowercase config-section name.
	Name() string
	// VO is the optional VO the report is scoped to.
	VO() string
	// Policy declares the report's runner behavior.
	Policy() Policy
	// Title is the email subject and HTML title.
	Title() string
	// Query builds the store query for the report window.
	Query() (Request, error)
	// Collect consumes the query result, typically by flattening the
	// aggregation tree through the report's row pipeline.
	Collect(ctx context.Context, res *store.SearchResult) error
	// FormatTable builds the final table. A nil table with no error
	// means the report produced no data.
	FormatTable() (*table.Table, table.RenderOptions, error)
}

// PreQuerier is implemented by reports that need a preparatory query
// before the main one, e.g. to fetch a comparison window.
type PreQuerier interface {
	PreQuery(ctx context.Context, s store.Searcher) error
}

// TextProvider is implemented by reports that carry a pre-rendered
// message body used when no table was produced.
type TextProvider interface {
	Text() string
}

// Finisher is implemented by reports with post-delivery bookkeeping,
// such as rewriting a suppression history file. It runs only after a
// successful run.
type Finisher interface {
	Finish() error
}

// SlotProvider is implemented by reports that declare extra named
// substitution slots for their HTML template.
type SlotProvider interface {
	TemplateSlots() map[string]string
}
