// Package siteusage reports per-site core-hour usage for one VO over
// the report window.
package siteusage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/indexpattern"
	"gracc-reporting/internal/report"
	"gracc-reporting/internal/store"
	"gracc-reporting/internal/table"
	"gracc-reporting/internal/timeutil"
)

// ReportName is the config section key.
const ReportName = "siteusage"

var (
	dims    = []string{"OIM_Site", "ProbeName"}
	metrics = []string{"CoreHours", "Njobs"}
)

// Report implements report.Contract for the site usage report.
type Report struct {
	cfg    *config.Config
	logger *zap.Logger
	vo     string
	window timeutil.Range

	minHours float64
	numRank  int

	rows    []store.Row
	total   float64
	skipped int
}

// New builds the report after gating the VO against the configuration.
func New(cfg *config.Config, logger *zap.Logger, vo string, window timeutil.Range, numRank int) (*Report, error) {
	if err := cfg.CheckVO(ReportName, vo); err != nil {
		return nil, err
	}
	minHours, _ := cfg.Float(ReportName, vo, "min_hours")
	return &Report{
		cfg:      cfg,
		logger:   logger,
		vo:       vo,
		window:   window,
		minHours: minHours,
		numRank:  numRank,
	}, nil
}

// Name implements report.Contract.
func (r *Report) Name() string { return ReportName }

// VO implements report.Contract.
func (r *Report) VO() string { return r.vo }

// Policy implements report.Contract. An empty site usage report means
// the query or the accounting flow is broken, so it is fatal.
func (r *Report) Policy() report.Policy {
	attachXLSX, _ := r.cfg.Bool(ReportName, "attach_xlsx")
	return report.Policy{EmptyIsFatal: true, AttachXLSX: attachXLSX}
}

// Title implements report.Contract.
func (r *Report) Title() string {
	return fmt.Sprintf("%s Site Usage Report %s - %s",
		r.vo,
		r.window.Start.Format("2006-01-02"),
		r.window.End.Format("2006-01-02"))
}

// Query implements report.Contract: per-site, per-probe sums of core
// hours and job counts for batch records of the VO.
func (r *Report) Query() (report.Request, error) {
	template, _ := r.cfg.String(ReportName, "index_pattern")
	index, err := indexpattern.Resolve(template, r.window.Start, r.window.End)
	if err != nil {
		return report.Request{}, err
	}

	body := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"range": map[string]any{
						"EndTime": map[string]any{
							"gte": r.window.Start.Format("2006-01-02T15:04:05"),
							"lt":  r.window.End.Format("2006-01-02T15:04:05"),
						},
					}},
					map[string]any{"term": map[string]any{"ResourceType": "Batch"}},
					map[string]any{"term": map[string]any{"VOName": r.vo}},
				},
			},
		},
		"aggs": map[string]any{
			"OIM_Site": map[string]any{
				"terms": map[string]any{
					"field":   "OIM_Site",
					"size":    10000,
					"missing": store.MissingSentinel,
				},
				"aggs": map[string]any{
					"ProbeName": map[string]any{
						"terms": map[string]any{
							"field":   "ProbeName",
							"size":    10000,
							"missing": store.MissingSentinel,
						},
						"aggs": map[string]any{
							"CoreHours": map[string]any{"sum": map[string]any{"field": "CoreHours"}},
							"Njobs":     map[string]any{"sum": map[string]any{"field": "Njobs"}},
						},
					},
				},
			},
		},
	}
	return report.Request{Index: index, Body: body}, nil
}

// Collect implements report.Contract: flatten the bucket tree and run
// the rows through the threshold pipeline.
func (r *Report) Collect(_ context.Context, res *store.SearchResult) error {
	flat, err := store.Flatten(res.Aggregations, dims, metrics)
	if err != nil {
		return err
	}

	pipeline := report.NewPipeline(
		func(row store.Row) { r.rows = append(r.rows, row) },
		r.dropPartialRows,
		r.applyThreshold,
		r.accumulateTotal,
	)
	pipeline.ConsumeAll(flat)

	if r.skipped > 0 {
		r.logger.Debug("Skipped records missing expected keys", zap.Int("skipped", r.skipped))
	}
	r.logger.Info("Collected usage rows",
		zap.Int("rows", len(r.rows)),
		zap.Float64("total_core_hours", r.total))
	return nil
}

// dropPartialRows silently skips source records missing expected keys,
// counting them at debug level.
func (r *Report) dropPartialRows(row store.Row) (store.Row, bool) {
	for _, key := range []string{"OIM_Site", "ProbeName", "CoreHours"} {
		if row[key] == nil {
			r.skipped++
			return nil, false
		}
	}
	return row, true
}

// applyThreshold drops rows below the configured core-hour floor.
func (r *Report) applyThreshold(row store.Row) (store.Row, bool) {
	if asFloat(row["CoreHours"]) < r.minHours {
		return nil, false
	}
	return row, true
}

// accumulateTotal tracks the grand total for the percent column.
func (r *Report) accumulateTotal(row store.Row) (store.Row, bool) {
	r.total += asFloat(row["CoreHours"])
	return row, true
}

// FormatTable implements report.Contract. Rows sort by lowercased site
// name; a positive numRank keeps only the top-N rows by core hours.
func (r *Report) FormatTable() (*table.Table, table.RenderOptions, error) {
	opts := table.DefaultRenderOptions()
	opts.Precision = map[string]int{"Jobs": 0, "% of Total": 2}
	if len(r.rows) == 0 {
		return nil, opts, nil
	}

	rows := r.rows
	if r.numRank > 0 && r.numRank < len(rows) {
		ranked := append([]store.Row(nil), rows...)
		sort.SliceStable(ranked, func(i, j int) bool {
			return asFloat(ranked[i]["CoreHours"]) > asFloat(ranked[j]["CoreHours"])
		})
		rows = ranked[:r.numRank]
	}
	sorted := append([]store.Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(asString(sorted[i]["OIM_Site"])) <
			strings.ToLower(asString(sorted[j]["OIM_Site"]))
	})

	tbl := table.New("Site", "Probe", "Core Hours", "Jobs", "% of Total")
	for _, row := range sorted {
		hours := asFloat(row["CoreHours"])
		percent := 0.0
		if r.total > 0 {
			percent = hours / r.total * 100
		}
		if err := tbl.AppendRow(
			asString(row["OIM_Site"]),
			asString(row["ProbeName"]),
			hours,
			asFloat(row["Njobs"]),
			percent,
		); err != nil {
			return nil, opts, err
		}
	}
	return tbl, opts, nil
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
