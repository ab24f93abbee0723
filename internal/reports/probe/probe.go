// Package probe reports probes that were reporting records in the
// lookback window but went silent in the report window. Repeat
// notifications are suppressed through a plain-text history file.
package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/indexpattern"
	"gracc-reporting/internal/report"
	"gracc-reporting/internal/store"
	"gracc-reporting/internal/table"
	"gracc-reporting/internal/timeutil"
)

// ReportName is the config section key.
const ReportName = "probe"

// Defaults when the probe section leaves them unset.
const (
	defaultLookbackDays    = 2
	defaultSuppressionDays = 7
	defaultHistoryFile     = "probe_report_history"
)

// lastSeen is what the lookback query yields per probe.
type lastSeen struct {
	probeID string
	site    string
	last    time.Time
}

// Report implements report.Contract for the probe-liveness report.
type Report struct {
	cfg    *config.Config
	logger *zap.Logger
	window timeutil.Range

	lookback timeutil.Range
	history  *History

	// previous holds lookback probes in store emit order.
	previous []lastSeen
	missing  []store.Row
}

// New builds the report and loads the suppression history.
func New(cfg *config.Config, logger *zap.Logger, window timeutil.Range) (*Report, error) {
	lookbackDays, ok := cfg.Int(ReportName, "lookback_days")
	if !ok {
		lookbackDays = defaultLookbackDays
	}
	lookback, err := timeutil.NewRange(window.Start.AddDate(0, 0, -lookbackDays), window.Start)
	if err != nil {
		return nil, err
	}

	suppressionDays, ok := cfg.Int(ReportName, "suppression_days")
	if !ok {
		suppressionDays = defaultSuppressionDays
	}
	historyFile, ok := cfg.String(ReportName, "history_file")
	if !ok {
		historyFile = defaultHistoryFile
	}
	history, err := LoadHistory(historyFile, time.Duration(suppressionDays)*24*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Report{
		cfg:      cfg,
		logger:   logger,
		window:   window,
		lookback: lookback,
		history:  history,
	}, nil
}

// Name implements report.Contract.
func (r *Report) Name() string { return ReportName }

// VO implements report.Contract; the probe report is not VO-scoped.
func (r *Report) VO() string { return "" }

// Policy implements report.Contract. No silent probes is the good
// outcome, so an empty report succeeds without delivery.
func (r *Report) Policy() report.Policy {
	return report.Policy{EmptyIsFatal: false}
}

// Title implements report.Contract.
func (r *Report) Title() string {
	return fmt.Sprintf("Probe Liveness Report %s", r.window.End.Format("2006-01-02"))
}

// PreQuery fetches the probes active during the lookback window along
// with their site and last record time.
func (r *Report) PreQuery(ctx context.Context, s store.Searcher) error {
	req, err := r.buildQuery(r.lookback, true)
	if err != nil {
		return err
	}
	res, err := s.Search(ctx, req.Index, req.Body)
	if err != nil {
		return err
	}

	rows, err := store.Flatten(res.Aggregations, []string{"ProbeName", "OIM_Site"}, []string{"LastSeen"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		probeID, _ := row["ProbeName"].(string)
		if probeID == "" {
			continue
		}
		site, _ := row["OIM_Site"].(string)
		ms, _ := row["LastSeen"].(float64)
		last, err := timeutil.EpochToDatetime(ms, timeutil.UnitMillisecond)
		if err != nil {
			return err
		}
		r.previous = append(r.previous, lastSeen{probeID: probeID, site: site, last: last})
	}

	r.logger.Debug("Collected lookback probes", zap.Int("probes", len(r.previous)))
	return nil
}

// Query implements report.Contract: the probes seen in the report
// window itself.
func (r *Report) Query() (report.Request, error) {
	return r.buildQuery(r.window, false)
}

// buildQuery assembles the terms aggregation for one window. The
// lookback variant adds the site sub-aggregation and last-record
// metric.
func (r *Report) buildQuery(window timeutil.Range, withDetail bool) (report.Request, error) {
	template, _ := r.cfg.String(ReportName, "index_pattern")
	index, err := indexpattern.Resolve(template, window.Start, window.End)
	if err != nil {
		return report.Request{}, err
	}

	probeAgg := map[string]any{
		"terms": map[string]any{
			"field": "ProbeName",
			"size":  10000,
		},
	}
	if withDetail {
		probeAgg["aggs"] = map[string]any{
			"OIM_Site": map[string]any{
				"terms": map[string]any{
					"field":   "OIM_Site",
					"size":    10000,
					"missing": store.MissingSentinel,
				},
				"aggs": map[string]any{
					"LastSeen": map[string]any{"max": map[string]any{"field": "EndTime"}},
				},
			},
		}
	}

	body := map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"range": map[string]any{
						"EndTime": map[string]any{
							"gte": window.Start.Format("2006-01-02T15:04:05"),
							"lt":  window.End.Format("2006-01-02T15:04:05"),
						},
					}},
				},
			},
		},
		"aggs": map[string]any{"ProbeName": probeAgg},
	}
	return report.Request{Index: index, Body: body}, nil
}

// Collect computes the silent-probe set and applies the suppression
// gate to each candidate.
func (r *Report) Collect(_ context.Context, res *store.SearchResult) error {
	rows, err := store.Flatten(res.Aggregations, []string{"ProbeName"}, nil)
	if err != nil {
		return err
	}
	current := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if probeID, ok := row["ProbeName"].(string); ok {
			current[probeID] = struct{}{}
		}
	}

	now := r.window.End
	suppressed := 0
	for _, prev := range r.previous {
		if _, alive := current[prev.probeID]; alive {
			continue
		}
		status, send := r.history.Gate(prev.probeID, now)
		if !send {
			suppressed++
			continue
		}
		r.missing = append(r.missing, store.Row{
			"Probe":     prev.probeID,
			"Site":      prev.site,
			"Last Seen": prev.last,
			"Status":    string(status),
		})
	}

	r.logger.Info("Evaluated probe liveness",
		zap.Int("lookback_probes", len(r.previous)),
		zap.Int("current_probes", len(current)),
		zap.Int("silent", len(r.missing)+suppressed),
		zap.Int("suppressed", suppressed))
	return nil
}

// FormatTable implements report.Contract.
func (r *Report) FormatTable() (*table.Table, table.RenderOptions, error) {
	opts := table.DefaultRenderOptions()
	if len(r.missing) == 0 {
		return nil, opts, nil
	}
	tbl := table.New("Probe", "Site", "Last Seen", "Status")
	for _, row := range r.missing {
		if err := tbl.AppendMapRow(row); err != nil {
			return nil, opts, err
		}
	}
	return tbl, opts, nil
}

// Finish rewrites the history file once the run has succeeded.
func (r *Report) Finish() error {
	return r.history.Save()
}
