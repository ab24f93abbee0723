package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/email"
	"gracc-reporting/internal/store"
	"gracc-reporting/internal/table"
)

// Options are the run-wide switches from the command line.
type Options struct {
	// IsTest substitutes the tester-only recipient list.
	IsTest bool
	// NoEmail performs every step except delivery.
	NoEmail bool
	// TemplatePath overrides the report's HTML template file.
	TemplatePath string
	// Logfile is the resolved logfile path, included in failure
	// notifications.
	Logfile string
}

// Result summarizes one report run.
type Result struct {
	RunID       uuid.UUID
	Rows        int
	Delivered   bool
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64
}

// Runner drives a report through its lifecycle:
// query → collect → format → render → deliver.
type Runner struct {
	cfg    *config.Config
	store  store.Searcher
	mailer *email.Mailer
	logger *zap.Logger
	opts   Options

	// now is swappable in tests so artifact names stay stable.
	now func() time.Time
}

// NewRunner wires the runner's collaborators.
func NewRunner(cfg *config.Config, s store.Searcher, mailer *email.Mailer, logger *zap.Logger, opts Options) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  s,
		mailer: mailer,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// Run executes one report. Transitions are linear with no retries; the
// first error aborts the run.
func (r *Runner) Run(ctx context.Context, rep Contract) (*Result, error) {
	result := &Result{RunID: uuid.New(), StartedAt: r.now()}
	logger := r.logger.With(zap.String("run_id", result.RunID.String()))

	logger.Info("Starting report run",
		zap.Bool("is_test", r.opts.IsTest),
		zap.Bool("no_email", r.opts.NoEmail))

	info, err := email.ResolveRecipients(r.cfg, rep.Name(), rep.VO(), r.opts.IsTest)
	if err != nil {
		return r.finish(result, logger, rep, err)
	}

	if pre, ok := rep.(PreQuerier); ok {
		if err := pre.PreQuery(ctx, r.store); err != nil {
			return r.finish(result, logger, rep, err)
		}
	}

	req, err := rep.Query()
	if err != nil {
		return r.finish(result, logger, rep, err)
	}
	res, err := r.store.Search(ctx, req.Index, req.Body)
	if err != nil {
		return r.finish(result, logger, rep, err)
	}
	if err := rep.Collect(ctx, res); err != nil {
		return r.finish(result, logger, rep, err)
	}

	tbl, renderOpts, err := rep.FormatTable()
	if err != nil {
		return r.finish(result, logger, rep, err)
	}

	if tbl == nil || tbl.Empty() {
		return r.finishEmpty(result, logger, rep, info)
	}
	result.Rows, _ = tbl.NumRows()

	msg, err := r.buildMessage(rep, tbl, renderOpts)
	if err != nil {
		return r.finish(result, logger, rep, err)
	}

	if r.opts.NoEmail {
		logger.Info("Delivery skipped (no-email mode)",
			zap.Strings("intended_recipients", info.ToEmails))
		return r.finish(result, logger, rep, nil)
	}

	if err := r.mailer.Send(info, msg); err != nil {
		return r.finish(result, logger, rep, err)
	}
	result.Delivered = true
	return r.finish(result, logger, rep, nil)
}

// finishEmpty applies the report's empty-result policy: a pre-rendered
// text body is sent when available, otherwise the policy decides
// between failure and a silent success.
func (r *Runner) finishEmpty(result *Result, logger *zap.Logger, rep Contract, info email.Info) (*Result, error) {
	if tp, ok := rep.(TextProvider); ok && tp.Text() != "" {
		msg := &email.Message{Subject: rep.Title(), TextBody: tp.Text()}
		if r.opts.NoEmail {
			logger.Info("Delivery skipped (no-email mode)",
				zap.Strings("intended_recipients", info.ToEmails))
			return r.finish(result, logger, rep, nil)
		}
		if err := r.mailer.Send(info, msg); err != nil {
			return r.finish(result, logger, rep, err)
		}
		result.Delivered = true
		return r.finish(result, logger, rep, nil)
	}

	if rep.Policy().EmptyIsFatal {
		return r.finish(result, logger, rep, fmt.Errorf("%w: %s produced no rows", ErrEmptyReport, rep.Name()))
	}
	logger.Info("Report is empty, delivery skipped")
	return r.finish(result, logger, rep, nil)
}

// buildMessage renders the table into the message body and attachments.
func (r *Runner) buildMessage(rep Contract, tbl *table.Table, renderOpts table.RenderOptions) (*email.Message, error) {
	grid, err := tbl.Text(renderOpts)
	if err != nil {
		return nil, err
	}
	csvData, err := tbl.CSV()
	if err != nil {
		return nil, err
	}

	templateText := ""
	if r.opts.TemplatePath != "" {
		data, err := os.ReadFile(r.opts.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read HTML template: %w", err)
		}
		templateText = string(data)
	}
	var extra map[string]string
	if sp, ok := rep.(SlotProvider); ok {
		extra = sp.TemplateSlots()
	}
	htmlDoc, err := tbl.HTML(rep.Title(), templateText, renderOpts, extra)
	if err != nil {
		return nil, err
	}

	stamp := r.now().Format("2006_01_02")
	msg := &email.Message{
		Subject:  rep.Title(),
		TextBody: grid,
		HTMLBody: fmt.Sprintf("<html><body><pre>%s</pre></body></html>", grid),
		Attachments: []email.Attachment{
			{Name: fmt.Sprintf("report_%s.html", stamp), Data: []byte(htmlDoc), ContentType: "text/html"},
			{Name: fmt.Sprintf("report_%s.csv", stamp), Data: []byte(csvData), ContentType: "text/csv"},
		},
	}

	if rep.Policy().AttachXLSX {
		xlsxData, err := tbl.XLSX(rep.Name())
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, email.Attachment{
			Name:        fmt.Sprintf("report_%s.xlsx", stamp),
			Data:        xlsxData,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		})
	}
	return msg, nil
}

// finish stamps timings, runs any post-delivery bookkeeping and logs
// the outcome.
func (r *Runner) finish(result *Result, logger *zap.Logger, rep Contract, err error) (*Result, error) {
	result.CompletedAt = r.now()
	result.DurationMs = result.CompletedAt.Sub(result.StartedAt).Milliseconds()
	if err != nil {
		logger.Error("Report run failed",
			zap.Error(err),
			zap.Int64("duration_ms", result.DurationMs))
		return result, err
	}
	if fin, ok := rep.(Finisher); ok {
		if ferr := fin.Finish(); ferr != nil {
			logger.Error("Report run failed",
				zap.Error(ferr),
				zap.Int64("duration_ms", result.DurationMs))
			return result, ferr
		}
	}
	logger.Info("Report run completed",
		zap.Int("rows", result.Rows),
		zap.Bool("delivered", result.Delivered),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}
