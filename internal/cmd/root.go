// Package cmd wires the report engine into the gracc-report command
// line. One invocation runs one report.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/email"
	"gracc-reporting/internal/report"
	"gracc-reporting/internal/store"
	"gracc-reporting/internal/timeutil"
)

var (
	configPath   string
	startStr     string
	endStr       string
	templatePath string
	verbose      bool
	dryRun       bool
	noEmail      bool
	logfilePath  string
)

var rootCmd = &cobra.Command{
	Use:           "gracc-report",
	Short:         "Scheduled operational reports over grid accounting records",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env for deployment-specific overrides.
		_ = godotenv.Load()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "configuration document path")
	pf.StringVar(&startStr, "start", "", "report window start (YYYY-MM-DD[ HH:MM:SS])")
	pf.StringVar(&endStr, "end", "", "report window end (YYYY-MM-DD[ HH:MM:SS])")
	pf.StringVar(&templatePath, "template", "", "override default HTML template")
	pf.BoolVar(&verbose, "verbose", false, "raise console log level to debug")
	pf.BoolVar(&dryRun, "dryrun", false, "send only to testers")
	pf.BoolVar(&noEmail, "nomail", false, "skip delivery; log intended recipients")
	pf.StringVar(&logfilePath, "logfile", "", "override logfile location")
}

// Execute runs the CLI. Any fatal error yields a non-zero exit status.
func Execute() error {
	return rootCmd.Execute()
}

// reportBuilder constructs a concrete report once the shared
// collaborators exist.
type reportBuilder func(cfg *config.Config, logger *zap.Logger, window timeutil.Range) (report.Contract, error)

// runReport is the shared driver behind every subcommand: load config,
// resolve the window and logfile, build the report, gate the store and
// run the lifecycle. Fatal errors trigger the admin notification path.
func runReport(reportName, vo string, build reportBuilder) error {
	if configPath == "" {
		return fmt.Errorf("%w: --config is required", config.ErrConfigMissing)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	window, err := resolveWindow(startStr, endStr)
	if err != nil {
		return err
	}

	logfile := report.ResolveLogfile(logfilePath, cfg.DefaultLogdir, reportName)
	logger, cleanup, err := report.NewLogger(reportName, vo, logfile, verbose)
	if err != nil {
		return err
	}
	defer cleanup()

	mailer := email.NewMailer(nil, logger)
	runErr := run(cfg, logger, mailer, logfile, window, build)
	if runErr != nil {
		logger.Error("Fatal report error", zap.Error(runErr))
		mailer.NotifyAdmins(cfg, reportName, runErr, logfile)
	}
	return runErr
}

func run(cfg *config.Config, logger *zap.Logger, mailer *email.Mailer, logfile string, window timeutil.Range, build reportBuilder) error {
	rep, err := build(cfg, logger, window)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), store.DefaultTimeout)
	defer cancel()

	client, err := store.NewClient(ctx, store.Config{
		Hostname:           cfg.AltHostname(rep.Policy().AltHostKey),
		OKStatuses:         cfg.Elasticsearch.OKStatuses,
		InsecureSkipVerify: cfg.Elasticsearch.InsecureSkipVerify,
	}, logger)
	if err != nil {
		return err
	}

	runner := report.NewRunner(cfg, client, mailer, logger, report.Options{
		IsTest:       dryRun,
		NoEmail:      noEmail,
		TemplatePath: templatePath,
		Logfile:      logfile,
	})
	_, err = runner.Run(context.Background(), rep)
	return err
}

// resolveWindow parses --start/--end. With neither given the window is
// the 24 hours ending now; a lone endpoint gets the matching 24-hour
// complement.
func resolveWindow(startStr, endStr string) (timeutil.Range, error) {
	var start, end time.Time
	var err error

	if startStr != "" {
		start, err = timeutil.ParseDatetime(startStr, false)
		if err != nil {
			return timeutil.Range{}, err
		}
	}
	if endStr != "" {
		end, err = timeutil.ParseDatetime(endStr, false)
		if err != nil {
			return timeutil.Range{}, err
		}
	}
	switch {
	case start.IsZero() && end.IsZero():
		end = time.Now().UTC()
		start = end.Add(-24 * time.Hour)
	case start.IsZero():
		start = end.Add(-24 * time.Hour)
	case end.IsZero():
		end = start.Add(24 * time.Hour)
	}

	return timeutil.NewRange(start, end)
}
