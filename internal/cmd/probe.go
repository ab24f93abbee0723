package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/report"
	"gracc-reporting/internal/reports/probe"
	"gracc-reporting/internal/timeutil"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probes that stopped reporting records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(probe.ReportName, "",
			func(cfg *config.Config, logger *zap.Logger, window timeutil.Range) (report.Contract, error) {
				return probe.New(cfg, logger, window)
			})
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
