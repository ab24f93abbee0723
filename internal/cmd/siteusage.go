package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gracc-reporting/internal/config"
	"gracc-reporting/internal/report"
	"gracc-reporting/internal/reports/siteusage"
	"gracc-reporting/internal/timeutil"
)

var (
	siteUsageVO      string
	siteUsageNumRank int
)

var siteUsageCmd = &cobra.Command{
	Use:   "siteusage",
	Short: "Per-site core-hour usage for one VO",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(siteusage.ReportName, siteUsageVO,
			func(cfg *config.Config, logger *zap.Logger, window timeutil.Range) (report.Contract, error) {
				return siteusage.New(cfg, logger, siteUsageVO, window, siteUsageNumRank)
			})
	},
}

func init() {
	siteUsageCmd.Flags().StringVar(&siteUsageVO, "vo", "", "VO to report on")
	siteUsageCmd.Flags().IntVar(&siteUsageNumRank, "numrank", 0, "keep only the top N rows by core hours")
	_ = siteUsageCmd.MarkFlagRequired("vo")
	rootCmd.AddCommand(siteUsageCmd)
}
