package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"room-diff-alerts/internal/app"
	"room-diff-alerts/internal/config"
	"room-diff-alerts/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	dateFrom  string
	dateTo    string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "roomwatcher",
	Short: "Watch hotel room availability and alert on changes",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if dateFrom != "" {
			cfg.Watch.DateFrom = dateFrom
		}
		if dateTo != "" {
			cfg.Watch.DateTo = dateTo
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")
	rootCmd.PersistentFlags().StringVar(&dateFrom, "date-from", "", "Override watch window start (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&dateTo, "date-to", "", "Override watch window end (YYYY-MM-DD)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
