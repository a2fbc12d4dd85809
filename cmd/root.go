package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// CLI flags shared across subcommands
	logLevel       string  // Log verbosity level
	dbPath         string  // Path to the sqlite lap database
	modelDir       string  // Directory holding the trained model artifacts
	pitLossSeconds float64 // Time lost per pit stop
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "raceintel360",
	Short: "F1 lap-time analytics and race-strategy simulation",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up shared CLI flags
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "f1_data.db", "Path to the sqlite lap database")
	rootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", "models", "Directory holding the trained model artifacts")
	rootCmd.PersistentFlags().Float64Var(&pitLossSeconds, "pit-loss", 22.0, "Seconds lost per pit stop")
}
