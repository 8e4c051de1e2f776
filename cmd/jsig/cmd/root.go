package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jsig",
	Short: "jsig — parallel parsing service for a typed JavaScript dialect",
	Long:  "Parses a project into type-signature-indexed artifacts with content-addressed incremental skipping.",
}

var (
	flagWorkers int
	flagProfile bool
	flagVerbose bool
)

// projectRoot returns the project root (cwd by default, first arg wins).
func projectRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// setupLogger configures the process-wide slog handler.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "worker pool size (0 = NumCPU)")
	rootCmd.PersistentFlags().BoolVar(&flagProfile, "profile", false, "log timing for each run")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(wipeCmd)
}
