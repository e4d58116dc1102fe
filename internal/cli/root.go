// Package cli implements the vision command line.
package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "vision",
	Short: "Screen capture, change detection and OCR pipeline",
	Long: `vision captures a monitor at a fixed rate, scores how much each frame changed,
tracks the most-changed keyframe and extracts line-grouped text with OCR.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if configPath != "" {
			_ = os.Setenv(config.PathEnv, configPath)
		}
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		setupLogging(cmd.ErrOrStderr(), level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(w io.Writer, level slog.Level) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// parseLevel maps a config log level to slog, defaulting to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
