// Package cli provides the command-line interface for dreamer.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/dreamer/internal/config"
	"github.com/raphaelgruber/dreamer/internal/metrics"
)

// ErrReported means the failure was already shown to the user.
var ErrReported = errors.New("error already reported")

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string
	serverURL  string

	// Global config, logging and metrics
	cfg       config.Config
	logger    = slog.New(slog.NewTextHandler(io.Discard, nil))
	closeLog  = func() error { return nil }
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dreamer",
	Short: "AI dream interpreter with a session journal",
	Long: `Dreamer interprets your dreams with a large language model and keeps
a journal of the session, tracking the symbols and emotions that recur.

Run without arguments in a terminal to start an interactive session, or
pipe a dream on stdin for a one-shot interpretation.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Args:          cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if configPath != "" {
			if err := os.Setenv("DREAMER_CONFIG", configPath); err != nil {
				return fmt.Errorf("set config path: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		// The TUI owns the terminal, so it logs to the file only.
		if usesTUI(cmd) {
			logger, closeLog = config.SetupFileLogger(cfg.LogFile, cfg.LogLevel)
		} else {
			logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		}
		// The llm package logs through the default logger.
		slog.SetDefault(logger)
		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if collector != nil {
			logger.Debug("run metrics", "snapshot", collector.Snapshot())
		}
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if stdinIsTerminal() {
			return runSession(cmd, args)
		}
		return runInterpret(cmd, nil)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/dreamer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "analyze through a dreamer server (ws://host:port/ws)")

	// Add subcommands
	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(sessionCmd)
}

func usesTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "session" || (!cmd.HasParent() && stdinIsTerminal())
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// terminalWidth returns the stdout width, or fallback when unknown.
func terminalWidth(fallback int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
