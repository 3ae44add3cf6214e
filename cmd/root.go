package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFile    string

	// logger is replaced by initLogger before any subcommand runs.
	logger = slog.Default()

	// logOut is the open --log-file, nil when logging to stderr.
	logOut *os.File
)

var rootCmd = &cobra.Command{
	Use:   "touchseq",
	Short: "A touch-controlled 16-step MIDI sequencer",
	Long: `touchseq is a 16-step monophonic sequencer driven by a capacitive touch matrix
and a distance sensor.

It clocks a pattern at 96 PPQN, plays it on a MIDI output and an optional built-in
synth voice, and records note, velocity and filter values live from the distance
sensor while the record buttons are held.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger(cmd.ErrOrStderr())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/touchseq/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
}

// initLogger configures the shared slog logger and makes it the default.
// A log file opened by an earlier call is closed.
func initLogger(stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	var f *os.File
	w := stderr
	if logFile != "" {
		var err error
		f, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = f
	}
	if err := closeLogger(); err != nil {
		fmt.Fprintln(stderr, "close previous log file:", err)
	}
	logOut = f

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
	return nil
}

// closeLogger closes the log file, if any. The default logger keeps working
// on stderr.
func closeLogger() error {
	if logOut == nil {
		return nil
	}
	f := logOut
	logOut = nil
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	return f.Close()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails.
	_ = closeLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
