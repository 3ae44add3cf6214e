package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/icco/touchseq/internal/config"
	"github.com/icco/touchseq/internal/tui"
)

var monitorFlags sessionFlags

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the sequencer with a terminal monitor",
	Long: `Run the sequencer with an interactive TUI.

The monitor shows the pattern, the playhead, the touch matrix and the envelope
level. Without --serial the keyboard stands in for the sensor board: move the
cursor over the matrix and press enter to touch a button, w/s to move the
distance sensor and 1/2/3 for the record holds.

Logs go to ~/.config/touchseq/debug.log unless --log-file is set.`,
	PersistentPreRunE: monitorLogger,
	RunE:              runMonitor,
}

func init() {
	monitorFlags.register(monitorCmd)
	rootCmd.AddCommand(monitorCmd)
}

// monitorLogger replaces the root logger setup and keeps log output off the
// terminal the TUI draws on.
func monitorLogger(cmd *cobra.Command, args []string) error {
	if logFile == "" {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		logFile = filepath.Join(dir, "debug.log")
	}
	return initLogger(cmd.ErrOrStderr())
}

func runMonitor(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := monitorFlags.apply(cmd, cfg); err != nil {
		return err
	}

	s, err := newSession(cfg, &monitorFlags, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if monitorFlags.duration > 0 {
		ctx, cancel = context.WithTimeout(cmd.Context(), monitorFlags.duration)
	} else {
		ctx, cancel = context.WithCancel(cmd.Context())
	}
	defer cancel()

	p := tea.NewProgram(tui.New(s.engine, s.virtual, s.level()), tea.WithAltScreen(), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		err := s.run(ctx)
		if err != nil {
			logger.Error("engine stopped", "err", err)
		}
		p.Quit()
		done <- err
	}()

	_, perr := p.Run()
	cancel()
	runErr := <-done
	if perr != nil && !errors.Is(perr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", perr)
	}
	return runErr
}
