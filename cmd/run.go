package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/icco/touchseq/internal/config"
)

var runFlags sessionFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sequencer headless",
	Long: `Run the sequencer without a user interface.

Buttons and the distance sensor come from the sensor board on --serial. The
transport starts on the play button (20) unless --start is given.

Example:
  touchseq run --serial /dev/ttyACM0 --virtual touchseq --audio
  touchseq run --start --duration 30s --no-midi --capture take.mid
`,
	RunE: runHeadless,
}

var startTransport bool

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&startTransport, "start", false, "start the transport immediately")
	rootCmd.AddCommand(runCmd)
}

func runHeadless(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runFlags.apply(cmd, cfg); err != nil {
		return err
	}

	s, err := newSession(cfg, &runFlags, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runFlags.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFlags.duration)
		defer cancel()
	}

	if cfg.Sensor.Device == "" {
		logger.Warn("no sensor board configured, buttons and distance stay idle")
	}
	if startTransport {
		s.engine.Start()
	}
	logger.Info("sequencer ready", "bpm", cfg.Clock.BPM, "steps", cfg.Sequencer.StepLength, "scale", cfg.Sequencer.Scale)
	return s.run(ctx)
}
