package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/icco/touchseq/internal/audio"
	"github.com/icco/touchseq/internal/bridge"
	"github.com/icco/touchseq/internal/config"
	"github.com/icco/touchseq/internal/engine"
	"github.com/icco/touchseq/internal/midiout"
	"github.com/icco/touchseq/internal/sensorlink"
)

// sessionFlags are the overrides shared by run and monitor.
type sessionFlags struct {
	bpm      float64
	length   int
	scale    string
	port     string
	virtual  string
	noMIDI   bool
	audio    bool
	serial   string
	capture  string
	duration time.Duration
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64VarP(&f.bpm, "bpm", "b", 0, "tempo in beats per minute (overrides config)")
	fs.IntVarP(&f.length, "length", "l", 0, "pattern length in steps, 1-16 (overrides config)")
	fs.StringVar(&f.scale, "scale", "", "scale for row 0 of the scale table: chromatic, major, minor, pentatonic or dorian")
	fs.StringVarP(&f.port, "port", "p", "", "MIDI output port name (substring match)")
	fs.StringVar(&f.virtual, "virtual", "", "create a virtual MIDI output with this name")
	fs.BoolVar(&f.noMIDI, "no-midi", false, "do not send MIDI")
	fs.BoolVarP(&f.audio, "audio", "a", false, "play the built-in synth voice")
	fs.StringVarP(&f.serial, "serial", "s", "", "serial device of the sensor board")
	fs.StringVar(&f.capture, "capture", "", "record the MIDI output to this SMF file")
	fs.DurationVarP(&f.duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
}

// apply merges the flags that were set into cfg.
func (f *sessionFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("bpm") {
		cfg.Clock.BPM = f.bpm
	}
	if fs.Changed("length") {
		cfg.Sequencer.StepLength = f.length
	}
	if fs.Changed("scale") {
		cfg.Sequencer.Scale = f.scale
	}
	if fs.Changed("port") {
		cfg.MIDI.PortName = f.port
		cfg.MIDI.VirtualName = ""
	}
	if fs.Changed("virtual") {
		cfg.MIDI.VirtualName = f.virtual
	}
	if fs.Changed("serial") {
		cfg.Sensor.Device = f.serial
	}
	if fs.Changed("capture") {
		cfg.MIDI.CaptureFile = f.capture
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, ok := audio.ParseWave(cfg.Envelope.Wave); !ok {
		return fmt.Errorf("%w: envelope.wave %q", config.ErrInvalid, cfg.Envelope.Wave)
	}
	return nil
}

// session is one wired instrument: sensor, engine, MIDI and audio outputs.
type session struct {
	cfg *config.Config
	log *slog.Logger

	state   *bridge.State
	engine  *engine.Engine
	virtual *sensorlink.VirtualSensor
	link    *sensorlink.Link
	serial  *sensorlink.SerialPort
	port    *midiout.Port
	capture *midiout.Capture
	voice   *audio.Voice
	player  *audio.Player
}

func newSession(cfg *config.Config, flags *sessionFlags, log *slog.Logger) (_ *session, err error) {
	s := &session{cfg: cfg, log: log, state: bridge.NewState()}
	defer func() {
		if err != nil {
			_ = s.close()
		}
	}()

	scales, err := bridge.NewScaleTable(cfg.Sequencer.Scale)
	if err != nil {
		return nil, err
	}

	var out midiout.Tee
	if !flags.noMIDI {
		s.port, err = openPort(cfg.MIDI)
		if err != nil {
			return nil, err
		}
		log.Info("midi output", "port", s.port.Name())
		out = append(out, s.port)
	}
	if cfg.MIDI.CaptureFile != "" {
		s.capture = midiout.NewCapture()
		out = append(out, s.capture)
	}

	var sensor sensorlink.Sensor
	if cfg.Sensor.Device != "" {
		s.serial, err = sensorlink.OpenSerial(cfg.Sensor.Device, cfg.Sensor.Baud, log)
		if err != nil {
			return nil, err
		}
		s.link = sensorlink.NewLink(log)
		sensor = s.link
	} else {
		s.virtual = &sensorlink.VirtualSensor{}
		sensor = s.virtual
	}

	var sender bridge.NoteSender
	if len(out) > 0 {
		sender = out
	}
	io := bridge.NewIO(s.state, scales, sender, log)

	opts := []engine.Option{engine.WithLogger(log)}
	if s.capture != nil {
		opts = append(opts, engine.WithTicker(s.capture))
	}
	s.engine = engine.New(engineConfig(cfg), s.state, io, sensor, opts...)

	if flags.audio {
		if err := s.startAudio(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func openPort(cfg config.MIDIConfig) (*midiout.Port, error) {
	if cfg.VirtualName != "" {
		return midiout.OpenVirtual(cfg.VirtualName)
	}
	return midiout.Open(cfg.PortName)
}

func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		BPM:          cfg.Clock.BPM,
		StepLength:   cfg.Sequencer.StepLength,
		Channel:      uint8(cfg.Sequencer.Channel),
		Seed:         cfg.Sequencer.Seed,
		Debounce:     time.Duration(cfg.Matrix.DebounceMS) * time.Millisecond,
		ScanInterval: time.Second / time.Duration(cfg.Matrix.ScanHz),
	}
}

func (s *session) startAudio() error {
	ec := s.cfg.Envelope
	wave, _ := audio.ParseWave(ec.Wave)
	s.voice = audio.NewVoice(s.state, float64(ec.SampleRate), ec.BlockSize,
		audio.WithWave(wave), audio.WithVolume(ec.Volume))

	env := s.voice.Envelope()
	env.SetAttackTime(ec.Attack, ec.AttackShape)
	env.SetDecayTime(ec.Decay)
	env.SetSustainLevel(ec.Sustain)
	env.SetReleaseTime(ec.Release)

	p, err := audio.NewPlayer(s.voice)
	if err != nil {
		return err
	}
	s.player = p
	s.log.Info("audio output", "sampleRate", ec.SampleRate, "wave", ec.Wave)
	return nil
}

// level is the envelope level for monitors, nil without audio.
func (s *session) level() func() float64 {
	if s.voice == nil {
		return nil
	}
	return s.voice.Level
}

// run drives the sensor link and the engine until ctx is done or the link
// fails.
func (s *session) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.link != nil {
		g.Go(func() error {
			if err := s.link.Run(ctx, s.serial); err != nil {
				return fmt.Errorf("sensor link: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return s.engine.Run(ctx)
	})
	return g.Wait()
}

// close silences the outputs, writes the capture and releases devices.
func (s *session) close() error {
	var errs []error
	if s.capture != nil && s.capture.Len() > 0 {
		bpm := s.cfg.Clock.BPM
		if s.engine != nil {
			bpm = s.engine.Snapshot().BPM
		}
		if err := s.capture.WriteFile(s.cfg.MIDI.CaptureFile, bpm); err != nil {
			errs = append(errs, err)
		} else {
			s.log.Info("capture written", "file", s.cfg.MIDI.CaptureFile, "events", s.capture.Len())
		}
	}
	if s.port != nil {
		errs = append(errs, s.port.AllNotesOff(), s.port.Close())
	}
	if s.player != nil {
		errs = append(errs, s.player.Close())
	}
	if s.serial != nil {
		errs = append(errs, s.serial.Close())
	}
	if s.link != nil {
		s.log.Info("sensor link closed", "frames", s.link.Frames(), "errors", s.link.Errors())
	}
	return errors.Join(errs...)
}
