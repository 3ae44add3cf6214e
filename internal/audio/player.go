package audio

import (
	"fmt"

	"github.com/ebitengine/oto/v3"
)

// Player streams a Voice to the system audio output.
type Player struct {
	otoCtx *oto.Context
	player *oto.Player
}

// NewPlayer opens the audio device and starts playing v.
func NewPlayer(v *Voice) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   int(v.sampleRate),
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio: %w", err)
	}
	<-readyChan

	p := &Player{otoCtx: otoCtx, player: otoCtx.NewPlayer(v)}
	p.player.Play()
	return p, nil
}

// Close stops playback and suspends the audio device.
func (p *Player) Close() error {
	p.player.Pause()
	// As of oto v3.4, player.Close() is deprecated; the player is released
	// when garbage collected.
	return p.otoCtx.Suspend()
}
