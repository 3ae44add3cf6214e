package sequencer

// IO is everything the sequencer needs from the outside world: MIDI
// transmission, envelope triggering, synth target assignment, scale lookup and
// the live input state maintained by the hardware bridge. All methods must be
// synchronous and must not block.
type IO interface {
	// MIDI. Channels are 1-based.
	SendNoteOn(note, velocity, channel uint8)
	SendNoteOff(note, velocity, channel uint8)

	// Envelope
	TriggerEnvelope()
	ReleaseEnvelope()

	// Synth targets
	SetNote(note int)
	SetFreq(freq float64)
	SetVel(velocity float64)

	// ScaleNote returns the semitone offset of noteIndex in scale scaleIndex.
	ScaleNote(scaleIndex, noteIndex int) int

	// Live input
	DistanceMM() int
	SelectedStepForEdit() int // -1 when no step is selected
	Button16Held() bool
	Button17Held() bool
	Button18Held() bool
}
