package engine

import "fmt"

// Process renders interleaved stereo float32 samples into dst (len(dst)
// must be even), satisfying internal/audio.SampleSource for live playback
// through a Player. Unlike ProcessWithFrame, which renders exactly one
// block per call under host control, Process renders whole native blocks
// internally and buffers any leftover frames so dst need not be a multiple
// of the block size.
func (e *Engine) Process(dst []float32) {
	need := len(dst) - len(dst)%2
	out := dst[:need]
	if len(e.voices) == 0 {
		clearF32(dst)
		return
	}
	i := 0
	for i < len(out) {
		if len(e.pending) == 0 {
			e.renderPendingBlock()
		}
		n := copy(out[i:], e.pending)
		e.pending = e.pending[n:]
		i += n
	}
	for ; i < len(dst); i++ {
		dst[i] = 0
	}
}

// renderPendingBlock renders one native block from live per-voice state
// (set via NoteOn/NoteOff/SetVoiceFrequency/etc, not an AutomationFrame)
// and stashes it interleaved in e.pending.
func (e *Engine) renderPendingBlock() {
	clearF32(e.mixL)
	clearF32(e.mixR)

	for i, v := range e.voices {
		if !v.IsActive() {
			continue
		}
		l, r, err := v.Process()
		if err != nil {
			continue
		}
		g := e.gains[i]
		for s := 0; s < e.blockSize; s++ {
			e.mixL[s] += l[s] * g
			e.mixR[s] += r[s] * g
		}
	}

	e.effectStack.Process(e.mixL, e.mixR)

	if cap(e.pending) < e.blockSize*2 {
		e.pending = make([]float32, 0, e.blockSize*2)
	}
	e.pending = e.pending[:e.blockSize*2]
	for s := 0; s < e.blockSize; s++ {
		e.pending[s*2] = e.mixL[s] * e.MasterGain
		e.pending[s*2+1] = e.mixR[s] * e.MasterGain
	}
}

// NoteOn gates voice i on at the given frequency and velocity.
func (e *Engine) NoteOn(voiceIndex int, frequency, velocity float32) error {
	v, err := e.voiceAt(voiceIndex)
	if err != nil {
		return err
	}
	v.SetFrequency(frequency)
	v.SetVelocity(velocity)
	v.SetGate(1)
	return nil
}

// NoteOff releases voice i's gate, letting its envelopes fall through
// their release stage.
func (e *Engine) NoteOff(voiceIndex int) error {
	v, err := e.voiceAt(voiceIndex)
	if err != nil {
		return err
	}
	v.SetGate(0)
	return nil
}

// SetVoiceFrequency updates voice i's base frequency without retriggering
// the gate (e.g. for a held glide).
func (e *Engine) SetVoiceFrequency(voiceIndex int, frequency float32) error {
	v, err := e.voiceAt(voiceIndex)
	if err != nil {
		return err
	}
	v.SetFrequency(frequency)
	return nil
}

// SetVoiceMacro writes one macro buffer's value(s) for voice i between
// blocks, outside the AutomationFrame path.
func (e *Engine) SetVoiceMacro(voiceIndex, macroIndex int, values []float32) error {
	v, err := e.voiceAt(voiceIndex)
	if err != nil {
		return err
	}
	if err := v.SetMacro(macroIndex, values); err != nil {
		return fmt.Errorf("engine: voice %d: %w", voiceIndex, err)
	}
	return nil
}
