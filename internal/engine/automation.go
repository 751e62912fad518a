package engine

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/voice"
)

// AutomationFrame carries one block's worth of per-voice control values plus
// macro automation, letting a host drive every
// voice's gate/frequency/velocity/gain and macro buffers from a single call
// instead of N setter round-trips.
type AutomationFrame struct {
	// Gate, Frequency, Velocity, Gain are indexed by voice; a nil or
	// short slice leaves the corresponding voices unchanged.
	Gate      []float32
	Frequency []float32
	Velocity  []float32
	Gain      []float32

	// Macros[voice][macro] is either a single value (broadcast across the
	// block) or a full block-length slice; nil entries are left untouched.
	Macros [][voice.NumMacros][]float32
}

// ProcessWithFrame applies one frame to every voice, renders a block from
// each active voice, mixes by its gain, and runs the master effect
// stack. outLeft/outRight must each be blockSize long.
func (e *Engine) ProcessWithFrame(frame AutomationFrame, outLeft, outRight []float32) error {
	if len(e.voices) == 0 {
		return fmt.Errorf("engine: no voices initialized; call Init first")
	}
	if len(outLeft) != e.blockSize || len(outRight) != e.blockSize {
		return fmt.Errorf("engine: output buffers must be %d samples", e.blockSize)
	}

	clearF32(e.mixL)
	clearF32(e.mixR)

	for i, v := range e.voices {
		if i < len(frame.Gate) {
			v.SetGate(frame.Gate[i])
		}
		if i < len(frame.Frequency) {
			v.SetFrequency(frame.Frequency[i])
		}
		if i < len(frame.Velocity) {
			v.SetVelocity(frame.Velocity[i])
		}
		if i < len(frame.Gain) {
			e.gains[i] = frame.Gain[i]
		}
		if i < len(frame.Macros) {
			for m := 0; m < len(frame.Macros[i]); m++ {
				if frame.Macros[i][m] != nil {
					if err := v.SetMacro(m, frame.Macros[i][m]); err != nil {
						return fmt.Errorf("engine: voice %d: %w", i, err)
					}
				}
			}
		}

		if !v.IsActive() {
			continue
		}
		l, r, err := v.Process()
		if err != nil {
			return fmt.Errorf("engine: voice %d: %w", i, err)
		}
		g := e.gains[i]
		for s := 0; s < e.blockSize; s++ {
			e.mixL[s] += l[s] * g
			e.mixR[s] += r[s] * g
		}
	}

	e.effectStack.Process(e.mixL, e.mixR)

	for s := 0; s < e.blockSize; s++ {
		outLeft[s] = e.mixL[s] * e.MasterGain
		outRight[s] = e.mixR[s] * e.MasterGain
	}
	return nil
}
