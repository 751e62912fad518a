package engine

import (
	"bytes"
	"fmt"

	"github.com/cbegin/modsynth-go/internal/nodes"
	"github.com/cbegin/modsynth-go/internal/port"
	"github.com/cbegin/modsynth-go/internal/wavio"
)

// ImportSample decodes a WAV file, resamples it to the engine's sample
// rate, and installs it as the playback buffer for the sampler at id.
// rootNote is the MIDI note the sample plays back at unpitched (default
// 60, middle C, if 0).
func (e *Engine) ImportSample(id port.NodeID, wavBytes []byte, rootNote float32) error {
	if err := e.checkType(id, "sampler"); err != nil {
		return err
	}
	dec, err := wavio.Decode(bytes.NewReader(wavBytes))
	if err != nil {
		return fmt.Errorf("engine: import_sample: %w", err)
	}
	resampled := wavio.Resample(dec.Data, dec.Channels, dec.SampleRate, e.sampleRate)
	if rootNote == 0 {
		rootNote = 60
	}
	data := &nodes.SampleData{
		Samples:    resampled,
		Channels:   dec.Channels,
		SampleRate: float32(e.sampleRate),
		RootNote:   rootNote,
	}
	for _, v := range e.voices {
		n, _ := v.NodeAt(id)
		n.(*nodes.Sampler).SetSampleData(data)
	}
	return nil
}

// ImportWavetable decodes a WAV file containing one or more fixed-length
// wave cycles, slices it into a morph collection, and installs it in the
// engine's shared wavetable bank under name.
// cycleLength is the number of samples per wave cycle (e.g. 2048); the file
// must contain an exact multiple of it.
func (e *Engine) ImportWavetable(name string, wavBytes []byte, cycleLength int) error {
	if cycleLength <= 0 {
		return fmt.Errorf("engine: import_wavetable: cycleLength must be positive")
	}
	dec, err := wavio.Decode(bytes.NewReader(wavBytes))
	if err != nil {
		return fmt.Errorf("engine: import_wavetable: %w", err)
	}
	mono := dec.Data
	if dec.Channels > 1 {
		mono = wavio.Deinterleave(dec.Data, dec.Channels)[0]
	}
	if len(mono)%cycleLength != 0 || len(mono) == 0 {
		return fmt.Errorf("engine: import_wavetable: data length %d is not a multiple of cycle length %d", len(mono), cycleLength)
	}

	numCycles := len(mono) / cycleLength
	mc := &nodes.MorphCollection{}
	for i := 0; i < numCycles; i++ {
		cycle := make([]float32, cycleLength)
		copy(cycle, mono[i*cycleLength:(i+1)*cycleLength])
		// TopFreq spaces tables across the audible range, highest-cycle-index
		// covering the top octave, matching the bank's frequency-banded lookup.
		topFreq := 20000.0 / float64(numCycles-i)
		mc.Tables = append(mc.Tables, nodes.Wavetable{Samples: cycle, TopFreq: topFreq})
	}
	e.InstallWavetable(name, mc)
	return nil
}

// ImportWaveImpulse decodes a stereo (or mono, duplicated to both channels)
// impulse response WAV, resamples it to the engine's sample rate, and
// appends it as a new convolver effect.
func (e *Engine) ImportWaveImpulse(wavBytes []byte, wet float32) (int, error) {
	dec, err := wavio.Decode(bytes.NewReader(wavBytes))
	if err != nil {
		return 0, fmt.Errorf("engine: import_wave_impulse: %w", err)
	}
	resampled := wavio.Resample(dec.Data, dec.Channels, dec.SampleRate, e.sampleRate)
	var irL, irR []float32
	if dec.Channels >= 2 {
		chans := wavio.Deinterleave(resampled, dec.Channels)
		irL, irR = chans[0], chans[1]
	} else {
		irL = resampled
		irR = append([]float32(nil), resampled...)
	}
	return e.AddConvolver(irL, irR, wet), nil
}
