// Package nodes implements the DSP nodes a voice graph is built from:
// oscillators, envelope, LFO, filter collection, noise, sampler, mixer,
// gate mixer, global nodes, arpeggiator and glide.
package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// Waveform selects the analog oscillator's shape.
type Waveform int

const (
	Sine Waveform = iota
	Saw
	Square
	Triangle
)

// AnalogOscillator is a simple (non-wavetable) band-unlimited oscillator
// with phase modulation and self-feedback.
type AnalogOscillator struct {
	sampleRate float64
	waveform   Waveform
	phase      float64
	lastOut    float32
	active     bool

	FeedbackAmount float32
	PMAmount       float32
}

// NewAnalogOscillator creates an oscillator at the given sample rate.
func NewAnalogOscillator(sampleRate int, waveform Waveform) *AnalogOscillator {
	return &AnalogOscillator{sampleRate: float64(sampleRate), waveform: waveform, active: true, PMAmount: 1}
}

func (o *AnalogOscillator) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.Gate:            false,
		port.GlobalFrequency: false,
		port.FrequencyMod:    false,
		port.PhaseMod:        false,
		port.GainMod:         false,
		port.AudioOutput0:    true,
	}
}

func (o *AnalogOscillator) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}

	freqPair := modproc.Accumulate(inputs[port.FrequencyMod], n)
	gainPair := modproc.Accumulate(inputs[port.GainMod], n)
	baseFreq := readBaseFrequency(inputs[port.GlobalFrequency], n, 440)

	for i := 0; i < n; i++ {
		freq := freqPair.Apply(i, baseFreq[i])
		gain := gainPair.Apply(i, 1)

		var pm float32
		if srcs := inputs[port.PhaseMod]; len(srcs) > 0 {
			for _, s := range srcs {
				if i < len(s.Buffer) {
					pm += s.Buffer[i] * s.Amount
				}
			}
		}
		phaseOffset := pm*o.PMAmount + o.lastOut*o.FeedbackAmount/(math.Pi*1.5)

		p := normalizeToUnit(o.phase + float64(phaseOffset))
		sample := o.waveformAt(p)
		o.lastOut = sample

		out[i] = sample * gain
		o.phase += float64(freq) / o.sampleRate
		o.phase = math.Mod(o.phase, 1.0)
		if o.phase < 0 {
			o.phase += 1
		}
	}
}

func (o *AnalogOscillator) waveformAt(p float64) float32 {
	switch o.waveform {
	case Sine:
		return float32(math.Sin(2 * math.Pi * p))
	case Saw:
		return float32(2*p - 1)
	case Square:
		if p < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		if p < 0.5 {
			return float32(4*p - 1)
		}
		return float32(3 - 4*p)
	default:
		return 0
	}
}

func (o *AnalogOscillator) Reset() {
	o.phase = 0
	o.lastOut = 0
}

func (o *AnalogOscillator) IsActive() bool { return o.active }

func (o *AnalogOscillator) SetActive(v bool) {
	if v && !o.active {
		o.Reset()
	}
	o.active = v
}

func (o *AnalogOscillator) NodeType() string { return "analog_oscillator" }
func (o *AnalogOscillator) Self() any        { return o }

// normalizeToUnit wraps a phase value into [0,1) using rem_euclid semantics
// so negative phase offsets don't flip sign.
func normalizeToUnit(p float64) float64 {
	p = math.Mod(p, 1.0)
	if p < 0 {
		p += 1.0
	}
	return p
}

// readBaseFrequency reads the GlobalFrequency port, substituting the
// documented default (440Hz) when missing.
func readBaseFrequency(sources []port.Source, n int, def float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = def
	}
	if len(sources) == 0 {
		return out
	}
	src := sources[0]
	for i := 0; i < n; i++ {
		if i < len(src.Buffer) {
			out[i] = src.Buffer[i]
		}
	}
	return out
}
