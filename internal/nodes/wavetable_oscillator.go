package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// unisonVoice is one detuned voice of a unison stack.
type unisonVoice struct {
	phase  float64
	weight float64
	detune float64 // cents offset from center
}

// WavetableOscillator combines table selection by frequency,
// cubic Hermite interpolation, morph crossfade, Gaussian-weighted unison,
// phase modulation with self-feedback, and hard sync on Gate rising edge.
type WavetableOscillator struct {
	sampleRate float64
	bank       *Bank
	collection string

	Morph         float32 // [0,1]
	UnisonVoices  int
	UnisonSpread  float64 // cents
	FeedbackAmt   float32

	voices   []unisonVoice
	lastGate float32
	lastOut  float32
	active   bool
}

// NewWavetableOscillator creates a wavetable oscillator reading from bank,
// initially selecting the named morph collection.
func NewWavetableOscillator(sampleRate int, bank *Bank, collection string) *WavetableOscillator {
	o := &WavetableOscillator{
		sampleRate:   float64(sampleRate),
		bank:         bank,
		collection:   collection,
		UnisonVoices: 1,
		UnisonSpread: 10,
		active:       true,
	}
	o.rebuildUnison()
	return o
}

func (o *WavetableOscillator) rebuildUnison() {
	n := o.UnisonVoices
	if n < 1 {
		n = 1
	}
	o.voices = make([]unisonVoice, n)
	sigma := float64(n) / 4.0
	if sigma <= 0 {
		sigma = 1
	}
	center := float64(n-1) / 2.0
	var total float64
	for i := 0; i < n; i++ {
		d := float64(i) - center
		w := math.Exp(-(d * d) / (2 * sigma * sigma))
		total += w
		detune := 0.0
		if n > 1 {
			detune = (d / center) * o.UnisonSpread
			if center == 0 {
				detune = 0
			}
		}
		o.voices[i] = unisonVoice{weight: w, detune: detune}
	}
	if total > 0 {
		for i := range o.voices {
			o.voices[i].weight /= total
		}
	}
}

func (o *WavetableOscillator) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.Gate:             false,
		port.GlobalFrequency:  false,
		port.FrequencyMod:     false,
		port.PhaseMod:         false,
		port.ModIndex:         false,
		port.GainMod:          false,
		port.DetuneMod:        false,
		port.WavetableIndex:   false,
		port.AudioOutput0:     true,
	}
}

func (o *WavetableOscillator) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	mc := o.bank.Get(o.collection)
	if mc == nil || len(mc.Tables) == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}

	freqPair := modproc.Accumulate(inputs[port.FrequencyMod], n)
	gainPair := modproc.Accumulate(inputs[port.GainMod], n)
	baseFreq := readBaseFrequency(inputs[port.GlobalFrequency], n, 440)
	gateSrc := firstBuffer(inputs[port.Gate], n)
	pmSrc := firstBuffer(inputs[port.PhaseMod], n)
	modIndexPair := modproc.Accumulate(inputs[port.ModIndex], n)

	for i := 0; i < n; i++ {
		gate := gateSrc[i]
		if o.lastGate <= 0 && gate > 0 {
			for v := range o.voices {
				o.voices[v].phase = 0
			}
		}
		o.lastGate = gate

		freq := freqPair.Apply(i, baseFreq[i])
		gain := gainPair.Apply(i, 1)
		pmAmount := modIndexPair.Apply(i, 1)

		tableIdx := mc.SelectForFrequency(float64(freq))
		table := mc.Tables[tableIdx]
		nextIdx := tableIdx
		if tableIdx+1 < len(mc.Tables) {
			nextIdx = tableIdx + 1
		}
		nextTable := mc.Tables[nextIdx]

		var sample float32
		for v := range o.voices {
			detuneMul := math.Pow(2, o.voices[v].detune/1200.0)
			voiceFreq := float64(freq) * detuneMul

			fb := o.lastOut * o.FeedbackAmt / (math.Pi * 1.5)
			phaseOffset := normalizeToUnit(o.voices[v].phase + float64(pmSrc[i]*pmAmount) + float64(fb))

			tlen := float64(len(table.Samples))
			s1 := cubicHermite(table.Samples, phaseOffset*tlen)
			s2 := s1
			if len(nextTable.Samples) > 0 {
				tlen2 := float64(len(nextTable.Samples))
				s2 = cubicHermite(nextTable.Samples, phaseOffset*tlen2)
			}
			voiceSample := s1*(1-o.Morph) + s2*o.Morph
			sample += voiceSample * float32(o.voices[v].weight)

			o.voices[v].phase += voiceFreq / o.sampleRate
			o.voices[v].phase = normalizeToUnit(o.voices[v].phase)
		}
		o.lastOut = sample
		out[i] = sample * gain
	}
}

func (o *WavetableOscillator) Reset() {
	for i := range o.voices {
		o.voices[i].phase = 0
	}
	o.lastGate = 0
	o.lastOut = 0
}

func (o *WavetableOscillator) IsActive() bool { return o.active }
func (o *WavetableOscillator) SetActive(v bool) {
	if v && !o.active {
		o.Reset()
	}
	o.active = v
}
func (o *WavetableOscillator) NodeType() string { return "wavetable_oscillator" }
func (o *WavetableOscillator) Self() any        { return o }

// SetUnison reconfigures the unison stack (topology-safe: called from a
// parameter update, never mid-render).
func (o *WavetableOscillator) SetUnison(voices int, spreadCents float64) {
	o.UnisonVoices = voices
	o.UnisonSpread = spreadCents
	o.rebuildUnison()
}

func firstBuffer(sources []port.Source, n int) []float32 {
	out := make([]float32, n)
	if len(sources) == 0 {
		return out
	}
	src := sources[0]
	for i := 0; i < n; i++ {
		if i < len(src.Buffer) {
			out[i] = src.Buffer[i] * src.Amount
		}
	}
	return out
}
