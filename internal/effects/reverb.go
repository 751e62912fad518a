package effects

import "github.com/cbegin/modsynth-go/internal/port"

// Reverb is a Freeverb-topology reverb: eight parallel damped comb filters
// feeding four series allpass filters, independently per channel, with the
// right channel's delay lines offset for stereo decorrelation and a width
// parameter blending the two wet channels via wet1/wet2 coefficients.
// Three presets share the engine and differ in tuning scale, damping and
// width.
type Reverb struct {
	combsL, combsR     [8]combFilter
	allpassL, allpassR [4]allpassFilter

	wet   float32
	width float32
	wet1  float32
	wet2  float32

	active bool
}

// ReverbPreset selects one parameterization of the shared Freeverb engine.
type ReverbPreset int

const (
	ReverbFreeverb ReverbPreset = iota
	ReverbPlate
	ReverbHall
)

type combFilter struct {
	buf  []float32
	pos  int
	fb   float32
	lp   float32
	damp float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// Classic Freeverb delay tunings, in samples at 44.1kHz; the right channel
// runs the same lines offset by stereoSpread samples.
var (
	combTunings    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTunings = [4]int{556, 441, 341, 225}
)

const (
	stereoSpread  = 23
	fixedGain     = 0.015
	allpassFb     = 0.5
	phaseShiftMix = 0.02
)

func newReverb(sampleRate int, tuningScale, feedback, damp, width, wet float32) *Reverb {
	scale := float32(sampleRate) / 44100.0 * tuningScale
	fb := clamp(feedback, 0, 0.98)
	damp = clamp(damp, 0, 1)

	r := &Reverb{active: true}
	for i, t := range combTunings {
		lenL := maxInt(int(float32(t)*scale+0.5), 1)
		lenR := maxInt(int(float32(t+stereoSpread)*scale+0.5), 1)
		r.combsL[i] = combFilter{buf: make([]float32, lenL), fb: fb, damp: damp}
		r.combsR[i] = combFilter{buf: make([]float32, lenR), fb: fb, damp: damp}
	}
	for i, t := range allpassTunings {
		lenL := maxInt(int(float32(t)*scale+0.5), 1)
		lenR := maxInt(int(float32(t+stereoSpread)*scale+0.5), 1)
		r.allpassL[i] = allpassFilter{buf: make([]float32, lenL), fb: allpassFb}
		r.allpassR[i] = allpassFilter{buf: make([]float32, lenR), fb: allpassFb}
	}
	r.width = clamp(width, 0, 1)
	r.SetWet(wet)
	return r
}

// NewReverb creates a reverb with the classic tunings. roomSize in 0..1
// maps onto the comb feedback; damp controls the in-loop lowpass; width
// spreads the wet signal from mono (0) to full stereo (1).
func NewReverb(sampleRate int, roomSize, damp, width, wet float32) *Reverb {
	return newReverb(sampleRate, 1, 0.7+0.28*clamp(roomSize, 0, 1), damp, width, wet)
}

// NewReverbPreset builds one of the three named parameterizations: the
// classic tunings, a tighter bright plate, and a long diffuse hall.
func NewReverbPreset(sampleRate int, preset ReverbPreset, size, wet float32) *Reverb {
	size = clamp(size, 0, 1)
	switch preset {
	case ReverbPlate:
		return newReverb(sampleRate, 0.6, 0.68+0.25*size, 0.1, 1, wet)
	case ReverbHall:
		return newReverb(sampleRate, 1.5, 0.75+0.23*size, 0.5, 0.9, wet)
	default:
		return newReverb(sampleRate, 1, 0.7+0.28*size, 0.4, 1, wet)
	}
}

// SetWet adjusts the wet level and recomputes the stereo wet coefficients.
func (r *Reverb) SetWet(wet float32) {
	r.wet = clamp(wet, 0, 1)
	r.wet1 = r.wet * (r.width/2 + 0.5)
	r.wet2 = r.wet * (0.5 - r.width/2)
}

// Wet returns the current wet level.
func (r *Reverb) Wet() float32 { return r.wet }

// SetWidth adjusts the stereo width and recomputes the wet coefficients.
func (r *Reverb) SetWidth(width float32) {
	r.width = clamp(width, 0, 1)
	r.SetWet(r.wet)
}

func (r *Reverb) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	dry := 1 - r.wet
	for i := 0; i < n; i++ {
		inputL := inL[i] * fixedGain
		inputR := inR[i] * fixedGain

		var sumL, sumR float32
		for c := range r.combsL {
			sumL += r.combsL[c].process(inputL)
			sumR += r.combsR[c].process(inputR)
		}
		for a := range r.allpassL {
			sumL = r.allpassL[a].process(sumL)
			sumR = r.allpassR[a].process(sumR)
		}

		// Cross-mix a small phase shift between the wet channels so the
		// tails decorrelate even on a mono input.
		sumR = sumR + sumL*phaseShiftMix
		sumL = sumL - sumR*phaseShiftMix

		outL[i] = inL[i]*dry + sumL*r.wet1 + sumR*r.wet2
		outR[i] = inR[i]*dry + sumR*r.wet1 + sumL*r.wet2
	}
}

func (r *Reverb) Reset() {
	for i := range r.combsL {
		r.combsL[i].reset()
		r.combsR[i].reset()
	}
	for i := range r.allpassL {
		r.allpassL[i].reset()
		r.allpassR[i].reset()
	}
}

func (r *Reverb) IsActive() bool   { return r.active }
func (r *Reverb) SetActive(v bool) { r.active = v }

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.lp = out*(1-c.damp) + c.lp*c.damp
	c.buf[c.pos] = in + c.lp*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (c *combFilter) reset() {
	clear32(c.buf)
	c.pos = 0
	c.lp = 0
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := bufOut - in
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func (a *allpassFilter) reset() {
	clear32(a.buf)
	a.pos = 0
}
