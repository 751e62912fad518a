package effects

import "github.com/cbegin/modsynth-go/internal/port"

// Delay implements a stereo delay line with feedback and cross-channel
// mixing. Delay time in samples is clamped to the line length;
// `out = dry*(1-mix) + wet*mix`.
type Delay struct {
	bufL, bufR []float32
	pos        int
	Feedback   float32
	Cross      float32
	Wet        float32
	active     bool
}

// NewDelay creates a delay effect with delayMs of buffer capacity.
func NewDelay(sampleRate int, delayMs float64, feedback, cross, wet float32) *Delay {
	samples := int(delayMs * float64(sampleRate) / 1000.0)
	if samples < 1 {
		samples = 1
	}
	return &Delay{
		bufL:     make([]float32, samples),
		bufR:     make([]float32, samples),
		Feedback: clamp(feedback, 0, 0.95),
		Cross:    clamp(cross, 0, 1),
		Wet:      clamp(wet, 0, 1),
		active:   true,
	}
}

func (d *Delay) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	length := len(d.bufL)
	for i := 0; i < n; i++ {
		delL := d.bufL[d.pos]
		delR := d.bufR[d.pos]
		fbL := delL*d.Feedback*(1-d.Cross) + delR*d.Feedback*d.Cross
		fbR := delR*d.Feedback*(1-d.Cross) + delL*d.Feedback*d.Cross
		d.bufL[d.pos] = inL[i] + fbL
		d.bufR[d.pos] = inR[i] + fbR
		d.pos++
		if d.pos >= length {
			d.pos = 0
		}
		outL[i] = inL[i]*(1-d.Wet) + delL*d.Wet
		outR[i] = inR[i]*(1-d.Wet) + delR*d.Wet
	}
}

func (d *Delay) Reset() {
	clear32(d.bufL)
	clear32(d.bufR)
	d.pos = 0
}

func (d *Delay) IsActive() bool   { return d.active }
func (d *Delay) SetActive(v bool) { d.active = v }

func clear32(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
