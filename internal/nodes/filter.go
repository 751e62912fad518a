package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

// BiquadType selects one of the RBJ cookbook filter shapes.
type BiquadType int

const (
	LowPass BiquadType = iota
	HighPass
	BandPass
	Notch
	Peaking
	LowShelf
	HighShelf
	Comb
)

// Slope selects a single biquad stage (12dB/oct) or two cascaded stages
// (24dB/oct) with Q_stage = sqrt(Q_overall).
type Slope int

const (
	Db12 Slope = iota
	Db24
)

// FilterMode switches the unified front end between the biquad family and
// the ladder filter.
type FilterMode int

const (
	ModeBiquad FilterMode = iota
	ModeLadder
)

type biquadStage struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func (s *biquadStage) process(x float64) float64 {
	y := s.b0*x + s.b1*s.x1 + s.b2*s.x2 - s.a1*s.y1 - s.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

func (s *biquadStage) reset() { *s = biquadStage{b0: s.b0, b1: s.b1, b2: s.b2, a1: s.a1, a2: s.a2} }

// FilterCollection is a unified biquad/ladder multi-mode filter with
// per-sample one-pole smoothing of cutoff and resonance; the dB gain is
// applied per sample without smoothing.
type FilterCollection struct {
	sampleRate float64
	Mode       FilterMode
	BiquadKind BiquadType
	Slope      Slope
	GainDB     float64

	cutoffTarget, resonanceTarget float64
	cutoffSmoothed, resSmoothed   float64
	smoothAlpha                   float64

	stagesL, stagesR [2]biquadStage

	// ladder state
	ladderL, ladderR [4]float64

	active bool
}

// NewFilterCollection builds a filter at the given sample rate with default
// 1kHz cutoff, 0.3 resonance, and a 0.1 one-pole smoothing coefficient.
func NewFilterCollection(sampleRate int) *FilterCollection {
	f := &FilterCollection{
		sampleRate:      float64(sampleRate),
		cutoffTarget:    1000,
		resonanceTarget: 0.3,
		cutoffSmoothed:  1000,
		resSmoothed:     0.3,
		smoothAlpha:     0.1,
		active:          true,
	}
	return f
}

// SetCutoff clamps to [20, 20000]Hz.
func (f *FilterCollection) SetCutoff(hz float64) { f.cutoffTarget = clampF(hz, 20, 20000) }

// SetResonance clamps to [0,1].
func (f *FilterCollection) SetResonance(r float64) { f.resonanceTarget = clampF(r, 0, 1) }

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (f *FilterCollection) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.AudioInput0:  false,
		port.AudioInput1:  false,
		port.CutoffMod:    false,
		port.ResonanceMod: false,
		port.GainMod:      false,
		port.AudioOutput0: true,
		port.AudioOutput1: true,
	}
}

func (f *FilterCollection) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	outL, okL := outputs[port.AudioOutput0]
	outR, okR := outputs[port.AudioOutput1]
	if !okL {
		return
	}
	inL := firstBuffer(inputs[port.AudioInput0], n)
	var inR []float32
	if _, ok := inputs[port.AudioInput1]; ok {
		inR = firstBuffer(inputs[port.AudioInput1], n)
	} else {
		inR = inL
	}

	cutoffPair := modproc.Accumulate(inputs[port.CutoffMod], n)
	resPair := modproc.Accumulate(inputs[port.ResonanceMod], n)
	gainPair := modproc.Accumulate(inputs[port.GainMod], n)

	for i := 0; i < n; i++ {
		f.cutoffSmoothed += f.smoothAlpha * (f.cutoffTarget - f.cutoffSmoothed)
		f.resSmoothed += f.smoothAlpha * (f.resonanceTarget - f.resSmoothed)

		cutoff := clampF(float64(cutoffPair.Apply(i, float32(f.cutoffSmoothed))), 20, 20000)
		res := clampF(float64(resPair.Apply(i, float32(f.resSmoothed))), 0, 1)
		effectiveGainDB := float64(gainPair.Apply(i, float32(f.GainDB)))
		gainLin := math.Pow(10, effectiveGainDB/20)

		switch f.Mode {
		case ModeBiquad:
			f.updateBiquadCoeffs(cutoff, res, effectiveGainDB)
			yl := f.stagesL[0].process(float64(inL[i]))
			yr := f.stagesR[0].process(float64(inR[i]))
			if f.Slope == Db24 {
				yl = f.stagesL[1].process(yl)
				yr = f.stagesR[1].process(yr)
			}
			outL[i] = float32(yl)
			if okR {
				outR[i] = float32(yr)
			}
		case ModeLadder:
			yl := f.processLadder(&f.ladderL, float64(inL[i]), cutoff, res)
			yr := f.processLadder(&f.ladderR, float64(inR[i]), cutoff, res)
			outL[i] = float32(yl * gainLin)
			if okR {
				outR[i] = float32(yr * gainLin)
			}
		}
	}
}

// updateBiquadCoeffs fills the RBJ cookbook coefficients for the current
// mode. LowPass and Notch are normalized so DC gain = 1.
func (f *FilterCollection) updateBiquadCoeffs(cutoff, resonance, gainDB float64) {
	q := 0.707 + 9.293*resonance
	if f.Slope == Db24 {
		q = math.Sqrt(q)
	}
	w0 := 2 * math.Pi * cutoff / f.sampleRate
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	alpha := sinw0 / (2 * q)
	A := math.Pow(10, gainDB/40)

	var b0, b1, b2, a0, a1, a2 float64
	switch f.BiquadKind {
	case LowPass:
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case HighPass:
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case Notch:
		b0 = 1
		b1 = -2 * cosw0
		b2 = 1
		a0 = 1 + alpha
		a1 = -2 * cosw0
		a2 = 1 - alpha
	case Peaking:
		b0 = 1 + alpha*A
		b1 = -2 * cosw0
		b2 = 1 - alpha*A
		a0 = 1 + alpha/A
		a1 = -2 * cosw0
		a2 = 1 - alpha/A
	case LowShelf:
		sq := math.Sqrt(A) * 2 * alpha
		b0 = A * ((A + 1) - (A-1)*cosw0 + sq)
		b1 = 2 * A * ((A - 1) - (A+1)*cosw0)
		b2 = A * ((A + 1) - (A-1)*cosw0 - sq)
		a0 = (A + 1) + (A-1)*cosw0 + sq
		a1 = -2 * ((A - 1) + (A+1)*cosw0)
		a2 = (A + 1) + (A-1)*cosw0 - sq
	case HighShelf:
		sq := math.Sqrt(A) * 2 * alpha
		b0 = A * ((A + 1) + (A-1)*cosw0 + sq)
		b1 = -2 * A * ((A - 1) + (A+1)*cosw0)
		b2 = A * ((A + 1) + (A-1)*cosw0 - sq)
		a0 = (A + 1) - (A-1)*cosw0 + sq
		a1 = 2 * ((A - 1) - (A+1)*cosw0)
		a2 = (A + 1) - (A-1)*cosw0 - sq
	case Comb:
		b0, b1, b2 = 1, 0, -resonance
		a0, a1, a2 = 1, 0, 0
	}

	stage := biquadStage{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
	f.stagesL[0].b0, f.stagesL[0].b1, f.stagesL[0].b2, f.stagesL[0].a1, f.stagesL[0].a2 = stage.b0, stage.b1, stage.b2, stage.a1, stage.a2
	f.stagesR[0].b0, f.stagesR[0].b1, f.stagesR[0].b2, f.stagesR[0].a1, f.stagesR[0].a2 = stage.b0, stage.b1, stage.b2, stage.a1, stage.a2
	if f.Slope == Db24 {
		f.stagesL[1].b0, f.stagesL[1].b1, f.stagesL[1].b2, f.stagesL[1].a1, f.stagesL[1].a2 = stage.b0, stage.b1, stage.b2, stage.a1, stage.a2
		f.stagesR[1].b0, f.stagesR[1].b1, f.stagesR[1].b2, f.stagesR[1].a1, f.stagesR[1].a2 = stage.b0, stage.b1, stage.b2, stage.a1, stage.a2
	}
}

// processLadder runs the 4-stage one-pole tanh ladder with resonance
// feedback k=4*resonance. Stable against self-oscillation at
// resonance>=1 because the tanh nonlinearity bounds the feedback loop.
func (f *FilterCollection) processLadder(state *[4]float64, x, cutoff, resonance float64) float64 {
	g := 1 - math.Exp(-2*math.Pi*cutoff/f.sampleRate)
	k := 4 * resonance

	input := x - k*state[3]
	state[0] += g * (math.Tanh(input) - math.Tanh(state[0]))
	state[1] += g * (math.Tanh(state[0]) - math.Tanh(state[1]))
	state[2] += g * (math.Tanh(state[1]) - math.Tanh(state[2]))
	state[3] += g * (math.Tanh(state[2]) - math.Tanh(state[3]))
	return state[3]
}

func (f *FilterCollection) Reset() {
	for i := range f.stagesL {
		f.stagesL[i].reset()
		f.stagesR[i].reset()
	}
	f.ladderL = [4]float64{}
	f.ladderR = [4]float64{}
}

func (f *FilterCollection) IsActive() bool { return f.active }
func (f *FilterCollection) SetActive(v bool) {
	if v && !f.active {
		f.Reset()
	}
	f.active = v
}
func (f *FilterCollection) NodeType() string { return "filter_collection" }
func (f *FilterCollection) Self() any        { return f }
