package nodes

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/modproc"
	"github.com/cbegin/modsynth-go/internal/port"
)

const curveTableSize = 1024

// EnvStage is one state of the ADSR state machine.
type EnvStage int

const (
	StageIdle EnvStage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

// EnvelopeParams configures attack/decay/sustain/release times and curves.
type EnvelopeParams struct {
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
	// Curve in [-1,1]: positive = exponential, negative = logarithmic, 0 = linear.
	AttackCurve  float64
	DecayCurve   float64
	ReleaseCurve float64
}

// DefaultEnvelopeParams returns a fast-attack, moderate-release default.
func DefaultEnvelopeParams() EnvelopeParams {
	return EnvelopeParams{AttackSec: 0.01, DecaySec: 0.1, SustainLvl: 0.7, ReleaseSec: 0.2}
}

// Envelope is an ADSR state machine with per-stage curve shaping.
type Envelope struct {
	sampleRate float64
	params     EnvelopeParams

	attackLUT  [curveTableSize]float64
	decayLUT   [curveTableSize]float64
	releaseLUT [curveTableSize]float64

	stage        EnvStage
	value        float64
	stageStart   float64 // value at the start of the current stage
	stageElapsed float64 // seconds elapsed in current stage
	lastGate     float32
	active       bool
}

// NewEnvelope builds an envelope with precomputed curve lookup tables.
func NewEnvelope(sampleRate int, params EnvelopeParams) *Envelope {
	e := &Envelope{sampleRate: float64(sampleRate), params: params, stage: StageIdle, active: true}
	buildCurveLUT(&e.attackLUT, params.AttackCurve)
	buildCurveLUT(&e.decayLUT, params.DecayCurve)
	buildCurveLUT(&e.releaseLUT, params.ReleaseCurve)
	return e
}

// buildCurveLUT fills a 1024-entry table mapping linear progress t in [0,1]
// to shaped progress: positive curves are exponential, negative
// logarithmic, zero linear.
func buildCurveLUT(lut *[curveTableSize]float64, curve float64) {
	for i := 0; i < curveTableSize; i++ {
		t := float64(i) / float64(curveTableSize-1)
		lut[i] = shapeCurve(t, curve)
	}
}

func shapeCurve(t, curve float64) float64 {
	if curve == 0 {
		return t
	}
	const k = 4.0
	if curve > 0 {
		// Exponential: concave, slow start.
		return (math.Exp(curve*k*t) - 1) / (math.Exp(curve*k) - 1)
	}
	// Logarithmic: convex, fast start.
	c := -curve
	return 1 - (math.Exp(c*k*(1-t))-1)/(math.Exp(c*k)-1)
}

func lookupCurve(lut *[curveTableSize]float64, t float64) float64 {
	if t <= 0 {
		return lut[0]
	}
	if t >= 1 {
		return lut[curveTableSize-1]
	}
	return lut[int(t*float64(curveTableSize-1))]
}

func (e *Envelope) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.Gate:      false,
		port.AttackMod: false,
		port.AudioOutput0: true,
	}
}

func (e *Envelope) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.AudioOutput0]
	if !ok {
		return
	}
	gate := firstBuffer(inputs[port.Gate], n)
	attackPair := modproc.Accumulate(inputs[port.AttackMod], n)
	dt := 1.0 / e.sampleRate

	for i := 0; i < n; i++ {
		g := gate[i]
		if e.lastGate <= 0 && g > 0 {
			e.beginAttack()
		} else if e.lastGate > 0 && g <= 0 && e.stage != StageIdle && e.stage != StageRelease {
			e.beginRelease()
		}
		e.lastGate = g

		// Additive cents + multiplicative scale on attack time.
		effectiveAttack := (e.params.AttackSec + centsToSeconds(attackPair.Add[i], e.params.AttackSec)) * float64(attackPair.Mult[i])
		if effectiveAttack < 1e-6 {
			effectiveAttack = 1e-6
		}

		switch e.stage {
		case StageIdle:
			e.value = 0
		case StageAttack:
			e.stageElapsed += dt
			t := e.stageElapsed / effectiveAttack
			if t >= 1 {
				e.value = 1
				e.stage = StageDecay
				e.stageElapsed = 0
				e.stageStart = 1
			} else {
				e.value = e.stageStart + (1-e.stageStart)*lookupCurve(&e.attackLUT, t)
			}
		case StageDecay:
			e.stageElapsed += dt
			total := e.params.DecaySec
			if total < 1e-6 {
				total = 1e-6
			}
			t := e.stageElapsed / total
			if t >= 1 {
				e.value = e.params.SustainLvl
				e.stage = StageSustain
			} else {
				e.value = e.stageStart - (e.stageStart-e.params.SustainLvl)*lookupCurve(&e.decayLUT, t)
			}
		case StageSustain:
			e.value = e.params.SustainLvl
		case StageRelease:
			e.stageElapsed += dt
			total := e.params.ReleaseSec
			if total < 1e-6 {
				total = 1e-6
			}
			t := e.stageElapsed / total
			if t >= 1 {
				e.value = 0
				e.stage = StageIdle
			} else {
				e.value = e.stageStart - e.stageStart*lookupCurve(&e.releaseLUT, t)
			}
		}
		out[i] = float32(e.value)
	}
}

func (e *Envelope) beginAttack() {
	e.stage = StageAttack
	e.stageStart = e.value
	e.stageElapsed = 0
}

func (e *Envelope) beginRelease() {
	e.stage = StageRelease
	e.stageStart = e.value
	e.stageElapsed = 0
}

// centsToSeconds converts an additive "cents" style modulation amount into
// a time offset proportional to the base time.
func centsToSeconds(cents float32, base float64) float64 {
	if cents == 0 {
		return 0
	}
	return base * (math.Pow(2, float64(cents)/1200.0) - 1)
}

func (e *Envelope) Reset() {
	e.stage = StageIdle
	e.value = 0
	e.stageElapsed = 0
	e.stageStart = 0
	e.lastGate = 0
}

func (e *Envelope) IsActive() bool { return e.active }
func (e *Envelope) SetActive(v bool) {
	if v && !e.active {
		e.Reset()
	}
	e.active = v
}
func (e *Envelope) NodeType() string { return "envelope" }
func (e *Envelope) Self() any        { return e }

// Stage reports the current ADSR stage — used by external callers (e.g. a
// voice's active-detection) to know if the envelope is still
// sounding.
func (e *Envelope) Stage() EnvStage { return e.stage }

// SetParams replaces the attack/decay/sustain/release times and curves,
// rebuilding the curve lookup tables. It does not reset the
// currently running stage; setters only change parameters.
func (e *Envelope) SetParams(p EnvelopeParams) {
	e.params = p
	buildCurveLUT(&e.attackLUT, p.AttackCurve)
	buildCurveLUT(&e.decayLUT, p.DecayCurve)
	buildCurveLUT(&e.releaseLUT, p.ReleaseCurve)
}

// Preview simulates a gate-on then gate-off after attack+decay+1s, returning
// the resulting envelope trace.
func (e *Envelope) Preview(durationSec float64) []float32 {
	saved := *e
	defer func() { *e = saved }()
	e.Reset()

	n := int(durationSec * e.sampleRate)
	trace := make([]float32, n)
	gateOffAt := int((e.params.AttackSec + e.params.DecaySec + 1.0) * e.sampleRate)

	block := make([]float32, 1)
	outputs := map[port.ID][]float32{port.AudioOutput0: block}
	for i := 0; i < n; i++ {
		gateVal := float32(1)
		if i >= gateOffAt {
			gateVal = 0
		}
		inputs := map[port.ID][]port.Source{port.Gate: {{Buffer: []float32{gateVal}, Amount: 1}}}
		e.Process(inputs, outputs, 1)
		trace[i] = block[0]
	}
	return trace
}
