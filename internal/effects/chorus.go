package effects

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

const chorusOversample = 4

// firKernel is a windowed-sinc lowpass FIR used both to interpolate the
// upsampled stream and to band-limit it before decimation.
type firKernel struct {
	taps []float32
}

// newBlackmanSincLowpass builds a Blackman-windowed sinc lowpass with the
// given normalized cutoff (cycles/sample) and an odd tap count.
func newBlackmanSincLowpass(cutoff float64, numTaps int) firKernel {
	if numTaps%2 == 0 {
		numTaps++
	}
	taps := make([]float32, numTaps)
	m := float64(numTaps - 1)
	center := m / 2
	var sum float64
	for n := 0; n < numTaps; n++ {
		x := float64(n) - center
		var sinc float64
		if x == 0 {
			sinc = 2 * cutoff
		} else {
			sinc = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		w := 0.42 - 0.5*math.Cos(2*math.Pi*float64(n)/m) + 0.08*math.Cos(4*math.Pi*float64(n)/m)
		v := sinc * w
		taps[n] = float32(v)
		sum += v
	}
	if sum != 0 {
		for i := range taps {
			taps[i] = float32(float64(taps[i]) / sum)
		}
	}
	return firKernel{taps: taps}
}

// firStage is one causal convolution stage with its own history ring.
type firStage struct {
	kernel firKernel
	hist   []float32
	pos    int
}

func newFirStage(k firKernel) *firStage {
	return &firStage{kernel: k, hist: make([]float32, len(k.taps))}
}

func (s *firStage) process(x float32) float32 {
	s.hist[s.pos] = x
	var acc float32
	n := len(s.kernel.taps)
	idx := s.pos
	for i := 0; i < n; i++ {
		acc += s.kernel.taps[i] * s.hist[idx]
		idx--
		if idx < 0 {
			idx = n - 1
		}
	}
	s.pos++
	if s.pos >= n {
		s.pos = 0
	}
	return acc
}

func (s *firStage) reset() {
	clear32(s.hist)
	s.pos = 0
}

// Chorus is a 4x-oversampled modulated stereo delay with
// cubic-interpolated reads, a lowpass feedback path, and DC-blocked output.
type Chorus struct {
	sampleRate float64

	upL1, upL2, upR1, upR2         *firStage
	downL1, downL2, downR1, downR2 *firStage

	bufL, bufR []float32
	pos        int

	BaseDelayMs       float32
	DepthMs           float32
	RateHz            float32
	Feedback          float32
	Mix               float32
	FeedbackCutoffHz  float32
	StereoPhaseOffset float32

	phaseL, phaseR float64
	fbLP_L, fbLP_R float32

	// Smoothed copies of the public parameters, chased per internal-rate
	// sample with a 0.1 ms one-pole so host updates never step audibly.
	sBaseDelay, sDepth, sRate, sFeedback, sMix, sFbCutoff float32
	paramAlpha                                            float32

	dcL_x1, dcL_y1 float32
	dcR_x1, dcR_y1 float32
	dcAlpha        float32

	active bool
}

// NewChorus builds a chorus/flanger effect at the engine sample rate.
func NewChorus(sampleRate int, baseDelayMs, depthMs, rateHz, feedback, mix float32) *Chorus {
	osRate := float64(sampleRate) * chorusOversample
	cutoff := 0.5 / chorusOversample * 0.90
	kernel := newBlackmanSincLowpass(cutoff, 31)

	maxDelaySamples := int((float64(baseDelayMs)+float64(depthMs)+5)*osRate/1000) + 8
	if maxDelaySamples < 16 {
		maxDelaySamples = 16
	}

	c := &Chorus{
		sampleRate:        float64(sampleRate),
		upL1:              newFirStage(kernel),
		upL2:              newFirStage(kernel),
		upR1:              newFirStage(kernel),
		upR2:              newFirStage(kernel),
		downL1:            newFirStage(kernel),
		downL2:            newFirStage(kernel),
		downR1:            newFirStage(kernel),
		downR2:            newFirStage(kernel),
		bufL:              make([]float32, maxDelaySamples),
		bufR:              make([]float32, maxDelaySamples),
		BaseDelayMs:       baseDelayMs,
		DepthMs:           depthMs,
		RateHz:            rateHz,
		Feedback:          clamp(feedback, 0, 0.9),
		Mix:               clamp(mix, 0, 1),
		FeedbackCutoffHz:  10000,
		StereoPhaseOffset: math.Pi,
		active:            true,
	}
	c.dcAlpha = dcBlockAlpha(10, float64(sampleRate))
	c.paramAlpha = float32(1 - math.Exp(-1/(0.0001*osRate)))
	c.snapParams()
	return c
}

// snapParams jumps the smoothed parameter state straight to the public
// targets, used at construction and on Reset so a fresh instance doesn't
// glide in from zero.
func (c *Chorus) snapParams() {
	c.sBaseDelay = c.BaseDelayMs
	c.sDepth = c.DepthMs
	c.sRate = c.RateHz
	c.sFeedback = c.Feedback
	c.sMix = c.Mix
	c.sFbCutoff = c.FeedbackCutoffHz
}

func smooth(state *float32, target, alpha float32) float32 {
	*state += alpha * (target - *state)
	return *state
}

func dcBlockAlpha(cutoffHz, sampleRate float64) float32 {
	return float32(math.Exp(-2 * math.Pi * cutoffHz / sampleRate))
}

func (c *Chorus) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	osRate := c.sampleRate * chorusOversample

	for i := 0; i < n; i++ {
		var wetL, wetR float32
		for ph := 0; ph < chorusOversample; ph++ {
			// Chase every public parameter at the internal rate so a host
			// update glides in over ~0.1 ms instead of stepping.
			rate := smooth(&c.sRate, c.RateHz, c.paramAlpha)
			depth := smooth(&c.sDepth, c.DepthMs, c.paramAlpha)
			base := smooth(&c.sBaseDelay, c.BaseDelayMs, c.paramAlpha)
			feedback := smooth(&c.sFeedback, c.Feedback, c.paramAlpha)
			fbCutoff := smooth(&c.sFbCutoff, c.FeedbackCutoffHz, c.paramAlpha)
			smooth(&c.sMix, c.Mix, c.paramAlpha)

			lfoStep := 2 * math.Pi * float64(rate) / osRate
			depthSamples := float64(depth) * osRate / 1000
			baseSamples := float64(base) * osRate / 1000
			fbAlpha := float32(1 - math.Exp(-2*math.Pi*float64(fbCutoff)/osRate))

			var upInL, upInR float32
			if ph == 0 {
				upInL = inL[i] * chorusOversample
				upInR = inR[i] * chorusOversample
			}
			sampL := c.upL2.process(c.upL1.process(upInL))
			sampR := c.upR2.process(c.upR1.process(upInR))

			modL := float32(math.Sin(c.phaseL)) * float32(depthSamples)
			modR := float32(math.Sin(c.phaseR+float64(c.StereoPhaseOffset))) * float32(depthSamples)
			c.phaseL += lfoStep
			c.phaseR += lfoStep
			if c.phaseL > 2*math.Pi {
				c.phaseL -= 2 * math.Pi
			}
			if c.phaseR > 2*math.Pi {
				c.phaseR -= 2 * math.Pi
			}

			length := len(c.bufL)
			c.bufL[c.pos] = sampL + c.fbLP_L*feedback
			c.bufR[c.pos] = sampR + c.fbLP_R*feedback

			delL := cubicRead(c.bufL, float64(c.pos)-(baseSamples+float64(modL)))
			delR := cubicRead(c.bufR, float64(c.pos)-(baseSamples+float64(modR)))

			c.fbLP_L += fbAlpha * (delL - c.fbLP_L)
			c.fbLP_R += fbAlpha * (delR - c.fbLP_R)

			c.pos++
			if c.pos >= length {
				c.pos = 0
			}

			downL := c.downL2.process(c.downL1.process(delL))
			downR := c.downR2.process(c.downR1.process(delR))
			if ph == 0 {
				wetL, wetR = downL, downR
			}
		}

		mixedL := inL[i]*(1-c.sMix) + wetL*c.sMix
		mixedR := inR[i]*(1-c.sMix) + wetR*c.sMix

		dcOutL := mixedL - c.dcL_x1 + c.dcAlpha*c.dcL_y1
		dcOutR := mixedR - c.dcR_x1 + c.dcAlpha*c.dcR_y1
		c.dcL_x1, c.dcL_y1 = mixedL, dcOutL
		c.dcR_x1, c.dcR_y1 = mixedR, dcOutR

		outL[i] = dcOutL
		outR[i] = dcOutR
	}
}

// cubicRead reads buf at a fractional, possibly negative/wrapping index
// using 4-point cubic interpolation (the a0 = y3 - y2 - y0 + y1 polynomial
// form, which differs from the Catmull-Rom coefficients of the wavetable
// oscillator's cubicHermite).
func cubicRead(buf []float32, pos float64) float32 {
	n := len(buf)
	for pos < 0 {
		pos += float64(n)
	}
	i1 := int(pos) % n
	frac := float32(pos - math.Floor(pos))
	i0 := (i1 - 1 + n) % n
	i2 := (i1 + 1) % n
	i3 := (i1 + 2) % n

	y0, y1, y2, y3 := buf[i0], buf[i1], buf[i2], buf[i3]
	a0 := y3 - y2 - y0 + y1
	a1 := y0 - y1 - a0
	a2 := y2 - y0
	a3 := y1
	return ((a0*frac+a1)*frac+a2)*frac + a3
}

func (c *Chorus) Reset() {
	clear32(c.bufL)
	clear32(c.bufR)
	c.snapParams()
	c.pos = 0
	c.phaseL, c.phaseR = 0, 0
	c.fbLP_L, c.fbLP_R = 0, 0
	c.dcL_x1, c.dcL_y1 = 0, 0
	c.dcR_x1, c.dcR_y1 = 0, 0
	c.upL1.reset()
	c.upL2.reset()
	c.upR1.reset()
	c.upR2.reset()
	c.downL1.reset()
	c.downL2.reset()
	c.downR1.reset()
	c.downR2.reset()
}

func (c *Chorus) IsActive() bool   { return c.active }
func (c *Chorus) SetActive(v bool) { c.active = v }
