package effects

import (
	"math"

	"github.com/cbegin/modsynth-go/internal/port"
)

// Limiter implements a lookahead peak limiter with independent or
// stereo-linked gain reduction.
type Limiter struct {
	sampleRate float32

	thresholdDB float32
	attackMs    float32
	releaseMs   float32
	StereoLink  bool

	thresholdLinear float32
	attackCoeff     float32
	releaseCoeff    float32

	envL, envR   float32
	gainL, gainR float32

	lookaheadL, lookaheadR []float32
	lookaheadSamples       int
	writeIdx               int

	active bool
}

func dbToLinear(db float32) float32 { return float32(math.Pow(10, float64(db)*0.05)) }

func calculateSmoothCoeff(timeMs, sampleRate float32) float32 {
	if timeMs <= 0 || sampleRate <= 0 {
		return 1.0
	}
	timeSamples := timeMs * 0.001 * sampleRate
	if timeSamples < 1.0 {
		return 1.0
	}
	return float32(math.Exp(-1.0 / float64(timeSamples)))
}

// NewLimiter builds a limiter. thresholdDB is typically just under 0 (e.g.
// -0.1), attackMs very fast (e.g. 0.1), releaseMs slower (e.g. 50),
// lookaheadMs delays the signal so the envelope can react ahead of a peak.
func NewLimiter(sampleRate int, thresholdDB, attackMs, releaseMs, lookaheadMs float32, stereoLink bool) *Limiter {
	sr := float32(sampleRate)
	lookaheadSamples := int(math.Ceil(float64(lookaheadMs) * 0.001 * float64(sr)))
	bufSize := 1
	if lookaheadSamples > 0 {
		bufSize = lookaheadSamples + 1
	}
	return &Limiter{
		sampleRate:       sr,
		thresholdDB:      thresholdDB,
		attackMs:         attackMs,
		releaseMs:        releaseMs,
		StereoLink:       stereoLink,
		thresholdLinear:  dbToLinear(thresholdDB),
		attackCoeff:      calculateSmoothCoeff(attackMs, sr),
		releaseCoeff:     calculateSmoothCoeff(releaseMs, sr),
		gainL:            1,
		gainR:            1,
		lookaheadL:       make([]float32, bufSize),
		lookaheadR:       make([]float32, bufSize),
		lookaheadSamples: lookaheadSamples,
		active:           true,
	}
}

func (l *Limiter) SetThresholdDB(db float32) {
	l.thresholdDB = db
	l.thresholdLinear = dbToLinear(db)
}

func (l *Limiter) SetAttackMs(ms float32) {
	if ms < 0 {
		ms = 0
	}
	l.attackMs = ms
	l.attackCoeff = calculateSmoothCoeff(ms, l.sampleRate)
}

func (l *Limiter) SetReleaseMs(ms float32) {
	if ms <= 0 {
		ms = 0.001
	}
	l.releaseMs = ms
	l.releaseCoeff = calculateSmoothCoeff(ms, l.sampleRate)
}

func (l *Limiter) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	bufLen := len(l.lookaheadL)
	hasLookahead := l.lookaheadSamples > 0 && bufLen > 1
	threshold := l.thresholdLinear

	for i := 0; i < n; i++ {
		inputL := inL[i]
		inputR := inR[i]

		var delayedL, delayedR float32
		if hasLookahead {
			readIdx := (l.writeIdx + bufLen - l.lookaheadSamples) % bufLen
			delayedL = l.lookaheadL[readIdx]
			delayedR = l.lookaheadR[readIdx]
			l.lookaheadL[l.writeIdx] = inputL
			l.lookaheadR[l.writeIdx] = inputR
			l.writeIdx = (l.writeIdx + 1) % bufLen
		} else {
			delayedL, delayedR = inputL, inputR
		}

		peakL := absF32(inputL)
		peakR := absF32(inputR)

		if peakL > l.envL {
			l.envL = peakL*(1-l.attackCoeff) + l.envL*l.attackCoeff
		} else {
			l.envL = peakL*(1-l.releaseCoeff) + l.envL*l.releaseCoeff
		}
		if peakR > l.envR {
			l.envR = peakR*(1-l.attackCoeff) + l.envR*l.attackCoeff
		} else {
			l.envR = peakR*(1-l.releaseCoeff) + l.envR*l.releaseCoeff
		}

		var targetGainL, targetGainR float32
		if l.StereoLink {
			maxEnv := l.envL
			if l.envR > maxEnv {
				maxEnv = l.envR
			}
			gain := float32(1.0)
			if maxEnv > threshold {
				gain = threshold / maxEnv
				if gain > 1 {
					gain = 1
				}
			}
			targetGainL, targetGainR = gain, gain
		} else {
			targetGainL = 1.0
			if l.envL > threshold {
				targetGainL = threshold / l.envL
				if targetGainL > 1 {
					targetGainL = 1
				}
			}
			targetGainR = 1.0
			if l.envR > threshold {
				targetGainR = threshold / l.envR
				if targetGainR > 1 {
					targetGainR = 1
				}
			}
		}

		if targetGainL < l.gainL {
			l.gainL = targetGainL*(1-l.attackCoeff) + l.gainL*l.attackCoeff
		} else {
			l.gainL = targetGainL*(1-l.releaseCoeff) + l.gainL*l.releaseCoeff
		}
		if targetGainR < l.gainR {
			l.gainR = targetGainR*(1-l.attackCoeff) + l.gainR*l.attackCoeff
		} else {
			l.gainR = targetGainR*(1-l.releaseCoeff) + l.gainR*l.releaseCoeff
		}
		if l.gainL > 1 {
			l.gainL = 1
		}
		if l.gainR > 1 {
			l.gainR = 1
		}

		outL[i] = delayedL * l.gainL
		outR[i] = delayedR * l.gainR
	}
}

func (l *Limiter) Reset() {
	l.envL, l.envR = 0, 0
	l.gainL, l.gainR = 1, 1
	clear32(l.lookaheadL)
	clear32(l.lookaheadR)
	l.writeIdx = 0
}

func (l *Limiter) IsActive() bool { return l.active }
func (l *Limiter) SetActive(v bool) {
	if v && !l.active {
		l.Reset()
	}
	l.active = v
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
