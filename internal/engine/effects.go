package engine

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/effects"
	"github.com/cbegin/modsynth-go/internal/port"
)

// effectAt resolves an external effect ID to
// its stack index and type tag, erroring on an unknown or out-of-range ID.
func (e *Engine) effectAt(effectID int) (int, string, error) {
	i := effectID - EffectIDOffset
	if i < 0 || i >= e.effectStack.Len() || i >= len(e.effectKinds) {
		return 0, "", fmt.Errorf("engine: unknown effect id %d", effectID)
	}
	return i, e.effectKinds[i], nil
}

func (e *Engine) addEffect(kind string, eff effects.Effector) int {
	e.effectStack.Add(eff)
	e.effectKinds = append(e.effectKinds, kind)
	return EffectIDOffset + e.effectStack.Len() - 1
}

// AddDelay appends a delay effect to the master chain.
func (e *Engine) AddDelay(delayMs float64, feedback, cross, wet float32) int {
	return e.addEffect("delay", effects.NewDelay(e.sampleRate, delayMs, feedback, cross, wet))
}

// AddChorus appends a chorus effect.
func (e *Engine) AddChorus(baseDelayMs, depthMs, rateHz, feedback, mix float32) int {
	return e.addEffect("chorus", effects.NewChorus(e.sampleRate, baseDelayMs, depthMs, rateHz, feedback, mix))
}

// AddFreeverb appends a Freeverb-preset reverb.
func (e *Engine) AddFreeverb(size, wet float32) int {
	return e.addEffect("reverb", effects.NewReverbPreset(e.sampleRate, effects.ReverbFreeverb, size, wet))
}

// AddPlateReverb appends a plate-preset reverb.
func (e *Engine) AddPlateReverb(size, wet float32) int {
	return e.addEffect("reverb", effects.NewReverbPreset(e.sampleRate, effects.ReverbPlate, size, wet))
}

// AddHallReverb appends a hall-preset reverb.
func (e *Engine) AddHallReverb(size, wet float32) int {
	return e.addEffect("reverb", effects.NewReverbPreset(e.sampleRate, effects.ReverbHall, size, wet))
}

// AddLimiter appends a brickwall limiter.
func (e *Engine) AddLimiter(thresholdDB, attackMs, releaseMs, lookaheadMs float32, stereoLink bool) int {
	return e.addEffect("limiter", effects.NewLimiter(e.sampleRate, thresholdDB, attackMs, releaseMs, lookaheadMs, stereoLink))
}

// AddBitcrusher appends a bitcrusher.
func (e *Engine) AddBitcrusher(bits uint8, downsampleFactor int, mix float32) int {
	return e.addEffect("bitcrusher", effects.NewBitcrusher(bits, downsampleFactor, mix))
}

// AddCompressor appends a compressor.
func (e *Engine) AddCompressor(thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) int {
	return e.addEffect("compressor", effects.NewCompressor(e.sampleRate, thresholdDB, ratio, attackMs, releaseMs, makeupDB))
}

// AddSaturation appends a saturation/drive stage.
func (e *Engine) AddSaturation(preGain, postGain, lpfCutoff float32) int {
	return e.addEffect("saturation", effects.NewSaturation(e.sampleRate, preGain, postGain, lpfCutoff))
}

// AddConvolver appends a convolution reverb fed by imported impulse response
// channels. irL/irR are consumed, not copied.
func (e *Engine) AddConvolver(irL, irR []float32, wet float32) int {
	return e.addEffect("convolver", effects.NewConvolver(irL, irR, e.blockSize, wet))
}

// DelayParams updates a delay effect. The delay TIME is fixed at
// construction (the ring buffer is sized to it); only feedback/cross/wet
// are live-adjustable here. A longer delay requires RemoveEffect+AddDelay.
type DelayParams struct {
	Feedback, Cross, Wet float32
}

func (e *Engine) UpdateDelay(effectID int, p DelayParams) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "delay" {
		return fmt.Errorf("engine: effect %d is %q, not delay", effectID, kind)
	}
	d := e.effectStack.At(i).(*effects.Delay)
	d.Feedback, d.Cross, d.Wet = p.Feedback, p.Cross, p.Wet
	return nil
}

// ChorusParams updates a chorus effect.
type ChorusParams struct {
	BaseDelayMs, DepthMs, RateHz, Feedback, Mix, FeedbackCutoffHz, StereoPhaseOffset float32
}

func (e *Engine) UpdateChorus(effectID int, p ChorusParams) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "chorus" {
		return fmt.Errorf("engine: effect %d is %q, not chorus", effectID, kind)
	}
	c := e.effectStack.At(i).(*effects.Chorus)
	c.BaseDelayMs, c.DepthMs, c.RateHz = p.BaseDelayMs, p.DepthMs, p.RateHz
	c.Feedback, c.Mix = p.Feedback, p.Mix
	c.FeedbackCutoffHz, c.StereoPhaseOffset = p.FeedbackCutoffHz, p.StereoPhaseOffset
	return nil
}

// UpdateReverbWet adjusts a reverb's wet level; room size/damping require a
// fresh NewReverbPreset via Replace since the comb/allpass networks are
// sized at construction.
func (e *Engine) UpdateReverbWet(effectID int, wet float32) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "reverb" {
		return fmt.Errorf("engine: effect %d is %q, not reverb", effectID, kind)
	}
	e.effectStack.At(i).(*effects.Reverb).SetWet(wet)
	return nil
}

// UpdateReverbWidth adjusts a reverb's stereo width, 0 (mono) to 1 (full).
func (e *Engine) UpdateReverbWidth(effectID int, width float32) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "reverb" {
		return fmt.Errorf("engine: effect %d is %q, not reverb", effectID, kind)
	}
	e.effectStack.At(i).(*effects.Reverb).SetWidth(width)
	return nil
}

// ReplaceReverbPreset rebuilds a reverb with a new preset/size/wet, preserving
// the stack slot and active flag (comb/allpass delay lines are fixed at
// construction so changing room size needs a new instance).
func (e *Engine) ReplaceReverbPreset(effectID int, preset effects.ReverbPreset, size, wet float32) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "reverb" {
		return fmt.Errorf("engine: effect %d is %q, not reverb", effectID, kind)
	}
	e.effectStack.Replace(i, effects.NewReverbPreset(e.sampleRate, preset, size, wet))
	return nil
}

// LimiterParams updates a limiter's threshold/attack/release.
type LimiterParams struct {
	ThresholdDB, AttackMs, ReleaseMs float32
	StereoLink                       bool
}

func (e *Engine) UpdateLimiter(effectID int, p LimiterParams) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "limiter" {
		return fmt.Errorf("engine: effect %d is %q, not limiter", effectID, kind)
	}
	l := e.effectStack.At(i).(*effects.Limiter)
	l.SetThresholdDB(p.ThresholdDB)
	l.SetAttackMs(p.AttackMs)
	l.SetReleaseMs(p.ReleaseMs)
	l.StereoLink = p.StereoLink
	return nil
}

// BitcrusherParams updates a bitcrusher.
type BitcrusherParams struct {
	Bits             uint8
	DownsampleFactor int
	Mix              float32
}

func (e *Engine) UpdateBitcrusher(effectID int, p BitcrusherParams) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "bitcrusher" {
		return fmt.Errorf("engine: effect %d is %q, not bitcrusher", effectID, kind)
	}
	b := e.effectStack.At(i).(*effects.Bitcrusher)
	b.SetBits(p.Bits)
	b.SetDownsampleFactor(p.DownsampleFactor)
	b.SetMix(p.Mix)
	return nil
}

// CompressorParams updates a compressor by rebuilding it in place
// (Compressor has no live setters beyond SetActive).
type CompressorParams struct {
	ThresholdDB, Ratio, AttackMs, ReleaseMs, MakeupDB float32
}

func (e *Engine) UpdateCompressor(effectID int, p CompressorParams) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "compressor" {
		return fmt.Errorf("engine: effect %d is %q, not compressor", effectID, kind)
	}
	e.effectStack.Replace(i, effects.NewCompressor(e.sampleRate, p.ThresholdDB, p.Ratio, p.AttackMs, p.ReleaseMs, p.MakeupDB))
	return nil
}

// SaturationParams updates a saturation effect. PreGain/PostGain are
// live-settable; a changed cutoff needs a fresh instance (lpfAlpha is
// derived only at construction).
type SaturationParams struct {
	PreGain, PostGain, LpfCutoff float32
}

func (e *Engine) UpdateSaturation(effectID int, p SaturationParams) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "saturation" {
		return fmt.Errorf("engine: effect %d is %q, not saturation", effectID, kind)
	}
	e.effectStack.Replace(i, effects.NewSaturation(e.sampleRate, p.PreGain, p.PostGain, p.LpfCutoff))
	return nil
}

// UpdateConvolverWet adjusts a convolver's wet mix.
func (e *Engine) UpdateConvolverWet(effectID int, wet float32) error {
	i, kind, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if kind != "convolver" {
		return fmt.Errorf("engine: effect %d is %q, not convolver", effectID, kind)
	}
	e.effectStack.At(i).(*effects.Convolver).Wet = wet
	return nil
}

// SetEffectModulation routes a per-sample modulation buffer into one of an
// effect's modulation ports (e.g. the convolver's WetDryMix) for every
// subsequent block. A single value broadcasts across the block; nil values
// removes the route. The buffer is copied, so the caller may reuse its
// slice between blocks.
func (e *Engine) SetEffectModulation(effectID int, p port.ID, values []float32, amount float32, modType port.ModulationType, transform port.Transformation) error {
	i, _, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	if values == nil {
		e.effectStack.SetModulation(i, p, nil)
		return nil
	}
	buf := make([]float32, e.blockSize)
	if len(values) == 1 {
		for j := range buf {
			buf[j] = values[0]
		}
	} else {
		copy(buf, values)
	}
	e.effectStack.SetModulation(i, p, []port.Source{{
		Buffer:         buf,
		Amount:         amount,
		Type:           modType,
		Transformation: transform,
	}})
	return nil
}

// SetEffectActive toggles bypass for the given effect.
func (e *Engine) SetEffectActive(effectID int, active bool) error {
	i, _, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	e.effectStack.At(i).SetActive(active)
	return nil
}

// ReorderEffects moves the effect at externally-visible position from to
// position to, keeping effectKinds in lockstep with the stack.
func (e *Engine) ReorderEffects(from, to int) error {
	fi, _, err := e.effectAt(from)
	if err != nil {
		return err
	}
	ti, _, err := e.effectAt(to)
	if err != nil {
		return err
	}
	e.effectStack.Reorder(fi, ti)
	k := e.effectKinds[fi]
	e.effectKinds = append(e.effectKinds[:fi], e.effectKinds[fi+1:]...)
	e.effectKinds = append(e.effectKinds[:ti], append([]string{k}, e.effectKinds[ti:]...)...)
	return nil
}

// RemoveEffect deletes an effect from the master chain, compacting IDs so
// later effects shift down by one, mirroring DeleteNode's renumbering.
func (e *Engine) RemoveEffect(effectID int) error {
	i, _, err := e.effectAt(effectID)
	if err != nil {
		return err
	}
	e.effectStack.Remove(i)
	e.effectKinds = append(e.effectKinds[:i], e.effectKinds[i+1:]...)
	return nil
}

// NumEffects returns how many effects are currently in the master chain.
func (e *Engine) NumEffects() int { return e.effectStack.Len() }
