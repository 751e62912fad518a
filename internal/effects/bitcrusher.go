package effects

import "github.com/cbegin/modsynth-go/internal/port"

// Bitcrusher implements stereo sample-rate reduction and bit-depth
// quantization with dry/wet mixing.
type Bitcrusher struct {
	bits             uint8
	downsampleFactor int
	Mix              float32
	heldL, heldR     float32
	phase            int
	active           bool
}

// NewBitcrusher creates a bitcrusher effect. bits is clamped to [1, 24],
// downsampleFactor to a minimum of 1 (no sample-and-hold).
func NewBitcrusher(bits uint8, downsampleFactor int, mix float32) *Bitcrusher {
	b := &Bitcrusher{active: true}
	b.SetBits(bits)
	b.SetDownsampleFactor(downsampleFactor)
	b.SetMix(mix)
	return b
}

func (b *Bitcrusher) SetBits(bits uint8) {
	if bits < 1 {
		bits = 1
	}
	if bits > 24 {
		bits = 24
	}
	b.bits = bits
}

func (b *Bitcrusher) SetDownsampleFactor(factor int) {
	if factor < 1 {
		factor = 1
	}
	b.downsampleFactor = factor
}

func (b *Bitcrusher) SetMix(mix float32) { b.Mix = clamp(mix, 0, 1) }

func quantizeStep(sample, step float32) float32 {
	normalized := roundF32((sample + 1.0) / step)
	quantized := normalized*step - 1.0
	return clamp(quantized, -1, 1)
}

func roundF32(v float32) float32 {
	if v >= 0 {
		return float32(int64(v + 0.5))
	}
	return float32(int64(v - 0.5))
}

func (b *Bitcrusher) Process(inL, inR, outL, outR []float32, mods map[port.ID][]port.Source) {
	n := len(inL)
	levels := float32(uint32(1) << b.bits)
	if levels < 2 {
		levels = 2
	}
	step := 2.0 / (levels - 1.0)
	factor := b.downsampleFactor
	dryGain := 1 - b.Mix
	wetGain := b.Mix

	phase := 0
	if factor != 1 {
		phase = b.phase % factor
	}

	for i := 0; i < n; i++ {
		if phase == 0 {
			b.heldL = quantizeStep(inL[i], step)
			b.heldR = quantizeStep(inR[i], step)
		}
		outL[i] = inL[i]*dryGain + b.heldL*wetGain
		outR[i] = inR[i]*dryGain + b.heldR*wetGain
		if factor > 1 {
			phase++
			if phase >= factor {
				phase = 0
			}
		}
	}

	if factor > 1 {
		b.phase = phase
	} else {
		b.phase = 0
	}
}

func (b *Bitcrusher) Reset() {
	b.phase = 0
	b.heldL = 0
	b.heldR = 0
}

func (b *Bitcrusher) IsActive() bool { return b.active }
func (b *Bitcrusher) SetActive(v bool) {
	b.active = v
	if !v {
		b.Reset()
	}
}
