// Package wavio decodes WAV files into the engine's interleaved float32
// sample format and resamples them to the engine's sample rate on
// import, following the decode pattern of go-audio/wav's PCMBuffer reads.
package wavio

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sample holds decoded, channel-interleaved PCM as float32 in [-1, 1].
type Sample struct {
	Data       []float32 // interleaved if Channels==2
	Channels   int
	SampleRate int
}

// Decode reads a complete WAV file from r. 16/24/32-bit integer PCM and
// 32-bit IEEE float formats are supported; unsupported bit depths return
// an error rather than guessing.
func Decode(r io.ReadSeeker) (*Sample, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("wavio: not a valid WAV file")
	}

	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}
	isFloat := decoder.WavAudioFormat == 3

	var divisor float32
	switch decoder.BitDepth {
	case 16:
		divisor = 32768.0
	case 24:
		divisor = 8388608.0
	case 32:
		divisor = 2147483648.0
	default:
		return nil, fmt.Errorf("wavio: unsupported bit depth %d", decoder.BitDepth)
	}

	const step = 16384
	buf := &goaudio.IntBuffer{
		Data:   make([]int, step),
		Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: channels},
	}

	out := &Sample{Channels: channels, SampleRate: int(decoder.SampleRate)}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("wavio: reading PCM: %w", err)
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			if isFloat {
				out.Data = append(out.Data, math.Float32frombits(uint32(int32(s))))
			} else {
				out.Data = append(out.Data, float32(s)/divisor)
			}
		}
	}
	return out, nil
}

// Resample converts mono or interleaved multi-channel data from srcRate to
// dstRate using a 256-tap windowed-sinc (Blackman-Harris) kernel, run
// per-channel.
func Resample(data []float32, channels, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 || dstRate <= 0 || channels <= 0 {
		out := make([]float32, len(data))
		copy(out, data)
		return out
	}
	frames := len(data) / channels
	ratio := float64(srcRate) / float64(dstRate)
	outFrames := int(float64(frames) / ratio)
	if outFrames < 1 {
		outFrames = 1
	}
	out := make([]float32, outFrames*channels)

	const halfTaps = 128 // 256-tap kernel
	for c := 0; c < channels; c++ {
		for of := 0; of < outFrames; of++ {
			srcPos := float64(of) * ratio
			center := int(math.Floor(srcPos))
			frac := srcPos - float64(center)

			var acc float64
			var wsum float64
			for k := -halfTaps; k < halfTaps; k++ {
				idx := center + k
				if idx < 0 || idx >= frames {
					continue
				}
				x := float64(k) - frac
				w := sincKernel(x, halfTaps)
				acc += float64(data[idx*channels+c]) * w
				wsum += w
			}
			if wsum != 0 {
				acc /= wsum
			}
			out[of*channels+c] = float32(acc)
		}
	}
	return out
}

// sincKernel evaluates a windowed-sinc tap at offset x (in source samples)
// with a Blackman-Harris window over the given half-width.
func sincKernel(x float64, halfWidth int) float64 {
	if math.Abs(x) < 1e-9 {
		return 1
	}
	if math.Abs(x) >= float64(halfWidth) {
		return 0
	}
	sinc := math.Sin(math.Pi*x) / (math.Pi * x)
	t := (x + float64(halfWidth)) / (2 * float64(halfWidth))
	const a0, a1, a2, a3 = 0.35875, 0.48829, 0.14128, 0.01168
	window := a0 - a1*math.Cos(2*math.Pi*t) + a2*math.Cos(4*math.Pi*t) - a3*math.Cos(6*math.Pi*t)
	return sinc * window
}

// Deinterleave splits interleaved data into separate channel slices.
func Deinterleave(data []float32, channels int) [][]float32 {
	if channels <= 1 {
		out := make([]float32, len(data))
		copy(out, data)
		return [][]float32{out}
	}
	frames := len(data) / channels
	chans := make([][]float32, channels)
	for c := range chans {
		chans[c] = make([]float32, frames)
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			chans[c][f] = data[f*channels+c]
		}
	}
	return chans
}
