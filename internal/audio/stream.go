// Package audio adapts the engine's block-oriented render loop to a live
// output device. The engine renders whole fixed-size blocks; the device
// layer asks for arbitrary byte counts. StreamReader bridges the two by
// always pulling whole blocks from the source and carrying the remainder
// between reads, so the engine never renders a partial block.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource renders interleaved stereo float32 frames into dst.
// engine.Engine satisfies this directly.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader converts a SampleSource into the little-endian float32 byte
// stream the device expects. Rendering happens in multiples of blockFrames
// so the source's internal block pipeline stays aligned; bytes beyond what
// the device asked for are carried into the next Read.
type StreamReader struct {
	mu          sync.Mutex
	source      SampleSource
	blockFrames int

	block      []float32 // one native block of interleaved frames
	blockBytes []byte    // serialized form of block, reused every pull
	carry      []byte    // window into blockBytes not yet consumed
}

// NewStreamReader wraps source, rendering blockFrames frames per pull.
func NewStreamReader(source SampleSource, blockFrames int) *StreamReader {
	if blockFrames < 1 {
		blockFrames = 1
	}
	return &StreamReader{
		source:      source,
		blockFrames: blockFrames,
		block:       make([]float32, blockFrames*2),
		blockBytes:  make([]byte, blockFrames*8),
	}
}

// Read fills p with interleaved stereo float32 samples, rendering as many
// whole native blocks as needed and stashing the overshoot.
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(p) {
		if len(r.carry) == 0 {
			r.source.Process(r.block)
			r.carry = r.encodeBlock()
		}
		c := copy(p[n:], r.carry)
		r.carry = r.carry[c:]
		n += c
	}
	return n, nil
}

// encodeBlock serializes the current block into the reusable byte storage;
// safe because carry is always fully drained before the next render.
func (r *StreamReader) encodeBlock() []byte {
	for i, s := range r.block {
		binary.LittleEndian.PutUint32(r.blockBytes[i*4:], math.Float32bits(s))
	}
	return r.blockBytes
}

func (r *StreamReader) Close() error { return nil }

// Player streams a SampleSource to the default output device.
type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens the default output device at sampleRate and streams
// source through a block-aligned reader. blockFrames is the source's native
// render block length; the device buffer is sized to a few blocks so
// latency tracks the engine's block size instead of a device default.
func NewPlayer(sampleRate, blockFrames int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source, blockFrames)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	if blockFrames > 0 {
		bufferBlocks := 4
		pl.SetBufferSize(time.Duration(bufferBlocks*blockFrames) * time.Second / time.Duration(sampleRate))
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }

func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

func (p *Player) Stop() error {
	p.player.Pause()
	p.player.Close()
	return p.reader.Close()
}
