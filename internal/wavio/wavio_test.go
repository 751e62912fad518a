package wavio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// makeWAV16 assembles a minimal RIFF/WAVE file with 16-bit PCM data.
func makeWAV16(samples []int16, channels, sampleRate int) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}
	return makeWAV(data.Bytes(), channels, sampleRate, 16)
}

func makeWAV(data []byte, channels, sampleRate, bits int) []byte {
	var b bytes.Buffer
	byteRate := sampleRate * channels * bits / 8
	blockAlign := channels * bits / 8

	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&b, binary.LittleEndian, uint32(byteRate))
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

func TestDecode16BitMono(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767}
	wavBytes := makeWAV16(samples, 1, 44100)

	dec, err := Decode(bytes.NewReader(wavBytes))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Channels != 1 {
		t.Errorf("channels: got %d, want 1", dec.Channels)
	}
	if dec.SampleRate != 44100 {
		t.Errorf("sample rate: got %d, want 44100", dec.SampleRate)
	}
	if len(dec.Data) != len(samples) {
		t.Fatalf("length: got %d, want %d", len(dec.Data), len(samples))
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0}
	for i := range want {
		if math.Abs(float64(dec.Data[i]-want[i])) > 1e-4 {
			t.Errorf("sample %d: got %f, want %f", i, dec.Data[i], want[i])
		}
	}
}

func TestDecodeStereoInterleaved(t *testing.T) {
	samples := []int16{100, -100, 200, -200} // L R L R
	wavBytes := makeWAV16(samples, 2, 48000)

	dec, err := Decode(bytes.NewReader(wavBytes))
	if err != nil {
		t.Fatal(err)
	}
	if dec.Channels != 2 {
		t.Fatalf("channels: got %d, want 2", dec.Channels)
	}
	chans := Deinterleave(dec.Data, 2)
	if len(chans) != 2 || len(chans[0]) != 2 {
		t.Fatalf("deinterleave shape: %d chans x %d frames", len(chans), len(chans[0]))
	}
	if chans[0][0] <= 0 || chans[1][0] >= 0 {
		t.Errorf("channel split wrong: L=%f R=%f", chans[0][0], chans[1][0])
	}
}

func TestDecodeRejectsUnsupportedBitDepth(t *testing.T) {
	wavBytes := makeWAV([]byte{0x80, 0x80, 0x80, 0x80}, 1, 8000, 8)
	if _, err := Decode(bytes.NewReader(wavBytes)); err == nil {
		t.Fatal("expected error for 8-bit WAV")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not a wav file at all"))); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}

func TestResamplePreservesToneFrequency(t *testing.T) {
	const srcRate, dstRate = 44100, 48000
	const freq = 1000.0
	src := make([]float32, srcRate/2)
	for i := range src {
		src[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / srcRate))
	}

	out := Resample(src, 1, srcRate, dstRate)

	wantLen := int(float64(len(src)) * dstRate / srcRate)
	if math.Abs(float64(len(out)-wantLen)) > 2 {
		t.Fatalf("resampled length: got %d, want ~%d", len(out), wantLen)
	}

	// Count zero crossings over the settled middle; a 1kHz tone has
	// 2000 crossings/s regardless of sample rate.
	mid := out[len(out)/4 : 3*len(out)/4]
	crossings := 0
	for i := 1; i < len(mid); i++ {
		if (mid[i-1] < 0) != (mid[i] < 0) {
			crossings++
		}
	}
	secs := float64(len(mid)) / dstRate
	gotFreq := float64(crossings) / 2 / secs
	if math.Abs(gotFreq-freq) > freq*0.005 {
		t.Errorf("resampled tone: got %.1fHz, want %.1fHz", gotFreq, freq)
	}
}

func TestResampleSameRateIsCopy(t *testing.T) {
	src := []float32{1, 2, 3}
	out := Resample(src, 1, 48000, 48000)
	if len(out) != 3 || out[1] != 2 {
		t.Fatalf("same-rate resample should copy: %v", out)
	}
	out[0] = 99
	if src[0] == 99 {
		t.Fatal("resample aliased its input")
	}
}
