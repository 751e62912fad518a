// Command demo builds a minimal patch (oscillator -> mixer -> output, with
// an envelope driving the mixer's GainMod), gates one voice on, and streams
// it to the default audio device.
package main

import (
	"flag"
	"log"
	"time"

	modaudio "github.com/cbegin/modsynth-go/internal/audio"
	"github.com/cbegin/modsynth-go/internal/engine"
	"github.com/cbegin/modsynth-go/internal/nodes"
	"github.com/cbegin/modsynth-go/internal/port"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		frequency  = flag.Float64("freq", 440, "note frequency in Hz")
		duration   = flag.Duration("duration", 3*time.Second, "how long to hold the note before release")
		voices     = flag.Int("voices", 1, "number of voices to allocate")
	)
	flag.Parse()

	e := engine.New(*sampleRate)
	e.Init(*voices)

	oscID, err := e.CreateOscillator(nodes.Saw)
	if err != nil {
		log.Fatal(err)
	}
	envID, err := e.CreateEnvelope(nodes.EnvelopeParams{
		AttackSec: 0.01, DecaySec: 0.15, SustainLvl: 0.7, ReleaseSec: 0.4,
	})
	if err != nil {
		log.Fatal(err)
	}
	mixID, err := e.CreateMixer()
	if err != nil {
		log.Fatal(err)
	}

	if err := e.ConnectNodes(oscID, port.AudioOutput0, mixID, port.AudioInput0, 1, port.Additive, port.NoTransformation); err != nil {
		log.Fatal(err)
	}
	if err := e.ConnectNodes(envID, port.AudioOutput0, mixID, port.GainMod, 1, port.VCA, port.NoTransformation); err != nil {
		log.Fatal(err)
	}
	if err := e.SetOutputNode(mixID); err != nil {
		log.Fatal(err)
	}

	player, err := modaudio.NewPlayer(*sampleRate, e.BlockSize(), e)
	if err != nil {
		log.Fatal(err)
	}

	if err := e.NoteOn(0, float32(*frequency), 1); err != nil {
		log.Fatal(err)
	}
	player.Play()

	time.Sleep(*duration)
	if err := e.NoteOff(0); err != nil {
		log.Fatal(err)
	}
	time.Sleep(800 * time.Millisecond)

	if err := player.Stop(); err != nil {
		log.Fatal(err)
	}
}
