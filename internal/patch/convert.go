package patch

import (
	"fmt"

	"github.com/cbegin/modsynth-go/internal/port"
)

var portNames = map[string]port.ID{
	"AudioInput0": port.AudioInput0, "AudioInput1": port.AudioInput1,
	"AudioInput2": port.AudioInput2, "AudioInput3": port.AudioInput3,
	"AudioOutput0": port.AudioOutput0, "AudioOutput1": port.AudioOutput1,
	"AudioOutput2": port.AudioOutput2, "AudioOutput3": port.AudioOutput3,
	"Gate": port.Gate, "GlobalFrequency": port.GlobalFrequency,
	"GlobalGate": port.GlobalGate, "CombinedGate": port.CombinedGate,
	"Frequency": port.Frequency, "FrequencyMod": port.FrequencyMod,
	"PhaseMod": port.PhaseMod, "ModIndex": port.ModIndex,
	"CutoffMod": port.CutoffMod, "ResonanceMod": port.ResonanceMod,
	"GainMod": port.GainMod, "FeedbackMod": port.FeedbackMod,
	"EnvelopeMod": port.EnvelopeMod, "AttackMod": port.AttackMod,
	"StereoPan": port.StereoPan, "WetDryMix": port.WetDryMix,
	"WavetableIndex": port.WavetableIndex, "DetuneMod": port.DetuneMod,
	"ArpGate": port.ArpGate,
}

// ParsePort resolves a patch document's port name to a port.ID.
func ParsePort(name string) (port.ID, error) {
	id, ok := portNames[name]
	if !ok {
		return 0, fmt.Errorf("patch: unknown port name %q", name)
	}
	return id, nil
}

// ParseModulationType resolves a wire modulation-type name.
func ParseModulationType(t ModulationType) (port.ModulationType, error) {
	switch t {
	case ModAdditive, "":
		return port.Additive, nil
	case ModVCA:
		return port.VCA, nil
	case ModBipolar:
		return port.Bipolar, nil
	case ModFrequencyCents:
		return port.FrequencyCents, nil
	default:
		return 0, fmt.Errorf("patch: unknown modulation type %q", t)
	}
}

// ParseTransformation resolves a wire transformation name.
func ParseTransformation(t Transformation) (port.Transformation, error) {
	switch t {
	case TransformNone, "":
		return port.NoTransformation, nil
	case TransformSquare:
		return port.Square, nil
	case TransformCube:
		return port.Cube, nil
	default:
		return 0, fmt.Errorf("patch: unknown transformation %q", t)
	}
}
