package nodes

import "github.com/cbegin/modsynth-go/internal/port"

// GateMixer multiplies the voice gate with the arpeggiator gate to produce
// the combined gate every other gate-consuming node reads.
type GateMixer struct{}

// NewGateMixer builds a gate mixer. It is always active.
func NewGateMixer() *GateMixer { return &GateMixer{} }

func (g *GateMixer) Ports() map[port.ID]bool {
	return map[port.ID]bool{
		port.GlobalGate:   false,
		port.ArpGate:      false,
		port.CombinedGate: true,
	}
}

func (g *GateMixer) Process(inputs map[port.ID][]port.Source, outputs map[port.ID][]float32, n int) {
	out, ok := outputs[port.CombinedGate]
	if !ok {
		return
	}
	global := firstBufferOrOnes(inputs[port.GlobalGate], n)
	arp := firstBufferOrOnes(inputs[port.ArpGate], n)
	for i := 0; i < n; i++ {
		out[i] = global[i] * arp[i]
	}
}

func (g *GateMixer) Reset()           {}
func (g *GateMixer) IsActive() bool   { return true }
func (g *GateMixer) SetActive(v bool) {}
func (g *GateMixer) NodeType() string { return "gatemixer" }
func (g *GateMixer) Self() any        { return g }
