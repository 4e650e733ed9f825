package nodes

import (
	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/processing/noise"
)

// NoiseNode overlays a procedural noise field on its input or uses the field
// to displace it.
type NoiseNode struct {
	base
	params   noise.Params
	displace bool
}

func NewNoise(name string, log logger.Logger) *NoiseNode {
	n := &NoiseNode{
		base:   newBase("noise", name, KindNoise, log),
		params: noise.DefaultParams(),
	}
	n.compute = n.apply
	return n
}

func (n *NoiseNode) Params() noise.Params { return n.params }
func (n *NoiseNode) Displace() bool       { return n.displace }

func (n *NoiseNode) SetParams(p noise.Params) error {
	if err := p.Validate(); err != nil {
		return n.rejected("params", err)
	}
	n.params = p
	n.markDirty()
	return nil
}

// SetDisplace switches between colour overlay (false) and displacement (true).
func (n *NoiseNode) SetDisplace(displace bool) {
	n.displace = displace
	n.markDirty()
}

func (n *NoiseNode) apply(input *buffer.Buffer) (*buffer.Buffer, error) {
	if n.displace {
		return noise.Displace(input, n.params)
	}
	return noise.Overlay(input, n.params)
}
