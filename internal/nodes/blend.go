package nodes

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/processing/composite"
)

const (
	SlotBase  = 0
	SlotLayer = 1
)

// BlendNode composites a layer (slot 1) onto a base (slot 0).
type BlendNode struct {
	base
	layer   *buffer.Buffer
	mode    composite.Mode
	opacity float64
}

func NewBlend(name string, log logger.Logger) *BlendNode {
	n := &BlendNode{
		base:    newBase("blend", name, KindBlend, log),
		mode:    composite.Normal,
		opacity: 1,
	}
	n.requireInput = false
	n.compute = n.blend
	return n
}

func (n *BlendNode) InputSlots() int { return 2 }

func (n *BlendNode) SetInputAt(slot int, buf *buffer.Buffer) error {
	switch slot {
	case SlotBase:
		n.SetInput(buf)
	case SlotLayer:
		n.SetLayer(buf)
	default:
		return fmt.Errorf("%w: blend accepts slots 0 and 1, got %d", ErrInvalidSlot, slot)
	}
	return nil
}

// SetLayer stores a clone of buf as the blend layer.
func (n *BlendNode) SetLayer(buf *buffer.Buffer) {
	n.layer.Close()
	n.layer = buf.Clone()
	n.markDirty()
}

func (n *BlendNode) Mode() composite.Mode { return n.mode }
func (n *BlendNode) Opacity() float64     { return n.opacity }

func (n *BlendNode) SetMode(mode composite.Mode) error {
	switch mode {
	case composite.Normal, composite.Multiply, composite.Screen, composite.Overlay, composite.Difference:
	default:
		return n.rejected("mode", fmt.Errorf("unknown blend mode %v", mode))
	}
	n.mode = mode
	n.markDirty()
	return nil
}

// SetOpacity clamps opacity to [0, 1].
func (n *BlendNode) SetOpacity(opacity float64) {
	n.opacity = composite.ClampOpacity(opacity)
	n.markDirty()
}

func (n *BlendNode) blend(input *buffer.Buffer) (*buffer.Buffer, error) {
	if input.Empty() {
		return nil, fmt.Errorf("%w: base", errNoInput)
	}
	if n.layer.Empty() {
		return nil, fmt.Errorf("%w: layer", errNoInput)
	}
	return composite.Apply(input, n.layer, n.mode, n.opacity)
}

func (n *BlendNode) Close() {
	n.base.Close()
	n.layer.Close()
	n.layer = nil
}
