package nodes

import (
	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/processing/filters"
)

const kernelPreviewCell = 16

// BlurNode applies a Gaussian or directional (motion) blur.
type BlurNode struct {
	base
	radius      int
	directional bool
	angle       float64
}

func NewBlur(name string, log logger.Logger) *BlurNode {
	n := &BlurNode{
		base:   newBase("blur", name, KindBlur, log),
		radius: 3,
	}
	n.compute = n.blur
	return n
}

func (n *BlurNode) Radius() int       { return n.radius }
func (n *BlurNode) Directional() bool { return n.directional }
func (n *BlurNode) Angle() float64    { return n.angle }

func (n *BlurNode) SetRadius(radius int) error {
	if _, err := filters.GaussianKernel(radius); err != nil {
		return n.rejected("radius", err)
	}
	n.radius = radius
	n.markDirty()
	return nil
}

func (n *BlurNode) SetDirectional(directional bool) {
	n.directional = directional
	n.markDirty()
}

// SetAngle sets the motion direction in degrees.
func (n *BlurNode) SetAngle(angle float64) {
	n.angle = angle
	n.markDirty()
}

// Kernel returns the kernel the current parameters produce.
func (n *BlurNode) Kernel() filters.Kernel {
	var k filters.Kernel
	if n.directional {
		k, _ = filters.DirectionalKernel(n.radius, n.angle)
	} else {
		k, _ = filters.GaussianKernel(n.radius)
	}
	return k
}

func (n *BlurNode) blur(input *buffer.Buffer) (*buffer.Buffer, error) {
	return filters.Convolve(input, n.Kernel())
}

func (n *BlurNode) Render(sink preview.Sink) {
	n.base.Render(sink)

	kernelImg, err := filters.KernelPreview(n.Kernel(), kernelPreviewCell)
	if err != nil {
		n.logger.Error(n.component(), err, map[string]interface{}{"node": n.id})
		return
	}
	defer kernelImg.Close()
	sink.Show(kernelImg, n.id+" kernel")
}
