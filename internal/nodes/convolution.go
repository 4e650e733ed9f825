package nodes

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/processing/filters"
)

// ConvolutionNode correlates its input with a preset or custom kernel.
type ConvolutionNode struct {
	base
	preset filters.Preset
	size   int
	custom filters.Kernel
}

func NewConvolution(name string, log logger.Logger) *ConvolutionNode {
	n := &ConvolutionNode{
		base:   newBase("conv", name, KindConvolution, log),
		preset: filters.PresetSharpen,
		size:   3,
		custom: filters.Identity(3),
	}
	n.compute = n.convolve
	return n
}

func (n *ConvolutionNode) Preset() filters.Preset { return n.preset }
func (n *ConvolutionNode) KernelSize() int        { return n.size }

// Kernel returns the kernel in effect.
func (n *ConvolutionNode) Kernel() filters.Kernel {
	if k, ok := filters.PresetKernel(n.preset); ok {
		return k
	}
	return n.custom.Clone()
}

func (n *ConvolutionNode) SetPreset(p filters.Preset) error {
	switch p {
	case filters.PresetSharpen, filters.PresetEmboss, filters.PresetEdgeEnhance, filters.PresetCustom:
	default:
		return n.rejected("preset", fmt.Errorf("unknown preset %v", p))
	}
	n.preset = p
	n.markDirty()
	return nil
}

// SetKernelSize accepts 3 or 5. Changing the size resets the custom kernel
// to the identity of that size and selects it.
func (n *ConvolutionNode) SetKernelSize(size int) error {
	if size != 3 && size != 5 {
		return n.rejected("kernel_size", fmt.Errorf("kernel size must be 3 or 5, got %d", size))
	}
	if size == n.size {
		return nil
	}
	n.size = size
	n.custom = filters.Identity(size)
	n.preset = filters.PresetCustom
	n.markDirty()
	return nil
}

// SetCustomKernel installs size*size weights, row-major, and selects the
// custom preset.
func (n *ConvolutionNode) SetCustomKernel(weights []float32) error {
	k, err := filters.NewKernel(n.size, weights)
	if err != nil {
		return n.rejected("kernel", err)
	}
	n.custom = k
	n.preset = filters.PresetCustom
	n.markDirty()
	return nil
}

func (n *ConvolutionNode) convolve(input *buffer.Buffer) (*buffer.Buffer, error) {
	return filters.Convolve(input, n.Kernel())
}

func (n *ConvolutionNode) Render(sink preview.Sink) {
	n.base.Render(sink)

	kernelImg, err := filters.KernelPreview(n.Kernel(), kernelPreviewCell)
	if err != nil {
		n.logger.Error(n.component(), err, map[string]interface{}{"node": n.id})
		return
	}
	defer kernelImg.Close()
	sink.Show(kernelImg, n.id+" kernel")
}
