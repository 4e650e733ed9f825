package nodes

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/processing/filters"
)

// EdgeNode extracts edges with Sobel or Canny.
type EdgeNode struct {
	base
	method  filters.EdgeMethod
	options filters.EdgeOptions
}

func NewEdge(name string, log logger.Logger) *EdgeNode {
	n := &EdgeNode{
		base:   newBase("edges", name, KindEdgeDetector, log),
		method: filters.Sobel{KernelSize: 3},
	}
	n.compute = n.detect
	return n
}

func (n *EdgeNode) Method() filters.EdgeMethod   { return n.method }
func (n *EdgeNode) Options() filters.EdgeOptions { return n.options }

func (n *EdgeNode) SetMethod(m filters.EdgeMethod) error {
	var err error
	switch method := m.(type) {
	case filters.Sobel:
		err = method.Validate()
	case filters.Canny:
		err = method.Validate()
	default:
		err = fmt.Errorf("unsupported edge method %T", m)
	}
	if err != nil {
		return n.rejected("method", err)
	}
	n.method = m
	n.markDirty()
	return nil
}

func (n *EdgeNode) SetOverlay(overlay bool) {
	n.options.Overlay = overlay
	n.markDirty()
}

func (n *EdgeNode) SetSoften(soften bool) {
	n.options.Soften = soften
	n.markDirty()
}

func (n *EdgeNode) detect(input *buffer.Buffer) (*buffer.Buffer, error) {
	return filters.DetectEdges(input, n.method, n.options)
}
