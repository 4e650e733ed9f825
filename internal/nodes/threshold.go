package nodes

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/processing/histogram"
	"pixelgraph/internal/processing/threshold"
)

const histogramPreviewHeight = 100

// ThresholdNode segments its input with a binary, adaptive or Otsu threshold.
type ThresholdNode struct {
	base
	method threshold.Method
	level  float64
	hist   histogram.Histogram
}

func NewThreshold(name string, log logger.Logger) *ThresholdNode {
	n := &ThresholdNode{
		base:   newBase("threshold", name, KindThreshold, log),
		method: threshold.Binary{Value: 127},
	}
	n.compute = n.segment
	return n
}

func (n *ThresholdNode) Method() threshold.Method { return n.method }

func (n *ThresholdNode) SetMethod(m threshold.Method) error {
	switch method := m.(type) {
	case threshold.Binary:
		if method.Value < 0 || method.Value > threshold.MaxValue {
			return n.rejected("value", fmt.Errorf("threshold value must be in [0, 255], got %v", method.Value))
		}
	case threshold.Adaptive:
		if method.BlockSize < 3 {
			return n.rejected("block_size", fmt.Errorf("block size must be at least 3, got %d", method.BlockSize))
		}
	case threshold.Otsu:
	default:
		return n.rejected("method", fmt.Errorf("unsupported threshold method %T", m))
	}
	n.method = m
	n.markDirty()
	return nil
}

// OtsuLevel returns the level chosen by the last Otsu run, or the fixed
// binary level. It is zero for adaptive thresholding.
func (n *ThresholdNode) OtsuLevel() float64 {
	n.ensureFresh()
	return n.level
}

// Histogram returns the grayscale histogram of the last processed input.
func (n *ThresholdNode) Histogram() histogram.Histogram {
	n.ensureFresh()
	return n.hist
}

func (n *ThresholdNode) segment(input *buffer.Buffer) (*buffer.Buffer, error) {
	n.level = 0
	n.hist = histogram.Histogram{}

	res, err := threshold.Apply(input, n.method)
	if err != nil {
		return nil, err
	}
	n.level = res.Level
	n.hist = res.Histogram

	n.logger.Debug(n.component(), "threshold applied", map[string]interface{}{
		"node":   n.id,
		"method": n.method.String(),
		"level":  res.Level,
	})
	return res.Image, nil
}

func (n *ThresholdNode) Render(sink preview.Sink) {
	n.base.Render(sink)
	if n.output.Empty() {
		return
	}

	hist := n.hist
	img, err := hist.Render(histogramPreviewHeight)
	if err != nil {
		n.logger.Error(n.component(), err, map[string]interface{}{"node": n.id})
		return
	}
	defer img.Close()
	sink.Show(img, n.id+" histogram")
}
