package nodes

import (
	"fmt"
	"math"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/processing/filters"
)

// BrightnessContrastNode computes saturate(alpha*pixel + beta).
type BrightnessContrastNode struct {
	base
	alpha float64
	beta  float64
}

func NewBrightnessContrast(name string, log logger.Logger) *BrightnessContrastNode {
	n := &BrightnessContrastNode{
		base:  newBase("bc", name, KindBrightnessContrast, log),
		alpha: 1,
	}
	n.compute = n.adjust
	return n
}

func (n *BrightnessContrastNode) Alpha() float64 { return n.alpha }
func (n *BrightnessContrastNode) Beta() float64  { return n.beta }

// SetParams sets contrast (alpha >= 0) and brightness offset (beta).
func (n *BrightnessContrastNode) SetParams(alpha, beta float64) error {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) || alpha < 0 {
		return n.rejected("alpha", fmt.Errorf("alpha must be a finite non-negative number, got %v", alpha))
	}
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return n.rejected("beta", fmt.Errorf("beta must be finite, got %v", beta))
	}
	n.alpha, n.beta = alpha, beta
	n.markDirty()
	return nil
}

// Reset restores the identity mapping.
func (n *BrightnessContrastNode) Reset() {
	n.alpha, n.beta = 1, 0
	n.markDirty()
}

func (n *BrightnessContrastNode) adjust(input *buffer.Buffer) (*buffer.Buffer, error) {
	return filters.BrightnessContrast(input, n.alpha, n.beta)
}
