// Package composite blends a layer image onto a base image.
package composite

import (
	"fmt"
	"math"
	"strings"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/opencv/conversion"
)

type Mode int

const (
	Normal Mode = iota
	Multiply
	Screen
	Overlay
	Difference
)

var modeNames = [...]string{"normal", "multiply", "screen", "overlay", "difference"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return Normal, fmt.Errorf("unknown blend mode %q", s)
}

func blendMultiply(a, b float32) float32 { return a * b }
func blendScreen(a, b float32) float32   { return 1 - (1-a)*(1-b) }
func blendOverlay(a, b float32) float32 {
	if a < 0.5 {
		return 2 * a * b
	}
	return 1 - 2*(1-a)*(1-b)
}
func blendDifference(a, b float32) float32 {
	return float32(math.Abs(float64(a - b)))
}

// Func returns the per-sample formula for m with a as base and b as layer.
func (m Mode) Func() func(a, b float32) float32 {
	switch m {
	case Multiply:
		return blendMultiply
	case Screen:
		return blendScreen
	case Overlay:
		return blendOverlay
	case Difference:
		return blendDifference
	default:
		return func(_, b float32) float32 { return b }
	}
}

// ClampOpacity limits opacity to [0, 1].
func ClampOpacity(opacity float64) float64 {
	return math.Max(0, math.Min(1, opacity))
}

// Blend mixes normalised samples: opacity*mode(a, b) + (1-opacity)*a.
// a and b must have the same length.
func Blend(a, b []float32, mode Mode, opacity float64) ([]float32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: base has %d samples, layer %d", buffer.ErrSizeMismatch, len(a), len(b))
	}

	fn := mode.Func()
	op := float32(ClampOpacity(opacity))
	out := make([]float32, len(a))
	for i := range a {
		out[i] = op*fn(a[i], b[i]) + (1-op)*a[i]
	}
	return out, nil
}

// Apply blends layer onto base. The layer is resized (bilinear) to the base
// size and converted to its channel count. The result is 8-bit.
func Apply(base, layer *buffer.Buffer, mode Mode, opacity float64) (*buffer.Buffer, error) {
	if err := buffer.ValidateChannels(base, "blend base", 1, 3, 4); err != nil {
		return nil, err
	}
	if err := buffer.ValidateChannels(layer, "blend layer", 1, 3, 4); err != nil {
		return nil, err
	}

	a, err := normalized(base)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}

	resized, err := conversion.Resize(layer, base.Width(), base.Height())
	if err != nil {
		return nil, fmt.Errorf("layer resize: %w", err)
	}
	defer resized.Close()

	matched, err := conversion.ToChannels(resized, base.Channels())
	if err != nil {
		return nil, fmt.Errorf("layer channels: %w", err)
	}
	defer matched.Close()

	b, err := normalized(matched)
	if err != nil {
		return nil, fmt.Errorf("layer: %w", err)
	}

	mixed, err := Blend(a, b, mode, opacity)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(mixed))
	for i, v := range mixed {
		out[i] = uint8(math.Round(math.Max(0, math.Min(1, float64(v))) * 255))
	}
	return buffer.FromBytes(base.Width(), base.Height(), base.Channels(), out)
}

// normalized returns the samples of an 8-bit or float buffer scaled into [0, 1].
func normalized(src *buffer.Buffer) ([]float32, error) {
	if src.PixelType() == buffer.Float32 {
		return src.Floats()
	}

	f, err := conversion.ToFloat(src, 1.0/255)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Floats()
}
