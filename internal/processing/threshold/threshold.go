// Package threshold segments an image into foreground (255) and background (0).
package threshold

import (
	"fmt"
	"strings"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/opencv/conversion"
	"pixelgraph/internal/processing/histogram"

	"gocv.io/x/gocv"
)

const MaxValue = 255

// Method is one of Binary, Adaptive or Otsu.
type Method interface {
	thresholdMethod()
	String() string
}

// Binary maps pixel > Value to MaxValue and everything else to 0.
type Binary struct {
	Value float64
}

// Adaptive compares each pixel with the mean of its BlockSize window minus C.
type Adaptive struct {
	BlockSize int
	C         float64
}

// Otsu picks the level automatically from the histogram.
type Otsu struct{}

func (Binary) thresholdMethod()   {}
func (Adaptive) thresholdMethod() {}
func (Otsu) thresholdMethod()     {}

func (b Binary) String() string   { return fmt.Sprintf("binary(%.0f)", b.Value) }
func (a Adaptive) String() string { return fmt.Sprintf("adaptive(block=%d, c=%.1f)", a.BlockSize, a.C) }
func (Otsu) String() string       { return "otsu" }

// OddBlockSize returns the window actually used: at least 3 and odd.
func (a Adaptive) OddBlockSize() int {
	block := max(a.BlockSize, 3)
	if block%2 == 0 {
		block++
	}
	return block
}

// ParseMethod maps a CLI name to a method with default parameters.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary":
		return Binary{Value: 127}, nil
	case "adaptive":
		return Adaptive{BlockSize: 11, C: 2}, nil
	case "otsu":
		return Otsu{}, nil
	}
	return nil, fmt.Errorf("unknown threshold type %q", s)
}

type Result struct {
	Image *buffer.Buffer
	// Level is the global threshold used; zero for Adaptive.
	Level     float64
	Histogram histogram.Histogram
}

// Apply segments src. Multi-channel input is converted to luma on a
// temporary copy first.
func Apply(src *buffer.Buffer, method Method) (Result, error) {
	if err := buffer.ValidateChannels(src, "threshold", 1, 3, 4); err != nil {
		return Result{}, err
	}

	gray, err := prepare(src)
	if err != nil {
		return Result{}, err
	}
	defer gray.Close()

	hist, err := histogram.Build(gray)
	if err != nil {
		return Result{}, fmt.Errorf("histogram failed: %w", err)
	}

	grayMat := gray.Mat()
	dstMat := gocv.NewMat()
	result := Result{Histogram: hist}

	switch m := method.(type) {
	case Binary:
		result.Level = m.Value
		gocv.Threshold(grayMat, &dstMat, float32(m.Value), MaxValue, gocv.ThresholdBinary)
	case Adaptive:
		gocv.AdaptiveThreshold(grayMat, &dstMat, MaxValue, gocv.AdaptiveThresholdMean,
			gocv.ThresholdBinary, m.OddBlockSize(), float32(m.C))
	case Otsu:
		result.Level = float64(hist.OtsuLevel())
		gocv.Threshold(grayMat, &dstMat, float32(result.Level), MaxValue, gocv.ThresholdBinary)
	default:
		dstMat.Close()
		return Result{}, fmt.Errorf("unsupported threshold method %T", method)
	}

	result.Image = buffer.Adopt(dstMat, src.Tag()+"_threshold")
	if result.Image == nil {
		return Result{}, fmt.Errorf("threshold produced no data")
	}
	return result, nil
}

func prepare(src *buffer.Buffer) (*buffer.Buffer, error) {
	input := src
	if src.PixelType() != buffer.Uint8 {
		converted, err := conversion.ToUint8(src, 1)
		if err != nil {
			return nil, err
		}
		defer converted.Close()
		input = converted
	}
	return conversion.ToGray(input)
}
