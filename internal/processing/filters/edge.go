package filters

import (
	"fmt"
	"strings"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/opencv/conversion"

	"gocv.io/x/gocv"
)

// EdgeMethod selects the edge operator. Implemented by Sobel and Canny.
type EdgeMethod interface {
	edgeMethod()
	String() string
}

// Sobel combines |d/dx|/2 + |d/dy|/2 of the grayscale image.
type Sobel struct {
	KernelSize int
}

// Canny runs the hysteresis edge detector with the two thresholds.
type Canny struct {
	Low  float64
	High float64
}

func (Sobel) edgeMethod() {}
func (Canny) edgeMethod() {}

func (s Sobel) String() string { return fmt.Sprintf("sobel(k=%d)", s.KernelSize) }
func (c Canny) String() string { return fmt.Sprintf("canny(%.0f,%.0f)", c.Low, c.High) }

func (s Sobel) Validate() error {
	switch s.KernelSize {
	case 1, 3, 5, 7:
		return nil
	}
	return fmt.Errorf("sobel kernel size must be 1, 3, 5 or 7, got %d", s.KernelSize)
}

func (c Canny) Validate() error {
	if c.Low < 0 || c.High < 0 {
		return fmt.Errorf("canny thresholds must be non-negative, got %.1f/%.1f", c.Low, c.High)
	}
	return nil
}

// ParseEdgeMethod maps a CLI name to a method with default parameters.
func ParseEdgeMethod(s string) (EdgeMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sobel":
		return Sobel{KernelSize: 3}, nil
	case "canny":
		return Canny{Low: 50, High: 150}, nil
	}
	return nil, fmt.Errorf("unknown edge method %q", s)
}

type EdgeOptions struct {
	// Overlay adds the edges onto the input instead of returning them alone.
	Overlay bool
	// Soften blurs the result with a 5x5 Gaussian.
	Soften bool
}

// DetectEdges returns an 8-bit edge map, or the input with edges added when
// opts.Overlay is set.
func DetectEdges(src *buffer.Buffer, method EdgeMethod, opts EdgeOptions) (*buffer.Buffer, error) {
	if err := buffer.ValidateChannels(src, "edge detection", 1, 3, 4); err != nil {
		return nil, err
	}

	input := src
	if src.PixelType() != buffer.Uint8 {
		converted, err := conversion.ToUint8(src, 1)
		if err != nil {
			return nil, err
		}
		defer converted.Close()
		input = converted
	}

	gray, err := conversion.ToGray(input)
	if err != nil {
		return nil, err
	}
	defer gray.Close()
	grayMat := gray.Mat()

	edges := gocv.NewMat()
	switch m := method.(type) {
	case Sobel:
		if err := m.Validate(); err != nil {
			edges.Close()
			return nil, err
		}
		sobelMagnitude(grayMat, &edges, m.KernelSize)
	case Canny:
		if err := m.Validate(); err != nil {
			edges.Close()
			return nil, err
		}
		gocv.Canny(grayMat, &edges, float32(m.Low), float32(m.High))
	default:
		edges.Close()
		return nil, fmt.Errorf("unsupported edge method %T", method)
	}

	result := edges
	if opts.Overlay {
		result = overlayEdges(input, edges)
		edges.Close()
	}

	if opts.Soften {
		softened := softGaussian(result)
		result.Close()
		result = softened
	}

	out := buffer.Adopt(result, src.Tag()+"_edges")
	if out == nil {
		return nil, fmt.Errorf("edge detection produced no data")
	}
	return out, nil
}

func sobelMagnitude(gray gocv.Mat, dst *gocv.Mat, ksize int) {
	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	absX := gocv.NewMat()
	defer absX.Close()
	absY := gocv.NewMat()
	defer absY.Close()

	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, ksize, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, ksize, 1, 0, gocv.BorderDefault)
	gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absY, 1, 0)
	gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, dst)
}

// overlayEdges saturating-adds a single-channel edge map onto input.
func overlayEdges(input *buffer.Buffer, edges gocv.Mat) gocv.Mat {
	inputMat := input.Mat()
	out := gocv.NewMat()

	if input.Channels() == 1 {
		gocv.Add(inputMat, edges, &out)
		return out
	}

	code := gocv.ColorGrayToBGR
	if input.Channels() == 4 {
		code = gocv.ColorGrayToBGRA
	}
	colored := gocv.NewMat()
	defer colored.Close()
	gocv.CvtColor(edges, &colored, code)
	gocv.Add(inputMat, colored, &out)
	return out
}
