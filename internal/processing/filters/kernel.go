package filters

import (
	"fmt"
	"math"
	"strings"

	"pixelgraph/internal/buffer"

	"gocv.io/x/gocv"
)

// Kernel is a square correlation kernel stored row-major.
type Kernel struct {
	Size    int
	Weights []float32
}

func NewKernel(size int, weights []float32) (Kernel, error) {
	if size < 1 || size%2 == 0 {
		return Kernel{}, fmt.Errorf("kernel size must be odd and positive, got %d", size)
	}
	if len(weights) != size*size {
		return Kernel{}, fmt.Errorf("kernel of size %d needs %d weights, got %d", size, size*size, len(weights))
	}
	w := make([]float32, len(weights))
	copy(w, weights)
	return Kernel{Size: size, Weights: w}, nil
}

// Identity returns the kernel that leaves an image unchanged.
func Identity(size int) Kernel {
	w := make([]float32, size*size)
	w[(size/2)*size+size/2] = 1
	return Kernel{Size: size, Weights: w}
}

func (k Kernel) At(x, y int) float32 {
	return k.Weights[y*k.Size+x]
}

func (k Kernel) Sum() float64 {
	var sum float64
	for _, w := range k.Weights {
		sum += float64(w)
	}
	return sum
}

func (k Kernel) Clone() Kernel {
	w := make([]float32, len(k.Weights))
	copy(w, k.Weights)
	return Kernel{Size: k.Size, Weights: w}
}

func (k Kernel) String() string {
	var sb strings.Builder
	for y := 0; y < k.Size; y++ {
		for x := 0; x < k.Size; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%6.3f", k.At(x, y))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToMat returns the kernel as a single-channel float32 Mat. The caller closes it.
func (k Kernel) ToMat() gocv.Mat {
	mat := gocv.NewMatWithSize(k.Size, k.Size, gocv.MatTypeCV32F)
	for y := 0; y < k.Size; y++ {
		for x := 0; x < k.Size; x++ {
			mat.SetFloatAt(y, x, k.At(x, y))
		}
	}
	return mat
}

// GaussianKernel builds an isotropic (2r+1)x(2r+1) kernel with sigma = r/3,
// normalised to unit sum.
func GaussianKernel(radius int) (Kernel, error) {
	if radius < 1 {
		return Kernel{}, fmt.Errorf("radius must be at least 1, got %d", radius)
	}

	size := 2*radius + 1
	sigma := float64(radius) / 3.0
	twoSigmaSq := 2 * sigma * sigma

	weights := make([]float64, size*size)
	var sum float64
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			w := math.Exp(-float64(x*x+y*y) / twoSigmaSq)
			weights[(y+radius)*size+x+radius] = w
			sum += w
		}
	}

	k := Kernel{Size: size, Weights: make([]float32, len(weights))}
	for i, w := range weights {
		k.Weights[i] = float32(w / sum)
	}
	return k, nil
}

// DirectionalKernel builds a motion-blur line through the centre at angle
// degrees. Every distinct cell hit by centre + i*(cos, sin), i in [-r, r],
// gets the same weight so that the kernel sums to one.
func DirectionalKernel(radius int, angle float64) (Kernel, error) {
	if radius < 1 {
		return Kernel{}, fmt.Errorf("radius must be at least 1, got %d", radius)
	}

	size := 2*radius + 1
	rad := angle * math.Pi / 180.0
	dx, dy := math.Cos(rad), math.Sin(rad)

	hit := make([]bool, size*size)
	count := 0
	for i := -radius; i <= radius; i++ {
		x := radius + int(math.Round(float64(i)*dx))
		y := radius + int(math.Round(float64(i)*dy))
		if x < 0 || x >= size || y < 0 || y >= size {
			continue
		}
		idx := y*size + x
		if !hit[idx] {
			hit[idx] = true
			count++
		}
	}

	k := Kernel{Size: size, Weights: make([]float32, size*size)}
	for i, h := range hit {
		if h {
			k.Weights[i] = 1.0 / float32(count)
		}
	}
	return k, nil
}

// Preset names a fixed 3x3 convolution kernel.
type Preset int

const (
	PresetSharpen Preset = iota
	PresetEmboss
	PresetEdgeEnhance
	PresetCustom
)

var presetNames = map[Preset]string{
	PresetSharpen:     "sharpen",
	PresetEmboss:      "emboss",
	PresetEdgeEnhance: "edge-enhance",
	PresetCustom:      "custom",
}

func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Preset(%d)", int(p))
}

func ParsePreset(s string) (Preset, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range presetNames {
		if n == name {
			return p, nil
		}
	}
	if name == "edge_enhance" || name == "edgeenhance" {
		return PresetEdgeEnhance, nil
	}
	return PresetCustom, fmt.Errorf("unknown kernel preset %q", s)
}

// PresetKernel returns the fixed kernel for p. Presets are not normalised.
func PresetKernel(p Preset) (Kernel, bool) {
	switch p {
	case PresetSharpen:
		return Kernel{Size: 3, Weights: []float32{
			0, -1, 0,
			-1, 5, -1,
			0, -1, 0,
		}}, true
	case PresetEmboss:
		return Kernel{Size: 3, Weights: []float32{
			-2, -1, 0,
			-1, 1, 1,
			0, 1, 2,
		}}, true
	case PresetEdgeEnhance:
		return Kernel{Size: 3, Weights: []float32{
			0, 0, 0,
			-1, 1, 0,
			0, 0, 0,
		}}, true
	default:
		return Kernel{}, false
	}
}

// KernelPreview renders the kernel weights as a grayscale image, each cell
// scaled up to cell x cell pixels. Weights are min-max stretched to [0, 255].
func KernelPreview(k Kernel, cell int) (*buffer.Buffer, error) {
	if k.Size == 0 || len(k.Weights) != k.Size*k.Size {
		return nil, fmt.Errorf("invalid kernel")
	}
	if cell < 1 {
		cell = 1
	}

	lo, hi := k.Weights[0], k.Weights[0]
	for _, w := range k.Weights {
		lo = min(lo, w)
		hi = max(hi, w)
	}
	span := hi - lo

	side := k.Size * cell
	data := make([]byte, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			var v float32
			if span > 0 {
				v = (k.At(x/cell, y/cell) - lo) / span
			}
			data[y*side+x] = uint8(math.Round(float64(v) * 255))
		}
	}
	return buffer.FromBytes(side, side, 1, data)
}
