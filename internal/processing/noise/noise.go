// Package noise generates seeded procedural noise fields and applies them to
// images as a colour overlay or as a displacement warp.
package noise

import (
	"fmt"
	"image/color"
	"math"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/opencv/conversion"

	"gocv.io/x/gocv"
)

const (
	Lacunarity         = 2.0
	OverlayStrength    = 0.2
	DisplaceStrength   = 20.0
	defaultScale       = 50.0
	defaultOctaves     = 4
	defaultPersistence = 0.5
)

type Params struct {
	Generator   Generator
	Scale       float64
	Octaves     int
	Persistence float64
	Seed        int64
}

func DefaultParams() Params {
	return Params{
		Generator:   Gradient{},
		Scale:       defaultScale,
		Octaves:     defaultOctaves,
		Persistence: defaultPersistence,
		Seed:        0,
	}
}

func (p Params) Validate() error {
	if p.Generator == nil {
		return fmt.Errorf("no noise generator set")
	}
	if !(p.Scale > 0) {
		return fmt.Errorf("scale must be positive, got %v", p.Scale)
	}
	if p.Octaves < 1 {
		return fmt.Errorf("octaves must be at least 1, got %d", p.Octaves)
	}
	if !(p.Persistence > 0) {
		return fmt.Errorf("persistence must be positive, got %v", p.Persistence)
	}
	return nil
}

// Field samples width*height fractal noise values, row-major, min-max
// normalised to [0, 1]. A constant field becomes all zeros.
func Field(width, height int, p Params) ([]float32, error) {
	if err := buffer.ValidateDimensions(width, height, "noise field"); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	sample, err := newSampler(p.Generator, p.Seed)
	if err != nil {
		return nil, err
	}

	freq := 1.0 / p.Scale
	raw := make([]float64, width*height)
	lo, hi := math.Inf(1), math.Inf(-1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := fbm(sample, float64(x)*freq, float64(y)*freq, p.Octaves, p.Persistence)
			raw[y*width+x] = v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	field := make([]float32, len(raw))
	if span := hi - lo; span > 0 {
		for i, v := range raw {
			field[i] = float32((v - lo) / span)
		}
	}
	return field, nil
}

func fbm(sample sampler, x, y float64, octaves int, persistence float64) float64 {
	var sum float64
	amplitude, frequency := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		sum += amplitude * sample(x*frequency, y*frequency)
		amplitude *= persistence
		frequency *= Lacunarity
	}
	return sum
}

// Render returns the noise field as an 8-bit grayscale image.
func Render(width, height int, p Params) (*buffer.Buffer, error) {
	field, err := Field(width, height, p)
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(field))
	for i, v := range field {
		data[i] = uint8(math.Round(float64(v) * 255))
	}
	return buffer.FromBytes(width, height, 1, data)
}

// Overlay adds OverlayStrength*noise to every channel of src viewed as
// 3-channel colour in [0, 1], renormalises the whole image and returns it
// as 8-bit BGR.
func Overlay(src *buffer.Buffer, p Params) (*buffer.Buffer, error) {
	if err := buffer.ValidateChannels(src, "noise overlay", 1, 3, 4); err != nil {
		return nil, err
	}

	field, err := Field(src.Width(), src.Height(), p)
	if err != nil {
		return nil, err
	}

	bgr, err := conversion.ToChannels(src, 3)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	samples, err := unitFloats(bgr)
	if err != nil {
		return nil, err
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range samples {
		v := float64(samples[i]) + OverlayStrength*float64(field[i/3])
		samples[i] = float32(v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	out := make([]byte, len(samples))
	if span := hi - lo; span > 0 {
		for i, v := range samples {
			out[i] = uint8(math.Round((float64(v) - lo) / span * 255))
		}
	}
	return buffer.FromBytes(src.Width(), src.Height(), 3, out)
}

// Displace warps src by the noise field: each output pixel (x, y) samples
// the input at (x+d, y+d) with d = (n-0.5)*2*DisplaceStrength, bilinear,
// reflecting at the borders. The result is 8-bit with src's channel count.
func Displace(src *buffer.Buffer, p Params) (*buffer.Buffer, error) {
	if err := buffer.ValidateForOperation(src, "noise displacement"); err != nil {
		return nil, err
	}

	width, height := src.Width(), src.Height()
	field, err := Field(width, height, p)
	if err != nil {
		return nil, err
	}

	mapX := make([]float32, len(field))
	mapY := make([]float32, len(field))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			d := (field[i] - 0.5) * 2 * DisplaceStrength
			mapX[i] = float32(x) + d
			mapY[i] = float32(y) + d
		}
	}

	mapXBuf, err := buffer.FromFloats(width, height, 1, mapX)
	if err != nil {
		return nil, err
	}
	defer mapXBuf.Close()
	mapYBuf, err := buffer.FromFloats(width, height, 1, mapY)
	if err != nil {
		return nil, err
	}
	defer mapYBuf.Close()

	scale := 1.0 / 255
	if src.PixelType() == buffer.Float32 {
		scale = 1
	}
	floatSrc, err := conversion.ToFloat(src, scale)
	if err != nil {
		return nil, err
	}
	defer floatSrc.Close()

	srcMat := floatSrc.Mat()
	mx := mapXBuf.Mat()
	my := mapYBuf.Mat()
	dstMat := gocv.NewMat()
	gocv.Remap(srcMat, &dstMat, &mx, &my, gocv.InterpolationLinear, gocv.BorderReflect, color.RGBA{})

	warped := buffer.Adopt(dstMat, src.Tag()+"_displaced")
	if warped == nil {
		return nil, fmt.Errorf("displacement produced no data")
	}
	defer warped.Close()

	return conversion.ToUint8(warped, 255)
}

func unitFloats(src *buffer.Buffer) ([]float32, error) {
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
