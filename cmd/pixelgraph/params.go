package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"pixelgraph/internal/logger"
	"pixelgraph/internal/nodes"
	"pixelgraph/internal/processing/composite"
	"pixelgraph/internal/processing/filters"
	"pixelgraph/internal/processing/noise"
	"pixelgraph/internal/processing/threshold"
)

// ioFlags are shared by every command that reads and writes images.
type ioFlags struct {
	in      string
	out     string
	format  string
	quality int
	display string
}

func (f *ioFlags) register(fs *flag.FlagSet, needInput bool) {
	inHelp := "Input image"
	if needInput {
		inHelp += " (required)"
	}
	fs.StringVar(&f.in, "in", "", inHelp)
	fs.StringVar(&f.out, "out", "", "Output image (default: <input>_<command>.png)")
	fs.StringVar(&f.format, "format", "", "Output format png|jpg|webp|bmp|tiff (default: from -out)")
	fs.IntVar(&f.quality, "quality", 95, "Output quality 1-100")
	fs.StringVar(&f.display, "display", "", "Preview display none|highgui|fyne (default: PIXELGRAPH_DISPLAY)")
}

// nodeParams holds the flag values of every node kind so that "run" and the
// single-node commands share one parameter surface.
type nodeParams struct {
	alpha float64
	beta  float64

	radius      int
	directional bool
	angle       float64

	preset string
	size   int
	kernel string

	thresholdType string
	value         float64
	block         int
	c             float64

	edgeMethod string
	ksize      int
	low        float64
	high       float64
	overlay    bool
	soften     bool

	blendMode string
	opacity   float64

	noiseType   string
	scale       float64
	octaves     int
	persistence float64
	displace    bool
	seed        int64
	jitter      float64

	grayscale bool
}

func (p *nodeParams) brightnessFlags(fs *flag.FlagSet) {
	fs.Float64Var(&p.alpha, "alpha", 1, "Contrast gain")
	fs.Float64Var(&p.beta, "beta", 0, "Brightness offset")
}

func (p *nodeParams) blurFlags(fs *flag.FlagSet) {
	fs.IntVar(&p.radius, "radius", 3, "Blur radius (>= 1)")
	fs.BoolVar(&p.directional, "directional", false, "Directional (motion) blur")
	fs.Float64Var(&p.angle, "angle", 0, "Motion blur angle in degrees")
}

func (p *nodeParams) convolveFlags(fs *flag.FlagSet) {
	fs.StringVar(&p.preset, "preset", "sharpen", "Kernel preset sharpen|emboss|edge-enhance|custom")
	fs.IntVar(&p.size, "size", 3, "Custom kernel size 3|5")
	fs.StringVar(&p.kernel, "kernel", "", "Custom kernel weights, comma separated, row-major")
}

func (p *nodeParams) thresholdFlags(fs *flag.FlagSet) {
	fs.StringVar(&p.thresholdType, "type", "otsu", "Threshold type binary|adaptive|otsu")
	fs.Float64Var(&p.value, "value", 127, "Binary threshold level 0-255")
	fs.IntVar(&p.block, "block", 11, "Adaptive block size (odd, >= 3)")
	fs.Float64Var(&p.c, "c", 2, "Constant subtracted from the adaptive mean")
}

func (p *nodeParams) edgeFlags(fs *flag.FlagSet) {
	fs.StringVar(&p.edgeMethod, "method", "sobel", "Edge method sobel|canny")
	fs.IntVar(&p.ksize, "ksize", 3, "Sobel kernel size 1|3|5|7")
	fs.Float64Var(&p.low, "low", 50, "Canny low threshold")
	fs.Float64Var(&p.high, "high", 150, "Canny high threshold")
	fs.BoolVar(&p.overlay, "overlay", false, "Draw the edges over the input")
	fs.BoolVar(&p.soften, "soften", false, "Soften the result with a 5x5 gaussian")
}

func (p *nodeParams) blendFlags(fs *flag.FlagSet) {
	fs.StringVar(&p.blendMode, "mode", "normal", "Blend mode normal|multiply|screen|overlay|difference")
	fs.Float64Var(&p.opacity, "opacity", 1, "Layer opacity 0-1")
}

func (p *nodeParams) noiseFlags(fs *flag.FlagSet) {
	fs.StringVar(&p.noiseType, "type", "gradient", "Noise type gradient|simplex|cellular")
	fs.Float64Var(&p.scale, "scale", 50, "Feature size in pixels")
	fs.IntVar(&p.octaves, "octaves", 4, "Fractal octaves (>= 1)")
	fs.Float64Var(&p.persistence, "persistence", 0.5, "Amplitude gain per octave")
	fs.BoolVar(&p.displace, "displace", false, "Warp the input instead of tinting it")
	fs.Int64Var(&p.seed, "seed", 0, "Noise seed")
	fs.Float64Var(&p.jitter, "jitter", 1, "Cellular feature point jitter 0-1")
}

func (p *nodeParams) splitFlags(fs *flag.FlagSet) {
	fs.BoolVar(&p.grayscale, "grayscale", false, "Output the luma grayscale instead of the input")
}

// allFlags registers every node parameter. The noise and threshold types
// share "-type" on single commands, so run prefixes them.
func (p *nodeParams) allFlags(fs *flag.FlagSet) {
	p.brightnessFlags(fs)
	p.blurFlags(fs)
	p.convolveFlags(fs)
	fs.StringVar(&p.thresholdType, "threshold-type", "otsu", "Threshold type binary|adaptive|otsu")
	fs.Float64Var(&p.value, "value", 127, "Binary threshold level 0-255")
	fs.IntVar(&p.block, "block", 11, "Adaptive block size (odd, >= 3)")
	fs.Float64Var(&p.c, "c", 2, "Constant subtracted from the adaptive mean")
	p.edgeFlags(fs)
	p.blendFlags(fs)
	fs.StringVar(&p.noiseType, "noise-type", "gradient", "Noise type gradient|simplex|cellular")
	fs.Float64Var(&p.scale, "scale", 50, "Feature size in pixels")
	fs.IntVar(&p.octaves, "octaves", 4, "Fractal octaves (>= 1)")
	fs.Float64Var(&p.persistence, "persistence", 0.5, "Amplitude gain per octave")
	fs.BoolVar(&p.displace, "displace", false, "Warp the input instead of tinting it")
	fs.Int64Var(&p.seed, "seed", 0, "Noise seed")
	fs.Float64Var(&p.jitter, "jitter", 1, "Cellular feature point jitter 0-1")
	p.splitFlags(fs)
}

// buildStep creates the node for one "run" step name.
func (p *nodeParams) buildStep(step string, log logger.Logger) (nodes.Node, error) {
	switch strings.ToLower(strings.TrimSpace(step)) {
	case "bc", "brightness":
		return p.newBrightness(log)
	case "blur":
		return p.newBlur(log)
	case "convolve", "convolution":
		return p.newConvolution(log)
	case "threshold":
		return p.newThreshold(log)
	case "edges", "edge":
		return p.newEdge(log)
	case "noise":
		return p.newNoise(log)
	case "split", "splitter":
		return p.newSplitter(log), nil
	}
	return nil, fmt.Errorf("unknown step %q", step)
}

func (p *nodeParams) newBrightness(log logger.Logger) (*nodes.BrightnessContrastNode, error) {
	n := nodes.NewBrightnessContrast("bc", log)
	if err := n.SetParams(p.alpha, p.beta); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (p *nodeParams) newBlur(log logger.Logger) (*nodes.BlurNode, error) {
	n := nodes.NewBlur("blur", log)
	if err := n.SetRadius(p.radius); err != nil {
		n.Close()
		return nil, err
	}
	n.SetDirectional(p.directional)
	n.SetAngle(p.angle)
	return n, nil
}

func (p *nodeParams) newConvolution(log logger.Logger) (*nodes.ConvolutionNode, error) {
	n := nodes.NewConvolution("convolve", log)

	preset, err := filters.ParsePreset(p.preset)
	if err != nil {
		n.Close()
		return nil, err
	}

	if preset != filters.PresetCustom {
		if err := n.SetPreset(preset); err != nil {
			n.Close()
			return nil, err
		}
		return n, nil
	}

	if err := n.SetKernelSize(p.size); err != nil {
		n.Close()
		return nil, err
	}
	if err := n.SetPreset(filters.PresetCustom); err != nil {
		n.Close()
		return nil, err
	}
	if p.kernel != "" {
		weights, err := parseWeights(p.kernel)
		if err != nil {
			n.Close()
			return nil, err
		}
		if err := n.SetCustomKernel(weights); err != nil {
			n.Close()
			return nil, err
		}
	}
	return n, nil
}

func (p *nodeParams) thresholdMethod() (threshold.Method, error) {
	method, err := threshold.ParseMethod(p.thresholdType)
	if err != nil {
		return nil, err
	}
	switch method.(type) {
	case threshold.Binary:
		return threshold.Binary{Value: p.value}, nil
	case threshold.Adaptive:
		return threshold.Adaptive{BlockSize: p.block, C: p.c}, nil
	}
	return method, nil
}

func (p *nodeParams) newThreshold(log logger.Logger) (*nodes.ThresholdNode, error) {
	method, err := p.thresholdMethod()
	if err != nil {
		return nil, err
	}
	n := nodes.NewThreshold("threshold", log)
	if err := n.SetMethod(method); err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

func (p *nodeParams) edgeMethod() (filters.EdgeMethod, error) {
	method, err := filters.ParseEdgeMethod(p.edgeMethod)
	if err != nil {
		return nil, err
	}
	switch method.(type) {
	case filters.Sobel:
		return filters.Sobel{KernelSize: p.ksize}, nil
	case filters.Canny:
		return filters.Canny{Low: p.low, High: p.high}, nil
	}
	return method, nil
}

func (p *nodeParams) newEdge(log logger.Logger) (*nodes.EdgeNode, error) {
	method, err := p.edgeMethod()
	if err != nil {
		return nil, err
	}
	n := nodes.NewEdge("edges", log)
	if err := n.SetMethod(method); err != nil {
		n.Close()
		return nil, err
	}
	n.SetOverlay(p.overlay)
	n.SetSoften(p.soften)
	return n, nil
}

func (p *nodeParams) newBlend(log logger.Logger) (*nodes.BlendNode, error) {
	mode, err := composite.ParseMode(p.blendMode)
	if err != nil {
		return nil, err
	}
	n := nodes.NewBlend("blend", log)
	if err := n.SetMode(mode); err != nil {
		n.Close()
		return nil, err
	}
	n.SetOpacity(p.opacity)
	return n, nil
}

func (p *nodeParams) noiseParams() (noise.Params, error) {
	gen, err := noise.ParseGenerator(p.noiseType)
	if err != nil {
		return noise.Params{}, err
	}
	if _, ok := gen.(noise.Cellular); ok {
		gen = noise.Cellular{Jitter: p.jitter}
	}

	params := noise.Params{
		Generator:   gen,
		Scale:       p.scale,
		Octaves:     p.octaves,
		Persistence: p.persistence,
		Seed:        p.seed,
	}
	return params, params.Validate()
}

func (p *nodeParams) newNoise(log logger.Logger) (*nodes.NoiseNode, error) {
	params, err := p.noiseParams()
	if err != nil {
		return nil, err
	}
	n := nodes.NewNoise("noise", log)
	if err := n.SetParams(params); err != nil {
		n.Close()
		return nil, err
	}
	n.SetDisplace(p.displace)
	return n, nil
}

func (p *nodeParams) newSplitter(log logger.Logger) *nodes.ChannelSplitterNode {
	n := nodes.NewChannelSplitter("split", log)
	n.SetGrayscale(p.grayscale)
	return n
}

func parseWeights(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	weights := make([]float32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid kernel weight %q: %w", part, err)
		}
		weights = append(weights, float32(v))
	}
	return weights, nil
}
