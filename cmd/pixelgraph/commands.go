package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pixelgraph/internal/codec"
	"pixelgraph/internal/graph"
	"pixelgraph/internal/nodes"
	"pixelgraph/internal/processing/noise"
	"pixelgraph/internal/processing/threshold"
)

// chain is one wired graph with its source and sink nodes.
type chain struct {
	graph  *graph.Graph
	input  *nodes.InputNode
	output *nodes.OutputNode
	stats  graph.RunStats
}

// newChain wires input -> steps... -> output. The caller must Close the chain.
func (a *App) newChain(command string, io ioFlags, steps ...nodes.Node) (*chain, error) {
	outPath, err := a.outputPath(command, io)
	if err != nil {
		for _, s := range steps {
			s.Close()
		}
		return nil, err
	}

	g := graph.New(a.logger)
	c := &chain{
		graph:  g,
		input:  nodes.NewInput("source", io.in, a.codec, a.logger),
		output: nodes.NewOutput("result", outPath, a.codec, a.logger),
	}
	c.output.SetQuality(io.quality)
	if io.format != "" {
		if err := c.output.SetFormat(codec.Format(strings.ToLower(io.format))); err != nil {
			c.Close()
			for _, s := range steps {
				s.Close()
			}
			return nil, err
		}
	}

	g.AddNode(c.input)
	prev := nodes.Node(c.input)
	for _, s := range steps {
		g.AddNode(s)
		if err := g.Connect(prev, s); err != nil {
			c.Close()
			return nil, err
		}
		prev = s
	}
	g.AddNode(c.output)
	if err := g.Connect(prev, c.output); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (a *App) outputPath(command string, io ioFlags) (string, error) {
	if io.out != "" {
		return a.cfg.OutputPath(io.out), nil
	}

	ext := "png"
	if io.format != "" {
		f, err := codec.ParseFormat(io.format)
		if err != nil {
			return "", err
		}
		ext = string(f)
	}

	stem := command
	if io.in != "" {
		base := filepath.Base(io.in)
		stem = strings.TrimSuffix(base, filepath.Ext(base)) + "_" + command
	}
	return a.cfg.OutputPath(stem + "." + ext), nil
}

// run executes the chain and checks that something was written.
func (a *App) run(c *chain, io ioFlags, mode graph.Mode) error {
	sink, err := a.sink(io.display)
	if err != nil {
		return err
	}
	c.graph.SetMode(mode)
	c.graph.SetSink(sink)
	c.stats = c.graph.Run()

	if err := c.output.Err(); err != nil {
		return err
	}
	if c.output.Written() == "" {
		src := c.input.Output()
		defer src.Close()
		if src.Empty() {
			return fmt.Errorf("could not load %q", c.input.Path())
		}
		return fmt.Errorf("pipeline produced no image for %s", c.output.Path())
	}
	return nil
}

// summary renders the one-line result printed on success.
func (c *chain) summary(command string, extra ...string) string {
	out := c.output.Output()
	defer out.Close()

	line := fmt.Sprintf("%s: wrote %s (%dx%d, %d channels) in %s",
		command, c.output.Written(), out.Width(), out.Height(), out.Channels(),
		c.stats.Duration.Round(time.Millisecond))
	if len(extra) > 0 {
		line += ", " + strings.Join(extra, ", ")
	}
	return line
}

func (c *chain) Close() {
	c.graph.Clear()
}

func requireInput(io ioFlags) error {
	if io.in == "" {
		return fmt.Errorf("-in is required")
	}
	return nil
}

// singleNode runs one processing node between an input and an output.
// Single-node commands always run in dependency order.
func (a *App) singleNode(command string, io ioFlags, n nodes.Node, extra func() []string) (string, error) {
	if err := requireInput(io); err != nil {
		n.Close()
		return "", err
	}
	c, err := a.newChain(command, io, n)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := a.run(c, io, graph.ModeTopological); err != nil {
		return "", err
	}
	var details []string
	if extra != nil {
		details = extra()
	}
	return c.summary(command, details...), nil
}

func runBrightness(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("bc", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	io.register(fs, true)
	p.brightnessFlags(fs)
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	n, err := p.newBrightness(a.logger)
	if err != nil {
		return "", err
	}
	return a.singleNode("bc", io, n, func() []string {
		return []string{fmt.Sprintf("alpha %.2f beta %.1f", n.Alpha(), n.Beta())}
	})
}

func runBlur(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("blur", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	io.register(fs, true)
	p.blurFlags(fs)
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	n, err := p.newBlur(a.logger)
	if err != nil {
		return "", err
	}
	return a.singleNode("blur", io, n, func() []string {
		return []string{fmt.Sprintf("kernel %dx%d", n.Kernel().Size, n.Kernel().Size)}
	})
}

func runConvolve(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("convolve", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	io.register(fs, true)
	p.convolveFlags(fs)
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	n, err := p.newConvolution(a.logger)
	if err != nil {
		return "", err
	}
	return a.singleNode("convolve", io, n, func() []string {
		return []string{fmt.Sprintf("preset %s", n.Preset())}
	})
}

func runThreshold(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("threshold", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	io.register(fs, true)
	p.thresholdFlags(fs)
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	n, err := p.newThreshold(a.logger)
	if err != nil {
		return "", err
	}
	return a.singleNode("threshold", io, n, func() []string {
		if _, ok := n.Method().(threshold.Adaptive); ok {
			return []string{n.Method().String()}
		}
		return []string{fmt.Sprintf("%s level %.0f", n.Method(), n.OtsuLevel())}
	})
}

func runEdges(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("edges", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	io.register(fs, true)
	p.edgeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	n, err := p.newEdge(a.logger)
	if err != nil {
		return "", err
	}
	return a.singleNode("edges", io, n, func() []string {
		return []string{n.Method().String()}
	})
}

func runNoise(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("noise", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	var width, height int
	io.register(fs, false)
	p.noiseFlags(fs)
	fs.IntVar(&width, "width", 512, "Width of a standalone noise image (without -in)")
	fs.IntVar(&height, "height", 512, "Height of a standalone noise image (without -in)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	if io.in != "" {
		n, err := p.newNoise(a.logger)
		if err != nil {
			return "", err
		}
		return a.singleNode("noise", io, n, func() []string {
			return []string{n.Params().Generator.String()}
		})
	}

	params, err := p.noiseParams()
	if err != nil {
		return "", err
	}
	field, err := noise.Render(width, height, params)
	if err != nil {
		return "", err
	}
	defer field.Close()

	c, err := a.newChain("noise", io)
	if err != nil {
		return "", err
	}
	defer c.Close()
	c.input.SetInput(field)

	if err := a.run(c, io, graph.ModeTopological); err != nil {
		return "", err
	}
	return c.summary("noise", params.Generator.String(), fmt.Sprintf("seed %d", params.Seed)), nil
}

func runSplit(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	var dir string
	io.register(fs, true)
	p.splitFlags(fs)
	fs.StringVar(&dir, "dir", "", "Directory to export red/green/blue(/alpha/grayscale) planes into")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if err := requireInput(io); err != nil {
		return "", err
	}

	n := p.newSplitter(a.logger)
	c, err := a.newChain("split", io, n)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := a.run(c, io, graph.ModeTopological); err != nil {
		return "", err
	}

	var extra []string
	if dir != "" {
		dir = a.cfg.OutputPath(dir)
		if err := n.ExportChannels(dir, a.codec); err != nil {
			return "", err
		}
		extra = append(extra, "planes in "+dir)
	}
	return c.summary("split", extra...), nil
}

func runBlend(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("blend", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	var layerPath string
	io.register(fs, true)
	p.blendFlags(fs)
	fs.StringVar(&layerPath, "layer", "", "Layer image composited onto -in (required)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if err := requireInput(io); err != nil {
		return "", err
	}
	if layerPath == "" {
		return "", fmt.Errorf("-layer is required")
	}

	blend, err := p.newBlend(a.logger)
	if err != nil {
		return "", err
	}
	c, err := a.newChain("blend", io, blend)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if err := a.addLayer(c, blend, layerPath); err != nil {
		return "", err
	}
	if err := a.run(c, io, graph.ModeTopological); err != nil {
		return "", err
	}
	return c.summary("blend", fmt.Sprintf("%s at %.2f", blend.Mode(), blend.Opacity())), nil
}

// addLayer loads path with a second input node feeding the blend layer slot.
func (a *App) addLayer(c *chain, blend *nodes.BlendNode, path string) error {
	layer := nodes.NewInput("layer", path, a.codec, a.logger)
	c.graph.AddNode(layer)
	return c.graph.ConnectAt(layer, blend, nodes.SlotLayer)
}

func runGraph(a *App, args []string) (string, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var io ioFlags
	var p nodeParams
	var steps, layerPath, order string
	io.register(fs, true)
	p.allFlags(fs)
	fs.StringVar(&steps, "steps", "", "Comma-separated steps: bc,blur,convolve,threshold,edges,noise,split")
	fs.StringVar(&layerPath, "layer", "", "Optional layer blended onto the last step with -mode and -opacity")
	fs.StringVar(&order, "order", "", "Run order insertion|topological (default: PIXELGRAPH_MODE)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if err := requireInput(io); err != nil {
		return "", err
	}

	mode := a.cfg.Mode
	if order != "" {
		m, err := graph.ParseMode(order)
		if err != nil {
			return "", err
		}
		mode = m
	}

	var built []nodes.Node
	closeBuilt := func() {
		for _, n := range built {
			n.Close()
		}
	}
	for _, step := range strings.Split(steps, ",") {
		if strings.TrimSpace(step) == "" {
			continue
		}
		n, err := p.buildStep(step, a.logger)
		if err != nil {
			closeBuilt()
			return "", err
		}
		built = append(built, n)
	}

	var blend *nodes.BlendNode
	if layerPath != "" {
		b, err := p.newBlend(a.logger)
		if err != nil {
			closeBuilt()
			return "", err
		}
		blend = b
		built = append(built, blend)
	}

	c, err := a.newChain("run", io, built...)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if blend != nil {
		if err := a.addLayer(c, blend, layerPath); err != nil {
			return "", err
		}
	}
	if err := a.run(c, io, mode); err != nil {
		return "", err
	}

	names := make([]string, 0, len(built))
	for _, n := range built {
		names = append(names, n.Kind().String())
	}
	extra := []string{
		fmt.Sprintf("%d nodes, %d edges, %s order", c.stats.Nodes, c.stats.Edges, mode),
	}
	if len(names) > 0 {
		extra = append(extra, "steps "+strings.Join(names, ">"))
	}
	if c.stats.EmptyOutputs > 0 {
		extra = append(extra, fmt.Sprintf("%d empty outputs", c.stats.EmptyOutputs))
	}
	return c.summary("run", extra...), nil
}
