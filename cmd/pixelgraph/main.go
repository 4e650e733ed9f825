// Command pixelgraph runs image-processing node graphs from the command line.
//
// Usage:
//
//	pixelgraph run -in photo.jpg -steps bc,blur,threshold -out mask.png
//	pixelgraph run -in photo.jpg -layer paper.png -steps noise -mode multiply
//	pixelgraph blur -in photo.jpg -radius 4 -directional -angle 30
//	pixelgraph noise -width 512 -height 512 -type simplex -out clouds.png
//
// Settings that apply to every command come from the environment (or a .env
// file): LOG_LEVEL, LOG_FORMAT, PIXELGRAPH_DISPLAY, PIXELGRAPH_MODE,
// PIXELGRAPH_MEMORY_LIMIT_MB and PIXELGRAPH_OUTPUT_DIR.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/codec"
	"pixelgraph/internal/config"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/opencv/memory"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/shutdown"
)

const (
	AppName    = "pixelgraph"
	AppVersion = "0.3.0"
)

// App carries the process-wide services shared by every command.
type App struct {
	cfg    config.Config
	logger logger.Logger
	memory *memory.Manager
	codec  *codec.OpenCV
}

func NewApp(cfg config.Config) *App {
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	mgr := memory.NewManager(log, cfg.MemoryLimitBytes())
	buffer.SetTracker(mgr)

	return &App{
		cfg:    cfg,
		logger: log,
		memory: mgr,
		codec:  codec.NewOpenCV(log),
	}
}

// sink builds the display for one command. An empty override keeps the
// configured display.
func (a *App) sink(override string) (preview.Sink, error) {
	kind := a.cfg.Display
	if override != "" {
		k, err := preview.ParseKind(override)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	return preview.New(kind, a.logger), nil
}

func (a *App) Close() {
	a.memory.Report()
	if stats := a.memory.GetStats(); stats.ActiveBuffers > 0 {
		a.logger.Debug("App", "buffers still referenced at exit", map[string]interface{}{
			"active_buffers": stats.ActiveBuffers,
			"bytes":          stats.InUse(),
		})
	}
	buffer.SetTracker(nil)
}

type command struct {
	summary string
	run     func(a *App, args []string) (string, error)
}

var commands = map[string]command{
	"run":       {"build and run a graph from a list of steps", runGraph},
	"bc":        {"adjust brightness and contrast", runBrightness},
	"blur":      {"gaussian or directional blur", runBlur},
	"convolve":  {"apply a preset or custom kernel", runConvolve},
	"threshold": {"binary, adaptive or otsu segmentation", runThreshold},
	"edges":     {"sobel or canny edge detection", runEdges},
	"blend":     {"composite a layer onto a base image", runBlend},
	"noise":     {"render or apply procedural noise", runNoise},
	"split":     {"split an image into channel planes", runSplit},
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		usage()
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	if args[0] == "version" || args[0] == "-version" {
		fmt.Printf("%s %s\n", AppName, AppVersion)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}

	app := NewApp(cfg)
	closer := shutdown.NewManager(app.logger)
	closer.Register("app", shutdown.Func(app.Close))
	closer.Listen(os.Exit)
	defer closer.Shutdown()

	result, err := cmd.run(app, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		app.logger.Error("App", err, map[string]interface{}{"command": args[0]})
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(result)
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n\nCommands:\n", AppName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for the flags of a command.\n", AppName)
}
