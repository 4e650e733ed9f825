// Package nodes implements the processing units of a pixel graph.
//
// Every node owns one input buffer (two for blend) and one output buffer.
// Setters validate and mark the node dirty; Output recomputes a dirty node
// before returning, so reads always reflect the last accepted parameters.
package nodes

import (
	"errors"
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/preview"
)

type Kind int

const (
	KindInput Kind = iota
	KindBrightnessContrast
	KindChannelSplitter
	KindBlur
	KindThreshold
	KindEdgeDetector
	KindBlend
	KindNoise
	KindConvolution
	KindOutput
)

var kindNames = [...]string{
	"input-source",
	"brightness-contrast",
	"channel-splitter",
	"blur",
	"threshold",
	"edge-detector",
	"blend",
	"noise-generator",
	"convolution-filter",
	"output-sink",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is a single processing unit.
type Node interface {
	ID() string
	Name() string
	Kind() Kind
	// SetInput stores a clone of buf as the primary input.
	SetInput(buf *buffer.Buffer)
	// Process recomputes the output. An empty input empties the output.
	Process()
	// Output returns a clone of the current output, recomputing first if
	// parameters or input changed. The caller owns the returned buffer.
	Output() *buffer.Buffer
	// Render shows the output and any kind-specific extras on sink.
	Render(sink preview.Sink)
	// Close releases every buffer the node holds.
	Close()
}

// MultiInput is implemented by nodes with more than one input slot.
type MultiInput interface {
	Node
	SetInputAt(slot int, buf *buffer.Buffer) error
	InputSlots() int
}

var (
	errNoInput     = errors.New("no input image")
	ErrInvalidSlot = errors.New("invalid input slot")
)

// computeFunc derives the output from the primary input. Returning an error
// wrapping errNoInput is logged as a warning, anything else as an error.
type computeFunc func(input *buffer.Buffer) (*buffer.Buffer, error)

type base struct {
	id     string
	name   string
	kind   Kind
	input  *buffer.Buffer
	output *buffer.Buffer
	dirty  bool
	logger logger.Logger

	// requireInput makes Process warn and clear the output when the
	// primary input is empty, without calling compute.
	requireInput bool
	compute      computeFunc
}

func newBase(prefix, name string, kind Kind, log logger.Logger) base {
	return base{
		id:           prefix + "_" + name,
		name:         name,
		kind:         kind,
		dirty:        true,
		logger:       logger.OrNop(log),
		requireInput: true,
	}
}

func (b *base) ID() string   { return b.id }
func (b *base) Name() string { return b.name }
func (b *base) Kind() Kind   { return b.kind }

func (b *base) component() string {
	return b.kind.String()
}

func (b *base) SetInput(buf *buffer.Buffer) {
	b.input.Close()
	b.input = buf.Clone()
	b.markDirty()
}

func (b *base) markDirty() {
	b.dirty = true
}

// Dirty reports whether the output is stale.
func (b *base) Dirty() bool {
	return b.dirty
}

func (b *base) Process() {
	b.dirty = false

	if b.requireInput && b.input.Empty() {
		b.logger.Warning(b.component(), "no input image", map[string]interface{}{"node": b.id})
		b.setOutput(nil)
		return
	}

	out, err := b.compute(b.input)
	if err != nil {
		if errors.Is(err, errNoInput) {
			b.logger.Warning(b.component(), err.Error(), map[string]interface{}{"node": b.id})
		} else {
			b.logger.Error(b.component(), err, map[string]interface{}{"node": b.id})
		}
		b.setOutput(nil)
		return
	}

	b.setOutput(out)
	b.logger.Debug(b.component(), "processed", map[string]interface{}{
		"node":   b.id,
		"output": out.String(),
	})
}

func (b *base) ensureFresh() {
	if b.dirty {
		b.Process()
	}
}

func (b *base) setOutput(out *buffer.Buffer) {
	b.output.Close()
	b.output = out
}

func (b *base) Output() *buffer.Buffer {
	b.ensureFresh()
	return b.output.Clone()
}

// current returns the fresh output without cloning. The node keeps ownership.
func (b *base) current() *buffer.Buffer {
	b.ensureFresh()
	return b.output
}

func (b *base) Render(sink preview.Sink) {
	sink.Show(b.current(), b.id)
}

func (b *base) Close() {
	b.input.Close()
	b.input = nil
	b.output.Close()
	b.output = nil
	b.dirty = true
}

// rejected logs a refused parameter change at debug level and returns err.
func (b *base) rejected(param string, err error) error {
	b.logger.Debug(b.component(), "parameter rejected", map[string]interface{}{
		"node":  b.id,
		"param": param,
		"error": err.Error(),
	})
	return err
}
