package nodes

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/codec"
	"pixelgraph/internal/logger"
)

// OutputNode writes its input to disk on every Process. Its output is the
// input unchanged.
type OutputNode struct {
	base
	path    string
	format  codec.Format
	quality int
	encoder codec.Encoder
	lastErr error
	written string
}

func NewOutput(name, path string, encoder codec.Encoder, log logger.Logger) *OutputNode {
	n := &OutputNode{
		base:    newBase("output", name, KindOutput, log),
		path:    path,
		quality: 95,
		encoder: encoder,
	}
	n.compute = n.write
	return n
}

func (n *OutputNode) Path() string         { return n.path }
func (n *OutputNode) Format() codec.Format { return n.format }
func (n *OutputNode) Quality() int         { return n.quality }

// Written returns the path of the last successful write.
func (n *OutputNode) Written() string { return n.written }

// Err reports the last encode failure, nil after a successful write.
func (n *OutputNode) Err() error { return n.lastErr }

func (n *OutputNode) SetPath(path string) {
	n.path = path
	n.markDirty()
}

// SetFormat selects the file format. An empty format derives it from the path.
func (n *OutputNode) SetFormat(format codec.Format) error {
	if format != "" {
		if _, err := codec.ParseFormat(string(format)); err != nil {
			return n.rejected("format", err)
		}
	}
	n.format = format
	n.markDirty()
	return nil
}

// SetQuality clamps quality to [1, 100].
func (n *OutputNode) SetQuality(quality int) {
	n.quality = max(1, min(100, quality))
	n.markDirty()
}

func (n *OutputNode) write(input *buffer.Buffer) (*buffer.Buffer, error) {
	n.lastErr = nil

	format := n.format
	if format == "" {
		f, err := codec.FormatFromPath(n.path)
		if err != nil {
			f = codec.FormatPNG
		}
		format = f
	}
	path := codec.EnsureExtension(n.path, format)

	switch {
	case n.path == "":
		n.lastErr = fmt.Errorf("%w: no output path set", codec.ErrEncode)
	case n.encoder == nil:
		n.lastErr = fmt.Errorf("%w: no encoder configured", codec.ErrEncode)
	default:
		n.lastErr = n.encoder.Encode(input, path, format, n.quality)
	}

	if n.lastErr != nil {
		n.logger.Error(n.component(), n.lastErr, map[string]interface{}{
			"node": n.id,
			"path": path,
		})
	} else {
		n.written = path
	}
	return input.Clone(), nil
}
