package nodes

import (
	"fmt"
	"os"
	"path/filepath"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/codec"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/opencv/conversion"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/processing/channels"
)

// ChannelSplitterNode separates its input into colour planes. Its output is
// the luma image in grayscale mode and the unchanged input otherwise.
type ChannelSplitterNode struct {
	base
	grayscale bool
	planes    channels.Planes
	gray      *buffer.Buffer
}

func NewChannelSplitter(name string, log logger.Logger) *ChannelSplitterNode {
	n := &ChannelSplitterNode{
		base: newBase("splitter", name, KindChannelSplitter, log),
	}
	n.compute = n.split
	return n
}

func (n *ChannelSplitterNode) GrayscaleMode() bool { return n.grayscale }

func (n *ChannelSplitterNode) SetGrayscale(gray bool) {
	n.grayscale = gray
	n.markDirty()
}

func (n *ChannelSplitterNode) resetPlanes() {
	n.planes.Close()
	n.gray.Close()
	n.gray = nil
}

func (n *ChannelSplitterNode) split(input *buffer.Buffer) (*buffer.Buffer, error) {
	n.resetPlanes()

	if input.Channels() < 3 {
		n.logger.Warning(n.component(), "single-channel input, nothing to split", map[string]interface{}{
			"node": n.id,
		})
		if n.grayscale {
			n.gray = input.Clone()
		}
		return input.Clone(), nil
	}

	planes, err := channels.Split(input)
	if err != nil {
		return nil, err
	}
	n.planes = planes

	if n.grayscale {
		gray, err := conversion.ToGray(input)
		if err != nil {
			return nil, err
		}
		n.gray = gray
		return gray.Clone(), nil
	}
	return input.Clone(), nil
}

// Channel returns a clone of one plane, or nil if it does not exist.
func (n *ChannelSplitterNode) Channel(name channels.Name) *buffer.Buffer {
	n.ensureFresh()
	return n.planes.Get(name).Clone()
}

// Grayscale returns a clone of the luma image, or nil outside grayscale mode.
func (n *ChannelSplitterNode) Grayscale() *buffer.Buffer {
	n.ensureFresh()
	return n.gray.Clone()
}

// MergeChannels reassembles the blue, green and red planes. It returns nil
// and logs when any plane is missing.
func (n *ChannelSplitterNode) MergeChannels() *buffer.Buffer {
	n.ensureFresh()

	merged, err := channels.Merge(n.planes.Blue, n.planes.Green, n.planes.Red)
	if err != nil {
		n.logger.Warning(n.component(), "cannot merge channels", map[string]interface{}{
			"node":  n.id,
			"error": err.Error(),
		})
		return nil
	}
	return merged
}

// ExportChannels writes every available plane as PNG into dir.
func (n *ChannelSplitterNode) ExportChannels(dir string, enc codec.Encoder) error {
	n.ensureFresh()
	if n.planes.Red.Empty() {
		return fmt.Errorf("%s: no channels to export: %w", n.id, buffer.ErrEmpty)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name string
		buf  *buffer.Buffer
	}{
		{string(channels.Red), n.planes.Red},
		{string(channels.Green), n.planes.Green},
		{string(channels.Blue), n.planes.Blue},
		{string(channels.Alpha), n.planes.Alpha},
		{"grayscale", n.gray},
	}
	for _, f := range files {
		if f.buf.Empty() {
			continue
		}
		path := filepath.Join(dir, f.name+".png")
		if err := enc.Encode(f.buf, path, codec.FormatPNG, 3); err != nil {
			return fmt.Errorf("export %s: %w", f.name, err)
		}
	}
	return nil
}

func (n *ChannelSplitterNode) Render(sink preview.Sink) {
	n.base.Render(sink)
	for _, name := range []channels.Name{channels.Red, channels.Green, channels.Blue, channels.Alpha} {
		if plane := n.planes.Get(name); !plane.Empty() {
			sink.Show(plane, n.id+" "+string(name))
		}
	}
}

func (n *ChannelSplitterNode) Close() {
	n.base.Close()
	n.resetPlanes()
}
