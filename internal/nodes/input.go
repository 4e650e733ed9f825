package nodes

import (
	"fmt"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/codec"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/opencv/conversion"
)

// InputNode loads an image from disk. A buffer passed to SetInput takes the
// place of the file.
type InputNode struct {
	base
	path      string
	grayscale bool
	decoder   codec.Decoder
}

func NewInput(name, path string, decoder codec.Decoder, log logger.Logger) *InputNode {
	n := &InputNode{
		base:    newBase("input", name, KindInput, log),
		path:    path,
		decoder: decoder,
	}
	n.requireInput = false
	n.compute = n.load
	return n
}

func (n *InputNode) Path() string { return n.path }

// SetPath points the node at a new file and drops any directly set image.
func (n *InputNode) SetPath(path string) {
	n.path = path
	n.input.Close()
	n.input = nil
	n.markDirty()
}

func (n *InputNode) SetGrayscale(gray bool) {
	if n.grayscale != gray {
		n.grayscale = gray
		n.markDirty()
	}
}

func (n *InputNode) load(input *buffer.Buffer) (*buffer.Buffer, error) {
	var img *buffer.Buffer
	switch {
	case !input.Empty():
		img = input.Clone()
	case n.path == "":
		return nil, fmt.Errorf("%w: no path set", errNoInput)
	case n.decoder == nil:
		return nil, fmt.Errorf("no decoder configured for %s", n.path)
	default:
		decoded, err := n.decoder.Decode(n.path)
		if err != nil {
			return nil, err
		}
		img = decoded
	}

	if !n.grayscale || img.Channels() == 1 {
		return img, nil
	}
	defer img.Close()
	return conversion.ToGray(img)
}
