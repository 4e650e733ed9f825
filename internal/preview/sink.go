// Package preview displays buffers at the end of a graph run.
package preview

import (
	"fmt"
	"strings"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
)

// Sink receives buffers to show. Show must not retain buf; Wait blocks until
// the user dismisses everything shown since the previous Wait.
type Sink interface {
	Show(buf *buffer.Buffer, label string)
	Wait()
}

type Kind string

const (
	KindNone    Kind = "none"
	KindHighGUI Kind = "highgui"
	KindFyne    Kind = "fyne"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindNone, KindHighGUI, KindFyne:
		return k, nil
	case "":
		return KindNone, nil
	}
	return KindNone, fmt.Errorf("unknown display %q", s)
}

// New builds the sink for kind.
func New(kind Kind, log logger.Logger) Sink {
	switch kind {
	case KindHighGUI:
		return NewHighGUI(log)
	case KindFyne:
		return NewGallery(log)
	default:
		return Nop{}
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Show(*buffer.Buffer, string) {}
func (Nop) Wait()                       {}

// Recorder keeps the labels and shapes of shown buffers.
type Recorder struct {
	Labels []string
	Shapes []string
	Waits  int
}

func (r *Recorder) Show(buf *buffer.Buffer, label string) {
	r.Labels = append(r.Labels, label)
	r.Shapes = append(r.Shapes, buf.String())
}

func (r *Recorder) Wait() {
	r.Waits++
}
