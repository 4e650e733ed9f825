// Package channels splits colour buffers into single-channel planes and back.
package channels

import (
	"fmt"
	"strings"

	"pixelgraph/internal/buffer"

	"gocv.io/x/gocv"
)

type Name string

const (
	Red   Name = "red"
	Green Name = "green"
	Blue  Name = "blue"
	Alpha Name = "alpha"
)

func ParseName(s string) (Name, error) {
	switch n := Name(strings.ToLower(strings.TrimSpace(s))); n {
	case Red, Green, Blue, Alpha:
		return n, nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Planes holds the single-channel parts of a colour buffer. Alpha is nil
// for 3-channel input.
type Planes struct {
	Red   *buffer.Buffer
	Green *buffer.Buffer
	Blue  *buffer.Buffer
	Alpha *buffer.Buffer
}

func (p *Planes) Get(name Name) *buffer.Buffer {
	switch name {
	case Red:
		return p.Red
	case Green:
		return p.Green
	case Blue:
		return p.Blue
	case Alpha:
		return p.Alpha
	}
	return nil
}

// Close releases every plane.
func (p *Planes) Close() {
	p.Red.Close()
	p.Green.Close()
	p.Blue.Close()
	p.Alpha.Close()
	*p = Planes{}
}

// Split separates a BGR or BGRA buffer into its planes.
func Split(src *buffer.Buffer) (Planes, error) {
	if err := buffer.ValidateChannels(src, "channel split", 3, 4); err != nil {
		return Planes{}, err
	}

	mats := gocv.Split(src.Mat())
	if len(mats) != src.Channels() {
		for _, m := range mats {
			m.Close()
		}
		return Planes{}, fmt.Errorf("split returned %d planes for %d channels", len(mats), src.Channels())
	}

	tag := src.Tag()
	planes := Planes{
		Blue:  buffer.Adopt(mats[0], tag+"_blue"),
		Green: buffer.Adopt(mats[1], tag+"_green"),
		Red:   buffer.Adopt(mats[2], tag+"_red"),
	}
	if len(mats) == 4 {
		planes.Alpha = buffer.Adopt(mats[3], tag+"_alpha")
	}
	return planes, nil
}

// Merge combines blue, green and red planes, in that storage order, into a
// 3-channel buffer. The planes must share size and pixel type.
func Merge(blue, green, red *buffer.Buffer) (*buffer.Buffer, error) {
	for name, plane := range map[Name]*buffer.Buffer{Blue: blue, Green: green, Red: red} {
		if err := buffer.ValidateChannels(plane, "channel merge ("+string(name)+")", 1); err != nil {
			return nil, err
		}
	}
	if !blue.SameShape(green) || !blue.SameShape(red) {
		return nil, fmt.Errorf("%w: planes differ in shape", buffer.ErrSizeMismatch)
	}

	dst := gocv.NewMat()
	gocv.Merge([]gocv.Mat{blue.Mat(), green.Mat(), red.Mat()}, &dst)

	out := buffer.Adopt(dst, "merged")
	if out == nil {
		return nil, fmt.Errorf("merge produced no data")
	}
	return out, nil
}
