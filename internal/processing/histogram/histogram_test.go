package histogram

import (
	"testing"

	"pixelgraph/internal/buffer"
)

func TestBuildCountsLevels(t *testing.T) {
	src, err := buffer.FromBytes(4, 1, 1, []byte{0, 0, 7, 255})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer src.Close()

	h, err := Build(src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h[0] != 2 || h[7] != 1 || h[255] != 1 || h.Total() != 4 {
		t.Errorf("histogram wrong: h[0]=%d h[7]=%d h[255]=%d total=%d", h[0], h[7], h[255], h.Total())
	}
}

func TestBuildRejectsColor(t *testing.T) {
	src, _ := buffer.New(2, 2, 3, buffer.Uint8)
	defer src.Close()

	if _, err := Build(src); err == nil {
		t.Error("Build on 3-channel buffer should fail")
	}
}

func TestOtsuLevelSeparatesTwoBands(t *testing.T) {
	var h Histogram
	h[10] = 50
	h[200] = 50

	level := h.OtsuLevel()
	if level < 10 || level >= 200 {
		t.Errorf("level = %d, want in [10, 200)", level)
	}
}

func TestOtsuLevelDegenerate(t *testing.T) {
	var empty Histogram
	if got := empty.OtsuLevel(); got != 0 {
		t.Errorf("empty level = %d, want 0", got)
	}

	var flat Histogram
	flat[42] = 9
	if got := flat.OtsuLevel(); got != 0 {
		t.Errorf("single-level = %d, want 0", got)
	}
}

func TestRender(t *testing.T) {
	var h Histogram
	h[0] = 4
	h[1] = 2

	img, err := h.Render(10)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	defer img.Close()

	top0, _ := img.ByteAt(0, 0, 0)
	top1, _ := img.ByteAt(1, 0, 0)
	bottom1, _ := img.ByteAt(1, 9, 0)
	if top0 != 255 || top1 != 0 || bottom1 != 255 {
		t.Errorf("bars wrong: %d %d %d", top0, top1, bottom1)
	}
	if h.Mean() != 1.0/3.0 {
		t.Errorf("mean = %v, want 1/3", h.Mean())
	}
}
