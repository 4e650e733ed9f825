package filters

import (
	"math"
	"testing"

	"pixelgraph/internal/buffer"
)

func TestGaussianKernelSumsToOne(t *testing.T) {
	for r := 1; r <= 10; r++ {
		k, err := GaussianKernel(r)
		if err != nil {
			t.Fatalf("GaussianKernel(%d): %v", r, err)
		}
		if k.Size != 2*r+1 {
			t.Errorf("r=%d size = %d, want %d", r, k.Size, 2*r+1)
		}
		if sum := k.Sum(); math.Abs(sum-1) > 1e-5 {
			t.Errorf("r=%d sum = %v, want 1", r, sum)
		}
		if k.At(r, r) < k.At(0, 0) {
			t.Errorf("r=%d centre weight below corner weight", r)
		}
	}
}

func TestDirectionalKernelSumsToOne(t *testing.T) {
	for r := 1; r <= 10; r++ {
		for angle := 0.0; angle < 360; angle += 15 {
			k, err := DirectionalKernel(r, angle)
			if err != nil {
				t.Fatalf("DirectionalKernel(%d, %v): %v", r, angle, err)
			}
			if sum := k.Sum(); math.Abs(sum-1) > 1e-5 {
				t.Errorf("r=%d angle=%v sum = %v, want 1", r, angle, sum)
			}
		}
	}
}

func TestDirectionalKernelHorizontal(t *testing.T) {
	k, _ := DirectionalKernel(2, 0)
	for x := 0; x < 5; x++ {
		if got := k.At(x, 2); math.Abs(float64(got)-0.2) > 1e-6 {
			t.Errorf("centre row x=%d = %v, want 0.2", x, got)
		}
		if k.At(x, 0) != 0 {
			t.Errorf("row 0 x=%d should be zero", x)
		}
	}
}

func TestKernelRejectsBadRadius(t *testing.T) {
	if _, err := GaussianKernel(0); err == nil {
		t.Error("GaussianKernel(0) should fail")
	}
	if _, err := DirectionalKernel(-1, 0); err == nil {
		t.Error("DirectionalKernel(-1) should fail")
	}
}

func TestPresets(t *testing.T) {
	k, ok := PresetKernel(PresetSharpen)
	if !ok || k.At(1, 1) != 5 || k.Sum() != 1 {
		t.Errorf("sharpen = %v", k.Weights)
	}
	if _, ok := PresetKernel(PresetCustom); ok {
		t.Error("custom has no preset kernel")
	}

	p, err := ParsePreset("Edge-Enhance")
	if err != nil || p != PresetEdgeEnhance {
		t.Errorf("ParsePreset = %v, %v", p, err)
	}
	if _, err := ParsePreset("blurry"); err == nil {
		t.Error("unknown preset should fail")
	}
}

func TestConvolveIdentityKeepsPixels(t *testing.T) {
	data := []byte{10, 20, 30, 40, 50, 60, 70, 80, 90}
	src, err := buffer.FromBytes(3, 3, 1, data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer src.Close()

	out, err := Convolve(src, Identity(3))
	if err != nil {
		t.Fatalf("Convolve: %v", err)
	}
	defer out.Close()

	got, _ := out.Bytes()
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("pixel %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestBlurKeepsUniformImage(t *testing.T) {
	data := make([]byte, 8*8*3)
	for i := range data {
		data[i] = 100
	}
	src, _ := buffer.FromBytes(8, 8, 3, data)
	defer src.Close()

	out, err := GaussianBlur(src, 2)
	if err != nil {
		t.Fatalf("GaussianBlur: %v", err)
	}
	defer out.Close()

	if !out.SameShape(src) {
		t.Fatalf("shape changed: %v vs %v", out, src)
	}
	got, _ := out.Bytes()
	for i, v := range got {
		if v < 99 || v > 101 {
			t.Fatalf("pixel %d = %d, want 100", i, v)
		}
	}
}

func TestConvolveEmpty(t *testing.T) {
	if _, err := Convolve(nil, Identity(3)); err == nil {
		t.Error("Convolve(nil) should fail")
	}
}

func TestBrightnessContrastWhite(t *testing.T) {
	src, _ := buffer.FromBytes(2, 2, 3, []byte{
		255, 255, 255, 255, 255, 255,
		255, 255, 255, 255, 255, 255,
	})
	defer src.Close()

	out, err := BrightnessContrast(src, 0.5, 0)
	if err != nil {
		t.Fatalf("BrightnessContrast: %v", err)
	}
	defer out.Close()

	got, _ := out.Bytes()
	for i, v := range got {
		// 127.5 rounds to even in OpenCV's saturate_cast
		if v != 127 && v != 128 {
			t.Fatalf("sample %d = %d, want 127 or 128", i, v)
		}
	}
}

func TestBrightnessSaturates(t *testing.T) {
	src, _ := buffer.FromBytes(1, 1, 1, []byte{200})
	defer src.Close()

	out, _ := BrightnessContrast(src, 1, 100)
	defer out.Close()

	if v, _ := out.ByteAt(0, 0, 0); v != 255 {
		t.Errorf("saturated = %d, want 255", v)
	}
}

func TestKernelPreviewStretches(t *testing.T) {
	k, _ := PresetKernel(PresetSharpen)
	img, err := KernelPreview(k, 4)
	if err != nil {
		t.Fatalf("KernelPreview: %v", err)
	}
	defer img.Close()

	if img.Width() != 12 || img.Height() != 12 {
		t.Fatalf("preview size = %v", img.Size())
	}
	centre, _ := img.ByteAt(5, 5, 0)
	corner, _ := img.ByteAt(0, 4, 0)
	if centre != 255 || corner != 0 {
		t.Errorf("centre = %d corner = %d, want 255 and 0", centre, corner)
	}
}

func TestDetectEdgesSobel(t *testing.T) {
	// left half black, right half white
	data := make([]byte, 8*8)
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			data[y*8+x] = 255
		}
	}
	src, _ := buffer.FromBytes(8, 8, 1, data)
	defer src.Close()

	out, err := DetectEdges(src, Sobel{KernelSize: 3}, EdgeOptions{})
	if err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}
	defer out.Close()

	edge, _ := out.ByteAt(4, 4, 0)
	flat, _ := out.ByteAt(1, 4, 0)
	if edge == 0 || flat != 0 {
		t.Errorf("edge = %d flat = %d, want edge > 0 and flat 0", edge, flat)
	}

	if _, err := DetectEdges(src, Sobel{KernelSize: 4}, EdgeOptions{}); err == nil {
		t.Error("Sobel size 4 should be rejected")
	}
}

func TestDetectEdgesOverlayKeepsChannels(t *testing.T) {
	src, _ := buffer.New(6, 6, 3, buffer.Uint8)
	defer src.Close()

	out, err := DetectEdges(src, Canny{Low: 50, High: 150}, EdgeOptions{Overlay: true, Soften: true})
	if err != nil {
		t.Fatalf("DetectEdges: %v", err)
	}
	defer out.Close()

	if out.Channels() != 3 {
		t.Errorf("channels = %d, want 3", out.Channels())
	}
}
