package nodes

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/codec"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/processing/channels"
	"pixelgraph/internal/processing/composite"
	"pixelgraph/internal/processing/filters"
	"pixelgraph/internal/processing/noise"
	"pixelgraph/internal/processing/threshold"
)

func filled(t *testing.T, w, h, c int, v byte) *buffer.Buffer {
	t.Helper()
	data := make([]byte, w*h*c)
	for i := range data {
		data[i] = v
	}
	buf, err := buffer.FromBytes(w, h, c, data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return buf
}

type fakeDecoder struct {
	buf   *buffer.Buffer
	err   error
	calls int
}

func (d *fakeDecoder) Decode(string) (*buffer.Buffer, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.buf.Clone(), nil
}

type fakeEncoder struct {
	paths   []string
	formats []codec.Format
	err     error
}

func (e *fakeEncoder) Encode(buf *buffer.Buffer, path string, format codec.Format, quality int) error {
	if e.err != nil {
		return e.err
	}
	e.paths = append(e.paths, path)
	e.formats = append(e.formats, format)
	return nil
}

func TestBrightnessContrastWhite(t *testing.T) {
	src := filled(t, 2, 2, 3, 255)
	defer src.Close()

	n := NewBrightnessContrast("bc", nil)
	defer n.Close()
	n.SetInput(src)
	if err := n.SetParams(0.5, 0); err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	n.Process()

	out := n.Output()
	defer out.Close()
	if out.Width() != 2 || out.Height() != 2 || out.Channels() != 3 {
		t.Fatalf("out = %v, want 2x2 3ch", out)
	}
	got, _ := out.Bytes()
	for i, v := range got {
		if v != 127 && v != 128 {
			t.Fatalf("sample %d = %d, want 127 or 128", i, v)
		}
	}

	if err := n.SetParams(-1, 0); err == nil {
		t.Error("negative alpha should be rejected")
	}
	if n.Alpha() != 0.5 {
		t.Errorf("alpha = %v after rejected set, want 0.5", n.Alpha())
	}
}

func TestSetInputClones(t *testing.T) {
	src := filled(t, 2, 2, 1, 9)

	n := NewBrightnessContrast("bc", nil)
	defer n.Close()
	n.SetInput(src)
	src.Close()

	out := n.Output()
	defer out.Close()
	if v, _ := out.ByteAt(1, 1, 0); v != 9 {
		t.Errorf("pixel = %d, want 9", v)
	}
}

func TestMissingInputLogsAndEmpties(t *testing.T) {
	var logs bytes.Buffer
	log := logger.NewWithWriter(&logs, logger.DebugLevel, logger.FormatJSON)

	n := NewBlur("b", log)
	defer n.Close()
	n.Process()

	if out := n.Output(); !out.Empty() {
		t.Errorf("output = %v, want empty", out)
	}
	if !strings.Contains(logs.String(), "no input image") || !strings.Contains(logs.String(), "blur_b") {
		t.Errorf("missing diagnostic, logs: %s", logs.String())
	}
}

func TestOutputRecomputesAfterSetter(t *testing.T) {
	src := filled(t, 1, 1, 1, 100)
	defer src.Close()

	n := NewBrightnessContrast("bc", nil)
	defer n.Close()
	n.SetInput(src)
	n.Process()

	n.SetParams(1, 50)
	if !n.Dirty() {
		t.Fatal("setter should mark the node dirty")
	}
	out := n.Output()
	defer out.Close()
	if v, _ := out.ByteAt(0, 0, 0); v != 150 {
		t.Errorf("pixel = %d, want 150", v)
	}
	if n.Dirty() {
		t.Error("node still dirty after Output")
	}
}

func TestIdentity(t *testing.T) {
	n := NewThreshold("seg", nil)
	if n.ID() != "threshold_seg" || n.Name() != "seg" || n.Kind() != KindThreshold {
		t.Errorf("identity = %s %s %v", n.ID(), n.Name(), n.Kind())
	}
	if KindNoise.String() != "noise-generator" {
		t.Errorf("kind = %v", KindNoise)
	}
}

func TestThresholdTwoBands(t *testing.T) {
	data := make([]byte, 16)
	for y := 0; y < 4; y++ {
		data[y*4+2], data[y*4+3] = 255, 255
	}
	src, _ := buffer.FromBytes(4, 4, 1, data)
	defer src.Close()

	n := NewThreshold("seg", nil)
	defer n.Close()
	n.SetInput(src)
	if err := n.SetMethod(threshold.Binary{Value: 127}); err != nil {
		t.Fatalf("SetMethod: %v", err)
	}
	n.Process()

	out := n.Output()
	defer out.Close()
	got, _ := out.Bytes()
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("pixel %d = %d, want %d", i, got[i], data[i])
		}
	}

	if err := n.SetMethod(threshold.Binary{Value: 300}); err == nil {
		t.Error("value 300 should be rejected")
	}
	n.SetMethod(threshold.Otsu{})
	if lvl := n.OtsuLevel(); lvl < 0 || lvl >= 255 {
		t.Errorf("otsu level = %v", lvl)
	}
	h := n.Histogram()
	if h[0] != 8 || h[255] != 8 {
		t.Errorf("histogram = %d/%d", h[0], h[255])
	}
}

func TestConvolutionKernelRules(t *testing.T) {
	n := NewConvolution("c", nil)
	defer n.Close()

	if err := n.SetKernelSize(4); err == nil {
		t.Error("size 4 should be rejected")
	}
	if n.KernelSize() != 3 || n.Preset() != filters.PresetSharpen {
		t.Errorf("rejected size changed state: %d %v", n.KernelSize(), n.Preset())
	}

	if err := n.SetKernelSize(5); err != nil {
		t.Fatalf("SetKernelSize(5): %v", err)
	}
	k := n.Kernel()
	if k.Size != 5 || k.At(2, 2) != 1 || k.Sum() != 1 || n.Preset() != filters.PresetCustom {
		t.Errorf("size change should reset to 5x5 identity, got %v preset %v", k.Weights, n.Preset())
	}

	if err := n.SetCustomKernel(make([]float32, 9)); err == nil {
		t.Error("9 weights for a 5x5 kernel should be rejected")
	}
	if n.Kernel().At(2, 2) != 1 {
		t.Error("rejected custom kernel replaced the previous one")
	}

	n.SetPreset(filters.PresetEmboss)
	if got := n.Kernel(); got.Size != 3 || got.At(0, 0) != -2 {
		t.Errorf("emboss kernel = %v", got.Weights)
	}
}

func TestConvolutionCustomAppliesIdentity(t *testing.T) {
	src, _ := buffer.FromBytes(3, 1, 1, []byte{1, 2, 3})
	defer src.Close()

	n := NewConvolution("c", nil)
	defer n.Close()
	n.SetInput(src)
	n.SetCustomKernel([]float32{0, 0, 0, 0, 1, 0, 0, 0, 0})

	out := n.Output()
	defer out.Close()
	got, _ := out.Bytes()
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("out = %v, want [1 2 3]", got)
	}
}

func TestBlendSlots(t *testing.T) {
	a := filled(t, 4, 4, 3, 0)
	defer a.Close()
	b := filled(t, 2, 2, 3, 255)
	defer b.Close()

	n := NewBlend("mix", nil)
	defer n.Close()

	if err := n.SetInputAt(2, a); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("slot 2 err = %v, want ErrInvalidSlot", err)
	}
	n.SetInputAt(SlotBase, a)

	if out := n.Output(); !out.Empty() {
		t.Error("blend without layer should be empty")
	}

	n.SetInputAt(SlotLayer, b)
	n.SetOpacity(7)
	if n.Opacity() != 1 {
		t.Errorf("opacity = %v, want clamped 1", n.Opacity())
	}
	n.SetMode(composite.Normal)

	out := n.Output()
	defer out.Close()
	if out.Width() != 4 {
		t.Fatalf("out = %v, want base size", out)
	}
	if v, _ := out.ByteAt(3, 3, 1); v != 255 {
		t.Errorf("normal at opacity 1 = %d, want 255", v)
	}

	n.SetOpacity(0)
	zero := n.Output()
	defer zero.Close()
	if v, _ := zero.ByteAt(0, 0, 0); v != 0 {
		t.Errorf("opacity 0 = %d, want base 0", v)
	}

	if err := n.SetMode(composite.Mode(42)); err == nil {
		t.Error("unknown mode should be rejected")
	}
}

func TestSplitterChannelsAndMerge(t *testing.T) {
	src, _ := buffer.FromBytes(1, 2, 3, []byte{10, 20, 30, 40, 50, 60})
	defer src.Close()

	n := NewChannelSplitter("s", nil)
	defer n.Close()
	n.SetInput(src)

	red := n.Channel(channels.Red)
	defer red.Close()
	if v, _ := red.ByteAt(0, 1, 0); v != 60 {
		t.Errorf("red = %d, want 60", v)
	}
	if n.Channel(channels.Alpha) != nil {
		t.Error("no alpha for BGR input")
	}

	merged := n.MergeChannels()
	defer merged.Close()
	got, _ := merged.Bytes()
	if got[0] != 10 || got[5] != 60 {
		t.Errorf("merged = %v", got)
	}

	out := n.Output()
	if out.Channels() != 3 {
		t.Errorf("colour mode output channels = %d, want 3", out.Channels())
	}
	out.Close()

	n.SetGrayscale(true)
	gray := n.Output()
	defer gray.Close()
	if gray.Channels() != 1 {
		t.Errorf("grayscale mode output channels = %d, want 1", gray.Channels())
	}
	if g := n.Grayscale(); g.Empty() {
		t.Error("grayscale side result missing")
	} else {
		g.Close()
	}
}

func TestSplitterMergeWithoutInput(t *testing.T) {
	n := NewChannelSplitter("s", nil)
	if n.MergeChannels() != nil {
		t.Error("merge without planes should return nil")
	}
}

func TestSplitterExport(t *testing.T) {
	src := filled(t, 2, 2, 4, 80)
	defer src.Close()

	n := NewChannelSplitter("s", nil)
	defer n.Close()
	n.SetInput(src)
	n.SetGrayscale(true)

	enc := &fakeEncoder{}
	dir := t.TempDir()
	if err := n.ExportChannels(dir, enc); err != nil {
		t.Fatalf("ExportChannels: %v", err)
	}
	if len(enc.paths) != 5 {
		t.Fatalf("wrote %d files, want 5: %v", len(enc.paths), enc.paths)
	}
	if enc.paths[3] != filepath.Join(dir, "alpha.png") {
		t.Errorf("alpha path = %s", enc.paths[3])
	}
}

func TestSplitterRenderShowsPlanes(t *testing.T) {
	src := filled(t, 2, 2, 3, 1)
	defer src.Close()

	n := NewChannelSplitter("s", nil)
	defer n.Close()
	n.SetInput(src)

	rec := &preview.Recorder{}
	n.Render(rec)
	want := []string{"splitter_s", "splitter_s red", "splitter_s green", "splitter_s blue"}
	if strings.Join(rec.Labels, ",") != strings.Join(want, ",") {
		t.Errorf("labels = %v, want %v", rec.Labels, want)
	}
}

func TestBlurRenderShowsKernel(t *testing.T) {
	src := filled(t, 4, 4, 1, 50)
	defer src.Close()

	n := NewBlur("b", nil)
	defer n.Close()
	n.SetInput(src)
	if err := n.SetRadius(0); err == nil {
		t.Error("radius 0 should be rejected")
	}
	n.SetRadius(1)
	n.SetDirectional(true)
	n.SetAngle(90)

	rec := &preview.Recorder{}
	n.Render(rec)
	if len(rec.Labels) != 2 || rec.Labels[1] != "blur_b kernel" {
		t.Errorf("labels = %v", rec.Labels)
	}
	if k := n.Kernel(); k.At(1, 0) == 0 || k.At(0, 1) != 0 {
		t.Errorf("vertical kernel = %v", k.Weights)
	}
}

func TestNoiseNode(t *testing.T) {
	src := filled(t, 8, 6, 3, 100)
	defer src.Close()

	n := NewNoise("n", nil)
	defer n.Close()
	n.SetInput(src)

	p := noise.DefaultParams()
	p.Octaves = 0
	if err := n.SetParams(p); err == nil {
		t.Error("zero octaves should be rejected")
	}
	p.Octaves = 2
	p.Scale = 3
	p.Generator = noise.Simplex{}
	if err := n.SetParams(p); err != nil {
		t.Fatalf("SetParams: %v", err)
	}

	out := n.Output()
	if out.Width() != 8 || out.Height() != 6 {
		t.Errorf("overlay = %v", out)
	}
	out.Close()

	n.SetDisplace(true)
	disp := n.Output()
	defer disp.Close()
	if !disp.SameShape(src) {
		t.Errorf("displaced = %v, want %v", disp, src)
	}
}

func TestEdgeNodeRejectsBadSobel(t *testing.T) {
	n := NewEdge("e", nil)
	if err := n.SetMethod(filters.Sobel{KernelSize: 2}); err == nil {
		t.Error("Sobel size 2 should be rejected")
	}
	if n.Method() != (filters.Sobel{KernelSize: 3}) {
		t.Errorf("method = %v", n.Method())
	}

	src := filled(t, 5, 5, 3, 10)
	defer src.Close()
	n.SetInput(src)
	n.SetMethod(filters.Canny{Low: 10, High: 30})
	n.SetOverlay(true)
	out := n.Output()
	defer out.Close()
	if out.Channels() != 3 {
		t.Errorf("overlay channels = %d, want 3", out.Channels())
	}
}

func TestInputNode(t *testing.T) {
	img := filled(t, 3, 3, 3, 200)
	defer img.Close()
	dec := &fakeDecoder{buf: img}

	n := NewInput("in", "photo.png", dec, nil)
	defer n.Close()

	out := n.Output()
	if out.Channels() != 3 || dec.calls != 1 {
		t.Errorf("out = %v calls = %d", out, dec.calls)
	}
	out.Close()

	n.SetGrayscale(true)
	gray := n.Output()
	defer gray.Close()
	if gray.Channels() != 1 {
		t.Errorf("grayscale channels = %d", gray.Channels())
	}

	failing := NewInput("bad", "missing.png", &fakeDecoder{err: codec.ErrDecode}, nil)
	if out := failing.Output(); !out.Empty() {
		t.Error("failed decode should leave output empty")
	}
}

func TestOutputNodeWrites(t *testing.T) {
	src := filled(t, 2, 2, 3, 1)
	defer src.Close()

	enc := &fakeEncoder{}
	n := NewOutput("out", filepath.Join("results", "final"), enc, nil)
	defer n.Close()
	n.SetFormat(codec.FormatJPEG)
	n.SetQuality(500)
	n.SetInput(src)
	n.Process()

	if n.Err() != nil {
		t.Fatalf("Err = %v", n.Err())
	}
	if n.Quality() != 100 {
		t.Errorf("quality = %d, want 100", n.Quality())
	}
	want := filepath.Join("results", "final.jpg")
	if len(enc.paths) != 1 || enc.paths[0] != want || n.Written() != want {
		t.Errorf("paths = %v, want [%s]", enc.paths, want)
	}

	out := n.Output()
	defer out.Close()
	if !out.SameShape(src) {
		t.Error("output node should pass its input through")
	}

	if err := n.SetFormat("gif89"); err == nil {
		t.Error("unknown format should be rejected")
	}
}

func TestOutputNodeReportsEncodeFailure(t *testing.T) {
	src := filled(t, 2, 2, 3, 1)
	defer src.Close()

	n := NewOutput("out", "x.png", &fakeEncoder{err: codec.ErrEncode}, nil)
	defer n.Close()
	n.SetInput(src)
	n.Process()

	if !errors.Is(n.Err(), codec.ErrEncode) {
		t.Errorf("Err = %v, want ErrEncode", n.Err())
	}
}

func TestOutputNodeRealCodec(t *testing.T) {
	src := filled(t, 3, 2, 3, 42)
	defer src.Close()

	path := filepath.Join(t.TempDir(), "real")
	n := NewOutput("out", path, codec.NewOpenCV(nil), nil)
	defer n.Close()
	n.SetFormat(codec.FormatPNG)
	n.SetInput(src)
	n.Process()

	if n.Err() != nil {
		t.Fatalf("Err = %v", n.Err())
	}
	if _, err := os.Stat(path + ".png"); err != nil {
		t.Errorf("file not written: %v", err)
	}
}
