package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"pixelgraph/internal/buffer"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/nodes"
	"pixelgraph/internal/preview"
	"pixelgraph/internal/processing/composite"
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

func source(t *testing.T, name string, v byte, log logger.Logger) *nodes.InputNode {
	t.Helper()
	img := filled(t, 4, 4, 3, v)
	defer img.Close()

	n := nodes.NewInput(name, "", nil, log)
	n.SetInput(img)
	return n
}

func testLogger() (*bytes.Buffer, logger.Logger) {
	var out bytes.Buffer
	return &out, logger.NewWithWriter(&out, logger.DebugLevel, logger.FormatJSON)
}

func TestConnectUnknownNode(t *testing.T) {
	g := New(nil)
	defer g.Clear()

	a := nodes.NewBrightnessContrast("a", nil)
	stray := nodes.NewBrightnessContrast("stray", nil)
	defer stray.Close()
	g.AddNode(a)

	if err := g.Connect(a, stray); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Connect to stray = %v, want ErrUnknownNode", err)
	}
	if err := g.Connect(stray, a); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Connect from stray = %v, want ErrUnknownNode", err)
	}
	if n := len(g.Connections()); n != 0 {
		t.Errorf("connections = %d, want 0", n)
	}
}

func TestConnectInvalidSlot(t *testing.T) {
	g := New(nil)
	defer g.Clear()

	a := nodes.NewBrightnessContrast("a", nil)
	b := nodes.NewBrightnessContrast("b", nil)
	blend := nodes.NewBlend("mix", nil)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(blend)

	if err := g.ConnectAt(a, b, 1); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("slot 1 on single-input node = %v", err)
	}
	if err := g.ConnectAt(a, blend, 2); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("slot 2 on blend = %v", err)
	}
	if err := g.ConnectAt(a, blend, nodes.SlotLayer); err != nil {
		t.Errorf("layer slot: %v", err)
	}
	if n := len(g.Connections()); n != 1 {
		t.Errorf("connections = %d, want 1", n)
	}
}

func TestRunInsertionOrderPropagates(t *testing.T) {
	logs, log := testLogger()
	g := New(log)
	defer g.Clear()

	src := source(t, "src", 200, log)
	bc := nodes.NewBrightnessContrast("bc", log)
	if err := bc.SetParams(0.5, 0); err != nil {
		t.Fatalf("SetParams: %v", err)
	}
	g.AddNode(src)
	g.AddNode(bc)
	if err := g.Connect(src, bc); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	rec := &preview.Recorder{}
	g.SetSink(rec)
	stats := g.Run()

	// bc ran before the edge was propagated
	if !strings.Contains(logs.String(), "no input image") {
		t.Error("expected a missing-input warning on the first pass")
	}

	if stats.Nodes != 2 || stats.Edges != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.EmptyOutputs != 0 {
		t.Errorf("empty outputs = %d, want 0 after render refresh", stats.EmptyOutputs)
	}

	out := bc.Output()
	defer out.Close()
	if v, _ := out.ByteAt(0, 0, 0); v != 100 {
		t.Errorf("bc pixel = %d, want 100", v)
	}

	if rec.Waits != 1 {
		t.Errorf("waits = %d, want 1", rec.Waits)
	}
	want := []string{"input_src", "bc_bc"}
	if len(rec.Labels) != len(want) {
		t.Fatalf("labels = %v, want %v", rec.Labels, want)
	}
	for i := range want {
		if rec.Labels[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, rec.Labels[i], want[i])
		}
	}
}

func TestRunTopologicalFeedsBeforeProcessing(t *testing.T) {
	logs, log := testLogger()
	g := New(log)
	g.SetMode(ModeTopological)
	defer g.Clear()

	// downstream nodes are added first on purpose
	blend := nodes.NewBlend("mix", log)
	if err := blend.SetMode(composite.Multiply); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	bc := nodes.NewBrightnessContrast("bc", log)
	src := source(t, "src", 255, log)
	g.AddNode(blend)
	g.AddNode(bc)
	g.AddNode(src)

	for _, err := range []error{
		g.Connect(src, bc),
		g.ConnectAt(bc, blend, nodes.SlotBase),
		g.ConnectAt(src, blend, nodes.SlotLayer),
	} {
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	}

	stats := g.Run()
	if strings.Contains(logs.String(), "no input image") {
		t.Error("topological run should never process a node without its input")
	}
	if stats.EmptyOutputs != 0 {
		t.Errorf("empty outputs = %d", stats.EmptyOutputs)
	}

	out := blend.Output()
	defer out.Close()
	if v, _ := out.ByteAt(1, 1, 2); v != 255 {
		t.Errorf("multiply of white by white = %d, want 255", v)
	}
	if len(g.Timing().GetTimings("blend_mix")) != 1 {
		t.Error("blend should have been timed once")
	}
}

func TestRunTopologicalCycle(t *testing.T) {
	logs, log := testLogger()
	g := New(log)
	g.SetMode(ModeTopological)
	defer g.Clear()

	a := nodes.NewBrightnessContrast("a", log)
	b := nodes.NewBrightnessContrast("b", log)
	g.AddNode(a)
	g.AddNode(b)
	_ = g.Connect(a, b)
	_ = g.Connect(b, a)

	stats := g.Run()
	if !strings.Contains(logs.String(), "cycle detected") {
		t.Error("expected a cycle warning")
	}
	if stats.EmptyOutputs != 2 {
		t.Errorf("empty outputs = %d, want 2", stats.EmptyOutputs)
	}
}

func TestTopologicalOrderTiebreak(t *testing.T) {
	g := New(nil)
	defer g.Clear()

	a := nodes.NewBrightnessContrast("a", nil)
	b := nodes.NewBrightnessContrast("b", nil)
	c := nodes.NewBrightnessContrast("c", nil)
	d := nodes.NewBrightnessContrast("d", nil)
	for _, n := range []nodes.Node{a, b, c, d} {
		g.AddNode(n)
	}
	_ = g.Connect(c, a)
	_ = g.Connect(d, b)

	order, leftover := g.topologicalOrder()
	if len(leftover) != 0 {
		t.Fatalf("leftover = %d", len(leftover))
	}
	want := []string{"bc_c", "bc_a", "bc_d", "bc_b"}
	for i, n := range order {
		if n.ID() != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, n.ID(), want[i])
		}
	}
}

func TestRemoveNodeDropsConnections(t *testing.T) {
	g := New(nil)
	defer g.Clear()

	a := nodes.NewBrightnessContrast("a", nil)
	b := nodes.NewBrightnessContrast("b", nil)
	c := nodes.NewBrightnessContrast("c", nil)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	_ = g.Connect(a, b)
	_ = g.Connect(b, c)
	_ = g.Connect(a, c)

	if err := g.RemoveNode(b); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	defer b.Close()

	if n := len(g.Nodes()); n != 2 {
		t.Errorf("nodes = %d, want 2", n)
	}
	conns := g.Connections()
	if len(conns) != 1 || conns[0].From != a || conns[0].To != c {
		t.Errorf("connections = %+v", conns)
	}
	if _, ok := g.Node("bc_b"); ok {
		t.Error("removed node still found by ID")
	}
	if err := g.RemoveNode(b); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("second remove = %v", err)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":            ModeInsertionOrder,
		"insertion":   ModeInsertionOrder,
		"Topological": ModeTopological,
	} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("random"); err == nil {
		t.Error("unknown mode should fail")
	}
}
