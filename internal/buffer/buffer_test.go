package buffer

import (
	"errors"
	"testing"
)

type countingTracker struct {
	allocs   int
	releases int
}

func (c *countingTracker) TrackAllocation(id uint64, size int64, tag string) { c.allocs++ }
func (c *countingTracker) TrackDeallocation(id uint64, tag string)          { c.releases++ }

func TestNewIsZeroFilled(t *testing.T) {
	buf, err := New(4, 3, 3, Uint8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	if buf.Width() != 4 || buf.Height() != 3 || buf.Channels() != 3 {
		t.Fatalf("shape = %dx%dx%d, want 4x3x3", buf.Width(), buf.Height(), buf.Channels())
	}
	if buf.PixelType() != Uint8 {
		t.Errorf("pixel type = %v, want uint8", buf.PixelType())
	}
	data, err := buf.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("sample %d = %d, want 0", i, v)
		}
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6}
	buf, err := FromBytes(3, 2, 1, in)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	defer buf.Close()

	out, err := buf.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}

	v, err := buf.ByteAt(2, 1, 0)
	if err != nil {
		t.Fatalf("ByteAt: %v", err)
	}
	if v != 6 {
		t.Errorf("ByteAt(2,1) = %d, want 6", v)
	}

	// the caller's slice is not aliased
	in[0] = 99
	if got, _ := buf.ByteAt(0, 0, 0); got != 1 {
		t.Errorf("buffer aliases caller memory: got %d", got)
	}
}

func TestFromBytesRejectsBadLength(t *testing.T) {
	_, err := FromBytes(2, 2, 3, make([]byte, 5))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestFromFloats(t *testing.T) {
	buf, err := FromFloats(2, 1, 1, []float32{0.25, 0.75})
	if err != nil {
		t.Fatalf("FromFloats: %v", err)
	}
	defer buf.Close()

	if buf.PixelType() != Float32 {
		t.Fatalf("pixel type = %v, want float32", buf.PixelType())
	}
	vals, err := buf.Floats()
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if vals[0] != 0.25 || vals[1] != 0.75 {
		t.Errorf("values = %v, want [0.25 0.75]", vals)
	}
	if _, err := buf.Bytes(); !errors.Is(err, ErrInvalidPixelType) {
		t.Errorf("Bytes on float buffer err = %v, want ErrInvalidPixelType", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	buf, err := FromBytes(1, 1, 1, []byte{42})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	clone := buf.Clone()
	buf.Close()
	defer clone.Close()

	if clone.Empty() {
		t.Fatal("clone became empty after closing the original")
	}
	if v, _ := clone.ByteAt(0, 0, 0); v != 42 {
		t.Errorf("clone value = %d, want 42", v)
	}
}

func TestEmptySentinels(t *testing.T) {
	var nilBuf *Buffer
	if !nilBuf.Empty() {
		t.Error("nil buffer should be empty")
	}
	if nilBuf.Clone() != nil {
		t.Error("clone of nil buffer should be nil")
	}
	if nilBuf.Width() != 0 || nilBuf.Height() != 0 {
		t.Error("nil buffer should have zero size")
	}
	nilBuf.Close()

	buf, err := New(2, 2, 1, Uint8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf.Close()
	if !buf.Empty() {
		t.Error("closed buffer should be empty")
	}
	buf.Close()

	if err := ValidateForOperation(buf, "test"); !errors.Is(err, ErrEmpty) {
		t.Errorf("ValidateForOperation err = %v, want ErrEmpty", err)
	}
}

func TestMatTypeRejectsUnsupported(t *testing.T) {
	if _, err := MatType(2, Uint8); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("2 channels err = %v, want ErrInvalidChannels", err)
	}
	if _, err := MatType(3, PixelType(9)); !errors.Is(err, ErrInvalidPixelType) {
		t.Errorf("bad pixel type err = %v, want ErrInvalidPixelType", err)
	}
	if _, err := New(0, 4, 1, Uint8); err == nil {
		t.Error("zero width should be rejected")
	}
}

func TestValidateChannels(t *testing.T) {
	buf, err := New(2, 2, 1, Uint8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	if err := ValidateChannels(buf, "split", 3, 4); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("err = %v, want ErrInvalidChannels", err)
	}
	if err := ValidateChannels(buf, "gray", 1); err != nil {
		t.Errorf("unexpected err: %v", err)
	}
}

func TestTrackerSeesAllocationsAndReleases(t *testing.T) {
	tr := &countingTracker{}
	SetTracker(tr)
	defer SetTracker(nil)

	buf, err := New(2, 2, 3, Uint8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clone := buf.Clone()
	buf.Close()
	clone.Close()

	if tr.allocs != 2 {
		t.Errorf("allocations = %d, want 2", tr.allocs)
	}
	if tr.releases != 2 {
		t.Errorf("releases = %d, want 2", tr.releases)
	}
}
