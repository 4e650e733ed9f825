// Package buffer holds the image value passed between graph nodes.
//
// A Buffer wraps a gocv.Mat with a fixed width, height, channel count and
// pixel type. Buffers are immutable by convention: the node that produced a
// buffer owns it, and consumers receive clones. A nil, closed or zero-sized
// buffer is the "no data" sentinel and reports Empty() == true.
package buffer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// PixelType is the element type of a buffer's samples.
type PixelType int

const (
	Uint8 PixelType = iota
	Float32
)

func (p PixelType) String() string {
	switch p {
	case Uint8:
		return "uint8"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("PixelType(%d)", int(p))
	}
}

// Size returns the number of bytes one sample occupies.
func (p PixelType) Size() int {
	if p == Float32 {
		return 4
	}
	return 1
}

var (
	ErrEmpty            = errors.New("buffer is empty")
	ErrInvalidChannels  = errors.New("unsupported channel count")
	ErrInvalidPixelType = errors.New("unsupported pixel type")
	ErrSizeMismatch     = errors.New("data length does not match dimensions")
)

// MemoryTracker receives allocation and release notifications for every buffer.
type MemoryTracker interface {
	TrackAllocation(id uint64, size int64, tag string)
	TrackDeallocation(id uint64, tag string)
}

var (
	nextID uint64

	trackerMu sync.RWMutex
	tracker   MemoryTracker
)

// SetTracker installs the process-wide memory tracker. Passing nil disables tracking.
func SetTracker(t MemoryTracker) {
	trackerMu.Lock()
	defer trackerMu.Unlock()
	tracker = t
}

func currentTracker() MemoryTracker {
	trackerMu.RLock()
	defer trackerMu.RUnlock()
	return tracker
}

type Buffer struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	id      uint64
	tag     string
	tracker MemoryTracker
}

// MatType maps a channel count and pixel type to the OpenCV matrix type.
func MatType(channels int, pt PixelType) (gocv.MatType, error) {
	switch pt {
	case Uint8:
		switch channels {
		case 1:
			return gocv.MatTypeCV8UC1, nil
		case 3:
			return gocv.MatTypeCV8UC3, nil
		case 4:
			return gocv.MatTypeCV8UC4, nil
		}
	case Float32:
		switch channels {
		case 1:
			return gocv.MatTypeCV32FC1, nil
		case 3:
			return gocv.MatTypeCV32FC3, nil
		case 4:
			return gocv.MatTypeCV32FC4, nil
		}
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidPixelType, pt)
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
}

// New allocates a zero-filled buffer.
func New(width, height, channels int, pt PixelType) (*Buffer, error) {
	if err := ValidateDimensions(width, height, "allocate"); err != nil {
		return nil, err
	}
	mt, err := MatType(channels, pt)
	if err != nil {
		return nil, err
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, mt)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", width, height)
	}

	return adopt(mat, "new"), nil
}

// FromBytes builds an 8-bit buffer from interleaved samples in row-major order.
// Multi-channel data is expected in BGR(A) order, as OpenCV stores it.
func FromBytes(width, height, channels int, data []byte) (*Buffer, error) {
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("%w: got %d bytes for %dx%dx%d", ErrSizeMismatch, len(data), width, height, channels)
	}
	buf, err := New(width, height, channels, Uint8)
	if err != nil {
		return nil, err
	}
	dst, err := buf.mat.DataPtrUint8()
	if err != nil {
		buf.Close()
		return nil, fmt.Errorf("failed to access buffer data: %w", err)
	}
	copy(dst, data)
	return buf, nil
}

// FromFloats builds a float32 buffer from interleaved samples in row-major order.
func FromFloats(width, height, channels int, data []float32) (*Buffer, error) {
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("%w: got %d samples for %dx%dx%d", ErrSizeMismatch, len(data), width, height, channels)
	}
	buf, err := New(width, height, channels, Float32)
	if err != nil {
		return nil, err
	}
	dst, err := buf.mat.DataPtrFloat32()
	if err != nil {
		buf.Close()
		return nil, fmt.Errorf("failed to access buffer data: %w", err)
	}
	copy(dst, data)
	return buf, nil
}

// FromMat clones src into a new buffer. The caller keeps ownership of src.
func FromMat(src gocv.Mat, tag string) (*Buffer, error) {
	if src.Empty() {
		return nil, fmt.Errorf("source Mat: %w", ErrEmpty)
	}
	if src.Rows() <= 0 || src.Cols() <= 0 {
		return nil, fmt.Errorf("source Mat has invalid dimensions: %dx%d", src.Cols(), src.Rows())
	}

	cloned := src.Clone()
	if cloned.Empty() {
		cloned.Close()
		return nil, fmt.Errorf("failed to clone Mat")
	}
	return adopt(cloned, tag), nil
}

// Adopt takes ownership of mat. An empty mat is closed and nil is returned,
// which callers treat as the empty buffer.
func Adopt(mat gocv.Mat, tag string) *Buffer {
	if mat.Empty() {
		mat.Close()
		return nil
	}
	return adopt(mat, tag)
}

func adopt(mat gocv.Mat, tag string) *Buffer {
	b := &Buffer{
		mat:     mat,
		isValid: 1,
		id:      atomic.AddUint64(&nextID, 1),
		tag:     tag,
		tracker: currentTracker(),
	}

	if b.tracker != nil {
		b.tracker.TrackAllocation(b.id, int64(mat.Total())*int64(mat.ElemSize()), tag)
	}

	runtime.SetFinalizer(b, (*Buffer).finalize)
	return b
}

func (b *Buffer) IsValid() bool {
	return b != nil && atomic.LoadInt32(&b.isValid) == 1
}

// Empty reports whether b carries no pixels.
func (b *Buffer) Empty() bool {
	if !b.IsValid() {
		return true
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mat.Empty() || b.mat.Rows() == 0 || b.mat.Cols() == 0
}

func (b *Buffer) Width() int {
	if b.Empty() {
		return 0
	}
	return b.mat.Cols()
}

func (b *Buffer) Height() int {
	if b.Empty() {
		return 0
	}
	return b.mat.Rows()
}

func (b *Buffer) Channels() int {
	if b.Empty() {
		return 0
	}
	return b.mat.Channels()
}

// Size returns the buffer dimensions as a point (X = width, Y = height).
func (b *Buffer) Size() image.Point {
	return image.Pt(b.Width(), b.Height())
}

func (b *Buffer) PixelType() PixelType {
	if b.Empty() {
		return Uint8
	}
	// the low three bits of an OpenCV type encode its depth
	if int(b.mat.Type())&7 == int(gocv.MatTypeCV32F) {
		return Float32
	}
	return Uint8
}

func (b *Buffer) Type() gocv.MatType {
	if b.Empty() {
		return gocv.MatTypeCV8UC1
	}
	return b.mat.Type()
}

// SameShape reports whether b and other have equal dimensions, channels and pixel type.
func (b *Buffer) SameShape(other *Buffer) bool {
	return b.Width() == other.Width() &&
		b.Height() == other.Height() &&
		b.Channels() == other.Channels() &&
		b.PixelType() == other.PixelType()
}

// Clone returns a deep copy, or nil when b is empty.
func (b *Buffer) Clone() *Buffer {
	if b.Empty() {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	cloned := b.mat.Clone()
	return Adopt(cloned, b.tag+"_clone")
}

// Mat exposes the backing matrix for read-only use by OpenCV calls.
// The matrix stays owned by b; callers must not close or write to it.
func (b *Buffer) Mat() gocv.Mat {
	if !b.IsValid() {
		return gocv.NewMat()
	}
	return b.mat
}

// Bytes returns a copy of the raw samples of an 8-bit buffer.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.Empty() {
		return nil, ErrEmpty
	}
	if b.PixelType() != Uint8 {
		return nil, fmt.Errorf("%w: want uint8, have %v", ErrInvalidPixelType, b.PixelType())
	}
	data, err := b.mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to access buffer data: %w", err)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Floats returns a copy of the raw samples of a float32 buffer.
func (b *Buffer) Floats() ([]float32, error) {
	if b.Empty() {
		return nil, ErrEmpty
	}
	if b.PixelType() != Float32 {
		return nil, fmt.Errorf("%w: want float32, have %v", ErrInvalidPixelType, b.PixelType())
	}
	data, err := b.mat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to access buffer data: %w", err)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// ByteAt returns channel c of the pixel at (x, y) of an 8-bit buffer.
func (b *Buffer) ByteAt(x, y, c int) (uint8, error) {
	if err := ValidateForOperation(b, "ByteAt"); err != nil {
		return 0, err
	}
	if err := ValidateCoordinates(x, y, b, "ByteAt"); err != nil {
		return 0, err
	}
	if c < 0 || c >= b.Channels() {
		return 0, fmt.Errorf("channel %d out of bounds [0, %d)", c, b.Channels())
	}
	if b.PixelType() != Uint8 {
		return 0, fmt.Errorf("%w: want uint8, have %v", ErrInvalidPixelType, b.PixelType())
	}
	data, err := b.mat.DataPtrUint8()
	if err != nil {
		return 0, fmt.Errorf("failed to access buffer data: %w", err)
	}
	return data[(y*b.Width()+x)*b.Channels()+c], nil
}

func (b *Buffer) ID() uint64 {
	if b == nil {
		return 0
	}
	return b.id
}

func (b *Buffer) Tag() string {
	if b == nil {
		return ""
	}
	return b.tag
}

func (b *Buffer) String() string {
	if b.Empty() {
		return "Buffer(empty)"
	}
	return fmt.Sprintf("Buffer(%dx%d, %d ch, %v)", b.Width(), b.Height(), b.Channels(), b.PixelType())
}

// Close releases the native memory. Closing nil or an already closed buffer is a no-op.
func (b *Buffer) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if atomic.CompareAndSwapInt32(&b.isValid, 1, 0) {
		if b.tracker != nil {
			b.tracker.TrackDeallocation(b.id, b.tag)
		}
		b.mat.Close()
		runtime.SetFinalizer(b, nil)
	}
}

// finalize is called by the garbage collector as last resort cleanup
func (b *Buffer) finalize() {
	if atomic.LoadInt32(&b.isValid) == 1 {
		b.Close()
	}
}
