package histogram

import (
	"fmt"
	"math"

	"pixelgraph/internal/buffer"
)

const Bins = 256

// Histogram counts the samples of an 8-bit single-channel image per level.
type Histogram [Bins]int

// Build computes the histogram of an 8-bit, single-channel buffer.
func Build(src *buffer.Buffer) (Histogram, error) {
	var h Histogram
	if err := buffer.ValidateChannels(src, "histogram", 1); err != nil {
		return h, err
	}
	if src.PixelType() != buffer.Uint8 {
		return h, fmt.Errorf("%w: histogram needs uint8, have %v", buffer.ErrInvalidPixelType, src.PixelType())
	}

	data, err := src.Bytes()
	if err != nil {
		return h, err
	}
	for _, v := range data {
		h[v]++
	}
	return h, nil
}

func (h *Histogram) Total() int {
	total := 0
	for _, count := range h {
		total += count
	}
	return total
}

func (h *Histogram) Mean() float64 {
	total := h.Total()
	if total == 0 {
		return 0
	}
	sum := 0.0
	for i, count := range h {
		sum += float64(i) * float64(count)
	}
	return sum / float64(total)
}

// OtsuLevel returns the level t maximising the between-class variance of
// the split {<= t} / {> t}. Ties keep the lowest level. A histogram that
// cannot be split (empty or a single occupied level) yields 0.
func (h *Histogram) OtsuLevel() int {
	total := h.Total()
	if total == 0 {
		return 0
	}

	sum := 0.0
	for i, count := range h {
		sum += float64(i) * float64(count)
	}

	sumB := 0.0
	wB := 0
	maxVariance := 0.0
	best := 0

	for i := 0; i < Bins; i++ {
		wB += h[i]
		if wB == 0 {
			continue
		}

		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += float64(i) * float64(h[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)

		varBetween := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if varBetween > maxVariance {
			maxVariance = varBetween
			best = i
		}
	}

	return best
}

// Normalized returns the bin counts divided by the peak count, for plotting.
func (h *Histogram) Normalized() []float64 {
	peak := 0
	for _, count := range h {
		peak = max(peak, count)
	}
	out := make([]float64, Bins)
	if peak == 0 {
		return out
	}
	for i, count := range h {
		out[i] = float64(count) / float64(peak)
	}
	return out
}

// Render draws the histogram as a white-on-black bar chart of the given height.
func (h *Histogram) Render(height int) (*buffer.Buffer, error) {
	if err := buffer.ValidateDimensions(Bins, height, "histogram render"); err != nil {
		return nil, err
	}

	data := make([]byte, Bins*height)
	for x, v := range h.Normalized() {
		bar := int(math.Round(v * float64(height)))
		for y := height - bar; y < height; y++ {
			data[y*Bins+x] = 255
		}
	}
	return buffer.FromBytes(Bins, height, 1, data)
}
