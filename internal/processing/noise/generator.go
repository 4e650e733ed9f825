package noise

import (
	"fmt"
	"math"
	"strings"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Generator is one of Gradient, Simplex or Cellular.
type Generator interface {
	generator()
	String() string
}

// Gradient is classic Perlin gradient noise.
type Gradient struct{}

// Simplex is OpenSimplex noise.
type Simplex struct{}

// Cellular is Worley F1 noise: distance to the nearest feature point.
// Jitter in [0, 1] moves feature points away from their cell centres.
type Cellular struct {
	Jitter float64
}

func (Gradient) generator() {}
func (Simplex) generator()  {}
func (Cellular) generator() {}

func (Gradient) String() string   { return "gradient" }
func (Simplex) String() string    { return "simplex" }
func (c Cellular) String() string { return fmt.Sprintf("cellular(jitter=%.2f)", c.Jitter) }

// ParseGenerator maps a CLI name to a generator with default parameters.
func ParseGenerator(s string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gradient", "perlin":
		return Gradient{}, nil
	case "simplex":
		return Simplex{}, nil
	case "cellular", "worley":
		return Cellular{Jitter: 1}, nil
	}
	return nil, fmt.Errorf("unknown noise type %q", s)
}

// sampler evaluates one octave of a generator at a point.
type sampler func(x, y float64) float64

func newSampler(g Generator, seed int64) (sampler, error) {
	switch gen := g.(type) {
	case Gradient:
		// a single iteration: octaves are summed by fbm
		p := perlin.NewPerlin(2, 2, 1, seed)
		return p.Noise2D, nil
	case Simplex:
		s := opensimplex.New(seed)
		return s.Eval2, nil
	case Cellular:
		jitter := math.Max(0, math.Min(1, gen.Jitter))
		return func(x, y float64) float64 {
			return worleyF1(x, y, jitter, uint64(seed))
		}, nil
	case nil:
		return nil, fmt.Errorf("no noise generator set")
	default:
		return nil, fmt.Errorf("unsupported noise generator %T", g)
	}
}

func worleyF1(x, y, jitter float64, seed uint64) float64 {
	cx, cy := math.Floor(x), math.Floor(y)
	best := math.MaxFloat64

	for oy := -1.0; oy <= 1; oy++ {
		for ox := -1.0; ox <= 1; ox++ {
			gx, gy := cx+ox, cy+oy
			h := hashCell(int64(gx), int64(gy), seed)
			fx := gx + 0.5 + jitter*(unitFloat(h)-0.5)
			fy := gy + 0.5 + jitter*(unitFloat(h>>32|h<<32)-0.5)

			dx, dy := fx-x, fy-y
			if d := dx*dx + dy*dy; d < best {
				best = d
			}
		}
	}
	return math.Sqrt(best)
}

// hashCell mixes cell coordinates and seed with the splitmix64 finaliser.
func hashCell(x, y int64, seed uint64) uint64 {
	h := seed ^ uint64(x)*0x9E3779B97F4A7C15 ^ uint64(y)*0xC2B2AE3D27D4EB4F
	h ^= h >> 30
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 27
	h *= 0x94D049BB133111EB
	h ^= h >> 31
	return h
}

func unitFloat(h uint64) float64 {
	return float64(h>>11) / float64(1<<53)
}
