// Package heightfield synthesizes terrain elevation from seeded fractal noise.
package heightfield

import (
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Relief is the exponent applied to the normalized height. Values above 1
// flatten lowlands and sharpen peaks.
const Relief = 1.5

// MinScale is substituted for a non-positive or non-finite scale so that
// Height never divides by zero.
const MinScale = 1e-6

// Params shapes the fractal sum.
type Params struct {
	Scale       float64
	Frequency   float64
	Amplitude   float64
	Persistence float64
	Lacunarity  float64
	Octaves     int
}

// Field evaluates heights for one seed. A Field is immutable and may be
// shared between goroutines.
type Field struct {
	seed  string
	noise opensimplex.Noise
}

// New returns a Field whose noise is seeded from the hash of seed. Identical
// seed strings produce bit-identical heights.
func New(seed string) *Field {
	return &Field{
		seed:  seed,
		noise: opensimplex.New(int64(xxhash.Sum64String(seed))),
	}
}

// Seed returns the seed string the field was built from.
func (f *Field) Seed() string { return f.seed }

// Height returns the terrain height at world position (x, z), within
// [0, p.Scale]. A scale that is not positive and finite is replaced by
// MinScale, so the result then lies in [0, MinScale].
func (f *Field) Height(x, z float64, p Params) float64 {
	scale := p.Scale
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = MinScale
	}

	var total, maxAmp float64
	amp := p.Amplitude
	freq := p.Frequency
	for i := 0; i < p.Octaves; i++ {
		total += f.noise.Eval2(x/scale*freq, z/scale*freq) * amp
		maxAmp += amp
		amp *= p.Persistence
		freq *= p.Lacunarity
	}

	normalized := 0.5
	if maxAmp != 0 {
		normalized = (total/maxAmp + 1) / 2
	}
	// Simplex output can overshoot [-1,1] slightly; pow of a negative base is NaN.
	normalized = clamp(normalized, 0, 1)
	if math.IsNaN(normalized) {
		normalized = 0.5
	}

	return clamp(math.Pow(normalized, Relief)*scale, 0, scale)
}

// Sample fills dst with heights for the given positions, which must be the
// same length.
func (f *Field) Sample(xs, zs, dst []float64, p Params) {
	for i := range dst {
		dst[i] = f.Height(xs[i], zs[i], p)
	}
}

// RandomSeed returns a fresh seed string for configurations that leave the
// seed unset.
func RandomSeed() string {
	return fmt.Sprintf("%x", uint32(time.Now().UnixNano()))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
