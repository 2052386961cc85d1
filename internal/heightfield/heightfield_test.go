package heightfield

import (
	"math"
	"testing"
)

func defaultParams() Params {
	return Params{Scale: 200, Frequency: 0.4, Amplitude: 0.8, Persistence: 0.5, Lacunarity: 2, Octaves: 3}
}

func TestHeightDeterministic(t *testing.T) {
	p := defaultParams()
	a := New("abc").Height(12.5, 7.25, p)
	b := New("abc").Height(12.5, 7.25, p)
	if a != b {
		t.Fatalf("expected identical heights, got %v and %v", a, b)
	}
	if math.Abs(a-b) > 1e-9*math.Max(1, math.Abs(a)) {
		t.Fatalf("heights differ beyond tolerance: %v vs %v", a, b)
	}
}

func TestHeightBounds(t *testing.T) {
	cases := []Params{
		defaultParams(),
		{Scale: 200, Frequency: 0.4, Amplitude: 0.8, Persistence: 0, Lacunarity: 2, Octaves: 1},
		{Scale: 50, Frequency: 1, Amplitude: 4, Persistence: 20, Lacunarity: 10, Octaves: 8},
		{Scale: 10, Frequency: 0.1, Amplitude: 0, Persistence: 0.5, Lacunarity: 2, Octaves: 3},
		{Scale: 10, Frequency: 0.1, Amplitude: 1, Persistence: 0.5, Lacunarity: 2, Octaves: 0},
		{Scale: 10, Frequency: 0.1, Amplitude: -1, Persistence: 0.5, Lacunarity: 2, Octaves: 2},
	}
	f := New("bounds")
	for ci, p := range cases {
		for i := 0; i < 2000; i++ {
			x := float64(i)*3.7 - 1000
			z := float64(i)*1.3 - 400
			h := f.Height(x, z, p)
			if math.IsNaN(h) || h < 0 || h > p.Scale {
				t.Fatalf("case %d: Height(%f,%f) = %f, outside [0,%f]", ci, x, z, h, p.Scale)
			}
		}
	}
}

func TestHeightZeroScaleIsFinite(t *testing.T) {
	p := defaultParams()
	p.Scale = 0
	h := New("zero").Height(1, 1, p)
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 || h > MinScale {
		t.Fatalf("expected a finite height in [0,MinScale], got %v", h)
	}
}

func TestNegativeScaleClampsToMinScale(t *testing.T) {
	p := defaultParams()
	p.Scale = -5
	f := New("negative")
	for i := 0; i < 50; i++ {
		x := float64(i) * 3.7
		h := f.Height(x, x*0.3, p)
		if math.IsNaN(h) || h < 0 || h > MinScale {
			t.Fatalf("Height(%v) = %v, want within [0,MinScale]", x, h)
		}
	}
}

func TestDegenerateAmplitudeIsMidpoint(t *testing.T) {
	p := defaultParams()
	p.Amplitude = 0
	h := New("flat").Height(42, 17, p)
	want := math.Pow(0.5, Relief) * p.Scale
	if h != want {
		t.Fatalf("expected %v for zero amplitude, got %v", want, h)
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	p := defaultParams()
	a, b := New("one"), New("two")
	for i := 0; i < 100; i++ {
		x := float64(i) * 13.1
		if a.Height(x, x*0.5, p) != b.Height(x, x*0.5, p) {
			return
		}
	}
	t.Fatal("different seeds should produce different terrain")
}

func TestSampleMatchesHeight(t *testing.T) {
	p := defaultParams()
	f := New("sample")
	xs := []float64{0, 5.2, 10.4}
	zs := []float64{0, 4.5, 9}
	dst := make([]float64, 3)
	f.Sample(xs, zs, dst, p)
	for i := range dst {
		if dst[i] != f.Height(xs[i], zs[i], p) {
			t.Fatalf("Sample[%d] = %v, Height = %v", i, dst[i], f.Height(xs[i], zs[i], p))
		}
	}
}

func TestRandomSeedNonEmpty(t *testing.T) {
	if RandomSeed() == "" {
		t.Fatal("expected a non-empty seed")
	}
}
