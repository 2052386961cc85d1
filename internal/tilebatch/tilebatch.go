// Package tilebatch holds per-instance transforms and colors for the hex tile
// draw batch. Writers mutate slots in place and a single flush reports what
// needs to be uploaded.
package tilebatch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Vec3 is a point or scale in tile-local space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform places one instance of the unit-height base mesh.
type Transform struct {
	Position Vec3
	Scale    Vec3
}

// Column returns the transform of a tile whose base sits at (x, 0, z) and
// whose top is at height.
func Column(x, z, height float64) Transform {
	return Transform{
		Position: Vec3{X: x, Y: height / 2, Z: z},
		Scale:    Vec3{X: 1, Y: height, Z: 1},
	}
}

// Top returns the height of the tile's upper face.
func (t Transform) Top() float64 { return t.Position.Y + t.Scale.Y/2 }

// Color is a 24-bit RGB color.
type Color uint32

// RGB builds a Color from channels.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Channels splits the color into its red, green and blue bytes.
func (c Color) Channels() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c Color) String() string { return fmt.Sprintf("#%06x", uint32(c)&0xffffff) }

// Batch is the mutation surface shared by the terrain builder and the
// interaction layer.
type Batch interface {
	Len() int
	Transform(index int) Transform
	SetTransform(index int, t Transform)
	Color(index int) Color
	SetColor(index int, c Color)
	Flush() Delta
}

// Delta lists the instances touched since the previous flush.
type Delta struct {
	Indices    []int
	Transforms bool
	Colors     bool
}

// Empty reports whether nothing was written.
func (d Delta) Empty() bool { return len(d.Indices) == 0 }

// Instanced is the in-memory Batch. Slots are allocated once; writes outside
// [0, Len) are ignored. Not safe for concurrent use.
type Instanced struct {
	transforms []Transform
	colors     []Color

	touched         map[int]struct{}
	transformsDirty bool
	colorsDirty     bool
}

// NewInstanced allocates a batch with count slots.
func NewInstanced(count int) *Instanced {
	if count < 0 {
		count = 0
	}
	return &Instanced{
		transforms: make([]Transform, count),
		colors:     make([]Color, count),
		touched:    make(map[int]struct{}),
	}
}

// Len returns the number of instances.
func (b *Instanced) Len() int { return len(b.transforms) }

// Transform returns the transform at index, or the zero value when out of range.
func (b *Instanced) Transform(index int) Transform {
	if index < 0 || index >= len(b.transforms) {
		return Transform{}
	}
	return b.transforms[index]
}

// SetTransform overwrites the transform at index.
func (b *Instanced) SetTransform(index int, t Transform) {
	if index < 0 || index >= len(b.transforms) {
		return
	}
	b.transforms[index] = t
	b.touched[index] = struct{}{}
	b.transformsDirty = true
}

// Color returns the color at index, or 0 when out of range.
func (b *Instanced) Color(index int) Color {
	if index < 0 || index >= len(b.colors) {
		return 0
	}
	return b.colors[index]
}

// SetColor overwrites the color at index.
func (b *Instanced) SetColor(index int, c Color) {
	if index < 0 || index >= len(b.colors) {
		return
	}
	b.colors[index] = c
	b.touched[index] = struct{}{}
	b.colorsDirty = true
}

// Flush returns the touched instances in ascending order and clears the
// dirty state.
func (b *Instanced) Flush() Delta {
	d := Delta{Transforms: b.transformsDirty, Colors: b.colorsDirty}
	if len(b.touched) > 0 {
		d.Indices = make([]int, 0, len(b.touched))
		for i := range b.touched {
			d.Indices = append(d.Indices, i)
		}
		sort.Ints(d.Indices)
		b.touched = make(map[int]struct{})
	}
	b.transformsDirty = false
	b.colorsDirty = false
	return d
}

// Matrices packs every transform as a column-major 4x4 matrix, the layout
// instanced mesh attributes expect.
func (b *Instanced) Matrices() []float32 {
	out := make([]float32, 16*len(b.transforms))
	for i, t := range b.transforms {
		m := out[16*i : 16*i+16]
		m[0] = float32(t.Scale.X)
		m[5] = float32(t.Scale.Y)
		m[10] = float32(t.Scale.Z)
		m[12] = float32(t.Position.X)
		m[13] = float32(t.Position.Y)
		m[14] = float32(t.Position.Z)
		m[15] = 1
	}
	return out
}

// Colors packs every color as normalized RGB triples.
func (b *Instanced) Colors() []float32 {
	out := make([]float32, 3*len(b.colors))
	for i, c := range b.colors {
		r, g, bl := c.Channels()
		out[3*i] = float32(r) / 255
		out[3*i+1] = float32(g) / 255
		out[3*i+2] = float32(bl) / 255
	}
	return out
}

// ParseColor accepts "#rrggbb", "rrggbb" or "0xrrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// MarshalText encodes the color as "#rrggbb".
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts any form ParseColor does.
func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
