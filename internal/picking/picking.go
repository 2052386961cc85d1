// Package picking maps screen pixels back to tile instances through an
// offscreen render in which each instance is drawn in a unique flat color.
package picking

import (
	"errors"
	"fmt"
	"math"

	"github.com/gravitas-games/irongrid/internal/tilebatch"
)

// NoPick is returned when a pixel does not cover any instance.
const NoPick = -1

// MaxInstances is the largest instance count a 24-bit ID color can encode.
const MaxInstances = 1<<24 - 2

// ErrBufferSize is returned when a buffer's pixel slice does not match its
// dimensions.
var ErrBufferSize = errors.New("pick buffer size mismatch")

// IDColor returns the flat color instance index is drawn with. Zero is
// reserved for the background.
func IDColor(index int) tilebatch.Color {
	return tilebatch.Color(uint32(index+1) & 0xffffff)
}

// Decode converts a picked color back to an instance index, or NoPick when
// the color is the background or outside [0,count).
func Decode(c tilebatch.Color, count int) int {
	id := int(uint32(c)&0xffffff) - 1
	if id < 0 || id >= count {
		return NoPick
	}
	return id
}

// TextureSize returns the side of the smallest square texture holding one
// texel per instance, as used for per-instance lookups.
func TextureSize(count int) int {
	if count <= 0 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(count))))
}

// Buffer is an RGBA pixel readback of the picking render. Rows are stored
// bottom-up, the way GPUs return them.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// Validate checks the pixel slice against the dimensions.
func (b Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 || len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrBufferSize, b.Width, b.Height, len(b.Pix))
	}
	return nil
}

// Pick returns the instance under the screen pixel (x, y), where y grows
// downward from the top edge.
func (b Buffer) Pick(x, y, count int) int {
	if b.Validate() != nil || x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return NoPick
	}
	row := b.Height - 1 - y
	off := (row*b.Width + x) * 4
	c := tilebatch.RGB(b.Pix[off], b.Pix[off+1], b.Pix[off+2])
	return Decode(c, count)
}

// Set writes the ID color of index at screen pixel (x, y). Used to build
// buffers server-side and in tests.
func (b Buffer) Set(x, y, index int) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	r, g, bl := IDColor(index).Channels()
	off := ((b.Height-1-y)*b.Width + x) * 4
	b.Pix[off], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3] = r, g, bl, 0xff
}

// NewBuffer allocates a background-filled buffer.
func NewBuffer(width, height int) Buffer {
	return Buffer{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// IDTexture builds the square lookup texture holding the ID color of every
// instance, instance i at texel (i mod size, i div size).
func IDTexture(count int) Buffer {
	size := TextureSize(count)
	buf := NewBuffer(size, size)
	for i := 0; i < count; i++ {
		buf.Set(i%size, i/size, i)
	}
	return buf
}
