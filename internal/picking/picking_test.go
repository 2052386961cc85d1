package picking

import (
	"errors"
	"testing"
)

func TestIDColorRoundTrip(t *testing.T) {
	for _, index := range []int{0, 1, 255, 256, 9999, MaxInstances - 1} {
		if got := Decode(IDColor(index), MaxInstances); got != index {
			t.Fatalf("Decode(IDColor(%d)) = %d", index, got)
		}
	}
}

func TestDecodeBackgroundAndOverflow(t *testing.T) {
	if got := Decode(0, 10); got != NoPick {
		t.Fatalf("background decoded to %d", got)
	}
	if got := Decode(IDColor(10), 10); got != NoPick {
		t.Fatalf("index past count decoded to %d", got)
	}
}

func TestBufferPickFlipsRows(t *testing.T) {
	b := NewBuffer(4, 3)
	b.Set(1, 0, 7)
	b.Set(2, 2, 3)

	if got := b.Pick(1, 0, 10); got != 7 {
		t.Fatalf("Pick(1,0) = %d, want 7", got)
	}
	if got := b.Pick(2, 2, 10); got != 3 {
		t.Fatalf("Pick(2,2) = %d, want 3", got)
	}
	// The top screen row is the last stored row.
	if off := (2*4 + 1) * 4; b.Pix[off+2] != 8 {
		t.Fatalf("expected id 8 stored bottom-up, got %v", b.Pix[off:off+4])
	}
	if got := b.Pick(0, 0, 10); got != NoPick {
		t.Fatalf("background pixel picked %d", got)
	}
	if got := b.Pick(4, 0, 10); got != NoPick {
		t.Fatalf("out of range pixel picked %d", got)
	}
}

func TestBufferValidate(t *testing.T) {
	b := Buffer{Width: 2, Height: 2, Pix: make([]byte, 3)}
	if err := b.Validate(); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("expected ErrBufferSize, got %v", err)
	}
	if got := b.Pick(0, 0, 1); got != NoPick {
		t.Fatalf("invalid buffer picked %d", got)
	}
}

func TestTextureSize(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 4: 2, 5: 3, 10000: 100, 10001: 101}
	for count, want := range cases {
		if got := TextureSize(count); got != want {
			t.Fatalf("TextureSize(%d) = %d, want %d", count, got, want)
		}
	}
}

func TestIDTexture(t *testing.T) {
	buf := IDTexture(10)
	if buf.Width != 4 || buf.Height != 4 {
		t.Fatalf("expected a 4x4 texture, got %dx%d", buf.Width, buf.Height)
	}
	for i := 0; i < 10; i++ {
		if got := buf.Pick(i%4, i/4, 10); got != i {
			t.Fatalf("texel %d holds %d", i, got)
		}
	}
	if got := buf.Pick(3, 3, 10); got != NoPick {
		t.Fatalf("unused texel resolved to %d", got)
	}
}
