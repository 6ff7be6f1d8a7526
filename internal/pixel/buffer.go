package pixel

// Buffer is the fixed-length strip state. It is not safe for concurrent use;
// the scheduler goroutine owns it.
type Buffer struct {
	Pixels []Pixel
	// Dirty is set whenever Pixels changed since the last flush.
	Dirty bool
}

func NewBuffer(n int) *Buffer {
	return &Buffer{Pixels: make([]Pixel, n)}
}

func (b *Buffer) Len() int { return len(b.Pixels) }

// Set stores c at idx and reports false when idx is out of range.
func (b *Buffer) Set(idx int, c RGB) bool {
	if idx < 0 || idx >= len(b.Pixels) {
		return false
	}
	b.Pixels[idx] = FromRGB(c)
	b.Dirty = true
	return true
}

// Fill paints every position with p.
func (b *Buffer) Fill(p Pixel) {
	for i := range b.Pixels {
		b.Pixels[i] = p
	}
	b.Dirty = true
}

// Fade applies Pixel.Fade to every position and marks the buffer dirty when
// anything changed.
func (b *Buffer) Fade(threshold, factor, minStep float64) bool {
	changed := false
	for i := range b.Pixels {
		if b.Pixels[i].Fade(threshold, factor, minStep) {
			changed = true
		}
	}
	if changed {
		b.Dirty = true
	}
	return changed
}

// CopyFrom overwrites the buffer with src (up to the shorter length) and
// reports whether any position differed.
func (b *Buffer) CopyFrom(src []Pixel) bool {
	changed := false
	for i := 0; i < len(b.Pixels) && i < len(src); i++ {
		if b.Pixels[i] != src[i] {
			b.Pixels[i] = src[i]
			changed = true
		}
	}
	if changed {
		b.Dirty = true
	}
	return changed
}

// Snapshot returns the 8-bit form of every position.
func (b *Buffer) Snapshot() []RGB {
	out := make([]RGB, len(b.Pixels))
	for i, p := range b.Pixels {
		out[i] = p.RGB()
	}
	return out
}

// IsBlack reports whether every channel is exactly zero.
func (b *Buffer) IsBlack() bool {
	for _, p := range b.Pixels {
		if p != (Pixel{}) {
			return false
		}
	}
	return true
}
