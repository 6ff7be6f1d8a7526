package sink

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/stripcast/internal/pixel"
)

// DebugCapture paints each frame as one column of an image, left to right.
// Once every column is filled the image is saved as dir/dbg-NNN.png and a
// new one is started. Save failures are logged and otherwise ignored.
type DebugCapture struct {
	dir     string
	img     *image.RGBA
	columns int
	col     int
	seq     int
}

func NewDebugCapture(dir string, height, columns int) (*DebugCapture, error) {
	if height <= 0 || columns <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", columns, height)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture dir: %w", err)
	}
	return &DebugCapture{
		dir:     dir,
		img:     image.NewRGBA(image.Rect(0, 0, columns, height)),
		columns: columns,
	}, nil
}

func (*DebugCapture) sink() {}

func (d *DebugCapture) Write(_ context.Context, frame []pixel.RGB) error {
	h := d.img.Bounds().Dy()
	for y := 0; y < h; y++ {
		var c color.RGBA
		if y < len(frame) {
			c = color.RGBA{R: frame[y].R, G: frame[y].G, B: frame[y].B, A: 0xff}
		}
		d.img.SetRGBA(d.col, y, c)
	}
	d.col++
	if d.col < d.columns {
		return nil
	}
	d.col = 0
	if err := d.save(); err != nil {
		log.Warn().Err(err).Str("sink", d.String()).Msg("debug capture not saved")
	}
	return nil
}

func (d *DebugCapture) save() error {
	name := filepath.Join(d.dir, fmt.Sprintf("dbg-%03d.png", d.seq))
	d.seq++
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := png.Encode(f, d.img); err != nil {
		f.Close()
		return fmt.Errorf("capture encode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	log.Debug().Str("file", name).Msg("debug capture saved")
	return nil
}

func (d *DebugCapture) Close() error { return nil }

func (d *DebugCapture) String() string { return "debug:" + d.dir }
