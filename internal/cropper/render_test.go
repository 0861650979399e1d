package cropper

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteFrame(w, h int) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return &Frame{Index: 0, Pix: img}
}

func TestRenderOutputDimensions(t *testing.T) {
	cfg := testConfig()
	r := NewRenderer(cfg, StreamMeta{FPS: 30, Width: 320, Height: 240})

	for _, win := range []image.Rectangle{
		image.Rect(0, 0, 320, 240),
		image.Rect(10, 10, 100, 100),
		image.Rect(300, 220, 320, 240),
	} {
		out := r.Render(whiteFrame(320, 240), win)
		assert.Equal(t, 320, out.Rect.Dx())
		assert.Equal(t, 240, out.Rect.Dy())
	}
}

func TestRenderFullWindowIsIdentity(t *testing.T) {
	cfg := testConfig()
	r := NewRenderer(cfg, StreamMeta{FPS: 30, Width: 64, Height: 48})

	frame := whiteFrame(64, 48)
	out := r.Render(frame, image.Rect(0, 0, 64, 48))
	assert.Equal(t, frame.Pix.Pix, out.Pix)
}

func TestRenderLetterboxBorders(t *testing.T) {
	cfg := testConfig()
	r := NewRenderer(cfg, StreamMeta{FPS: 30, Width: 100, Height: 100})

	// A 100x50 window in a square output: pillars of black above and below,
	// the crop itself untouched in the middle.
	out := r.Render(whiteFrame(100, 100), image.Rect(0, 25, 100, 75))

	top := out.RGBAAt(50, 10)
	mid := out.RGBAAt(50, 50)
	bottom := out.RGBAAt(50, 90)

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, top)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, mid)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, bottom)
}

func TestRenderNoUpscaleByDefault(t *testing.T) {
	cfg := testConfig()
	require.LessOrEqual(t, cfg.MaxUpscale, 1.0)
	r := NewRenderer(cfg, StreamMeta{FPS: 30, Width: 100, Height: 100})

	// A 50x50 crop must stay 50x50 centered on black, not stretch to fill.
	out := r.Render(whiteFrame(100, 100), image.Rect(0, 0, 50, 50))

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(50, 50))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.RGBAAt(90, 90))
}

func TestRenderDegenerateWindowFallsBack(t *testing.T) {
	cfg := testConfig()
	r := NewRenderer(cfg, StreamMeta{FPS: 30, Width: 100, Height: 100})

	frame := whiteFrame(100, 100)
	out := r.Render(frame, image.Rect(200, 200, 300, 300))
	assert.Same(t, frame.Pix, out)
}

func TestDrawTimestampMarksFrame(t *testing.T) {
	cfg := testConfig()
	cfg.TimestampMarginPx = 12
	r := NewRenderer(cfg, StreamMeta{FPS: 30, Width: 320, Height: 240})

	img := whiteFrame(320, 240).Pix
	r.DrawTimestamp(img, 0, 30)

	// The label background is painted black near the top-right corner.
	found := false
	for x := 160; x < 320 && !found; x++ {
		for y := 0; y < 40 && !found; y++ {
			if img.RGBAAt(x, y) == (color.RGBA{0, 0, 0, 255}) {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a label background near the top-right corner")
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatTimestamp(0, 30))
	assert.Equal(t, "00:00:03.000", FormatTimestamp(90, 30))
	assert.Equal(t, "00:00:01.500", FormatTimestamp(45, 30))
	assert.Equal(t, "01:00:00.000", FormatTimestamp(3600*30, 30))
	assert.Equal(t, "00:01:40.000", FormatTimestamp(2500, 25))
}
