package cropper

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	canvasBlack = image.NewUniform(color.RGBA{0, 0, 0, 255})
	labelWhite  = image.NewUniform(color.RGBA{255, 255, 255, 255})
)

// Renderer crops a frame to its window and letterboxes it back to the
// original stream dimensions, so downstream consumers never see variable
// frame sizes.
type Renderer struct {
	cfg  Config
	outW int
	outH int
}

func NewRenderer(cfg Config, meta StreamMeta) *Renderer {
	return &Renderer{cfg: cfg, outW: meta.Width, outH: meta.Height}
}

// Render crops, scales and letterboxes one frame. A degenerate zero-area
// window falls back to the unmodified frame.
func (r *Renderer) Render(frame *Frame, window image.Rectangle) *image.RGBA {
	cropped := frame.Pix.SubImage(window.Intersect(frame.Pix.Rect)).(*image.RGBA)

	cw := cropped.Rect.Dx()
	ch := cropped.Rect.Dy()
	if cw == 0 || ch == 0 {
		return frame.Pix
	}

	scale := minFloat(float64(r.outW)/float64(cw), float64(r.outH)/float64(ch))
	if r.cfg.MaxUpscale <= 1.0 {
		scale = minFloat(scale, 1.0)
	} else {
		scale = minFloat(scale, r.cfg.MaxUpscale)
	}

	newW := maxInt(1, int(float64(cw)*scale))
	newH := maxInt(1, int(float64(ch)*scale))

	canvas := image.NewRGBA(image.Rect(0, 0, r.outW, r.outH))
	draw.Draw(canvas, canvas.Rect, canvasBlack, image.Point{}, draw.Src)

	xOff := (r.outW - newW) / 2
	yOff := (r.outH - newH) / 2
	dst := image.Rect(xOff, yOff, xOff+newW, yOff+newH)

	if newW == cw && newH == ch {
		draw.Draw(canvas, dst, cropped, cropped.Rect.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(canvas, dst, cropped, cropped.Rect, draw.Src, nil)
	}

	return canvas
}

// DrawTimestamp overlays a HH:MM:SS.mmm label near the top-right corner with
// a filled background rectangle for legibility. Position depends only on the
// text metrics and the configured margin.
func (r *Renderer) DrawTimestamp(img *image.RGBA, idx int, fps float64) {
	label := FormatTimestamp(idx, fps)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  labelWhite,
		Face: face,
	}

	tw := drawer.MeasureString(label).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()

	w := img.Rect.Dx()
	margin := r.cfg.TimestampMarginPx

	x := maxInt(margin, w-margin-tw)
	y := margin + ascent // baseline sits just below the top margin

	bg := image.Rect(x-6, y-ascent-6, x+tw+6, y+descent+6).Intersect(img.Rect)
	draw.Draw(img, bg, canvasBlack, image.Point{}, draw.Src)

	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(label)
}

// FormatTimestamp renders the play position of a frame as HH:MM:SS.mmm.
func FormatTimestamp(idx int, fps float64) string {
	t := float64(idx) / fps
	hh := int(t) / 3600
	mm := (int(t) % 3600) / 60
	ss := int(t) % 60
	ms := int((t - float64(int(t))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hh, mm, ss, ms)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
