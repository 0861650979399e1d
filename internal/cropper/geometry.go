package cropper

import (
	"image"
	"math"
)

// Box is a detection rectangle in pixel coordinates, x1<x2 and y1<y2, both
// inside the frame.
type Box struct {
	X1, Y1, X2, Y2 int
}

// UnionBox reduces a set of detection boxes to the smallest rectangle
// enclosing all of them, or nil when the set is empty.
func UnionBox(boxes []Box) *Box {
	if len(boxes) == 0 {
		return nil
	}

	u := boxes[0]
	for _, b := range boxes[1:] {
		if b.X1 < u.X1 {
			u.X1 = b.X1
		}
		if b.Y1 < u.Y1 {
			u.Y1 = b.Y1
		}
		if b.X2 > u.X2 {
			u.X2 = b.X2
		}
		if b.Y2 > u.Y2 {
			u.Y2 = b.Y2
		}
	}
	return &u
}

// CropEngine derives a stable crop window per frame: padding, minimum-area
// re-expansion, aspect correction, clamping, then EMA smoothing. The smoother
// is required at construction so callers cannot accidentally reuse state from
// a previous job.
type CropEngine struct {
	cfg      Config
	smoother *Smoother
}

func NewCropEngine(cfg Config, smoother *Smoother) *CropEngine {
	return &CropEngine{cfg: cfg, smoother: smoother}
}

// Window computes the final, frame-bound crop window for one frame.
// A nil detection yields the full frame; the full-frame window still passes
// through the smoother so a subject re-entering the scene eases back in.
func (e *CropEngine) Window(det *Box, w, h int) image.Rectangle {
	raw := e.rawWindow(det, w, h)

	clamped := clampBox(raw, w, h)
	smoothed := e.smoother.Update(FloatRect{
		X1: float64(clamped.Min.X),
		Y1: float64(clamped.Min.Y),
		X2: float64(clamped.Max.X),
		Y2: float64(clamped.Max.Y),
	})

	// Smoothing can nudge the window slightly out of bounds.
	return clampBox(image.Rect(
		int(smoothed.X1), int(smoothed.Y1), int(smoothed.X2), int(smoothed.Y2),
	), w, h)
}

func (e *CropEngine) rawWindow(det *Box, w, h int) image.Rectangle {
	if det == nil {
		// No subject in this frame: keep the full frame.
		return image.Rect(0, 0, w, h)
	}

	x1, y1, x2, y2 := det.X1, det.Y1, det.X2, det.Y2

	bw := x2 - x1
	if bw < 1 {
		bw = 1
	}
	bh := y2 - y1
	if bh < 1 {
		bh = 1
	}
	padX := int(e.cfg.PaddingRatio * float64(bw))
	padY := int(e.cfg.PaddingRatio * float64(bh))

	x1 = maxInt(0, x1-padX)
	y1 = maxInt(0, y1-padY)
	x2 = minInt(w, x2+padX)
	y2 = minInt(h, y2+padY)

	// Re-expand tiny windows to the minimum area, as a square centered on the
	// padded box.
	minArea := e.cfg.MinCropRatio * float64(w*h)
	curArea := float64(maxInt(1, (x2-x1)*(y2-y1)))
	if curArea < minArea {
		cx := float64(x1+x2) / 2.0
		cy := float64(y1+y2) / 2.0
		side := math.Sqrt(minArea)
		x1 = int(math.Max(0, cx-side/2))
		x2 = int(math.Min(float64(w), cx+side/2))
		y1 = int(math.Max(0, cy-side/2))
		y2 = int(math.Min(float64(h), cy+side/2))
	}

	// Grow one axis so the window matches the frame's aspect ratio.
	if e.cfg.KeepAspect {
		targetAspect := float64(w) / float64(h)
		cw := float64(maxInt(1, x2-x1))
		ch := float64(maxInt(1, y2-y1))

		cx := float64(x1+x2) / 2.0
		cy := float64(y1+y2) / 2.0

		if cw/ch > targetAspect {
			newH := cw / targetAspect
			y1 = int(math.Max(0, cy-newH/2))
			y2 = int(math.Min(float64(h), cy+newH/2))
		} else {
			newW := ch * targetAspect
			x1 = int(math.Max(0, cx-newW/2))
			x2 = int(math.Min(float64(w), cx+newW/2))
		}
	}

	return image.Rect(x1, y1, x2, y2)
}

// clampBox forces a window inside the frame with at least 1px on each axis.
func clampBox(r image.Rectangle, w, h int) image.Rectangle {
	x1 := maxInt(0, minInt(w-1, r.Min.X))
	y1 := maxInt(0, minInt(h-1, r.Min.Y))
	x2 := maxInt(x1+1, minInt(w, r.Max.X))
	y2 := maxInt(y1+1, minInt(h, r.Max.Y))
	return image.Rect(x1, y1, x2, y2)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
