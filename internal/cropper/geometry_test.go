package cropper

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TmpDir = ""
	return cfg
}

func TestUnionBox(t *testing.T) {
	assert.Nil(t, UnionBox(nil))
	assert.Nil(t, UnionBox([]Box{}))

	one := UnionBox([]Box{{X1: 10, Y1: 20, X2: 30, Y2: 40}})
	require.NotNil(t, one)
	assert.Equal(t, Box{X1: 10, Y1: 20, X2: 30, Y2: 40}, *one)

	many := UnionBox([]Box{
		{X1: 10, Y1: 20, X2: 30, Y2: 40},
		{X1: 5, Y1: 25, X2: 50, Y2: 35},
		{X1: 15, Y1: 10, X2: 20, Y2: 60},
	})
	require.NotNil(t, many)
	assert.Equal(t, Box{X1: 5, Y1: 10, X2: 50, Y2: 60}, *many)
}

func TestWindowCenteredSubject(t *testing.T) {
	cfg := testConfig()
	cfg.PaddingRatio = 0.1
	cfg.MinCropRatio = 0.35
	cfg.KeepAspect = true

	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	// 200x200 subject centered in a 1000x1000 frame: padded to 240x240, then
	// re-expanded to the minimum-area square around the same center.
	win := engine.Window(&Box{X1: 400, Y1: 400, X2: 600, Y2: 600}, 1000, 1000)
	assert.Equal(t, image.Rect(204, 204, 795, 795), win)
}

func TestWindowContainsPaddedDetection(t *testing.T) {
	cfg := testConfig()
	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	det := &Box{X1: 100, Y1: 150, X2: 700, Y2: 650}
	win := engine.Window(det, 1280, 720)

	assert.True(t, win.Min.X <= det.X1)
	assert.True(t, win.Min.Y <= det.Y1)
	assert.True(t, win.Max.X >= det.X2)
	assert.True(t, win.Max.Y >= det.Y2)
	assert.True(t, win.In(image.Rect(0, 0, 1280, 720)))
}

func TestWindowMinAreaFloor(t *testing.T) {
	cfg := testConfig()
	cfg.MinCropRatio = 0.35
	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	win := engine.Window(&Box{X1: 500, Y1: 500, X2: 510, Y2: 510}, 1000, 1000)

	area := float64(win.Dx() * win.Dy())
	minArea := cfg.MinCropRatio * 1000 * 1000
	// Integer truncation can shave a pixel per edge off the exact floor.
	assert.GreaterOrEqual(t, area, 0.98*minArea)
}

func TestWindowKeepAspect(t *testing.T) {
	cfg := testConfig()
	cfg.MinCropRatio = 0.0
	cfg.KeepAspect = true
	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	// A tall subject away from the edges: the window must come out near the
	// frame's 16:9 aspect.
	win := engine.Window(&Box{X1: 900, Y1: 200, X2: 1000, Y2: 800}, 1920, 1080)

	aspect := float64(win.Dx()) / float64(win.Dy())
	assert.InDelta(t, 1920.0/1080.0, aspect, 0.05)
}

func TestWindowNoDetection(t *testing.T) {
	cfg := testConfig()
	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	win := engine.Window(nil, 640, 480)
	assert.Equal(t, image.Rect(0, 0, 640, 480), win)
}

func TestWindowClampAtEdge(t *testing.T) {
	cfg := testConfig()
	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	// Subject hugging the corner: padding and aspect expansion must never
	// push the window out of the frame.
	win := engine.Window(&Box{X1: 0, Y1: 0, X2: 60, Y2: 80}, 640, 480)
	assert.True(t, win.In(image.Rect(0, 0, 640, 480)))
	assert.GreaterOrEqual(t, win.Dx(), 1)
	assert.GreaterOrEqual(t, win.Dy(), 1)
}

func TestWindowSmoothingEasesMotion(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothAlpha = 0.85
	cfg.MinCropRatio = 0.0
	cfg.PaddingRatio = 0.0
	cfg.KeepAspect = false
	engine := NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha))

	first := engine.Window(&Box{X1: 100, Y1: 100, X2: 300, Y2: 300}, 1000, 1000)
	second := engine.Window(&Box{X1: 500, Y1: 100, X2: 700, Y2: 300}, 1000, 1000)

	// The smoothed second window lags well behind the raw jump.
	assert.Greater(t, second.Min.X, first.Min.X)
	assert.Less(t, second.Min.X, 500)
}

func TestSmootherFirstUpdatePassesThrough(t *testing.T) {
	s := NewSmoother(0.85)
	assert.Nil(t, s.Current())

	out := s.Update(FloatRect{X1: 1, Y1: 2, X2: 3, Y2: 4})
	assert.Equal(t, FloatRect{X1: 1, Y1: 2, X2: 3, Y2: 4}, out)
}

func TestSmootherConstantInputIsStable(t *testing.T) {
	s := NewSmoother(0.85)
	box := FloatRect{X1: 10, Y1: 20, X2: 110, Y2: 220}

	for i := 0; i < 50; i++ {
		out := s.Update(box)
		assert.InDelta(t, box.X1, out.X1, 1e-9)
		assert.InDelta(t, box.Y2, out.Y2, 1e-9)
	}
}

func TestSmootherBlend(t *testing.T) {
	s := NewSmoother(0.85)
	s.Update(FloatRect{})

	out := s.Update(FloatRect{X1: 100, Y1: 100, X2: 100, Y2: 100})
	assert.InDelta(t, 15.0, out.X1, 1e-9)
	assert.InDelta(t, 15.0, out.Y2, 1e-9)
}
