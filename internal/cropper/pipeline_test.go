package cropper

import (
	"bytes"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type stubSource struct {
	meta   StreamMeta
	frames []*Frame
	failAt int // inject a read error after this many frames; -1 disables
	pos    int
	closed bool
}

func (s *stubSource) Meta() StreamMeta { return s.meta }

func (s *stubSource) Next() (*Frame, error) {
	if s.failAt >= 0 && s.pos == s.failAt {
		return nil, errors.New("decode failed")
	}
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

type stubDetector struct {
	err     error
	short   bool
	batches [][]int // batch sizes seen, in order
}

func (d *stubDetector) DetectBatch(_ context.Context, frames []*Frame, _, _ float64) ([][]Box, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.batches = append(d.batches, []int{len(frames)})
	n := len(frames)
	if d.short {
		n--
	}
	return make([][]Box, n), nil
}

type memEncoder struct {
	buf      bytes.Buffer
	started  bool
	finished bool
	aborted  bool
}

func (e *memEncoder) Start(_ context.Context, _ StreamMeta) (io.Writer, error) {
	e.started = true
	return &e.buf, nil
}

func (e *memEncoder) Finish() error {
	e.finished = true
	return nil
}

func (e *memEncoder) Abort() {
	e.aborted = true
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func makeFrames(n, w, h int) []*Frame {
	frames := make([]*Frame, n)
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p] = byte(i) // mark every frame with its index
			img.Pix[p+3] = 255
		}
		frames[i] = &Frame{Index: i, Pix: img}
	}
	return frames
}

func pipelineConfig() Config {
	cfg := testConfig()
	cfg.DetectBatchSize = 3
	cfg.QueueDepth = 4
	cfg.DrawTimestamp = false
	return cfg
}

func TestPipelinePreservesFrameOrder(t *testing.T) {
	cfg := pipelineConfig()
	meta := StreamMeta{FPS: 30, Width: 8, Height: 8}
	src := &stubSource{meta: meta, frames: makeFrames(7, 8, 8), failAt: -1}
	det := &stubDetector{}
	enc := &memEncoder{}

	p := NewPipeline(cfg, quietLogger(), det)
	err := p.Process(context.Background(), src, enc, NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha)))
	require.NoError(t, err)

	assert.True(t, enc.finished)
	assert.False(t, enc.aborted)

	// Empty detections mean the full frame passes through untouched, so the
	// marker byte of every frame must come out in submission order.
	frameBytes := 8 * 8 * 4
	require.Equal(t, 7*frameBytes, enc.buf.Len())
	out := enc.buf.Bytes()
	for i := 0; i < 7; i++ {
		assert.Equal(t, byte(i), out[i*frameBytes], "frame %d out of order", i)
	}

	// 7 frames with batch size 3: two full batches and a final partial one.
	require.Len(t, det.batches, 3)
	assert.Equal(t, 3, det.batches[0][0])
	assert.Equal(t, 3, det.batches[1][0])
	assert.Equal(t, 1, det.batches[2][0])
}

func TestPipelineDetectorErrorAborts(t *testing.T) {
	cfg := pipelineConfig()
	meta := StreamMeta{FPS: 30, Width: 8, Height: 8}
	src := &stubSource{meta: meta, frames: makeFrames(5, 8, 8), failAt: -1}
	det := &stubDetector{err: errors.New("detector down")}
	enc := &memEncoder{}

	p := NewPipeline(cfg, quietLogger(), det)
	err := p.Process(context.Background(), src, enc, NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detector down")

	assert.True(t, enc.aborted)
	assert.False(t, enc.finished)
}

func TestPipelineSourceErrorAborts(t *testing.T) {
	cfg := pipelineConfig()
	meta := StreamMeta{FPS: 30, Width: 8, Height: 8}
	src := &stubSource{meta: meta, frames: makeFrames(9, 8, 8), failAt: 4}
	det := &stubDetector{}
	enc := &memEncoder{}

	p := NewPipeline(cfg, quietLogger(), det)
	err := p.Process(context.Background(), src, enc, NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")

	assert.True(t, enc.aborted)
	assert.False(t, enc.finished)
}

func TestPipelineDetectorLengthMismatch(t *testing.T) {
	cfg := pipelineConfig()
	meta := StreamMeta{FPS: 30, Width: 8, Height: 8}
	src := &stubSource{meta: meta, frames: makeFrames(3, 8, 8), failAt: -1}
	det := &stubDetector{short: true}
	enc := &memEncoder{}

	p := NewPipeline(cfg, quietLogger(), det)
	err := p.Process(context.Background(), src, enc, NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results")
	assert.True(t, enc.aborted)
}

func TestPipelineEmptyStream(t *testing.T) {
	cfg := pipelineConfig()
	meta := StreamMeta{FPS: 30, Width: 8, Height: 8}
	src := &stubSource{meta: meta, frames: nil, failAt: -1}
	det := &stubDetector{}
	enc := &memEncoder{}

	p := NewPipeline(cfg, quietLogger(), det)
	err := p.Process(context.Background(), src, enc, NewCropEngine(cfg, NewSmoother(cfg.SmoothAlpha)))
	require.NoError(t, err)

	assert.True(t, enc.finished)
	assert.Zero(t, enc.buf.Len())
	assert.Empty(t, det.batches)
}
