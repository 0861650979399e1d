package cropper

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	progressLogEvery  = 64
	producerJoinGrace = 5 * time.Second
)

// Detector is the external person-detection capability: one call per batch of
// frames, returning the (possibly empty) set of subject boxes per frame, in
// input order.
type Detector interface {
	DetectBatch(ctx context.Context, frames []*Frame, conf, iou float64) ([][]Box, error)
}

// queueItem is the three-case protocol flowing from producer to consumer:
// exactly one of batch, err or eof is set.
type queueItem struct {
	batch []*Frame
	err   error
	eof   bool
}

// Pipeline runs decoding on a producer goroutine and
// detection+cropping+rendering+encoding on the calling goroutine, connected
// by a bounded queue of batches.
type Pipeline struct {
	cfg      Config
	log      *logrus.Logger
	detector Detector
}

func NewPipeline(cfg Config, log *logrus.Logger, detector Detector) *Pipeline {
	return &Pipeline{cfg: cfg, log: log, detector: detector}
}

// Process streams every frame of src through the crop engine and into enc, in
// strictly increasing index order. The engine must be freshly constructed for
// this invocation.
func (p *Pipeline) Process(ctx context.Context, src FrameSource, enc Encoder, engine *CropEngine) error {
	meta := src.Meta()
	renderer := NewRenderer(p.cfg, meta)

	sink, err := enc.Start(ctx, meta)
	if err != nil {
		return err
	}

	items := make(chan queueItem, p.cfg.QueueDepth)
	producerDone := make(chan struct{})

	// Producer: pre-fetch batches of frames while the consumer runs detection
	// and encoding. Failures travel through the queue, never a shared var.
	go func() {
		defer close(producerDone)

		buf := make([]*Frame, 0, p.cfg.DetectBatchSize)
		for {
			frame, err := src.Next()
			if err == io.EOF {
				if len(buf) > 0 {
					items <- queueItem{batch: buf}
				}
				items <- queueItem{eof: true}
				return
			}
			if err != nil {
				items <- queueItem{err: err}
				return
			}

			buf = append(buf, frame)
			if len(buf) >= p.cfg.DetectBatchSize {
				items <- queueItem{batch: buf}
				buf = make([]*Frame, 0, p.cfg.DetectBatchSize)
			}
		}
	}()

	total := 0
	lastLogged := 0
	for {
		item := <-items
		if item.eof {
			break
		}
		if item.err != nil {
			enc.Abort()
			p.joinProducer(producerDone)
			return item.err
		}

		if err := p.writeBatch(ctx, item.batch, engine, renderer, sink, meta); err != nil {
			enc.Abort()
			p.joinProducer(producerDone)
			return err
		}

		total += len(item.batch)
		if total-lastLogged >= progressLogEvery {
			p.log.WithFields(logrus.Fields{"frames": total}).Info("processed frames")
			lastLogged = total
		}
	}

	p.joinProducer(producerDone)
	return enc.Finish()
}

func (p *Pipeline) writeBatch(
	ctx context.Context,
	batch []*Frame,
	engine *CropEngine,
	renderer *Renderer,
	sink io.Writer,
	meta StreamMeta,
) error {
	detections, err := p.detector.DetectBatch(ctx, batch, p.cfg.Conf, p.cfg.IOU)
	if err != nil {
		return err
	}
	if len(detections) != len(batch) {
		return fmt.Errorf("detector returned %d results for %d frames", len(detections), len(batch))
	}

	for i, frame := range batch {
		window := engine.Window(UnionBox(detections[i]), meta.Width, meta.Height)
		rendered := renderer.Render(frame, window)
		if p.cfg.DrawTimestamp {
			renderer.DrawTimestamp(rendered, frame.Index, meta.FPS)
		}
		if _, err := sink.Write(rendered.Pix); err != nil {
			return fmt.Errorf("%w: writing frame %d: %v", ErrEncode, frame.Index, err)
		}
	}
	return nil
}

// joinProducer waits briefly for the producer goroutine. On the failure path
// it can be blocked pushing into a full queue; that is tolerated (the job
// outcome is already decided) and only logged.
func (p *Pipeline) joinProducer(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(producerJoinGrace):
		p.log.Warn("frame producer did not exit cleanly")
	}
}
