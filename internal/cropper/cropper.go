package cropper

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Storage abstracts the object store: streamed download-to-file and
// upload-from-file, addressed by URI.
type Storage interface {
	Download(ctx context.Context, uri, dstPath string) error
	Upload(ctx context.Context, srcPath, uri string) error
}

// Meta is the result of one successful job run.
type Meta struct {
	InputURI  string
	OutputURI string
}

// VideoCropper is the end-to-end crop pipeline for one job at a time. The
// detector handle is shared across sequential runs; all per-job mutable state
// (the smoother) is constructed fresh inside Run.
type VideoCropper struct {
	cfg      Config
	log      *logrus.Logger
	storage  Storage
	detector Detector
}

func New(cfg Config, log *logrus.Logger, storage Storage, detector Detector) (*VideoCropper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &VideoCropper{
		cfg:      cfg,
		log:      log,
		storage:  storage,
		detector: detector,
	}, nil
}

// Run downloads the input, processes it and uploads the result. The scratch
// directory is removed on every exit path.
func (v *VideoCropper) Run(ctx context.Context, inputURI string) (Meta, error) {
	jobTmp, err := os.MkdirTemp(v.cfg.TmpDir, "video-crop-")
	if err != nil {
		return Meta{}, err
	}
	defer os.RemoveAll(jobTmp)

	inPath := filepath.Join(jobTmp, "input.mp4")
	outPath := filepath.Join(jobTmp, "output.mp4")

	outputURI, err := OutputURIForInput(inputURI, os.Getenv("OUTPUT_BUCKET"))
	if err != nil {
		return Meta{}, err
	}

	meta := Meta{InputURI: inputURI, OutputURI: outputURI}

	v.log.WithFields(logrus.Fields{
		"input_uri":  inputURI,
		"output_uri": outputURI,
	}).Info("crop run started")
	start := time.Now()

	if err := v.storage.Download(ctx, inputURI, inPath); err != nil {
		return Meta{}, err
	}
	if err := v.processVideo(ctx, inPath, outPath, jobTmp); err != nil {
		return Meta{}, err
	}
	if err := v.storage.Upload(ctx, outPath, outputURI); err != nil {
		return Meta{}, err
	}

	v.log.WithFields(logrus.Fields{
		"output_uri": outputURI,
		"elapsed":    time.Since(start).Round(100 * time.Millisecond).String(),
	}).Info("crop run complete")
	return meta, nil
}

func (v *VideoCropper) processVideo(ctx context.Context, inPath, outPath, jobTmp string) error {
	src, err := OpenFrameSource(ctx, inPath)
	if err != nil {
		return err
	}
	defer src.Close()

	meta := src.Meta()
	v.log.WithFields(logrus.Fields{
		"fps":    meta.FPS,
		"width":  meta.Width,
		"height": meta.Height,
		"frames": meta.FrameCount,
	}).Info("input stream opened")

	// Fresh smoother per invocation: crop state must never bleed between jobs.
	engine := NewCropEngine(v.cfg, NewSmoother(v.cfg.SmoothAlpha))
	enc := NewEncoder(inPath, outPath, jobTmp)
	pipeline := NewPipeline(v.cfg, v.log, v.detector)

	return pipeline.Process(ctx, src, enc, engine)
}
