package cropper

import (
	"fmt"
	"os"

	"VideoCropper/pkg/utils"
)

// Config controls detection, crop behavior and the timestamp overlay for one
// pipeline instance. Treat it as immutable after construction.
type Config struct {
	// Detection
	Conf            float64
	IOU             float64
	DetectBatchSize int

	// Crop behavior
	PaddingRatio float64
	MinCropRatio float64
	SmoothAlpha  float64
	KeepAspect   bool
	MaxUpscale   float64

	// Timestamp overlay
	DrawTimestamp     bool
	TimestampMarginPx int

	// IO
	TmpDir     string
	QueueDepth int
}

func DefaultConfig() Config {
	return Config{
		Conf:              0.25,
		IOU:               0.5,
		DetectBatchSize:   8,
		PaddingRatio:      0.12,
		MinCropRatio:      0.35,
		SmoothAlpha:       0.85,
		KeepAspect:        true,
		MaxUpscale:        1.0,
		DrawTimestamp:     true,
		TimestampMarginPx: 12,
		TmpDir:            os.TempDir(),
		QueueDepth:        4,
	}
}

func ConfigFromEnv() Config {
	env := utils.New()
	cfg := DefaultConfig()

	cfg.Conf = env.EnvFloat("CONF", cfg.Conf)
	cfg.IOU = env.EnvFloat("IOU", cfg.IOU)
	cfg.DetectBatchSize = env.EnvInt("DETECT_BATCH_SIZE", cfg.DetectBatchSize)
	cfg.PaddingRatio = env.EnvFloat("PADDING_RATIO", cfg.PaddingRatio)
	cfg.MinCropRatio = env.EnvFloat("MIN_CROP_RATIO", cfg.MinCropRatio)
	cfg.SmoothAlpha = env.EnvFloat("SMOOTH_ALPHA", cfg.SmoothAlpha)
	cfg.KeepAspect = env.EnvBool("KEEP_ASPECT", cfg.KeepAspect)
	cfg.DrawTimestamp = env.EnvBool("DRAW_TIMESTAMP", cfg.DrawTimestamp)
	cfg.TimestampMarginPx = env.EnvInt("TIMESTAMP_MARGIN_PX", cfg.TimestampMarginPx)
	cfg.TmpDir = env.EnvString("CROPPER_TMP_DIR", cfg.TmpDir)

	return cfg
}

func (c Config) Validate() error {
	if c.PaddingRatio < 0 {
		return fmt.Errorf("%w: padding ratio must be non-negative", ErrConfiguration)
	}
	if c.MinCropRatio < 0 {
		return fmt.Errorf("%w: min crop ratio must be non-negative", ErrConfiguration)
	}
	if c.SmoothAlpha <= 0 || c.SmoothAlpha > 1 {
		return fmt.Errorf("%w: smoothing alpha must be in (0,1]", ErrConfiguration)
	}
	if c.DetectBatchSize < 1 {
		return fmt.Errorf("%w: detect batch size must be at least 1", ErrConfiguration)
	}
	return nil
}
