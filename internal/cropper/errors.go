package cropper

import (
	"errors"
)

// Pipeline failure kinds. Each stage wraps one of these sentinels so the
// worker can distinguish an expected processing failure from a programming
// error when writing the job record.
var (
	ErrDownload      = errors.New("download failed")
	ErrOpen          = errors.New("failed to open input video")
	ErrEncode        = errors.New("encode failed")
	ErrConfiguration = errors.New("invalid cropper configuration")
)

// IsProcessingError reports whether err is one of the expected pipeline
// failure kinds, as opposed to an unexpected error.
func IsProcessingError(err error) bool {
	return errors.Is(err, ErrDownload) ||
		errors.Is(err, ErrOpen) ||
		errors.Is(err, ErrEncode) ||
		errors.Is(err, ErrConfiguration)
}
