package job

import "VideoCropper/pkg/response"

var (
	ErrJobNotFound      = response.NewError(404, "job not found")
	ErrInvalidURIScheme = response.NewError(400, "invalid URI scheme; expected s3://, http://, or https://")
	ErrJobMissingURI    = response.NewError(400, "job missing uri")
	ErrMissingConfig    = response.NewError(500, "missing required configuration")
	ErrCreateJob        = response.NewError(500, "failed to create job")
	ErrUpdateJob        = response.NewError(500, "failed to update job")
	ErrEnqueueJob       = response.NewError(500, "failed to enqueue job")
)
