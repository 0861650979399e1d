package cropper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://my-bucket/videos/input.mp4")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "videos/input.mp4", key)

	bucket, key, err = ParseS3URI("s3://only-bucket")
	require.NoError(t, err)
	assert.Equal(t, "only-bucket", bucket)
	assert.Equal(t, "", key)

	_, _, err = ParseS3URI("https://example.com/video.mp4")
	assert.Error(t, err)
}

func TestIsSupportedURI(t *testing.T) {
	assert.True(t, IsSupportedURI("s3://bucket/key.mp4"))
	assert.True(t, IsSupportedURI("http://example.com/v.mp4"))
	assert.True(t, IsSupportedURI("https://example.com/v.mp4"))
	assert.False(t, IsSupportedURI("gs://bucket/key.mp4"))
	assert.False(t, IsSupportedURI("/local/path.mp4"))
	assert.False(t, IsSupportedURI(""))
}

func TestOutputURIForInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		bucket string
		want   string
	}{
		{
			name:  "s3 input writes back beside the source",
			input: "s3://media/videos/clip.mp4",
			want:  "s3://media/videos/clip_cropped.mp4",
		},
		{
			name:  "s3 input without extension defaults to mp4",
			input: "s3://media/videos/clip",
			want:  "s3://media/videos/clip_cropped.mp4",
		},
		{
			name:  "s3 input keeps a non-mp4 extension",
			input: "s3://media/clip.mov",
			want:  "s3://media/clip_cropped.mov",
		},
		{
			name:   "http input goes to the output bucket",
			input:  "https://cdn.example.com/path/clip.mp4",
			bucket: "results",
			want:   "s3://results/clip_cropped.mp4",
		},
		{
			name:   "http input query string is stripped",
			input:  "https://cdn.example.com/clip.mp4?token=abc&x=1",
			bucket: "results",
			want:   "s3://results/clip_cropped.mp4",
		},
		{
			name:   "http input with no basename gets a default name",
			input:  "https://cdn.example.com/",
			bucket: "results",
			want:   "s3://results/video_cropped.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputURIForInput(tt.input, tt.bucket)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputURIForInputErrors(t *testing.T) {
	_, err := OutputURIForInput("https://cdn.example.com/clip.mp4", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = OutputURIForInput("ftp://example.com/clip.mp4", "results")
	assert.Error(t, err)
}
