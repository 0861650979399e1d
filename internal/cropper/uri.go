package cropper

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const s3Scheme = "s3://"

// ParseS3URI splits s3://bucket/key into its bucket and key parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		return "", "", fmt.Errorf("not an %s URI: %s", s3Scheme, uri)
	}
	rest := strings.TrimPrefix(uri, s3Scheme)
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}

// IsSupportedURI reports whether the submission URI uses a scheme the
// pipeline can download.
func IsSupportedURI(uri string) bool {
	return strings.HasPrefix(uri, s3Scheme) ||
		strings.HasPrefix(uri, "http://") ||
		strings.HasPrefix(uri, "https://")
}

// OutputURIForInput derives the deterministic output location: storage inputs
// write back next to the source with a _cropped suffix; web inputs write into
// outputBucketForHTTP since the origin server cannot be written to.
func OutputURIForInput(inputURI, outputBucketForHTTP string) (string, error) {
	if strings.HasPrefix(inputURI, s3Scheme) {
		bucket, key, err := ParseS3URI(inputURI)
		if err != nil {
			return "", err
		}
		return s3Scheme + bucket + "/" + croppedName(key), nil
	}

	if strings.HasPrefix(inputURI, "http://") || strings.HasPrefix(inputURI, "https://") {
		if outputBucketForHTTP == "" {
			return "", fmt.Errorf("%w: HTTP(S) input requires OUTPUT_BUCKET to be set", ErrConfiguration)
		}
		u, err := url.Parse(inputURI)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDownload, err)
		}
		name := path.Base(u.Path)
		if name == "" || name == "." || name == "/" {
			name = "video.mp4"
		}
		return s3Scheme + outputBucketForHTTP + "/" + croppedName(name), nil
	}

	return "", fmt.Errorf("%w: unsupported URI scheme: %s", ErrDownload, inputURI)
}

// croppedName inserts _cropped before the extension, preserving nested paths.
// Extensionless inputs default to .mp4.
func croppedName(key string) string {
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	if ext == "" {
		ext = ".mp4"
	}
	return base + "_cropped" + ext
}
