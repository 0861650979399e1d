package s3

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"VideoCropper/internal/cropper"
)

const httpDownloadTimeout = 10 * time.Minute

// ItfStorage moves video files between the object store (s3:// URIs, plus
// plain http(s) downloads) and the local scratch directory.
type ItfStorage interface {
	Download(ctx context.Context, uri, dstPath string) error
	Upload(ctx context.Context, srcPath, uri string) error
}

type storageClient struct {
	session    *session.Session
	httpClient *http.Client
	log        *logrus.Logger
}

func New(log *logrus.Logger) (ItfStorage, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &storageClient{
		session:    sess,
		httpClient: &http.Client{Timeout: httpDownloadTimeout},
		log:        log,
	}, nil
}

func (s *storageClient) Download(ctx context.Context, uri, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}

	switch {
	case strings.HasPrefix(uri, "s3://"):
		return s.downloadS3(ctx, uri, dstPath)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return s.downloadHTTP(ctx, uri, dstPath)
	default:
		return fmt.Errorf("%w: unsupported URI scheme: %s", cropper.ErrDownload, uri)
	}
}

func (s *storageClient) downloadS3(ctx context.Context, uri, dstPath string) error {
	bucket, key, err := cropper.ParseS3URI(uri)
	if err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}

	s.log.WithFields(logrus.Fields{"uri": uri}).Info("downloading from object storage")

	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}
	defer f.Close()

	downloader := s3manager.NewDownloader(s.session)
	_, err = downloader.DownloadWithContext(ctx, f, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}

	return nil
}

func (s *storageClient) downloadHTTP(ctx context.Context, uri, dstPath string) error {
	s.log.WithFields(logrus.Fields{"uri": uri}).Info("downloading over http")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d for %s", cropper.ErrDownload, resp.StatusCode, uri)
	}

	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}
	defer f.Close()

	buf := make([]byte, 1<<20)
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		return fmt.Errorf("%w: %v", cropper.ErrDownload, err)
	}

	return nil
}

func (s *storageClient) Upload(ctx context.Context, srcPath, uri string) error {
	bucket, key, err := cropper.ParseS3URI(uri)
	if err != nil {
		return fmt.Errorf("output URI must be s3://: %w", err)
	}

	s.log.WithFields(logrus.Fields{"uri": uri}).Info("uploading to object storage")

	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	uploader := s3manager.NewUploader(s.session)
	_, err = uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}

func newSession() (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})

	if err != nil {
		return nil, err
	}

	return sess, nil
}
