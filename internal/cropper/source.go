package cropper

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/net/context"
)

// StreamMeta describes the input video stream. FrameCount may be 0 when the
// container does not report it.
type StreamMeta struct {
	FPS        float64
	Width      int
	Height     int
	FrameCount int
	HasAudio   bool
}

// Frame is one decoded video frame. Pix is backed directly by the raw RGBA
// bytes read from the decoder, so the same buffer is handed to the encoder
// after rendering.
type Frame struct {
	Index int
	Pix   *image.RGBA
}

// FrameSource produces a lazy, finite, non-restartable sequence of frames in
// strictly increasing index order starting at 0. Next returns io.EOF when the
// decoder reports no more frames.
type FrameSource interface {
	Meta() StreamMeta
	Next() (*Frame, error)
	Close() error
}

type ffmpegSource struct {
	meta   StreamMeta
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	next   int
}

// OpenFrameSource probes the input with ffprobe and starts an ffmpeg decoder
// producing raw RGBA frames on stdout.
func OpenFrameSource(ctx context.Context, path string) (FrameSource, error) {
	meta, err := probeVideo(ctx, path)
	if err != nil {
		return nil, err
	}
	if meta.Width == 0 || meta.Height == 0 {
		return nil, fmt.Errorf("%w: invalid video dimensions %dx%d", ErrOpen, meta.Width, meta.Height)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start decoder: %v", ErrOpen, err)
	}

	return &ffmpegSource{
		meta:   meta,
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 1<<20),
	}, nil
}

func (s *ffmpegSource) Meta() StreamMeta {
	return s.meta
}

func (s *ffmpegSource) Next() (*Frame, error) {
	buf := make([]byte, s.meta.Width*s.meta.Height*4)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame decode failed at index %d: %w", s.next, err)
	}

	frame := &Frame{
		Index: s.next,
		Pix: &image.RGBA{
			Pix:    buf,
			Stride: 4 * s.meta.Width,
			Rect:   image.Rect(0, 0, s.meta.Width, s.meta.Height),
		},
	}
	s.next++
	return frame, nil
}

func (s *ffmpegSource) Close() error {
	s.stdout.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	return nil
}

// probeResult matches the ffprobe JSON output structure.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
}

func probeVideo(ctx context.Context, path string) (StreamMeta, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return StreamMeta{}, fmt.Errorf("%w: ffprobe failed: %v", ErrOpen, err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return StreamMeta{}, fmt.Errorf("%w: failed to parse ffprobe output: %v", ErrOpen, err)
	}

	meta := StreamMeta{FPS: 30.0}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			meta.Width = stream.Width
			meta.Height = stream.Height
			if fps := parseFrameRate(stream.RFrameRate); fps > 0 {
				meta.FPS = fps
			}
			if n, err := strconv.Atoi(stream.NbFrames); err == nil {
				meta.FrameCount = n
			}
		case "audio":
			meta.HasAudio = true
		}
	}

	return meta, nil
}

// parseFrameRate converts an ffprobe rational like "30000/1001" to a float.
func parseFrameRate(r string) float64 {
	parts := strings.SplitN(r, "/", 2)
	if len(parts) == 2 {
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return num / den
		}
		return 0
	}
	fps, err := strconv.ParseFloat(r, 64)
	if err != nil {
		return 0
	}
	return fps
}
