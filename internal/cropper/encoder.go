package cropper

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/net/context"
)

const stderrTailBytes = 800

// Encoder receives rendered raw frames on a byte stream and muxes them with
// the original file's audio track into the output container. The shutdown
// order is fixed on every code path: close the input stream, wait for the
// process, check its exit code.
type Encoder interface {
	Start(ctx context.Context, meta StreamMeta) (io.Writer, error)
	Finish() error
	Abort()
}

type ffmpegEncoder struct {
	inPath  string
	outPath string
	tmpDir  string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *os.File
}

// NewEncoder builds an ffmpeg-backed Encoder. inPath is passed as a second
// input solely so an existing audio track is carried into the output.
func NewEncoder(inPath, outPath, tmpDir string) Encoder {
	return &ffmpegEncoder{inPath: inPath, outPath: outPath, tmpDir: tmpDir}
}

func (e *ffmpegEncoder) Start(ctx context.Context, meta StreamMeta) (io.Writer, error) {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"-pix_fmt", "rgba",
		"-r", strconv.FormatFloat(meta.FPS, 'f', -1, 64),
		"-i", "pipe:0", // rendered frames from stdin
		"-i", e.inPath, // original file for the audio track
		"-map", "0:v:0",
		"-map", "1:a?", // copy audio only if present
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-movflags", "+faststart",
		"-c:a", "aac",
		"-shortest",
		e.outPath,
	}

	// Diagnostics go to a temp file rather than an in-memory pipe: ffmpeg can
	// emit more than the OS pipe buffer holds and would deadlock otherwise.
	stderr, err := os.CreateTemp(e.tmpDir, "ffmpeg-stderr-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		stderr.Close()
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", ErrEncode, err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.stderr = stderr
	return stdin, nil
}

func (e *ffmpegEncoder) Finish() error {
	defer e.closeStderr()

	if err := e.stdin.Close(); err != nil {
		e.cmd.Wait()
		return fmt.Errorf("%w: closing encoder input: %v", ErrEncode, err)
	}

	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: ffmpeg encode failed: %s", ErrEncode, e.stderrTail())
	}
	return nil
}

func (e *ffmpegEncoder) Abort() {
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
	}
	e.closeStderr()
}

func (e *ffmpegEncoder) stderrTail() string {
	info, err := e.stderr.Stat()
	if err != nil {
		return "stderr unavailable"
	}

	offset := int64(0)
	if info.Size() > stderrTailBytes {
		offset = info.Size() - stderrTailBytes
	}

	buf := make([]byte, info.Size()-offset)
	if _, err := e.stderr.ReadAt(buf, offset); err != nil && err != io.EOF {
		return "stderr unavailable"
	}
	return string(buf)
}

func (e *ffmpegEncoder) closeStderr() {
	if e.stderr != nil {
		name := e.stderr.Name()
		e.stderr.Close()
		os.Remove(name)
		e.stderr = nil
	}
}
