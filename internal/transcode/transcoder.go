// Package transcode converts audio assets between formats during
// export. The real implementation shells out to ffmpeg over pipes.
package transcode

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/craftscan/craftscan/internal/events"
	"github.com/craftscan/craftscan/internal/models"
)

// Transcoder converts audio bytes to the requested format.
type Transcoder interface {
	Transcode(ctx context.Context, input []byte, format models.AudioFormat) ([]byte, error)
}

// OutputExtension returns the file extension an exported audio asset
// gets for the requested format.
func OutputExtension(format models.AudioFormat, originalExt string) string {
	switch format {
	case models.AudioMP3:
		return "mp3"
	case models.AudioWAV:
		return "wav"
	default:
		return originalExt
	}
}

// FFmpeg transcodes by piping bytes through an ffmpeg subprocess.
type FFmpeg struct {
	binary string
	logger *events.Logger
}

// NewFFmpeg creates a transcoder using the given ffmpeg binary. An
// empty path falls back to PATH lookup.
func NewFFmpeg(binary string, logger *events.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary: binary,
		logger: logger.WithField("component", "transcoder"),
	}
}

// Transcode converts input to the requested format. AudioOriginal
// passes the bytes through untouched.
func (f *FFmpeg) Transcode(ctx context.Context, input []byte, format models.AudioFormat) ([]byte, error) {
	if format == models.AudioOriginal || format == "" {
		return input, nil
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-vn"}
	switch format {
	case models.AudioMP3:
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2", "-f", "mp3")
	case models.AudioWAV:
		args = append(args, "-c:a", "pcm_s16le", "-f", "wav")
	default:
		return nil, models.Errorf(models.ErrKindTranscode, "unsupported audio format %q", format)
	}
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, f.binary, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.logger.WithFields(map[string]interface{}{
		"format": string(format),
		"bytes":  len(input),
	}).Debug("Transcoding audio")

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, models.WrapError(models.ErrKindTranscode, "ffmpeg: "+detail, err)
	}

	return stdout.Bytes(), nil
}
