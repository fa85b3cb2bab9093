// Package frames turns video bytes into an ordered, bounded sequence of
// JPEG-encoded still frames by shelling out to ffmpeg.
package frames

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Options controls frame sampling.
type Options struct {
	FPS       int
	MaxFrames int
}

// Extract samples frames from the video at opts.FPS frames per second and
// returns at most opts.MaxFrames of them in playback order. Any ffmpeg
// failure is fatal to the whole request.
func Extract(ctx context.Context, video []byte, opts Options) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "demoocr-frames-")
	if err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, "input.mp4")
	if err := os.WriteFile(inputPath, video, 0644); err != nil {
		return nil, fmt.Errorf("failed to write video file: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vf", fmt.Sprintf("fps=%d", opts.FPS),
		"-q:v", "2",
		filepath.Join(dir, "frame_%03d.jpg"),
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, tail(output, 512))
	}

	frames := make([][]byte, 0, opts.MaxFrames)
	for i := 1; i <= opts.MaxFrames; i++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i)))
		if err != nil {
			break
		}
		frames = append(frames, data)
	}

	slog.Info("Extracted video frames", "frames", len(frames), "fps", opts.FPS, "max", opts.MaxFrames)
	return frames, nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
