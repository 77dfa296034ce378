package ffmpeg

import (
	"context"
	"fmt"
)

// MergeOptions defines the inputs for muxing separate tracks into one file.
type MergeOptions struct {
	VideoPath    string
	AudioPath    string
	Output       string
	ProgressFunc ProgressFunc
}

// Merge multiplexes a video-only file and an audio-only file into a single
// container. Both streams are copied, never re-encoded.
func (e *Executor) Merge(ctx context.Context, opts MergeOptions) error {
	if opts.VideoPath == "" || opts.AudioPath == "" {
		return fmt.Errorf("video and audio input paths are required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("video", opts.VideoPath).
		Str("audio", opts.AudioPath).
		Str("output", opts.Output).
		Msg("merging video and audio tracks")

	args := []string{
		"-i", opts.VideoPath,
		"-i", opts.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "copy",
		opts.Output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("merging")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("merge complete")
	return nil
}
