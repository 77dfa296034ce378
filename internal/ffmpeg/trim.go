package ffmpeg

import (
	"context"
	"fmt"
	"time"

	"github.com/chenwu/vimeo-uploader/pkg/util"
)

// TrimOptions defines trimming parameters. Start is the seek offset into
// the input; Duration is the length of the output.
type TrimOptions struct {
	Start        time.Duration
	Duration     time.Duration
	Output       string
	ProgressFunc ProgressFunc
}

// Trim cuts a segment out of input by seeking to the start offset and
// limiting the output duration. Both codecs are copied without re-encoding,
// so the cut lands on the nearest keyframe.
func (e *Executor) Trim(ctx context.Context, input string, opts TrimOptions) error {
	if opts.Duration <= 0 {
		return fmt.Errorf("invalid trim duration %v", opts.Duration)
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", opts.Duration).
		Msg("trimming video")

	args := []string{
		"-i", input,
		"-ss", util.FormatDuration(opts.Start),
		"-t", util.FormatDuration(opts.Duration),
		"-c:v", "copy",
		"-c:a", "copy",
		opts.Output,
	}

	runOpts := RunOptions{
		Args:            args,
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("trimming")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("trim failed: %w", err)
	}

	e.logger.Info().Str("output", opts.Output).Msg("trim complete")
	return nil
}
