package driver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/chenwu/vimeo-uploader/internal/config"
	"github.com/chenwu/vimeo-uploader/internal/ffmpeg"
	"github.com/chenwu/vimeo-uploader/internal/vimeo"
	"github.com/chenwu/vimeo-uploader/internal/youtube"
)

// NewDefault wires a Driver with the production collaborators: the YouTube
// stream downloader, the ffmpeg executor, and the Vimeo API client.
func NewDefault(logger zerolog.Logger, vimeoCfg *config.VimeoConfig, dirCfg *config.DirectoryConfig) (*Driver, error) {
	exec, err := ffmpeg.New(logger)
	if err != nil {
		return nil, err
	}

	newUploader := func(cfg *config.VimeoConfig) Uploader {
		return vimeo.NewClient(logger, vimeo.Config{AccessToken: cfg.AccessToken})
	}

	d := New(logger, vimeoCfg, dirCfg,
		&youtubeDownloader{dl: youtube.NewDownloader(logger), logger: logger},
		&ffmpegTranscoder{exec: exec},
		newUploader(vimeoCfg),
	)
	d.prober = &ffmpegProber{exec: exec}
	d.newUploader = newUploader
	return d, nil
}

// youtubeDownloader adapts youtube.Downloader, logging coarse progress.
type youtubeDownloader struct {
	dl     *youtube.Downloader
	logger zerolog.Logger
}

func (y *youtubeDownloader) DownloadVideo(ctx context.Context, videoURL, resolution, dest string) error {
	return y.dl.DownloadVideo(ctx, videoURL, resolution, dest, y.progress(dest))
}

func (y *youtubeDownloader) DownloadAudio(ctx context.Context, videoURL, dest string) error {
	return y.dl.DownloadAudio(ctx, videoURL, dest, y.progress(dest))
}

// progress logs roughly once per 10 MB downloaded.
func (y *youtubeDownloader) progress(dest string) youtube.ProgressFunc {
	const step = 10 << 20
	var last int64
	return func(written, total int64) {
		if written-last < step {
			return
		}
		last = written
		y.logger.Debug().
			Str("dest", dest).
			Int64("bytes", written).
			Int64("total", total).
			Msg("download progress")
	}
}

// ffmpegTranscoder adapts ffmpeg.Executor to the Transcoder interface.
type ffmpegTranscoder struct {
	exec *ffmpeg.Executor
}

func (f *ffmpegTranscoder) Merge(ctx context.Context, videoPath, audioPath, output string) error {
	return f.exec.Merge(ctx, ffmpeg.MergeOptions{
		VideoPath: videoPath,
		AudioPath: audioPath,
		Output:    output,
	})
}

func (f *ffmpegTranscoder) Trim(ctx context.Context, input, output string, start, duration time.Duration) error {
	return f.exec.Trim(ctx, input, ffmpeg.TrimOptions{
		Start:    start,
		Duration: duration,
		Output:   output,
	})
}

// ffmpegProber reports artifact durations via ffprobe.
type ffmpegProber struct {
	exec *ffmpeg.Executor
}

func (f *ffmpegProber) Duration(ctx context.Context, path string) (time.Duration, error) {
	info, err := f.exec.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
