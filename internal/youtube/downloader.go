// Package youtube downloads single-track streams from YouTube: the
// video-only stream matching a requested resolution and the best available
// audio-only stream.
package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

// DownloadError wraps a failure while fetching a stream.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ProgressFunc receives the number of bytes written so far and the total
// stream size, when known.
type ProgressFunc func(written, total int64)

// Downloader fetches streams via the YouTube innertube API.
type Downloader struct {
	logger zerolog.Logger
	client *yt.Client
}

// NewDownloader creates a Downloader with a sane HTTP timeout for the
// metadata calls. Stream reads are bounded by the caller's context.
func NewDownloader(logger zerolog.Logger) *Downloader {
	return &Downloader{
		logger: logger.With().Str("component", "youtube").Logger(),
		client: &yt.Client{
			HTTPClient: &http.Client{Timeout: 10 * time.Minute},
		},
	}
}

// DownloadVideo fetches the video-only stream whose quality label exactly
// matches resolution (e.g. "1080p") and writes it to dest.
func (d *Downloader) DownloadVideo(ctx context.Context, videoURL, resolution, dest string, progress ProgressFunc) error {
	video, err := d.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return &DownloadError{URL: videoURL, Err: fmt.Errorf("fetch metadata: %w", err)}
	}

	format := pickVideoFormat(video.Formats, resolution)
	if format == nil {
		return &DownloadError{URL: videoURL, Err: fmt.Errorf("no video stream with resolution %s", resolution)}
	}

	d.logger.Info().
		Str("video", video.ID).
		Str("resolution", resolution).
		Int("itag", format.ItagNo).
		Msg("downloading video stream")

	return d.saveStream(ctx, video, format, dest, progress)
}

// DownloadAudio fetches the first available audio-only stream, preferring
// the highest bitrate, and writes it to dest.
func (d *Downloader) DownloadAudio(ctx context.Context, videoURL, dest string, progress ProgressFunc) error {
	video, err := d.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return &DownloadError{URL: videoURL, Err: fmt.Errorf("fetch metadata: %w", err)}
	}

	format := pickAudioFormat(video.Formats)
	if format == nil {
		return &DownloadError{URL: videoURL, Err: fmt.Errorf("no audio-only stream available")}
	}

	d.logger.Info().
		Str("video", video.ID).
		Int("itag", format.ItagNo).
		Int("bitrate", format.Bitrate).
		Msg("downloading audio stream")

	return d.saveStream(ctx, video, format, dest, progress)
}

func (d *Downloader) saveStream(ctx context.Context, video *yt.Video, format *yt.Format, dest string, progress ProgressFunc) error {
	stream, size, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return &DownloadError{URL: video.ID, Err: fmt.Errorf("open stream: %w", err)}
	}
	defer stream.Close()

	out, err := os.Create(dest)
	if err != nil {
		return &DownloadError{URL: video.ID, Err: fmt.Errorf("create %s: %w", dest, err)}
	}
	defer out.Close()

	var w io.Writer = out
	if progress != nil {
		w = io.MultiWriter(out, &progressWriter{total: size, fn: progress})
	}

	written, err := io.Copy(w, stream)
	if err != nil {
		return &DownloadError{URL: video.ID, Err: fmt.Errorf("write %s: %w", dest, err)}
	}

	d.logger.Info().
		Str("dest", dest).
		Int64("bytes", written).
		Msg("stream download complete")

	return nil
}

// pickVideoFormat selects a video-only format by exact quality label.
func pickVideoFormat(formats yt.FormatList, resolution string) *yt.Format {
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		if f.AudioChannels > 0 {
			continue
		}
		if f.QualityLabel == resolution {
			return f
		}
	}
	return nil
}

// pickAudioFormat selects the highest-bitrate audio-only format.
func pickAudioFormat(formats yt.FormatList) *yt.Format {
	var best *yt.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

// progressWriter reports cumulative byte counts to a ProgressFunc.
type progressWriter struct {
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	p.fn(p.written, p.total)
	return len(b), nil
}
