// Package driver orchestrates the processing pipeline: download the
// requested video and audio streams, merge them, trim to the requested
// range, upload the result to Vimeo, and attach an optional thumbnail.
//
// Each stage writes one artifact into the per-video working directory and
// is skipped on re-run when that artifact already exists. The check is
// presence only; a truncated file from an interrupted run must be removed
// by hand before re-running.
package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chenwu/vimeo-uploader/internal/config"
	"github.com/chenwu/vimeo-uploader/internal/request"
	"github.com/chenwu/vimeo-uploader/pkg/util"
)

// Downloader fetches single-track streams from the source platform.
type Downloader interface {
	DownloadVideo(ctx context.Context, videoURL, resolution, dest string) error
	DownloadAudio(ctx context.Context, videoURL, dest string) error
}

// Transcoder performs the two stream-copy operations of the pipeline.
type Transcoder interface {
	Merge(ctx context.Context, videoPath, audioPath, output string) error
	Trim(ctx context.Context, input, output string, start, duration time.Duration) error
}

// Uploader pushes the finished clip to the remote service.
type Uploader interface {
	Upload(ctx context.Context, path, title string) (uri string, err error)
	TranscodeStatus(ctx context.Context, uri string) (string, error)
	UploadThumbnail(ctx context.Context, uri, imagePath string) error
}

// Prober reports the duration of a finished artifact, for logging only.
// Optional; a nil Prober disables the post-trim probe.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Artifacts are the four deterministically-named files one run produces.
// Paths are pure functions of (video ID, resolution, start, end); nothing
// here is ever deleted by the pipeline.
type Artifacts struct {
	Dir         string
	VideoStream string
	AudioStream string
	Combined    string
	Trimmed     string
}

// Driver runs the pipeline. Credentials and directory settings are
// replaceable between runs; a Driver is not safe for concurrent use.
type Driver struct {
	logger zerolog.Logger

	vimeoCfg *config.VimeoConfig
	dirCfg   *config.DirectoryConfig

	downloader Downloader
	transcoder Transcoder
	uploader   Uploader
	prober     Prober

	// newUploader rebuilds the uploader when credentials are replaced.
	// Nil when the uploader was injected directly (tests).
	newUploader func(*config.VimeoConfig) Uploader
}

// New creates a Driver with explicit collaborators.
func New(logger zerolog.Logger, vimeoCfg *config.VimeoConfig, dirCfg *config.DirectoryConfig,
	dl Downloader, tc Transcoder, up Uploader) *Driver {
	return &Driver{
		logger:     logger.With().Str("component", "driver").Logger(),
		vimeoCfg:   vimeoCfg,
		dirCfg:     dirCfg,
		downloader: dl,
		transcoder: tc,
		uploader:   up,
	}
}

// SetVimeoConfig replaces the credentials used by subsequent runs.
func (d *Driver) SetVimeoConfig(cfg *config.VimeoConfig) {
	d.vimeoCfg = cfg
	if d.newUploader != nil {
		d.uploader = d.newUploader(cfg)
	}
}

// SetDirectoryConfig replaces the directory settings used by subsequent runs.
func (d *Driver) SetDirectoryConfig(cfg *config.DirectoryConfig) {
	d.dirCfg = cfg
}

// Artifacts computes the working directory and artifact paths for req.
func (d *Driver) Artifacts(req *request.VideoRequest) Artifacts {
	base := config.DefaultVideosDir()
	if d.dirCfg != nil && d.dirCfg.VideosDir != "" {
		base = d.dirCfg.VideosDir
	}

	dir := filepath.Join(base, req.VideoID)
	return Artifacts{
		Dir:         dir,
		VideoStream: filepath.Join(dir, fmt.Sprintf("video_stream_%s.mp4", req.Resolution)),
		AudioStream: filepath.Join(dir, fmt.Sprintf("audio_stream_%s.mp3", req.Resolution)),
		Combined:    filepath.Join(dir, fmt.Sprintf("combined_%s.mp4", req.Resolution)),
		Trimmed:     filepath.Join(dir, fmt.Sprintf("%d_%d_%s.mp4", req.StartSec, req.EndSec, req.Resolution)),
	}
}

// Process runs the full pipeline for one request. Every failure is logged
// and returned immediately; there is no retry and no partial salvage.
func (d *Driver) Process(ctx context.Context, req *request.VideoRequest) error {
	logger := d.logger.With().
		Str("run_id", uuid.NewString()).
		Str("video", req.VideoID).
		Str("resolution", req.Resolution).
		Logger()

	art := d.Artifacts(req)

	if !util.FileExists(art.Dir) {
		logger.Info().Str("dir", art.Dir).Msg("creating working directory")
	}
	if err := util.EnsureDir(art.Dir); err != nil {
		logger.Error().Err(err).Str("dir", art.Dir).Msg("failed to create working directory")
		return fmt.Errorf("create working directory %s: %w", art.Dir, err)
	}

	if err := d.download(ctx, logger, req, art); err != nil {
		return err
	}

	if err := d.merge(ctx, logger, art); err != nil {
		return err
	}

	if err := d.trim(ctx, logger, req, art); err != nil {
		return err
	}

	uri, err := d.upload(ctx, logger, req, art)
	if err != nil {
		return err
	}

	if err := d.attachThumbnail(ctx, logger, req, uri); err != nil {
		return err
	}

	logger.Info().
		Str("uri", uri).
		Msg("processing complete; the Vimeo page is https://vimeo.com/<id> where <id> is the number in the URI")
	return nil
}

func (d *Driver) download(ctx context.Context, logger zerolog.Logger, req *request.VideoRequest, art Artifacts) error {
	if util.FileExists(art.VideoStream) && util.FileExists(art.AudioStream) {
		logger.Info().Msg("streams already downloaded, skipping")
		return nil
	}

	if err := d.downloader.DownloadVideo(ctx, req.URL, req.Resolution, art.VideoStream); err != nil {
		logger.Error().Err(err).Msg("failed to download the video stream")
		return err
	}
	if err := d.downloader.DownloadAudio(ctx, req.URL, art.AudioStream); err != nil {
		logger.Error().Err(err).Msg("failed to download the audio stream")
		return err
	}

	logger.Info().Msg("downloaded the video and audio tracks")
	return nil
}

func (d *Driver) merge(ctx context.Context, logger zerolog.Logger, art Artifacts) error {
	if util.FileExists(art.Combined) {
		logger.Info().Msg("merged artifact exists, skipping merge")
		return nil
	}

	if err := d.transcoder.Merge(ctx, art.VideoStream, art.AudioStream, art.Combined); err != nil {
		logger.Error().Err(err).Msg("failed to merge video and audio")
		return err
	}

	logger.Info().Msg("finished joining the video")
	return nil
}

func (d *Driver) trim(ctx context.Context, logger zerolog.Logger, req *request.VideoRequest, art Artifacts) error {
	if util.FileExists(art.Trimmed) {
		logger.Info().Msg("trimmed artifact exists, skipping trim")
		return nil
	}

	start := time.Duration(req.StartSec) * time.Second
	duration := time.Duration(req.EndSec-req.StartSec) * time.Second

	if err := d.transcoder.Trim(ctx, art.Combined, art.Trimmed, start, duration); err != nil {
		logger.Error().Err(err).Msg("failed to trim the video")
		return err
	}

	if d.prober != nil {
		if got, err := d.prober.Duration(ctx, art.Trimmed); err == nil {
			logger.Info().Dur("duration", got).Msg("finished trimming the video")
			return nil
		}
	}

	logger.Info().Msg("finished trimming the video")
	return nil
}

func (d *Driver) upload(ctx context.Context, logger zerolog.Logger, req *request.VideoRequest, art Artifacts) (string, error) {
	logger.Info().
		Str("path", art.Trimmed).
		Str("title", req.Title).
		Msg("uploading video to Vimeo")

	uri, err := d.uploader.Upload(ctx, art.Trimmed, req.Title)
	if err != nil {
		logger.Error().Err(err).Str("path", art.Trimmed).Msg("error uploading")
		return "", err
	}

	status, err := d.uploader.TranscodeStatus(ctx, uri)
	if err != nil {
		logger.Warn().Err(err).Str("uri", uri).Msg("could not fetch transcode status")
	} else {
		logger.Info().Str("uri", uri).Str("status", status).Msg("transcode status")
	}

	return uri, nil
}

func (d *Driver) attachThumbnail(ctx context.Context, logger zerolog.Logger, req *request.VideoRequest, uri string) error {
	if req.ThumbnailPath == "" {
		return nil
	}

	if err := d.uploader.UploadThumbnail(ctx, uri, req.ThumbnailPath); err != nil {
		logger.Error().Err(err).Str("image", req.ThumbnailPath).Msg("failed to attach thumbnail")
		return err
	}

	logger.Info().Str("image", req.ThumbnailPath).Msg("thumbnail attached and activated")
	return nil
}
