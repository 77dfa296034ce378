package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chenwu/vimeo-uploader/internal/config"
	"github.com/chenwu/vimeo-uploader/internal/request"
)

type fakeDownloader struct {
	videoCalls int
	audioCalls int
	err        error
}

func (f *fakeDownloader) DownloadVideo(ctx context.Context, videoURL, resolution, dest string) error {
	f.videoCalls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("video"), 0644)
}

func (f *fakeDownloader) DownloadAudio(ctx context.Context, videoURL, dest string) error {
	f.audioCalls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("audio"), 0644)
}

type fakeTranscoder struct {
	mergeCalls   int
	trimCalls    int
	trimStart    time.Duration
	trimDuration time.Duration
	err          error
}

func (f *fakeTranscoder) Merge(ctx context.Context, videoPath, audioPath, output string) error {
	f.mergeCalls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("combined"), 0644)
}

func (f *fakeTranscoder) Trim(ctx context.Context, input, output string, start, duration time.Duration) error {
	f.trimCalls++
	f.trimStart = start
	f.trimDuration = duration
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("trimmed"), 0644)
}

type fakeUploader struct {
	uploadCalls    int
	uploadPath     string
	uploadTitle    string
	uploadErr      error
	statusCalls    int
	thumbnailCalls int
	thumbnailURI   string
	thumbnailPath  string
}

func (f *fakeUploader) Upload(ctx context.Context, path, title string) (string, error) {
	f.uploadCalls++
	f.uploadPath = path
	f.uploadTitle = title
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "/videos/42", nil
}

func (f *fakeUploader) TranscodeStatus(ctx context.Context, uri string) (string, error) {
	f.statusCalls++
	return "in_progress", nil
}

func (f *fakeUploader) UploadThumbnail(ctx context.Context, uri, imagePath string) error {
	f.thumbnailCalls++
	f.thumbnailURI = uri
	f.thumbnailPath = imagePath
	return nil
}

type testHarness struct {
	driver *Driver
	dl     *fakeDownloader
	tc     *fakeTranscoder
	up     *fakeUploader
	base   string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	base := t.TempDir()
	dl := &fakeDownloader{}
	tc := &fakeTranscoder{}
	up := &fakeUploader{}

	d := New(zerolog.Nop(),
		&config.VimeoConfig{AccessToken: "tok", ClientID: "id", ClientSecret: "sec"},
		&config.DirectoryConfig{VideosDir: base},
		dl, tc, up)

	return &testHarness{driver: d, dl: dl, tc: tc, up: up, base: base}
}

func testRequest(t *testing.T, thumbnail string) *request.VideoRequest {
	t.Helper()
	req, err := request.New("abc123", "00:00:10", "00:00:20", "1080p", "My Title", thumbnail)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	return req
}

func TestArtifactsDeterministic(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")

	a := h.driver.Artifacts(req)
	b := h.driver.Artifacts(req)
	if a != b {
		t.Errorf("artifact paths differ across calls: %+v vs %+v", a, b)
	}

	wantDir := filepath.Join(h.base, "abc123")
	if a.Dir != wantDir {
		t.Errorf("Dir = %q, want %q", a.Dir, wantDir)
	}
	if got, want := filepath.Base(a.VideoStream), "video_stream_1080p.mp4"; got != want {
		t.Errorf("video stream = %q, want %q", got, want)
	}
	if got, want := filepath.Base(a.AudioStream), "audio_stream_1080p.mp3"; got != want {
		t.Errorf("audio stream = %q, want %q", got, want)
	}
	if got, want := filepath.Base(a.Combined), "combined_1080p.mp4"; got != want {
		t.Errorf("combined = %q, want %q", got, want)
	}
	if got, want := filepath.Base(a.Trimmed), "10_20_1080p.mp4"; got != want {
		t.Errorf("trimmed = %q, want %q", got, want)
	}
}

func TestProcessEndToEnd(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")

	if err := h.driver.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if h.dl.videoCalls != 1 {
		t.Errorf("video downloaded %d times, want 1", h.dl.videoCalls)
	}
	if h.dl.audioCalls != 1 {
		t.Errorf("audio downloaded %d times, want 1", h.dl.audioCalls)
	}
	if h.tc.mergeCalls != 1 {
		t.Errorf("merge called %d times, want 1", h.tc.mergeCalls)
	}
	if h.tc.trimCalls != 1 {
		t.Errorf("trim called %d times, want 1", h.tc.trimCalls)
	}
	if h.up.uploadCalls != 1 {
		t.Errorf("upload called %d times, want 1", h.up.uploadCalls)
	}
	if h.up.statusCalls != 1 {
		t.Errorf("transcode status polled %d times, want 1", h.up.statusCalls)
	}

	art := h.driver.Artifacts(req)
	if h.up.uploadPath != art.Trimmed {
		t.Errorf("uploaded %q, want trimmed artifact %q", h.up.uploadPath, art.Trimmed)
	}
	if h.up.uploadTitle != "My Title" {
		t.Errorf("uploaded title %q, want %q", h.up.uploadTitle, "My Title")
	}
	if h.up.thumbnailCalls != 0 {
		t.Errorf("thumbnail attached %d times with no path supplied", h.up.thumbnailCalls)
	}
}

// The trim stage's duration must be the difference end-start, not the raw
// end timestamp. The legacy workflow passed the end second straight
// through as a duration, producing clips up to twice the requested
// length; that behavior is deliberately not preserved.
func TestProcessTrimDuration(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")

	if err := h.driver.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if h.tc.trimStart != 10*time.Second {
		t.Errorf("trim start = %v, want 10s", h.tc.trimStart)
	}
	if h.tc.trimDuration != 10*time.Second {
		t.Errorf("trim duration = %v, want end-start = 10s", h.tc.trimDuration)
	}
	if h.tc.trimDuration == 20*time.Second {
		t.Error("trim duration equals the raw end timestamp (legacy defect)")
	}
}

func TestProcessCreatesWorkingDirectory(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")

	dir := h.driver.Artifacts(req).Dir
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("working directory unexpectedly present before run")
	}

	if err := h.driver.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("working directory was not created: %v", err)
	}
}

func TestProcessSkipsCompletedStages(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")
	art := h.driver.Artifacts(req)

	if err := os.MkdirAll(art.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{art.VideoStream, art.AudioStream, art.Combined} {
		if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := h.driver.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if h.dl.videoCalls != 0 || h.dl.audioCalls != 0 {
		t.Errorf("download invoked (%d video, %d audio) despite existing streams", h.dl.videoCalls, h.dl.audioCalls)
	}
	if h.tc.mergeCalls != 0 {
		t.Errorf("merge invoked %d times despite existing combined artifact", h.tc.mergeCalls)
	}
	if h.tc.trimCalls != 1 {
		t.Errorf("trim called %d times, want 1", h.tc.trimCalls)
	}
	if h.up.uploadCalls != 1 {
		t.Errorf("upload called %d times, want 1", h.up.uploadCalls)
	}
}

func TestProcessRedownloadsWhenOneStreamMissing(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")
	art := h.driver.Artifacts(req)

	if err := os.MkdirAll(art.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(art.VideoStream, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := h.driver.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if h.dl.videoCalls != 1 || h.dl.audioCalls != 1 {
		t.Errorf("expected both streams re-fetched, got %d video / %d audio", h.dl.videoCalls, h.dl.audioCalls)
	}
}

func TestProcessAttachesThumbnail(t *testing.T) {
	h := newHarness(t)
	thumb := filepath.Join(t.TempDir(), "thumb.png")
	if err := os.WriteFile(thumb, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	req := testRequest(t, thumb)

	if err := h.driver.Process(context.Background(), req); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if h.up.thumbnailCalls != 1 {
		t.Fatalf("thumbnail attached %d times, want 1", h.up.thumbnailCalls)
	}
	if h.up.thumbnailURI != "/videos/42" {
		t.Errorf("thumbnail URI = %q", h.up.thumbnailURI)
	}
	if h.up.thumbnailPath != thumb {
		t.Errorf("thumbnail path = %q, want %q", h.up.thumbnailPath, thumb)
	}
}

func TestProcessNoThumbnailOnUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.up.uploadErr = errors.New("server rejected upload")
	req := testRequest(t, filepath.Join(t.TempDir(), "thumb.png"))

	err := h.driver.Process(context.Background(), req)
	if err == nil {
		t.Fatal("expected upload error to propagate")
	}
	if !errors.Is(err, h.up.uploadErr) {
		t.Errorf("error %v does not wrap the upload failure", err)
	}
	if h.up.thumbnailCalls != 0 {
		t.Errorf("thumbnail attached %d times after failed upload", h.up.thumbnailCalls)
	}
}

func TestProcessHaltsOnDownloadFailure(t *testing.T) {
	h := newHarness(t)
	h.dl.err = errors.New("video unavailable")
	req := testRequest(t, "")

	err := h.driver.Process(context.Background(), req)
	if err == nil {
		t.Fatal("expected download error to propagate")
	}
	if h.tc.mergeCalls != 0 || h.tc.trimCalls != 0 || h.up.uploadCalls != 0 {
		t.Error("later stages ran after a download failure")
	}
}

func TestProcessHaltsOnMergeFailure(t *testing.T) {
	h := newHarness(t)
	h.tc.err = errors.New("ffmpeg exploded")
	req := testRequest(t, "")

	if err := h.driver.Process(context.Background(), req); err == nil {
		t.Fatal("expected merge error to propagate")
	}
	if h.up.uploadCalls != 0 {
		t.Error("upload ran after a transcode failure")
	}
}

func TestSetDirectoryConfig(t *testing.T) {
	h := newHarness(t)
	req := testRequest(t, "")

	other := t.TempDir()
	h.driver.SetDirectoryConfig(&config.DirectoryConfig{VideosDir: other})

	art := h.driver.Artifacts(req)
	if art.Dir != filepath.Join(other, "abc123") {
		t.Errorf("Dir = %q, want under replaced base %q", art.Dir, other)
	}
}
