// Package vimeo implements the narrow slice of the Vimeo API the pipeline
// needs: resumable (tus) video upload, a single transcode-status poll, and
// thumbnail attach/activate.
package vimeo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.vimeo.com"

	acceptHeader = "application/vnd.vimeo.*+json;version=3.4"
	tusVersion   = "1.0.0"
)

// Config holds client settings. AccessToken is required; BaseURL defaults
// to the production endpoint and exists for tests.
type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// UploadError describes a failed upload, carrying the server-reported
// message when one was returned.
type UploadError struct {
	Path    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upload %s: server reported: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Client talks to the Vimeo REST API.
type Client struct {
	logger  zerolog.Logger
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates an authenticated API client.
func NewClient(logger zerolog.Logger, cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute // uploads are large and unresumed
	}

	return &Client{
		logger:  logger.With().Str("component", "vimeo").Logger(),
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   cfg.AccessToken,
	}
}

type createVideoRequest struct {
	Upload  uploadParams  `json:"upload"`
	Name    string        `json:"name"`
	Privacy privacyParams `json:"privacy"`
}

type uploadParams struct {
	Approach string `json:"approach"`
	Size     int64  `json:"size"`
}

type privacyParams struct {
	Comments string `json:"comments"`
}

type createVideoResponse struct {
	URI    string `json:"uri"`
	Upload struct {
		UploadLink string `json:"upload_link"`
	} `json:"upload"`
}

// Upload pushes the file at path to Vimeo with the given title and
// comments disabled, returning the new video's resource URI.
func (c *Client) Upload(ctx context.Context, path, title string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", &UploadError{Path: path, Err: err}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", &UploadError{Path: path, Err: err}
	}

	c.logger.Info().
		Str("path", path).
		Str("title", title).
		Int64("size", stat.Size()).
		Msg("creating upload")

	created, err := c.createVideo(ctx, title, stat.Size())
	if err != nil {
		return "", &UploadError{Path: path, Message: serverMessage(err), Err: err}
	}

	if err := c.uploadBytes(ctx, created.Upload.UploadLink, file, stat.Size()); err != nil {
		return "", &UploadError{Path: path, Message: serverMessage(err), Err: err}
	}

	c.logger.Info().Str("uri", created.URI).Msg("upload complete")
	return created.URI, nil
}

// TranscodeStatus polls the transcode status field of an uploaded video
// once and returns it.
func (c *Client) TranscodeStatus(ctx context.Context, uri string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+uri+"?fields=transcode.status", nil)
	if err != nil {
		return "", err
	}

	var body struct {
		Transcode struct {
			Status string `json:"status"`
		} `json:"transcode"`
	}
	if err := c.do(req, &body); err != nil {
		return "", fmt.Errorf("transcode status for %s: %w", uri, err)
	}

	return body.Transcode.Status, nil
}

// UploadThumbnail attaches the image at imagePath to the video at uri and
// activates it.
func (c *Client) UploadThumbnail(ctx context.Context, uri, imagePath string) error {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read thumbnail %s: %w", imagePath, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+uri+"/pictures", nil)
	if err != nil {
		return err
	}

	var picture struct {
		URI  string `json:"uri"`
		Link string `json:"link"`
	}
	if err := c.do(req, &picture); err != nil {
		return fmt.Errorf("create picture for %s: %w", uri, err)
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, picture.Link, bytes.NewReader(image))
	if err != nil {
		return err
	}
	put.Header.Set("Content-Type", http.DetectContentType(image))
	if err := c.do(put, nil); err != nil {
		return fmt.Errorf("upload picture bytes: %w", err)
	}

	activate, err := c.newRequest(ctx, http.MethodPatch, c.baseURL+picture.URI, bytes.NewReader([]byte(`{"active":true}`)))
	if err != nil {
		return err
	}
	activate.Header.Set("Content-Type", "application/json")
	if err := c.do(activate, nil); err != nil {
		return fmt.Errorf("activate picture %s: %w", picture.URI, err)
	}

	c.logger.Info().Str("uri", uri).Str("picture", picture.URI).Msg("thumbnail activated")
	return nil
}

func (c *Client) createVideo(ctx context.Context, title string, size int64) (*createVideoResponse, error) {
	payload, err := json.Marshal(createVideoRequest{
		Upload:  uploadParams{Approach: "tus", Size: size},
		Name:    title,
		Privacy: privacyParams{Comments: "nobody"},
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/me/videos", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var created createVideoResponse
	if err := c.do(req, &created); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	if created.Upload.UploadLink == "" {
		return nil, fmt.Errorf("create video: response missing upload link")
	}

	return &created, nil
}

// uploadBytes streams the file to the tus upload link in one PATCH and
// verifies the server acknowledged the full size.
func (c *Client) uploadBytes(ctx context.Context, uploadLink string, file io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, uploadLink, file)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Tus-Resumable", tusVersion)
	req.Header.Set("Upload-Offset", "0")
	req.Header.Set("Content-Type", "application/offset+octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload bytes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	offset, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return fmt.Errorf("upload bytes: bad Upload-Offset header: %w", err)
	}
	if offset != size {
		return fmt.Errorf("upload incomplete: server has %d of %d bytes", offset, size)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// serverError is the JSON error body the API returns on failure.
type serverError struct {
	Status           int
	ErrorMessage     string `json:"error"`
	DeveloperMessage string `json:"developer_message"`
}

func (e *serverError) Error() string {
	msg := e.ErrorMessage
	if msg == "" {
		msg = e.DeveloperMessage
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("vimeo API error (%d): %s", e.Status, msg)
}

func apiError(resp *http.Response) error {
	se := &serverError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		json.Unmarshal(body, se)
	}
	return se
}

// serverMessage extracts the server-reported message from an error chain.
func serverMessage(err error) string {
	var se *serverError
	if errors.As(err, &se) {
		return se.Error()
	}
	return ""
}
