// Package request builds normalized processing requests from raw user
// input, converting timestamps to seconds and filling in a default title.
package request

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chenwu/vimeo-uploader/pkg/util"
)

// WatchURLPrefix is the canonical watch URL a bare video ID is joined to.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// DefaultResolution is used when the caller does not request one.
const DefaultResolution = "1080p"

var (
	// ErrInvalidTimeRange indicates the end timestamp does not exceed the start.
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	// ErrEmptySource indicates no video URL or ID was supplied.
	ErrEmptySource = errors.New("video URL or ID is required")
)

// VideoRequest is one user-requested processing job. Immutable after
// construction; consumed exactly once by the pipeline driver.
type VideoRequest struct {
	VideoID       string
	URL           string
	StartSec      int
	EndSec        int
	Resolution    string
	Title         string
	ThumbnailPath string
}

// New builds a VideoRequest from raw input. source may be a full watch URL,
// a youtu.be short link, or a bare video ID. start and end are timestamps
// in HH:MM:SS form. An empty title is replaced with the dated default.
func New(source, start, end, resolution, title, thumbnailPath string) (*VideoRequest, error) {
	videoID, err := ExtractVideoID(source)
	if err != nil {
		return nil, err
	}

	startSec, err := ParseSeconds(start)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}

	endSec, err := ParseSeconds(end)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}

	if endSec <= startSec {
		return nil, fmt.Errorf("%w (start=%ds end=%ds)", ErrInvalidTimeRange, startSec, endSec)
	}

	if resolution == "" {
		resolution = DefaultResolution
	}

	if strings.TrimSpace(title) == "" {
		title = DefaultTitle(time.Now())
	}

	return &VideoRequest{
		VideoID:       videoID,
		URL:           WatchURLPrefix + videoID,
		StartSec:      startSec,
		EndSec:        endSec,
		Resolution:    resolution,
		Title:         title,
		ThumbnailPath: thumbnailPath,
	}, nil
}

// ParseSeconds converts an HH:MM:SS-like timestamp to whole seconds.
func ParseSeconds(s string) (int, error) {
	d, err := util.ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return int(d.Seconds()), nil
}

// DefaultTitle returns the fallback title for the given date: a fixed
// prefix plus the date formatted MM/DD/YY.
func DefaultTitle(now time.Time) string {
	return "(CW) " + now.Format("01/02/06")
}

// ExtractVideoID pulls the video ID out of a watch URL, a youtu.be short
// link, or a bare ID.
func ExtractVideoID(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", ErrEmptySource
	}

	if !strings.Contains(source, "/") {
		return source, nil
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("invalid video URL %q: %w", source, err)
	}

	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}

	// youtu.be/<id> and other path-based forms
	if id := strings.Trim(u.Path, "/"); id != "" && !strings.Contains(id, "/") {
		return id, nil
	}

	return "", fmt.Errorf("cannot extract video ID from %q", source)
}
