// Package youtube validates YouTube video URLs and extracts video IDs.
package youtube

import (
	"errors"
	"regexp"
)

var (
	// ErrInvalidURL is returned when the input does not look like a
	// youtube.com/watch?v= or youtu.be/ link.
	ErrInvalidURL = errors.New("not a YouTube video URL")

	// ErrIDExtractionFailed is returned when no video ID can be captured.
	ErrIDExtractionFailed = errors.New("could not extract video ID")
)

var (
	urlPattern     = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[A-Za-z0-9_-]+`)
	videoIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`)
)

// IsVideoURL reports whether rawURL has the shape of a YouTube video link.
func IsVideoURL(rawURL string) bool {
	return urlPattern.MatchString(rawURL)
}

// Validate returns ErrInvalidURL unless rawURL is a YouTube video link.
func Validate(rawURL string) error {
	if !IsVideoURL(rawURL) {
		return ErrInvalidURL
	}
	return nil
}

// ExtractVideoID returns the ID that follows watch?v= or youtu.be/, up to
// the first '&', '?', '#' or newline.
// It does not call Validate.
func ExtractVideoID(rawURL string) (string, error) {
	match := videoIDPattern.FindStringSubmatch(rawURL)
	if len(match) < 2 || match[1] == "" {
		return "", ErrIDExtractionFailed
	}
	return match[1], nil
}

