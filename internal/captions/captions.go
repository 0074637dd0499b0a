// Package captions fetches video transcripts from the RapidAPI
// "YouTube captions, transcript, subtitles & video combiner" service.
package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the captions aggregation endpoint.
	DefaultBaseURL = "https://youtube-captions-transcript-subtitles-video-combiner.p.rapidapi.com"

	// DefaultHost is sent as X-RapidAPI-Host.
	DefaultHost = "youtube-captions-transcript-subtitles-video-combiner.p.rapidapi.com"

	subtitleFormat = "srt"
	answerFormat   = "json"
)

var (
	// ErrFetchFailed covers every transport-level failure: network errors,
	// timeouts, non-2xx statuses and bodies that are not a list of records.
	ErrFetchFailed = errors.New("captions request failed")

	// ErrEmptyTranscript means the service answered well-formed data that
	// holds no subtitle text for the video.
	ErrEmptyTranscript = errors.New("captions response holds no subtitle text")
)

// Record is one entry of the download-all answer.
type Record struct {
	LanguageCode string `json:"languageCode"`
	Subtitle     string `json:"subtitle"`
}

// Client talks to the captions API. It never retries.
type Client struct {
	http *resty.Client
}

// Option customizes a Client.
type Option func(*resty.Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *resty.Client) {
		c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

// WithHost overrides the X-RapidAPI-Host header.
func WithHost(host string) Option {
	return func(c *resty.Client) {
		c.SetHeader("X-RapidAPI-Host", host)
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(timeout)
	}
}

// New creates a captions client authenticated with apiKey.
func New(apiKey string, options ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(20*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("X-RapidAPI-Host", DefaultHost).
		SetHeader("X-RapidAPI-Key", apiKey)

	for _, option := range options {
		option(httpClient)
	}

	return &Client{http: httpClient}
}

// FetchTranscript downloads the subtitles of videoID and returns the text of
// the first record.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("videoID", videoID).
		SetQueryParams(map[string]string{
			"format_subtitle": subtitleFormat,
			"format_answer":   answerFormat,
		}).
		Get("/download-all/{videoID}")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", fmt.Errorf("%w: unexpected status %s", ErrFetchFailed, resp.Status())
	}

	var records []Record
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return "", fmt.Errorf("%w: malformed body: %v", ErrFetchFailed, err)
	}

	if len(records) == 0 || strings.TrimSpace(records[0].Subtitle) == "" {
		return "", ErrEmptyTranscript
	}

	return records[0].Subtitle, nil
}
