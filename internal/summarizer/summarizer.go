// Package summarizer implements the summarization pipeline: URL
// validation, transcript retrieval, summary generation and formatting.
// Each request walks the stages in order exactly once; the first failing
// stage ends the request with a classified error.
package summarizer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/captions"
	"github.com/patric-chuzhbe/ytsummarizer/internal/formatter"
	"github.com/patric-chuzhbe/ytsummarizer/internal/gemini"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/youtube"
)

type transcriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}

type summaryGenerator interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Stage is a pipeline state.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageValidating         Stage = "validating"
	StageFetchingTranscript Stage = "fetchingTranscript"
	StageGeneratingSummary  Stage = "generatingSummary"
	StageComplete           Stage = "complete"
	StageFailed             Stage = "failed"
)

// Result is a successful summary.
type Result struct {
	VideoID    string
	Summary    string
	Paragraphs []string
}

// Pipeline is stateless and safe for concurrent use.
type Pipeline struct {
	transcripts transcriptFetcher
	generator   summaryGenerator
}

// New creates a pipeline over the given collaborators.
func New(transcripts transcriptFetcher, generator summaryGenerator) *Pipeline {
	return &Pipeline{
		transcripts: transcripts,
		generator:   generator,
	}
}

// run tracks the stage of one request.
type run struct {
	stage   Stage
	videoID string
}

func (r *run) enter(stage Stage) {
	logger.Log.Debugw("summarize stage", "from", r.stage, "to", stage, "videoID", r.videoID)
	r.stage = stage
}

func (r *run) fail(kind apperrors.Kind, cause error) error {
	logger.Log.Infow(
		"summarize failed",
		"stage", r.stage,
		"kind", kind.String(),
		"videoID", r.videoID,
		zap.Error(cause),
	)
	op := "summarizer." + string(r.stage)
	r.stage = StageFailed
	return apperrors.New(kind, op, cause)
}

// Summarize runs the whole pipeline for rawURL.
func (p *Pipeline) Summarize(ctx context.Context, rawURL string) (*Result, error) {
	r := &run{stage: StageIdle}

	r.enter(StageValidating)
	if err := youtube.Validate(rawURL); err != nil {
		return nil, r.fail(apperrors.KindInvalidURL, err)
	}

	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, r.fail(apperrors.KindIDExtractionFailed, err)
	}
	r.videoID = videoID

	r.enter(StageFetchingTranscript)
	transcript, err := p.transcripts.FetchTranscript(ctx, videoID)
	switch {
	case errors.Is(err, captions.ErrEmptyTranscript):
		return nil, r.fail(apperrors.KindTranscriptEmpty, err)
	case err != nil:
		return nil, r.fail(apperrors.KindTranscriptFetchFailed, err)
	case transcript == "":
		return nil, r.fail(apperrors.KindTranscriptEmpty, captions.ErrEmptyTranscript)
	}

	r.enter(StageGeneratingSummary)
	summary, err := p.generator.Summarize(ctx, transcript)
	switch {
	case errors.Is(err, gemini.ErrRateLimited):
		return nil, r.fail(apperrors.KindRateLimited, err)
	case err != nil:
		return nil, r.fail(apperrors.KindGenerationServiceError, err)
	}

	r.enter(StageComplete)
	logger.Log.Infow("summary created", "videoID", videoID, "transcriptLength", len(transcript))

	return &Result{
		VideoID:    videoID,
		Summary:    summary,
		Paragraphs: formatter.Paragraphs(summary),
	}, nil
}
