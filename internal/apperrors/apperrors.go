// Package apperrors defines the error taxonomy surfaced by the summarizer
// service. Every failure that crosses the HTTP boundary is converted into an
// *Error carrying a Kind; the Kind decides the HTTP status and the message
// shown to the client, while the wrapped cause is only ever logged.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternalError Kind = iota
	KindInvalidURL
	KindIDExtractionFailed
	KindTranscriptFetchFailed
	KindTranscriptEmpty
	KindRateLimited
	KindGenerationServiceError
	KindUnauthorized
	KindInvalidInput
	KindInvalidCredentials
	KindForbidden
	KindQuotaExceeded
	KindAccountServiceError
	KindThrottled
)

type kindInfo struct {
	name    string
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	KindInternalError: {
		"InternalError",
		http.StatusInternalServerError,
		"Internal server error",
	},
	KindInvalidURL: {
		"InvalidUrl",
		http.StatusBadRequest,
		"Invalid YouTube video URL",
	},
	KindIDExtractionFailed: {
		"IdExtractionFailed",
		http.StatusBadRequest,
		"Could not extract the video ID",
	},
	KindTranscriptFetchFailed: {
		"TranscriptFetchFailed",
		http.StatusInternalServerError,
		"Could not fetch the video transcript from the captions service",
	},
	KindTranscriptEmpty: {
		"TranscriptEmpty",
		http.StatusBadRequest,
		"Could not get a transcript for this video",
	},
	KindRateLimited: {
		"RateLimited",
		http.StatusTooManyRequests,
		"The AI request limit has been exceeded. Please try again later or use another service.",
	},
	KindGenerationServiceError: {
		"GenerationServiceError",
		http.StatusInternalServerError,
		"AI service error. Please try again later.",
	},
	KindUnauthorized: {
		"Unauthorized",
		http.StatusUnauthorized,
		"Authentication required",
	},
	KindInvalidInput: {
		"InvalidInput",
		http.StatusBadRequest,
		"Invalid request",
	},
	KindInvalidCredentials: {
		"InvalidCredentials",
		http.StatusUnauthorized,
		"Invalid email or password",
	},
	KindForbidden: {
		"Forbidden",
		http.StatusForbidden,
		"Access denied",
	},
	KindQuotaExceeded: {
		"QuotaExceeded",
		http.StatusForbidden,
		"Generation limit reached for this account",
	},
	KindAccountServiceError: {
		"AccountServiceError",
		http.StatusInternalServerError,
		"Account service error. Please try again later.",
	},
	KindThrottled: {
		"Throttled",
		http.StatusTooManyRequests,
		"Too many requests. Please slow down.",
	},
}

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Status returns the HTTP status code the kind is reported with.
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// DefaultMessage returns the client-facing message used when an Error
// does not carry its own.
func (k Kind) DefaultMessage() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return kinds[KindInternalError].message
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "summarizer.Summarize".
	Op string
	// Message overrides the kind's default client-facing message when set.
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage is the text that may be sent to the client.
func (e *Error) PublicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.DefaultMessage()
}

// New builds an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithMessage builds an Error whose client-facing message is msg.
func WithMessage(kind Kind, op string, err error, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// As extracts the *Error from err's chain. Unclassified errors are wrapped
// into KindInternalError so the caller always gets something renderable.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(KindInternalError, "", err)
}

// KindOf returns the kind of err, KindInternalError for unclassified errors.
func KindOf(err error) Kind {
	return As(err).Kind
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
