package captions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestFetchTranscriptRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/download-all/abc123", r.URL.Path)
		assert.Equal(t, "srt", r.URL.Query().Get("format_subtitle"))
		assert.Equal(t, "json", r.URL.Query().Get("format_answer"))
		assert.Equal(t, "secret-key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "captions.test", r.Header.Get("X-RapidAPI-Host"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"languageCode":"en","subtitle":"Hello world."},{"languageCode":"de","subtitle":"Hallo Welt."}]`))
	}))
	defer server.Close()

	client := New("secret-key", WithBaseURL(server.URL), WithHost("captions.test"))

	transcript, err := client.FetchTranscript(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", transcript)
}

func TestFetchTranscriptFailures(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server_error", http.StatusInternalServerError, `{"message":"oops"}`, ErrFetchFailed},
		{"forbidden", http.StatusForbidden, `{"message":"You are not subscribed to this API."}`, ErrFetchFailed},
		{"object_instead_of_list", http.StatusOK, `{"message":"no captions"}`, ErrFetchFailed},
		{"not_json", http.StatusOK, `<html>bad gateway</html>`, ErrFetchFailed},
		{"empty_list", http.StatusOK, `[]`, ErrEmptyTranscript},
		{"missing_subtitle", http.StatusOK, `[{"languageCode":"en"}]`, ErrEmptyTranscript},
		{"blank_subtitle", http.StatusOK, `[{"subtitle":"   "}]`, ErrEmptyTranscript},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var calls int32
			server := newTestServer(t, testCase.status, testCase.body, &calls)
			client := New("key", WithBaseURL(server.URL))

			transcript, err := client.FetchTranscript(context.Background(), "abc123")
			assert.ErrorIs(t, err, testCase.wantErr)
			assert.Empty(t, transcript)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "the captions call must not be retried")
		})
	}
}

func TestFetchTranscriptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"subtitle":"late"}]`))
	}))
	defer server.Close()

	client := New("key", WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))

	_, err := client.FetchTranscript(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrFetchFailed)
}
