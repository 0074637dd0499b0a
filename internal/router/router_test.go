package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/auth"
	"github.com/patric-chuzhbe/ytsummarizer/internal/captions"
	"github.com/patric-chuzhbe/ytsummarizer/internal/db/memorystorage"
	"github.com/patric-chuzhbe/ytsummarizer/internal/gemini"
	"github.com/patric-chuzhbe/ytsummarizer/internal/ipchecker"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
	"github.com/patric-chuzhbe/ytsummarizer/internal/quota"
	"github.com/patric-chuzhbe/ytsummarizer/internal/service"
	"github.com/patric-chuzhbe/ytsummarizer/internal/summarizer"
	"github.com/patric-chuzhbe/ytsummarizer/internal/supabase"
	"github.com/patric-chuzhbe/ytsummarizer/internal/throttle"
)

const (
	testVideoURL       = "https://www.youtube.com/watch?v=abc123"
	testCaptionsBody   = `[{"languageCode":"en","subtitle":"hello world"}]`
	testGeminiBody     = `{"candidates":[{"content":{"parts":[{"text":"## Topic\n\nHello."}]}}]}`
	testEmail          = "alice@example.com"
	testPassword       = "Secret#123"
	testExemptIdentity = "owner@example.com"
	testSigningKey     = "router-test-signing-key-32-bytes"
)

type fakeAccount struct {
	account  supabase.Account
	password string
}

type fakeAccounts struct {
	mu        sync.Mutex
	byEmail   map[string]fakeAccount
	healthErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: map[string]fakeAccount{}}
}

func (f *fakeAccounts) SignUp(ctx context.Context, email, password, fullName string) (*supabase.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, found := f.byEmail[email]; found {
		return nil, &supabase.APIError{StatusCode: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}

	account := supabase.Account{ID: uuid.NewString(), Email: email, FullName: fullName}
	f.byEmail[email] = fakeAccount{account: account, password: password}

	return &account, nil
}

func (f *fakeAccounts) SignIn(ctx context.Context, email, password string) (*supabase.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, found := f.byEmail[email]
	if !found || stored.password != password {
		return nil, &supabase.APIError{StatusCode: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}

	account := stored.account
	return &account, nil
}

func (f *fakeAccounts) InsertProfile(ctx context.Context, userID, fullName string) error {
	return nil
}

func (f *fakeAccounts) DeleteProfile(ctx context.Context, userID string) error {
	return nil
}

func (f *fakeAccounts) DeleteUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for email, stored := range f.byEmail {
		if stored.account.ID == userID {
			delete(f.byEmail, email)
		}
	}

	return nil
}

func (f *fakeAccounts) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.healthErr
}

func (f *fakeAccounts) setHealthErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.healthErr = err
}

type initOptions struct {
	trustedSubnet   string
	ratePerMinute   int
	burst           int
	requireAuth     bool
	captionsHandler http.HandlerFunc
	geminiHandler   http.HandlerFunc
}

type initOption func(*initOptions)

func withTrustedSubnet(subnet string) initOption {
	return func(options *initOptions) {
		options.trustedSubnet = subnet
	}
}

func withRate(perMinute, burst int) initOption {
	return func(options *initOptions) {
		options.ratePerMinute = perMinute
		options.burst = burst
	}
}

func withRequireAuth(requireAuth bool) initOption {
	return func(options *initOptions) {
		options.requireAuth = requireAuth
	}
}

func withCaptionsHandler(handler http.HandlerFunc) initOption {
	return func(options *initOptions) {
		options.captionsHandler = handler
	}
}

func withGeminiHandler(handler http.HandlerFunc) initOption {
	return func(options *initOptions) {
		options.geminiHandler = handler
	}
}

func respondWith(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

type testEnv struct {
	server   *httptest.Server
	captions *httptest.Server
	gemini   *httptest.Server
	accounts *fakeAccounts
}

func (env *testEnv) Close() {
	env.server.Close()
	env.captions.Close()
	env.gemini.Close()
}

func setupTestRouter(optionsProto ...initOption) *testEnv {
	options := &initOptions{
		trustedSubnet:   "127.0.0.0/8",
		ratePerMinute:   600,
		burst:           100,
		requireAuth:     true,
		captionsHandler: respondWith(http.StatusOK, testCaptionsBody),
		geminiHandler:   respondWith(http.StatusOK, testGeminiBody),
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	captionsServer := httptest.NewServer(options.captionsHandler)
	geminiServer := httptest.NewServer(options.geminiHandler)

	db, err := memorystorage.New()
	if err != nil {
		panic(err)
	}

	checker, err := ipchecker.New(options.trustedSubnet)
	if err != nil {
		panic(err)
	}

	accounts := newFakeAccounts()
	pipeline := summarizer.New(
		captions.New("test-key", captions.WithBaseURL(captionsServer.URL)),
		gemini.New("test-key", gemini.WithBaseURL(geminiServer.URL)),
	)
	svc := service.New(
		db,
		pipeline,
		quota.New(db, quota.DefaultLimit, testExemptIdentity),
		accounts,
		options.requireAuth,
	)

	router := New(
		svc,
		auth.New("ytsummarizer_session", []byte(testSigningKey), 0),
		checker,
		throttle.New(checker, options.ratePerMinute, options.burst),
	)

	return &testEnv{
		server:   httptest.NewServer(router),
		captions: captionsServer,
		gemini:   geminiServer,
		accounts: accounts,
	}
}

func registerAndLogin(t *testing.T, env *testEnv, email string) (string, models.LoginResponse) {
	t.Helper()

	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.RegisterRequest{
			Name:                    "Alice",
			Email:                   email,
			Password:                testPassword,
			AgreeOfferTerms:         true,
			AgreePrivacyPolicy:      true,
			AgreePersonalDataPolicy: true,
		}).
		Post(env.server.URL + "/api/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())

	return login(t, env, email, testPassword)
}

func login(t *testing.T, env *testEnv, email, password string) (string, models.LoginResponse) {
	t.Helper()

	var loginResponse models.LoginResponse
	resp, err := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: email, Password: password}).
		SetResult(&loginResponse).
		Post(env.server.URL + "/api/login")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	token := resp.Header().Get("Authorization")
	require.NotEmpty(t, token)

	return token, loginResponse
}

func summarize(t *testing.T, env *testEnv, token, videoURL string) *resty.Response {
	t.Helper()

	request := resty.New().R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.SummarizeRequest{URL: videoURL})
	if token != "" {
		request.SetHeader("Authorization", "Bearer "+token)
	}

	resp, err := request.Post(env.server.URL + "/api/summarize")
	require.NoError(t, err)

	return resp
}

func errorBody(message string) string {
	return fmt.Sprintf(`{"error":%q}`, message)
}

func TestPostApisummarize(t *testing.T) {
	testCases := []struct {
		name         string
		options      []initOption
		anonymous    bool
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "positive",
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"summary":"## Topic\n\nHello.","paragraphs":["## Topic","Hello."],"videoId":"abc123"}`,
		},
		{
			name:         "invalid_url",
			body:         `{"url":"https://vimeo.com/42"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(apperrors.KindInvalidURL.DefaultMessage()),
		},
		{
			name:         "missing_url",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody(apperrors.KindInvalidURL.DefaultMessage()),
		},
		{
			name:         "malformed_body",
			body:         `{"url":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody("Malformed request body"),
		},
		{
			name:         "anonymous_with_required_auth",
			anonymous:    true,
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody("Authentication required"),
		},
		{
			name:         "anonymous_with_optional_auth",
			options:      []initOption{withRequireAuth(false)},
			anonymous:    true,
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"summary":"## Topic\n\nHello.","paragraphs":["## Topic","Hello."],"videoId":"abc123"}`,
		},
		{
			name:         "captions_failure",
			options:      []initOption{withCaptionsHandler(respondWith(http.StatusBadGateway, `{}`))},
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: apperrors.KindTranscriptFetchFailed.Status(),
			expectedBody: errorBody(apperrors.KindTranscriptFetchFailed.DefaultMessage()),
		},
		{
			name:         "empty_transcript",
			options:      []initOption{withCaptionsHandler(respondWith(http.StatusOK, `[]`))},
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: apperrors.KindTranscriptEmpty.Status(),
			expectedBody: errorBody(apperrors.KindTranscriptEmpty.DefaultMessage()),
		},
		{
			name: "generation_rate_limited",
			options: []initOption{withGeminiHandler(respondWith(
				http.StatusTooManyRequests,
				`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`,
			))},
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: apperrors.KindRateLimited.Status(),
			expectedBody: errorBody(apperrors.KindRateLimited.DefaultMessage()),
		},
		{
			name:         "generation_failure",
			options:      []initOption{withGeminiHandler(respondWith(http.StatusInternalServerError, `{}`))},
			body:         `{"url":"` + testVideoURL + `"}`,
			expectedCode: apperrors.KindGenerationServiceError.Status(),
			expectedBody: errorBody(apperrors.KindGenerationServiceError.DefaultMessage()),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			env := setupTestRouter(testCase.options...)
			defer env.Close()

			request := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body)
			if !testCase.anonymous {
				token, _ := registerAndLogin(t, env, testEmail)
				request.SetHeader("Authorization", token)
			}

			resp, err := request.Post(env.server.URL + "/api/summarize")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			assert.JSONEq(t, testCase.expectedBody, resp.String())
		})
	}
}

func TestQuotaLifecycle(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	token, _ := registerAndLogin(t, env, testEmail)

	for i := 0; i < quota.DefaultLimit; i++ {
		resp := summarize(t, env, token, testVideoURL)
		require.Equal(t, http.StatusOK, resp.StatusCode(), "generation %d", i+1)
	}

	resp := summarize(t, env, token, testVideoURL)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	assert.JSONEq(t, errorBody(apperrors.KindQuotaExceeded.DefaultMessage()), resp.String())

	var status models.QuotaResponse
	quotaResp, err := resty.New().R().
		SetHeader("Authorization", token).
		SetResult(&status).
		Get(env.server.URL + "/api/quota")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, quotaResp.StatusCode())
	assert.Equal(t, models.QuotaResponse{Used: 5, Limit: 5, Remaining: 0}, status)

	token, _ = login(t, env, testEmail, testPassword)

	resp = summarize(t, env, token, testVideoURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode(), "login resets the counter")
}

func TestExemptIdentityIsNeverLimited(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	token, _ := registerAndLogin(t, env, testExemptIdentity)

	for i := 0; i < quota.DefaultLimit+2; i++ {
		resp := summarize(t, env, token, testVideoURL)
		require.Equal(t, http.StatusOK, resp.StatusCode(), "generation %d", i+1)
	}

	var status models.QuotaResponse
	_, err := resty.New().R().
		SetHeader("Authorization", token).
		SetResult(&status).
		Get(env.server.URL + "/api/quota")
	require.NoError(t, err)
	assert.True(t, status.Exempt)
	assert.Equal(t, -1, status.Remaining)
}

func TestGetApiquotaRequiresSession(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	resp, err := resty.New().R().Get(env.server.URL + "/api/quota")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.JSONEq(t, errorBody("Authentication required"), resp.String())
}

func TestPostApiregister(t *testing.T) {
	valid := models.RegisterRequest{
		Name:                    "Alice",
		Email:                   testEmail,
		Password:                testPassword,
		AgreeOfferTerms:         true,
		AgreePrivacyPolicy:      true,
		AgreePersonalDataPolicy: true,
	}

	weakPassword := valid
	weakPassword.Password = "short"

	badEmail := valid
	badEmail.Email = "alice"

	testCases := []struct {
		name         string
		request      models.RegisterRequest
		expectedCode int
		expectedBody string
	}{
		{"weak_password", weakPassword, http.StatusBadRequest, errorBody("Password must be at least 8 characters long.")},
		{"bad_email", badEmail, http.StatusBadRequest, errorBody("Please enter a valid email address.")},
		{"empty", models.RegisterRequest{}, http.StatusBadRequest, errorBody("Please fill in all fields.")},
	}

	env := setupTestRouter()
	defer env.Close()

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.request).
				Post(env.server.URL + "/api/register")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			assert.JSONEq(t, testCase.expectedBody, resp.String())
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		client := resty.New()
		first, err := client.R().SetBody(valid).Post(env.server.URL + "/api/register")
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, first.StatusCode())

		second, err := client.R().SetBody(valid).Post(env.server.URL + "/api/register")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, second.StatusCode())
		assert.JSONEq(t, errorBody("User already registered"), second.String())
	})
}

func TestPostApilogin(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	_, loginResponse := registerAndLogin(t, env, testEmail)
	assert.Equal(t, testEmail, loginResponse.Email)
	assert.Equal(t, "Alice", loginResponse.FullName)
	assert.NoError(t, uuid.Validate(loginResponse.UserID))

	resp, err := resty.New().R().
		SetBody(models.LoginRequest{Email: testEmail, Password: "Wrong#123"}).
		Post(env.server.URL + "/api/login")
	require.NoError(t, err)

	assert.Equal(t, apperrors.KindInvalidCredentials.Status(), resp.StatusCode())
	assert.JSONEq(t, errorBody("Invalid email or password"), resp.String())
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	registerAndLogin(t, env, testEmail)

	client := resty.New()
	_, err := client.R().
		SetBody(models.LoginRequest{Email: testEmail, Password: testPassword}).
		Post(env.server.URL + "/api/login")
	require.NoError(t, err)

	// The cookie jar carries the session from here on.
	resp, err := client.R().
		SetBody(models.SummarizeRequest{URL: testVideoURL}).
		Post(env.server.URL + "/api/summarize")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestPostApilogout(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	token, _ := registerAndLogin(t, env, testEmail)
	summarize(t, env, token, testVideoURL)

	resp, err := resty.New().R().
		SetHeader("Authorization", token).
		Post(env.server.URL + "/api/logout")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"message":"Logged out"}`, resp.String())
	assert.Contains(t, resp.Header().Get("Set-Cookie"), "Max-Age=0")

	var status models.QuotaResponse
	_, err = resty.New().R().
		SetHeader("Authorization", token).
		SetResult(&status).
		Get(env.server.URL + "/api/quota")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Used)
}

func TestDeleteApideleteuser(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	token, loginResponse := registerAndLogin(t, env, testEmail)

	testCases := []struct {
		name         string
		token        string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "missing_id",
			token:        token,
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody("User ID is required"),
		},
		{
			name:         "malformed_id",
			token:        token,
			body:         `{"userId":"42"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: errorBody("Invalid user ID format"),
		},
		{
			name:         "anonymous",
			body:         `{"userId":"` + loginResponse.UserID + `"}`,
			expectedCode: http.StatusUnauthorized,
			expectedBody: errorBody("Authentication required"),
		},
		{
			name:         "foreign_account",
			token:        token,
			body:         `{"userId":"` + uuid.NewString() + `"}`,
			expectedCode: http.StatusForbidden,
			expectedBody: errorBody("You can only delete your own account"),
		},
		{
			name:         "own_account",
			token:        token,
			body:         `{"userId":"` + loginResponse.UserID + `"}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"success":true,"message":"User deleted successfully"}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body)
			if testCase.token != "" {
				request.SetHeader("Authorization", testCase.token)
			}

			resp, err := request.Delete(env.server.URL + "/api/delete-user")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			assert.JSONEq(t, testCase.expectedBody, resp.String())
		})
	}

	resp, err := resty.New().R().
		SetBody(models.LoginRequest{Email: testEmail, Password: testPassword}).
		Post(env.server.URL + "/api/login")
	require.NoError(t, err)
	assert.Equal(t, apperrors.KindInvalidCredentials.Status(), resp.StatusCode(), "deleted accounts cannot sign in")
}

func TestGetApiinternalstats(t *testing.T) {
	testCases := []struct {
		name          string
		trustedSubnet string
		expectedCode  int
	}{
		{"trusted", "127.0.0.0/8", http.StatusOK},
		{"untrusted", "10.0.0.0/8", http.StatusForbidden},
		{"no_subnet_configured", "", http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			env := setupTestRouter(withTrustedSubnet(testCase.trustedSubnet))
			defer env.Close()

			token, _ := registerAndLogin(t, env, testEmail)
			summarize(t, env, token, testVideoURL)
			summarize(t, env, token, testVideoURL)

			resp, err := resty.New().R().Get(env.server.URL + "/api/internal/stats")
			require.NoError(t, err)

			require.Equal(t, testCase.expectedCode, resp.StatusCode())
			if testCase.expectedCode == http.StatusOK {
				assert.JSONEq(t, `{"users":1,"generations":2}`, resp.String())
			} else {
				assert.JSONEq(t, errorBody("Access denied"), resp.String())
			}
		})
	}
}

func TestSummarizeThrottling(t *testing.T) {
	env := setupTestRouter(withRate(1, 1))
	defer env.Close()

	token, _ := registerAndLogin(t, env, testEmail)

	first := summarize(t, env, token, testVideoURL)
	assert.Equal(t, http.StatusOK, first.StatusCode())

	second := summarize(t, env, token, testVideoURL)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode())
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.JSONEq(t, errorBody(apperrors.KindThrottled.DefaultMessage()), second.String())
}

func TestSummarizeThrottlingIgnoresSpoofedClientIP(t *testing.T) {
	env := setupTestRouter(withRate(1, 1))
	defer env.Close()

	token, _ := registerAndLogin(t, env, testEmail)

	send := func(spoofedIP string) *resty.Response {
		resp, err := resty.New().R().
			SetHeader("Content-Type", "application/json").
			SetHeader("Authorization", "Bearer "+token).
			SetHeader("X-Real-IP", spoofedIP).
			SetHeader("X-Forwarded-For", spoofedIP).
			SetBody(models.SummarizeRequest{URL: testVideoURL}).
			Post(env.server.URL + "/api/summarize")
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1").StatusCode())
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.2").StatusCode())
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.3").StatusCode())
}

func TestGetPing(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	resp, err := resty.New().R().Get(env.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	env.accounts.setHealthErr(errors.New("account service down"))

	resp, err = resty.New().R().Get(env.server.URL + "/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
}

func gzipString(input string) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)

	if _, err := gzipWriter.Write([]byte(input)); err != nil {
		return nil, err
	}

	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func TestPostApisummarizeForGzip(t *testing.T) {
	env := setupTestRouter(withRequireAuth(false))
	defer env.Close()

	body, err := gzipString(`{"url":"` + testVideoURL + `"}`)
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/summarize", bytes.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Content-Encoding", "gzip")
	request.Header.Set("Accept-Encoding", "gzip")

	// A bare transport keeps the compressed body visible to the test.
	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	resp, err := client.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	reader, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	require.NoError(t, err)

	var summary models.SummarizeResponse
	require.NoError(t, json.Unmarshal(decompressed, &summary))
	assert.Equal(t, "abc123", summary.VideoID)
	assert.Equal(t, []string{"## Topic", "Hello."}, summary.Paragraphs)
}

func TestUnknownRoute(t *testing.T) {
	env := setupTestRouter()
	defer env.Close()

	resp, err := resty.New().R().Get(env.server.URL + "/api/unknown")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}
