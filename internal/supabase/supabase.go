// Package supabase is a small client for the hosted account service: the
// GoTrue auth endpoints and the PostgREST "profiles" table.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const profilesTable = "profiles"

// ErrUnavailable wraps transport failures and 5xx answers.
var ErrUnavailable = errors.New("account service unavailable")

// APIError is a 4xx answer of the account service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("account service: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("account service: %d: %s", e.StatusCode, e.Message)
}

// IsInvalidCredentials reports whether err is a rejected password sign-in.
func IsInvalidCredentials(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "invalid_grant", "invalid_credentials":
		return true
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized
}

// Account is the identity returned by sign-up and sign-in.
type Account struct {
	ID       string
	Email    string
	FullName string
}

type userMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

type userPayload struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata userMetadata `json:"user_metadata"`
}

type authResponse struct {
	userPayload
	AccessToken string       `json:"access_token"`
	User        *userPayload `json:"user"`
}

type errorPayload struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
}

type signUpRequest struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Data     userMetadata `json:"data"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRow struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// Client talks to one project of the account service.
// Sign-up and sign-in use the public key; profile rows and user deletion
// need the service-role key.
type Client struct {
	http           *resty.Client
	anonKey        string
	serviceRoleKey string
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithServiceRoleKey sets the key used for privileged calls.
func WithServiceRoleKey(key string) Option {
	return func(c *Client) {
		c.serviceRoleKey = key
	}
}

// New creates a client for the project at baseURL.
func New(baseURL, anonKey string, options ...Option) *Client {
	client := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json"),
		anonKey: anonKey,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// SignUp creates an account; fullName goes into the user metadata.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*Account, error) {
	resp, err := c.request(ctx, c.anonKey).
		SetBody(signUpRequest{
			Email:    email,
			Password: password,
			Data:     userMetadata{FullName: fullName},
		}).
		Post("/auth/v1/signup")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return decodeAccount(resp.Body())
}

// SignIn runs the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Account, error) {
	resp, err := c.request(ctx, c.anonKey).
		SetQueryParam("grant_type", "password").
		SetBody(signInRequest{Email: email, Password: password}).
		Post("/auth/v1/token")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return decodeAccount(resp.Body())
}

// InsertProfile stores the profile row of a fresh account.
func (c *Client) InsertProfile(ctx context.Context, userID, fullName string) error {
	resp, err := c.request(ctx, c.privilegedKey()).
		SetHeader("Prefer", "return=minimal").
		SetBody([]profileRow{{ID: userID, FullName: fullName}}).
		Post("/rest/v1/" + profilesTable)

	return checkResponse(resp, err)
}

// DeleteProfile removes the profile row of userID. Deleting a missing row
// is not an error.
func (c *Client) DeleteProfile(ctx context.Context, userID string) error {
	resp, err := c.request(ctx, c.privilegedKey()).
		SetQueryParam("id", "eq."+userID).
		Delete("/rest/v1/" + profilesTable)

	return checkResponse(resp, err)
}

// DeleteUser removes the identity through the admin API.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	resp, err := c.request(ctx, c.privilegedKey()).
		SetPathParam("userID", userID).
		Delete("/auth/v1/admin/users/{userID}")

	return checkResponse(resp, err)
}

// Health checks that the auth endpoints answer.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.request(ctx, c.anonKey).Get("/auth/v1/health")

	return checkResponse(resp, err)
}

func (c *Client) request(ctx context.Context, key string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader("apikey", key).
		SetAuthToken(key)
}

func (c *Client) privilegedKey() string {
	if c.serviceRoleKey != "" {
		return c.serviceRoleKey
	}
	return c.anonKey
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= 500 {
		return fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status())
	}
	if resp.StatusCode() >= 400 {
		return decodeAPIError(resp)
	}
	return nil
}

func decodeAPIError(resp *resty.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Message:    http.StatusText(resp.StatusCode()),
	}

	var payload errorPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return apiErr
	}

	for _, code := range []string{payload.ErrorCode, payload.Error, unquote(payload.Code)} {
		if code != "" {
			apiErr.Code = code
			break
		}
	}
	for _, message := range []string{payload.Msg, payload.ErrorDescription, payload.Message} {
		if message != "" {
			apiErr.Message = message
			break
		}
	}

	return apiErr
}

func decodeAccount(body []byte) (*Account, error) {
	var payload authResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrUnavailable, err)
	}

	usr := &payload.userPayload
	if payload.User != nil {
		usr = payload.User
	}
	if usr.ID == "" {
		return nil, fmt.Errorf("%w: answer holds no user", ErrUnavailable)
	}

	return &Account{
		ID:       usr.ID,
		Email:    usr.Email,
		FullName: usr.UserMetadata.FullName,
	}, nil
}

// unquote returns a JSON string value, or "" for numbers and absent codes.
func unquote(raw json.RawMessage) string {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}
