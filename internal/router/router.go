// Package router wires the HTTP surface: the chi routes, the middleware
// chain and the JSON handlers in front of the summarizer service.
package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/auth"
	"github.com/patric-chuzhbe/ytsummarizer/internal/gzippedhttp"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
	"github.com/patric-chuzhbe/ytsummarizer/internal/service"
	"github.com/patric-chuzhbe/ytsummarizer/internal/user"
)

const maxRequestBodyBytes = 1 << 20

type summarizerService interface {
	Summarize(ctx context.Context, usr *user.User, request models.SummarizeRequest) (models.SummarizeResponse, error)
	Register(ctx context.Context, request models.RegisterRequest) (models.RegisterResponse, error)
	Login(ctx context.Context, request models.LoginRequest) (*user.User, error)
	Logout(ctx context.Context, usr *user.User) (models.MessageResponse, error)
	DeleteAccount(ctx context.Context, usr *user.User, request models.DeleteAccountRequest) (models.DeleteAccountResponse, error)
	QuotaStatus(ctx context.Context, usr *user.User) (models.QuotaResponse, error)
	Ping(ctx context.Context) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	RequireUser(h http.Handler) http.Handler
	SetSession(response http.ResponseWriter, usr *user.User) error
	ClearSession(response http.ResponseWriter)
}

type trustedSubnetGuard interface {
	TrustedSubnetOnly(h http.Handler) http.Handler
}

type throttler interface {
	Middleware(h http.Handler) http.Handler
}

// Router holds the handlers' collaborators.
type Router struct {
	service summarizerService
	auth    authenticator
}

// New builds the chi router with all routes and middleware attached.
func New(
	svc summarizerService,
	sessions authenticator,
	subnetGuard trustedSubnetGuard,
	limiter throttler,
) *chi.Mux {
	myRouter := &Router{
		service: svc,
		auth:    sessions,
	}

	router := chi.NewRouter()
	router.Use(
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		gzippedhttp.UngzipJSONAndTextHTMLRequest,
		gzippedhttp.GzipResponse,
		sessions.AuthenticateUser,
	)

	router.Get(`/ping`, myRouter.GetPing)

	router.Route(`/api`, func(r chi.Router) {
		r.With(limiter.Middleware).Post(`/summarize`, myRouter.PostApisummarize)
		r.Post(`/register`, myRouter.PostApiregister)
		r.Post(`/login`, myRouter.PostApilogin)
		r.Post(`/logout`, myRouter.PostApilogout)
		r.Delete(`/delete-user`, myRouter.DeleteApideleteuser)
		r.With(sessions.RequireUser).Get(`/quota`, myRouter.GetApiquota)
		r.With(subnetGuard.TrustedSubnetOnly).Get(`/internal/stats`, myRouter.GetApiinternalstats)
	})

	return router
}

// PostApisummarize handles POST /api/summarize.
func (router *Router) PostApisummarize(response http.ResponseWriter, request *http.Request) {
	var summarizeRequest models.SummarizeRequest
	if err := decodeJSON(response, request, &summarizeRequest); err != nil {
		writeError(response, request, service.MalformedRequest("router.PostApisummarize", err))
		return
	}

	result, err := router.service.Summarize(
		request.Context(),
		auth.UserFromContext(request.Context()),
		summarizeRequest,
	)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, result)
}

// PostApiregister handles POST /api/register.
func (router *Router) PostApiregister(response http.ResponseWriter, request *http.Request) {
	var registerRequest models.RegisterRequest
	if err := decodeJSON(response, request, &registerRequest); err != nil {
		writeError(response, request, service.MalformedRequest("router.PostApiregister", err))
		return
	}

	result, err := router.service.Register(request.Context(), registerRequest)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, result)
}

// PostApilogin handles POST /api/login. On success the session is attached
// to the response.
func (router *Router) PostApilogin(response http.ResponseWriter, request *http.Request) {
	var loginRequest models.LoginRequest
	if err := decodeJSON(response, request, &loginRequest); err != nil {
		writeError(response, request, service.MalformedRequest("router.PostApilogin", err))
		return
	}

	usr, err := router.service.Login(request.Context(), loginRequest)
	if err != nil {
		writeError(response, request, err)
		return
	}

	if err := router.auth.SetSession(response, usr); err != nil {
		writeError(response, request, apperrors.New(apperrors.KindInternalError, "router.PostApilogin", err))
		return
	}

	writeJSON(response, http.StatusOK, models.LoginResponse{
		UserID:   usr.ID,
		Email:    usr.Email,
		FullName: usr.FullName,
	})
}

// PostApilogout handles POST /api/logout.
func (router *Router) PostApilogout(response http.ResponseWriter, request *http.Request) {
	result, err := router.service.Logout(request.Context(), auth.UserFromContext(request.Context()))
	if err != nil {
		writeError(response, request, err)
		return
	}

	router.auth.ClearSession(response)
	writeJSON(response, http.StatusOK, result)
}

// DeleteApideleteuser handles DELETE /api/delete-user.
func (router *Router) DeleteApideleteuser(response http.ResponseWriter, request *http.Request) {
	var deleteRequest models.DeleteAccountRequest
	if err := decodeJSON(response, request, &deleteRequest); err != nil {
		writeError(response, request, service.MalformedRequest("router.DeleteApideleteuser", err))
		return
	}

	result, err := router.service.DeleteAccount(
		request.Context(),
		auth.UserFromContext(request.Context()),
		deleteRequest,
	)
	if err != nil {
		writeError(response, request, err)
		return
	}

	router.auth.ClearSession(response)
	writeJSON(response, http.StatusOK, result)
}

// GetApiquota handles GET /api/quota.
func (router *Router) GetApiquota(response http.ResponseWriter, request *http.Request) {
	result, err := router.service.QuotaStatus(request.Context(), auth.UserFromContext(request.Context()))
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, result)
}

// GetApiinternalstats handles GET /api/internal/stats.
func (router *Router) GetApiinternalstats(response http.ResponseWriter, request *http.Request) {
	result, err := router.service.GetInternalStats(request.Context())
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, result)
}

// GetPing handles GET /ping.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		logger.Log.Errorw("Health check failed", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func decodeJSON(response http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(response, request.Body, maxRequestBodyBytes)
	return json.NewDecoder(request.Body).Decode(target)
}

func writeJSON(response http.ResponseWriter, status int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, request *http.Request, err error) {
	appErr := apperrors.As(err)
	status := appErr.Kind.Status()

	fields := []interface{}{
		"uri", request.RequestURI,
		"kind", appErr.Kind.String(),
		"status", status,
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Log.Errorw("Request failed", fields...)
	} else {
		logger.Log.Infow("Request rejected", fields...)
	}

	writeJSON(response, status, models.ErrorResponse{Error: appErr.PublicMessage()})
}
