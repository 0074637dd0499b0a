package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
	"github.com/patric-chuzhbe/ytsummarizer/internal/quota"
	"github.com/patric-chuzhbe/ytsummarizer/internal/summarizer"
	"github.com/patric-chuzhbe/ytsummarizer/internal/supabase"
	"github.com/patric-chuzhbe/ytsummarizer/internal/user"
)

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type statsKeeper interface {
	GetNumberOfUsers(ctx context.Context) (int64, error)

	GetNumberOfGenerations(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	statsKeeper
	pinger
}

type pipeline interface {
	Summarize(ctx context.Context, rawURL string) (*summarizer.Result, error)
}

type quotaGate interface {
	Allow(ctx context.Context, usr *user.User) (quota.Decision, error)
	Consume(ctx context.Context, usr *user.User) (int, error)
	Reset(ctx context.Context, usr *user.User) error
	Clear(ctx context.Context, userID string, transaction *sql.Tx) error
	Status(ctx context.Context, usr *user.User) (quota.Status, error)
}

type accountService interface {
	SignUp(ctx context.Context, email, password, fullName string) (*supabase.Account, error)
	SignIn(ctx context.Context, email, password string) (*supabase.Account, error)
	InsertProfile(ctx context.Context, userID, fullName string) error
	DeleteProfile(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error
	Health(ctx context.Context) error
}

const (
	msgRegistered       = "Registration successful. Check your email to confirm the account."
	msgUserDeleted      = "User deleted successfully"
	msgLoggedOut        = "Logged out"
	msgUserIDRequired   = "User ID is required"
	msgInvalidUserID    = "Invalid user ID format"
	msgDeleteFailed     = "Failed to delete user"
	msgProfileFailed    = "Could not save the user profile"
	msgRegisterFailed   = "Could not register the user"
	msgForeignAccount   = "You can only delete your own account"
	msgMalformedRequest = "Malformed request body"
)

// MalformedRequest classifies a request body that failed to decode.
func MalformedRequest(op string, err error) error {
	return apperrors.WithMessage(apperrors.KindInvalidInput, op, err, msgMalformedRequest)
}

// Service holds the business logic behind the HTTP handlers.
type Service struct {
	db          storage
	pipeline    pipeline
	quota       quotaGate
	accounts    accountService
	requireAuth bool
	validate    *requestValidator
}

// New creates a Service. With requireAuth set, anonymous summarize
// requests are refused.
func New(
	db storage,
	pipeline pipeline,
	gate quotaGate,
	accounts accountService,
	requireAuth bool,
) *Service {
	return &Service{
		db:          db,
		pipeline:    pipeline,
		quota:       gate,
		accounts:    accounts,
		requireAuth: requireAuth,
		validate:    newRequestValidator(),
	}
}

// Summarize runs the pipeline for usr after checking the generation quota.
// The quota is consumed only when a summary was produced.
func (s *Service) Summarize(ctx context.Context, usr *user.User, request models.SummarizeRequest) (models.SummarizeResponse, error) {
	const op = "service.Summarize"

	if s.requireAuth && usr.IsAnonymous() {
		return models.SummarizeResponse{}, apperrors.New(apperrors.KindUnauthorized, op, nil)
	}

	request.URL = strings.TrimSpace(request.URL)
	if err := s.validate.Struct(request); err != nil {
		return models.SummarizeResponse{}, apperrors.New(apperrors.KindInvalidURL, op, err)
	}

	decision, err := s.quota.Allow(ctx, usr)
	if err != nil {
		return models.SummarizeResponse{}, apperrors.New(apperrors.KindInternalError, op, err)
	}
	if decision == quota.Denied {
		return models.SummarizeResponse{}, apperrors.New(apperrors.KindQuotaExceeded, op, nil)
	}

	result, err := s.pipeline.Summarize(ctx, request.URL)
	if err != nil {
		return models.SummarizeResponse{}, err
	}

	if count, err := s.quota.Consume(ctx, usr); err != nil {
		logger.Log.Errorw("Generation served but not counted", "videoId", result.VideoID, zap.Error(err))
	} else if !usr.IsAnonymous() {
		logger.Log.Infow("Generation counted", "videoId", result.VideoID, "count", count)
	}

	return models.SummarizeResponse{
		Summary:    result.Summary,
		Paragraphs: result.Paragraphs,
		VideoID:    result.VideoID,
	}, nil
}

// Register creates an account and its profile row.
func (s *Service) Register(ctx context.Context, request models.RegisterRequest) (models.RegisterResponse, error) {
	const op = "service.Register"

	request.Name = strings.TrimSpace(request.Name)
	request.Email = strings.TrimSpace(request.Email)

	if err := s.validate.Struct(request); err != nil {
		return models.RegisterResponse{}, apperrors.WithMessage(apperrors.KindInvalidInput, op, err, s.validate.Message(err))
	}

	account, err := s.accounts.SignUp(ctx, request.Email, request.Password, request.Name)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) {
			return models.RegisterResponse{}, apperrors.WithMessage(apperrors.KindInvalidInput, op, err, apiErr.Message)
		}
		return models.RegisterResponse{}, apperrors.WithMessage(apperrors.KindAccountServiceError, op, err, msgRegisterFailed)
	}

	if err := s.accounts.InsertProfile(ctx, account.ID, request.Name); err != nil {
		if deleteErr := s.accounts.DeleteUser(ctx, account.ID); deleteErr != nil {
			logger.Log.Errorw("Orphaned account left after a failed profile insert", "userId", account.ID, zap.Error(deleteErr))
		}
		return models.RegisterResponse{}, apperrors.WithMessage(apperrors.KindAccountServiceError, op, err, msgProfileFailed)
	}

	logger.Log.Infow("Account registered", "userId", account.ID)

	return models.RegisterResponse{
		UserID:  account.ID,
		Message: msgRegistered,
	}, nil
}

// Login signs usr in and resets the generation quota.
func (s *Service) Login(ctx context.Context, request models.LoginRequest) (*user.User, error) {
	const op = "service.Login"

	request.Email = strings.TrimSpace(request.Email)

	if err := s.validate.Struct(request); err != nil {
		return nil, apperrors.WithMessage(apperrors.KindInvalidInput, op, err, s.validate.Message(err))
	}

	account, err := s.accounts.SignIn(ctx, request.Email, request.Password)
	if err != nil {
		if supabase.IsInvalidCredentials(err) {
			return nil, apperrors.New(apperrors.KindInvalidCredentials, op, err)
		}
		return nil, apperrors.New(apperrors.KindAccountServiceError, op, err)
	}

	usr := &user.User{
		ID:       account.ID,
		Email:    account.Email,
		FullName: account.FullName,
	}
	if usr.Email == "" {
		usr.Email = request.Email
	}

	if err := s.quota.Reset(ctx, usr); err != nil {
		return nil, apperrors.New(apperrors.KindInternalError, op, err)
	}

	return usr, nil
}

// Logout clears the generation quota of usr.
func (s *Service) Logout(ctx context.Context, usr *user.User) (models.MessageResponse, error) {
	if !usr.IsAnonymous() {
		if err := s.quota.Clear(ctx, usr.ID, nil); err != nil {
			return models.MessageResponse{}, apperrors.New(apperrors.KindInternalError, "service.Logout", err)
		}
	}

	return models.MessageResponse{Message: msgLoggedOut}, nil
}

// DeleteAccount removes the account of the session user. The profile row and
// the identity are deleted remotely first; the local quota row is deleted in
// a store transaction afterwards, so a failed remote call leaves the counter
// untouched on every store, including those without SQL transactions.
func (s *Service) DeleteAccount(ctx context.Context, usr *user.User, request models.DeleteAccountRequest) (models.DeleteAccountResponse, error) {
	const op = "service.DeleteAccount"

	userID := strings.TrimSpace(request.UserID)
	if userID == "" {
		return models.DeleteAccountResponse{}, apperrors.WithMessage(apperrors.KindInvalidInput, op, nil, msgUserIDRequired)
	}
	if _, err := uuid.Parse(userID); err != nil {
		return models.DeleteAccountResponse{}, apperrors.WithMessage(apperrors.KindInvalidInput, op, err, msgInvalidUserID)
	}
	if usr.IsAnonymous() {
		return models.DeleteAccountResponse{}, apperrors.New(apperrors.KindUnauthorized, op, nil)
	}
	if !strings.EqualFold(usr.ID, userID) {
		return models.DeleteAccountResponse{}, apperrors.WithMessage(apperrors.KindForbidden, op, nil, msgForeignAccount)
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return models.DeleteAccountResponse{}, apperrors.New(apperrors.KindInternalError, op, err)
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := s.accounts.DeleteProfile(ctx, userID); err != nil {
		return models.DeleteAccountResponse{}, apperrors.WithMessage(
			apperrors.KindAccountServiceError,
			op,
			fmt.Errorf("deleting profile: %w", err),
			msgDeleteFailed,
		)
	}

	if err := s.accounts.DeleteUser(ctx, userID); err != nil {
		return models.DeleteAccountResponse{}, apperrors.WithMessage(
			apperrors.KindAccountServiceError,
			op,
			fmt.Errorf("deleting identity: %w", err),
			msgDeleteFailed,
		)
	}

	if err := s.quota.Clear(ctx, userID, tx); err != nil {
		logger.Log.Errorw("Account deleted but its quota row was kept", "userId", userID, zap.Error(err))
		return models.DeleteAccountResponse{}, apperrors.WithMessage(apperrors.KindInternalError, op, err, msgDeleteFailed)
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return models.DeleteAccountResponse{}, apperrors.WithMessage(apperrors.KindInternalError, op, err, msgDeleteFailed)
	}

	logger.Log.Infow("Account deleted", "userId", userID)

	return models.DeleteAccountResponse{
		Success: true,
		Message: msgUserDeleted,
	}, nil
}

// QuotaStatus reports the generation quota of usr.
func (s *Service) QuotaStatus(ctx context.Context, usr *user.User) (models.QuotaResponse, error) {
	if usr.IsAnonymous() {
		return models.QuotaResponse{}, apperrors.New(apperrors.KindUnauthorized, "service.QuotaStatus", nil)
	}

	status, err := s.quota.Status(ctx, usr)
	if err != nil {
		return models.QuotaResponse{}, apperrors.New(apperrors.KindInternalError, "service.QuotaStatus", err)
	}

	return models.QuotaResponse{
		Used:      status.Used,
		Limit:     status.Limit,
		Remaining: status.Remaining,
		Exempt:    status.Exempt,
	}, nil
}

// Ping checks the health of the quota store and the account service.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return apperrors.New(apperrors.KindInternalError, "service.Ping", fmt.Errorf("quota store: %w", err))
	}
	if err := s.accounts.Health(ctx); err != nil {
		return apperrors.New(apperrors.KindAccountServiceError, "service.Ping", err)
	}
	return nil
}

// GetInternalStats returns the number of tracked accounts and the lifetime
// number of generations.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, apperrors.New(apperrors.KindInternalError, "service.GetInternalStats", err)
	}

	generations, err := s.db.GetNumberOfGenerations(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, apperrors.New(apperrors.KindInternalError, "service.GetInternalStats", err)
	}

	return models.InternalStatsResponse{
		Users:       users,
		Generations: generations,
	}, nil
}
