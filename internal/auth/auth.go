// Package auth provides middleware and helpers for JWT-based sessions.
// A session is issued after a successful sign-in at the account service and
// is carried either in a cookie or in the Authorization header.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/ytsummarizer/internal/apperrors"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
	"github.com/patric-chuzhbe/ytsummarizer/internal/user"
)

// DefaultTokenTTL is used when New gets a non-positive ttl.
const DefaultTokenTTL = 24 * time.Hour

// Auth handles session tokens.
type Auth struct {
	// authCookieName is the name of the cookie used to store the JWT.
	authCookieName string

	// authCookieSigningSecretKey is the key used to sign JWTs.
	authCookieSigningSecretKey []byte

	tokenTTL time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the account identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserKey is the context key holding the authenticated *user.User.
const UserKey ContextKey = "user"

// New creates a new Auth handler with the given cookie name, JWT signing
// secret and session lifetime.
func New(
	authCookieName string,
	authCookieSigningSecretKey []byte,
	tokenTTL time.Duration,
) *Auth {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}

	return &Auth{
		authCookieName:             authCookieName,
		authCookieSigningSecretKey: authCookieSigningSecretKey,
		tokenTTL:                   tokenTTL,
	}
}

// UserFromContext returns the session user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *user.User {
	usr, _ := ctx.Value(UserKey).(*user.User)
	return usr
}

// WithUser returns a copy of ctx carrying usr.
func WithUser(ctx context.Context, usr *user.User) context.Context {
	return context.WithValue(ctx, UserKey, usr)
}

// AuthenticateUser is an HTTP middleware that reads the session token from
// the Authorization header or the cookie and puts the user into the request
// context. Requests without a valid token pass through anonymously.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		tokenString := a.getTokenStringFromAuthorizationHeaderOrCookie(request)
		if tokenString == "" {
			h.ServeHTTP(response, request)
			return
		}

		claims, err := a.parseJWTString(tokenString)
		if err != nil {
			logger.Log.Debugw("Session token rejected", zap.Error(err))
			h.ServeHTTP(response, request)
			return
		}

		usr := &user.User{
			ID:       claims.UserID,
			Email:    claims.Email,
			FullName: claims.FullName,
		}

		h.ServeHTTP(response, request.WithContext(WithUser(request.Context(), usr)))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser rejects anonymous requests with 401.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if UserFromContext(request.Context()).IsAnonymous() {
			writeUnauthorized(response)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// SetSession signs a token for usr and attaches it to the response as a
// cookie and an Authorization header.
func (a *Auth) SetSession(response http.ResponseWriter, usr *user.User) error {
	now := time.Now()
	JWTString, err := a.buildJWTString(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   usr.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID:   usr.ID,
		Email:    usr.Email,
		FullName: usr.FullName,
	})
	if err != nil {
		return fmt.Errorf("in internal/auth/auth.go/SetSession(): error while `a.buildJWTString()` calling: %w", err)
	}

	response.Header().Set("Authorization", JWTString)

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    JWTString,
			Path:     "/",
			MaxAge:   int(a.tokenTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)

	return nil
}

// ClearSession expires the session cookie.
func (a *Auth) ClearSession(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.authCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	)
}

func (a *Auth) getTokenStringFromAuthorizationHeaderOrCookie(request *http.Request) string {
	tokenString := strings.TrimSpace(request.Header.Get("Authorization"))
	if tokenString != "" {
		return strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	}
	cookie, err := request.Cookie(a.authCookieName)
	if err == nil {
		tokenString = cookie.Value
	}

	return tokenString
}

func (a *Auth) parseJWTString(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.authCookieSigningSecretKey, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid session token")
	}

	return claims, nil
}

func (a *Auth) buildJWTString(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.authCookieSigningSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func writeUnauthorized(response http.ResponseWriter) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(apperrors.KindUnauthorized.Status())
	err := json.NewEncoder(response).Encode(models.ErrorResponse{Error: apperrors.KindUnauthorized.DefaultMessage()})
	if err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}
