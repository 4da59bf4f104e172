// Package auth resolves the caller's user ID. Every budget route requires one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "budgetplanner/internal/log"
)

type contextKey struct{}

// UserIDHeader carries the user ID in header mode, behind a trusted gateway.
const UserIDHeader = "X-User-ID"

var (
	ErrMissingToken = errors.New("missing credentials")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator extracts a user ID from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// JWT validates HS256 bearer tokens and uses the subject claim as user ID.
type JWT struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewJWT(secret, issuer string) *JWT {
	return &JWT{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

func (a *JWT) Authenticate(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Sign issues a token for userID. Used by tests and local tooling.
func (a *JWT) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Header trusts the X-User-ID header set by an upstream gateway.
type Header struct{}

func (Header) Authenticate(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if id == "" {
		return "", ErrMissingToken
	}
	if len(id) > 128 {
		return "", fmt.Errorf("%w: user id too long", ErrInvalidToken)
	}
	return id, nil
}

// Middleware stores the authenticated user ID in the request context.
// Failures are handed to onError, which writes the response.
func Middleware(a Authenticator, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := a.Authenticate(r)
			if err != nil {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentAuth).WarnContext(r.Context(),
					"Authentication failed",
					applog.FieldPath, r.URL.Path,
					applog.FieldError, err.Error(),
					applog.FieldErrorType, applog.ErrorTypeAuth)
				onError(w, r, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			logger := applog.FromContext(ctx).WithUser(userID)
			next.ServeHTTP(w, r.WithContext(applog.NewContext(ctx, logger)))
		})
	}
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
