package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123"

func bearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/budget/plan", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestJWTAuthenticate(t *testing.T) {
	a := NewJWT(secret, "budget-app")

	valid, err := a.Sign("user-42", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	expired, _ := a.Sign("user-42", -time.Hour)
	otherIssuer, _ := NewJWT(secret, "someone-else").Sign("user-42", time.Hour)
	wrongKey, _ := NewJWT("another-secret-value", "budget-app").Sign("user-42", time.Hour)
	noSubject, _ := a.Sign("", time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-42", Issuer: "budget-app"}).SignedString([]byte(secret))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-42"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	id, err := a.Authenticate(bearer(valid))
	if err != nil || id != "user-42" {
		t.Fatalf("Authenticate(valid) = %q, %v", id, err)
	}

	for name, token := range map[string]string{
		"expired":      expired,
		"other issuer": otherIssuer,
		"wrong key":    wrongKey,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"alg none":     none,
		"garbage":      "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Authenticate(bearer(token)); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}

	missing := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := a.Authenticate(missing); !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}
}

func TestHeaderAuthenticate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := (Header{}).Authenticate(r); !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}

	r.Header.Set(UserIDHeader, strings.Repeat("x", 129))
	if _, err := (Header{}).Authenticate(r); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}

	r.Header.Set(UserIDHeader, " alice ")
	if id, err := (Header{}).Authenticate(r); err != nil || id != "alice" {
		t.Errorf("Authenticate = %q, %v", id, err)
	}
}

func TestMiddleware(t *testing.T) {
	var gotErr error
	var gotUser string
	h := Middleware(Header{}, func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized || !errors.Is(gotErr, ErrMissingToken) {
		t.Fatalf("status = %d, err = %v", rec.Code, gotErr)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "bob")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || gotUser != "bob" {
		t.Fatalf("status = %d, user = %q", rec.Code, gotUser)
	}
}
