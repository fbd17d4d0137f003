package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestAuthenticator(now time.Time) *TokenAuthenticator {
	a := NewTokenAuthenticator("test-secret")
	a.now = func() time.Time { return now }
	return a
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(now)

	token, err := a.Issue("user_123", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "user_123" {
		t.Errorf("Verify() = %q, want %q", userID, "user_123")
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	a := NewTokenAuthenticator("s")
	if _, err := a.Issue("", time.Hour); err == nil {
		t.Error("Issue() with empty user should fail")
	}
	if _, err := a.Issue("u", 0); err == nil {
		t.Error("Issue() with zero ttl should fail")
	}
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	a := newTestAuthenticator(now)

	valid, err := a.Issue("user_123", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	segments := strings.Split(valid, ".")
	if len(segments) != 3 {
		t.Fatalf("Issue() = %q, want three JWT segments", valid)
	}

	otherKey, err := NewTokenAuthenticator("other-secret").Issue("user_123", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired, err := newTestAuthenticator(now.Add(-2*time.Hour)).Issue("user_123", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(now.Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"tampered signature", segments[0] + "." + segments[1] + ".AAAA"},
		{"foreign key", otherKey},
		{"expired", expired},
		{"alg none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType,
			jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "user_123", ExpiresAt: future})},
		{"other hmac alg", sign(jwt.SigningMethodHS512, []byte("test-secret"),
			jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "user_123", ExpiresAt: future})},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte("test-secret"),
			jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "user_123"})},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte("test-secret"),
			jwt.RegisteredClaims{Issuer: "someone-else", Subject: "user_123", ExpiresAt: future})},
		{"no subject", sign(jwt.SigningMethodHS256, []byte("test-secret"),
			jwt.RegisteredClaims{Issuer: tokenIssuer, ExpiresAt: future})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Verify(tt.token)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestTokenAuthenticate(t *testing.T) {
	a := NewTokenAuthenticator("test-secret")
	token, err := a.Issue("user_123", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		got, err := a.Authenticate(httptest.NewRecorder(), req)
		if err != nil || got != "user_123" {
			t.Errorf("Authenticate() = %q, %v", got, err)
		}
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		got, err := a.Authenticate(httptest.NewRecorder(), req)
		if err != nil || got != "user_123" {
			t.Errorf("Authenticate() = %q, %v", got, err)
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := a.Authenticate(httptest.NewRecorder(), req)
		if !errors.Is(err, ErrNoCredentials) {
			t.Errorf("Authenticate() error = %v, want ErrNoCredentials", err)
		}
	})

	t.Run("basic scheme ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		_, err := a.Authenticate(httptest.NewRecorder(), req)
		if !errors.Is(err, ErrNoCredentials) {
			t.Errorf("Authenticate() error = %v, want ErrNoCredentials", err)
		}
	})
}
