package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnonymousAuthenticatorIssuesCookie(t *testing.T) {
	a := NewAnonymousAuthenticator(false)
	rec := httptest.NewRecorder()

	id, err := a.Authenticate(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !isValidAnonID(id) {
		t.Fatalf("Authenticate() = %q, not a valid anonymous id", id)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != AnonCookieName || cookies[0].Value != id {
		t.Fatalf("cookies = %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
}

func TestAnonymousAuthenticatorReusesCookie(t *testing.T) {
	a := NewAnonymousAuthenticator(true)
	existing := "anon_0123456789abcdef0123456789abcdef"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: existing})

	id, err := a.Authenticate(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id != existing {
		t.Errorf("Authenticate() = %q, want %q", id, existing)
	}
}

func TestAnonymousAuthenticatorReplacesInvalidCookie(t *testing.T) {
	a := NewAnonymousAuthenticator(false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "user_admin"})

	id, err := a.Authenticate(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id == "user_admin" || !isValidAnonID(id) {
		t.Errorf("Authenticate() = %q, want a fresh anonymous id", id)
	}
}
