package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// AnonCookieName holds the per-device development identity.
	AnonCookieName   = "chatkeep_anon_id"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// AnonymousAuthenticator gives every device a stable cookie identity.
// It is meant for local development only, where no identity provider runs.
type AnonymousAuthenticator struct {
	secureCookie bool
}

// NewAnonymousAuthenticator creates a development authenticator.
func NewAnonymousAuthenticator(secureCookie bool) *AnonymousAuthenticator {
	return &AnonymousAuthenticator{secureCookie: secureCookie}
}

// Authenticate implements Authenticator. It never fails for lack of credentials.
func (a *AnonymousAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		a.setCookie(w, c.Value)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}
	a.setCookie(w, id)
	return id, nil
}

func (a *AnonymousAuthenticator) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secureCookie,
	})
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}
