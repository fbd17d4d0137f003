// Package media issues short-lived client upload credentials for the media host.
// The server never sees uploaded bytes; it only stores the resulting URL on a turn.
package media

import (
	"time"

	"github.com/google/uuid"
	"github.com/imagekit-developer/imagekit-go"
)

// AuthParams are the signed parameters a client sends with an upload,
// plus the public account details its upload widget needs.
type AuthParams struct {
	Token       string `json:"token"`
	Expire      int64  `json:"expire"`
	Signature   string `json:"signature"`
	PublicKey   string `json:"public_key,omitempty"`
	URLEndpoint string `json:"url_endpoint,omitempty"`
}

// Signer signs upload parameters through the ImageKit SDK.
type Signer struct {
	ik          *imagekit.ImageKit
	publicKey   string
	urlEndpoint string
	ttl         time.Duration
	now         func() time.Time
}

// NewSigner creates a signer whose parameters expire after ttl.
func NewSigner(urlEndpoint, publicKey, privateKey string, ttl time.Duration) *Signer {
	return &Signer{
		ik: imagekit.NewFromParams(imagekit.NewParams{
			PrivateKey:  privateKey,
			PublicKey:   publicKey,
			UrlEndpoint: urlEndpoint,
		}),
		publicKey:   publicKey,
		urlEndpoint: urlEndpoint,
		ttl:         ttl,
		now:         time.Now,
	}
}

// AuthenticationParameters returns a fresh one-time token, its expiry and signature.
func (s *Signer) AuthenticationParameters() AuthParams {
	token := uuid.NewString()
	expire := s.now().Add(s.ttl).Unix()
	return AuthParams{
		Token:       token,
		Expire:      expire,
		Signature:   s.Sign(token, expire),
		PublicKey:   s.publicKey,
		URLEndpoint: s.urlEndpoint,
	}
}

// Sign returns the account signature of token and expire.
func (s *Signer) Sign(token string, expire int64) string {
	return s.ik.SignToken(imagekit.SignTokenParam{Token: token, Expires: expire}).Signature
}
