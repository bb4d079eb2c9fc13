package auth

import (
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"checkout-module-api/models"
)

// FallbackIdentity is attached to downstream requests when the credential's
// subject cannot be decoded. Requests proceed with it rather than failing.
const FallbackIdentity = "user"

// TokenStore holds the single session credential for one checkout. At most
// one credential is live at a time; Set always overwrites. Never shared
// across module instances.
type TokenStore struct {
	mu         sync.Mutex
	credential *models.SessionCredential
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Set stores a credential, replacing any previous one. The subject and expiry
// are decoded from the token payload without signature verification; they are
// display hints, the upstreams stay the authority on validity.
func (s *TokenStore) Set(accessToken string) models.SessionCredential {
	cred := models.SessionCredential{
		AccessToken: accessToken,
		Subject:     FallbackIdentity,
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		log.Printf("Token subject decode failed, using fallback identity: %v", err)
	} else {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			cred.Subject = sub
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			cred.ExpiresAt = exp.Time
		}
	}

	s.mu.Lock()
	s.credential = &cred
	s.mu.Unlock()

	return cred
}

// Get returns the live credential, if any.
func (s *TokenStore) Get() (models.SessionCredential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == nil {
		return models.SessionCredential{}, false
	}
	return *s.credential, true
}

// Clear drops the credential. Idempotent.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.credential = nil
	s.mu.Unlock()
}

// IsAuthenticated reports whether a credential is present.
func (s *TokenStore) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}

// Identity returns the caller identity sent in X-User-Name.
func (s *TokenStore) Identity() string {
	cred, ok := s.Get()
	if !ok || cred.Subject == "" {
		return FallbackIdentity
	}
	return cred.Subject
}

// ExpiresIn is a convenience for hosts that surface session lifetime.
func (s *TokenStore) ExpiresIn() time.Duration {
	cred, ok := s.Get()
	if !ok || cred.ExpiresAt.IsZero() {
		return 0
	}
	return time.Until(cred.ExpiresAt)
}
