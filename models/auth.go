package models

import "time"

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// SessionCredential is the bearer token bound to one checkout. Subject is
// decoded locally from the token payload and is a display hint only; the
// upstreams remain the authority on the token's validity.
type SessionCredential struct {
	AccessToken string
	Subject     string
	ExpiresAt   time.Time
}
