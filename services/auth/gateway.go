package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"checkout-module-api/models"
	"checkout-module-api/services/upstream"
)

var (
	ErrMissingInput       = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthService        = errors.New("authentication service error")
)

// Gateway exchanges shopper credentials for a session credential through the
// relay's sign-in route and keeps the result in the TokenStore.
type Gateway struct {
	client    *upstream.Client
	signinURL string
	store     *TokenStore
}

func NewGateway(client *upstream.Client, relayBaseURL string, store *TokenStore) *Gateway {
	return &Gateway{
		client:    client,
		signinURL: relayBaseURL + "/api/auth/signin",
		store:     store,
	}
}

// SignIn authenticates the shopper. Empty input is rejected locally before
// any network call. On success the store holds exactly one credential; a
// second sign-in overwrites the first.
func (g *Gateway) SignIn(ctx context.Context, username, password string) (models.SessionCredential, error) {
	if username == "" || password == "" {
		return models.SessionCredential{}, ErrMissingInput
	}

	res, err := g.client.PostJSON(ctx, g.signinURL, nil, models.SigninRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return models.SessionCredential{}, fmt.Errorf("%w: %v", ErrAuthService, err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		return models.SessionCredential{}, ErrInvalidCredentials
	}
	if !res.OK() {
		return models.SessionCredential{}, fmt.Errorf("%w: status %d", ErrAuthService, res.StatusCode)
	}

	var envelope models.CommonResponse
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return models.SessionCredential{}, fmt.Errorf("%w: decoding response: %v", ErrAuthService, err)
	}
	if !envelope.Success || len(envelope.Response) == 0 {
		if envelope.Message != "" {
			return models.SessionCredential{}, fmt.Errorf("%w: %s", ErrAuthService, envelope.Message)
		}
		return models.SessionCredential{}, ErrAuthService
	}

	var token models.TokenResponse
	if err := json.Unmarshal(envelope.Response, &token); err != nil {
		return models.SessionCredential{}, fmt.Errorf("%w: decoding token: %v", ErrAuthService, err)
	}
	if token.AccessToken == "" {
		return models.SessionCredential{}, fmt.Errorf("%w: empty access token", ErrAuthService)
	}

	cred := g.store.Set(token.AccessToken)
	log.Printf("Sign-in successful for subject: %s", cred.Subject)
	return cred, nil
}

// SignOut clears the credential unconditionally. Idempotent.
func (g *Gateway) SignOut() {
	g.store.Clear()
}
