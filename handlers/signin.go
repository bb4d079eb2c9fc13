package handlers

import (
	"net/http"

	"checkout-module-api/services/upstream"
)

type SigninHandler struct {
	client      *upstream.Client
	upstreamURL string
}

func NewSigninHandler(client *upstream.Client, authBaseURL string) *SigninHandler {
	return &SigninHandler{
		client:      client,
		upstreamURL: authBaseURL + "/auth/api/signin",
	}
}

// Signin relays the credential exchange. This is the one route that is valid
// without an Authorization header; the shopper does not have a credential yet.
func (h *SigninHandler) Signin(w http.ResponseWriter, r *http.Request) {
	forward(w, r, h.client, http.MethodPost, h.upstreamURL, "Sign-in failed")
}
