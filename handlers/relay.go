package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"checkout-module-api/models"
	"checkout-module-api/services/upstream"
	"checkout-module-api/utils"
)

// relayHeaders copies the caller identity and bearer credential from the
// inbound request, verbatim. Identity travels only in headers, never in a
// body field, and a missing header is forwarded as missing rather than
// rejected: the upstream is the one that validates the credential.
func relayHeaders(r *http.Request) http.Header {
	header := http.Header{}
	if username := r.Header.Get("X-User-Name"); username != "" {
		header.Set("X-User-Name", username)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		header.Set("Authorization", auth)
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	return header
}

// forward relays one request to an upstream and writes the normalized result.
// Upstream non-2xx becomes the failure envelope with the upstream status
// mirrored; a transport failure becomes a fixed 500 envelope. Upstream URLs
// and error details never reach the browser.
func forward(w http.ResponseWriter, r *http.Request, client *upstream.Client, method, url, failMessage string) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading relay request body: %v", err)
			utils.SendErrorEnvelope(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if method == http.MethodGet {
		body = nil
	}

	res, err := client.Do(r.Context(), method, url, relayHeaders(r), body)
	if err != nil {
		if errors.Is(err, upstream.ErrUnreachable) {
			log.Printf("Relay transport failure for %s: %v", r.URL.Path, err)
		} else {
			log.Printf("Relay error for %s: %v", r.URL.Path, err)
		}
		utils.SendErrorEnvelope(w, http.StatusInternalServerError, "Error while processing the request")
		return
	}

	if !res.OK() {
		log.Printf("Upstream returned %d for %s", res.StatusCode, r.URL.Path)
		// Keep the upstream's own message: callers act on it (the payment
		// upstream reports a PIN mismatch there). Everything else in the
		// body stays behind.
		message := failMessage
		var envelope models.CommonResponse
		if err := json.Unmarshal(res.Body, &envelope); err == nil && envelope.Message != "" {
			message = envelope.Message
		}
		utils.SendErrorEnvelope(w, res.StatusCode, message)
		return
	}

	utils.SendRawJSON(w, res.StatusCode, res.Body)
}
