package utils

import (
	"encoding/json"
	"net/http"
	"strconv"

	"checkout-module-api/models"
)

// SendErrorEnvelope writes the normalized failure envelope with the HTTP
// status mirrored both on the response and in the envelope's status field.
// Nothing beyond message and status ever reaches the browser.
func SendErrorEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.CommonResponse{
		Success: false,
		Status:  strconv.Itoa(status),
		Message: message,
	})
}

// SendRawJSON forwards upstream bytes verbatim.
func SendRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
