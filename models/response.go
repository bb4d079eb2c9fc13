package models

import "encoding/json"

// CommonResponse is the envelope every upstream speaks and the relay mirrors
// back to the browser. Response is kept raw so the relay can forward payloads
// it does not understand.
type CommonResponse struct {
	Success  bool            `json:"success"`
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response,omitempty"`
}
