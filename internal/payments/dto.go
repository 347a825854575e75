package payments

import "encoding/json"

// StkPushRequest captures the client-submitted initiation fields.
type StkPushRequest struct {
	Phone   string `json:"phone"`
	Amount  int64  `json:"amount"`
	Package string `json:"package"`
}

// StkPushResponse is the API envelope returned to the initiating client.
type StkPushResponse struct {
	Success bool            `json:"success"`
	Data    any             `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}
