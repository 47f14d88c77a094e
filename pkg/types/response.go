package types

// SuccessEnvelope is the wire shape of every 2xx JSON response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError carries the machine-readable code and the public message.
// Details is only populated for codes that allow client-facing detail.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the wire shape of every error response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
