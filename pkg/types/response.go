// Package types holds the JSON envelopes every API response is wrapped in.
package types

// SuccessEnvelope wraps a successful payload as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the client-visible shape of a failed request.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// ErrorEnvelope wraps a failure as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewAPIError builds the public error body. details is dropped unless
// exposeDetails is set.
func NewAPIError(code, message string, retryable bool, details any, exposeDetails bool) APIError {
	out := APIError{Code: code, Message: message, Retryable: retryable}
	if exposeDetails {
		out.Details = details
	}
	return out
}
