package model

// ErrorResponse is the envelope for every non-2xx body. Data carries
// field-level validation errors or the conflicting resource.
type ErrorResponse struct {
	Error string `json:"error"`
	Data  any    `json:"data,omitempty"`
}
