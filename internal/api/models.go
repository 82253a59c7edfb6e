package api

// ErrorResponse is the envelope of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeSuperseded       = "SUPERSEDED"
	CodeCancelled        = "CANCELLED"
	CodeInternal         = "INTERNAL_ERROR"
)

// ValidateResponse is the reply of POST /api/v1/validate for a valid scenario.
type ValidateResponse struct {
	Valid   bool     `json:"valid"`
	Horizon []string `json:"horizon"`
}
