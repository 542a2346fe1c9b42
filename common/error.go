package common

import "fmt"

// Machine-readable error codes surfaced to callers. Quota and consent
// rejections carry these so the caller knows what action to take next.
const (
	CodeRateLimited       = "rate_limited"
	CodeCredentialMissing = "credential_missing"
	CodeInvalidAction     = "invalid_action"
	CodeInvalidState      = "invalid_state"
	CodeNotFound          = "not_found"
	CodeMaintenance       = "maintenance_mode"
)

type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// CodedErrf builds an APIError carrying a machine-readable code.
func CodedErrf(status int, code string, format string, args ...any) APIError {
	return APIError{Status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}
