package models

// APIResponse is the success envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// APIError is the failure envelope.
type APIError struct {
	Success   bool        `json:"success"`
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// OK wraps a payload in the success envelope.
func OK(data interface{}, message string) APIResponse {
	return APIResponse{Success: true, Data: data, Message: message}
}

// Error builds the failure envelope.
func Error(code, message string, details interface{}) APIError {
	return APIError{Success: false, ErrorCode: code, Message: message, Details: details}
}
