package types

import "fmt"

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// NewForbidden builds the 403 error the auth middleware raises before a
// request reaches the pipeline.
func NewForbidden(message, errorType string) *CustomError {
	return &CustomError{
		Code:    403,
		Message: message,
		Type:    errorType,
	}
}
