package transport

import (
	"errors"
	"fmt"
)

// User-facing fallbacks.
const (
	MsgUploadFailed = "Upload failed"
	MsgNetworkError = "Network error occurred"
)

// ServerRejection is a non-2xx answer from the endpoint.
type ServerRejection struct {
	StatusCode int
	Reason     string // server-supplied "error" field, may be empty
}

// Error implements the error interface
func (e *ServerRejection) Error() string {
	return fmt.Sprintf("upload rejected with status %d: %s", e.StatusCode, e.Message())
}

// Message is the text shown to the user.
func (e *ServerRejection) Message() string {
	if e.Reason == "" {
		return MsgUploadFailed
	}
	return e.Reason
}

// TransportFailure means the request never completed.
type TransportFailure struct {
	Err error
}

// Error implements the error interface
func (e *TransportFailure) Error() string {
	return fmt.Sprintf("upload transport failure: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportFailure) Unwrap() error {
	return e.Err
}

// UserMessage maps any Submit error to the banner text the widget shows.
func UserMessage(err error) string {
	var rejection *ServerRejection
	if errors.As(err, &rejection) {
		return rejection.Message()
	}
	return MsgNetworkError
}
