package domain

import (
	"errors"
	"fmt"
)

var (
	ErrGenerationInFlight   = errors.New("generation already in progress")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrUnknownSlot          = errors.New("unknown image slot")
	ErrMissingAPIKey        = errors.New("api key is required")
	ErrEmptyImage           = errors.New("empty image")
)

// ValidationError rejects a generation attempt before any external call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServiceError reports a failure of the external generation service. Message
// is the service's own human-readable text and may be empty.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode > 0:
		return fmt.Sprintf("service status %d: %s", e.StatusCode, e.Message)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("service failure: %v", e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("service status %d", e.StatusCode)
	default:
		return "service failure"
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// ReadError reports a selected file that could not be turned into an image.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("read %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("read image: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
