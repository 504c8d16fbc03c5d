package services

import "errors"

var (
	// ErrDatasetNotLoaded is returned when a service was built without data
	ErrDatasetNotLoaded = errors.New("dataset not loaded")

	// ErrSessionRequired is returned when a session id is empty
	ErrSessionRequired = errors.New("session id required")

	// ErrChatDisabled is returned when no chat service is configured
	ErrChatDisabled = errors.New("chat is not available")
)
