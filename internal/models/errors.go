package models

import "fmt"

// ValidationError reports caller input that cannot be processed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConfigurationError reports a missing or malformed setting detected at construction time
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// RemoteServiceError is returned by the remote source for a failed day.
// StatusCode is 0 when no response was received (transport error, timeout, open breaker).
type RemoteServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote service error: status %d, body: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("remote service error: %v", e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// StorageError is a persistence failure. A missing key is never a StorageError.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s failed: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
