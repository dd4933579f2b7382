package common

import (
	"errors"
	"fmt"
)

// ErrReplyFetchFailed marks a best-effort reply fetch that returned nothing.
// It is logged by the source fetcher and never returned to the pipeline.
var ErrReplyFetchFailed = errors.New("reply fetch failed")

// ConfigurationError reports invalid or missing required configuration.
// It is fatal to a run and is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SourceUnavailableError reports a channel whose item fetch exhausted its retry budget
type SourceUnavailableError struct {
	Channel  string
	Attempts int
	Err      error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: channel %s after %d attempts: %v", e.Channel, e.Attempts, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// SerializationError reports an output artifact that could not be written
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsSourceUnavailable reports whether err is or wraps a SourceUnavailableError
func IsSourceUnavailable(err error) bool {
	var srcErr *SourceUnavailableError
	return errors.As(err, &srcErr)
}
