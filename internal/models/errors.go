package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQuotaExceeded signals that the platform's quota budget is spent.
// It halts every further remote call for the run and is never retried.
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrNotFound is returned by stores when no record has the requested id
var ErrNotFound = errors.New("tutorial not found")

// TransientError wraps a network or HTTP failure that only costs the current query
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient remote error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient remote error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a recoverable remote failure
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// StorageWriteError wraps a failed insert or update; it fails the run
type StorageWriteError struct {
	VideoID string
	Err     error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write for video %s failed: %v", e.VideoID, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// ConfigError lists every invalid setting found before a run starts
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid ingestion configuration: " + strings.Join(e.Problems, "; ")
}
