package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable matches any *StorageError via errors.Is
	ErrStorageUnavailable = errors.New("session storage unavailable")
	// ErrNetwork matches any *NetworkError via errors.Is
	ErrNetwork = errors.New("network error")
	// ErrProtocol matches any *ProtocolError via errors.Is
	ErrProtocol = errors.New("protocol error")

	ErrEmptyContent    = errors.New("message content is empty")
	ErrAlreadyHydrated = errors.New("transcript already hydrated")
)

// StorageError represents errors accessing the client state file
type StorageError struct {
	Path string
	Op   string // "open", "read", "write"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// NetworkError represents transport failures talking to the message store
type NetworkError struct {
	Op  string // "fetch", "post"
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error [%s] %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ProtocolError represents a response that cannot be interpreted
type ProtocolError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("protocol error [%s] %s (status %d): %v", e.Op, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("protocol error [%s] %s: %v", e.Op, e.URL, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
