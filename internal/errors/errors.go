// Package errors defines the sync engine's error taxonomy. Failures are
// classified by Kind so the orchestrator can decide between aborting the
// run (transport failures) and isolating a single item (missing files,
// malformed records).
package errors

import (
	"errors"
	"fmt"
)

// Engine errors.
var (
	ErrEncryptionUnsupported = errors.New("payload encryption is configured but not implemented")
	ErrManifestVersion       = errors.New("manifest schema version is newer than this build supports")
	ErrMissingRelativePath   = errors.New("attachment item has no relative path metadata")
)

// Kind classifies a sync failure.
type Kind int

const (
	// KindTransport covers connect, auth, timeout and server failures.
	// A transport failure aborts the current run.
	KindTransport Kind = iota + 1

	// KindSerialization covers malformed JSON in remote manifests or
	// records. Record-level serialization failures are isolated per item.
	KindSerialization

	// KindMissingFile covers a local attachment file that is absent when
	// it should be uploaded. Isolated per item.
	KindMissingFile
)

// String returns a short label for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindSerialization:
		return "serialization"
	case KindMissingFile:
		return "missing file"
	default:
		return "unknown"
	}
}

// SyncError wraps an underlying failure with its classification and the
// operation that produced it.
type SyncError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a transport failure.
func Transport(op string, err error) error {
	return &SyncError{Kind: KindTransport, Op: op, Err: err}
}

// Serialization wraps err as a serialization failure.
func Serialization(op string, err error) error {
	return &SyncError{Kind: KindSerialization, Op: op, Err: err}
}

// MissingFile wraps err as a missing-file failure.
func MissingFile(op string, err error) error {
	return &SyncError{Kind: KindMissingFile, Op: op, Err: err}
}

// KindOf returns the classification of err, or 0 when err is not a
// SyncError.
func KindOf(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}

	return 0
}
