package engine

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected while synchronizing browsers,
// sequences and proxies.
//
// Sync errors include:
//   - Incompatible sequence: index name, unit or type differ from the master
//   - Missing reference: a sequence or proxy that was expected is gone
//   - Invalid index value: a value the master timeline cannot hold
//   - Invalid browser: an operation was called without a browser
//   - Malformed properties: persisted synchronization properties did not parse
//
// Most of these are also logged and turned into a no-op at the call site;
// the error value exists for callers that want to react.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// BrowserID identifies the affected browser, if any.
	BrowserID string

	// SequenceID identifies the affected sequence, if any.
	SequenceID string
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeIncompatible indicates a sequence was refused by a browser.
	ErrCodeIncompatible SyncErrorCode = "INCOMPATIBLE_SEQUENCE"

	// ErrCodeMissingReference indicates a sequence or node could not be resolved.
	ErrCodeMissingReference SyncErrorCode = "MISSING_REFERENCE"

	// ErrCodeInvalidIndexValue indicates an index value was rejected.
	ErrCodeInvalidIndexValue SyncErrorCode = "INVALID_INDEX_VALUE"

	// ErrCodeInvalidBrowser indicates a missing or unknown browser.
	ErrCodeInvalidBrowser SyncErrorCode = "INVALID_BROWSER"

	// ErrCodeMalformedProperties indicates a persisted attribute list did not parse.
	ErrCodeMalformedProperties SyncErrorCode = "MALFORMED_PROPERTIES"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.BrowserID != "" && e.SequenceID != "" {
		return fmt.Sprintf("%s: %s (browser=%s, sequence=%s)", e.Code, e.Message, e.BrowserID, e.SequenceID)
	}
	if e.BrowserID != "" {
		return fmt.Sprintf("%s: %s (browser=%s)", e.Code, e.Message, e.BrowserID)
	}
	if e.SequenceID != "" {
		return fmt.Sprintf("%s: %s (sequence=%s)", e.Code, e.Message, e.SequenceID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIncompatible returns true if the error is an incompatible sequence error.
// Uses errors.As to handle wrapped errors.
func IsIncompatible(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeIncompatible
	}
	return false
}

// IsMissingReference returns true if the error is a missing reference error.
func IsMissingReference(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeMissingReference
	}
	return false
}

// IsMalformedProperties returns true if the error is a malformed properties error.
func IsMalformedProperties(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeMalformedProperties
	}
	return false
}

// IsInvalidBrowser returns true if the error is an invalid browser error.
func IsInvalidBrowser(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidBrowser
	}
	return false
}

// NewIncompatibleError creates a SyncError for a refused sequence.
func NewIncompatibleError(browserID, sequenceID string) *SyncError {
	return &SyncError{
		Code:       ErrCodeIncompatible,
		Message:    "sequence index name, unit or type differ from the master",
		BrowserID:  browserID,
		SequenceID: sequenceID,
	}
}

// NewMissingReferenceError creates a SyncError for an unresolved reference.
func NewMissingReferenceError(browserID, sequenceID, what string) *SyncError {
	return &SyncError{
		Code:       ErrCodeMissingReference,
		Message:    what + " not found",
		BrowserID:  browserID,
		SequenceID: sequenceID,
	}
}

// NewInvalidBrowserError creates a SyncError for a missing browser.
func NewInvalidBrowserError(browserID string) *SyncError {
	msg := "no browser given"
	if browserID != "" {
		msg = "unknown browser"
	}
	return &SyncError{
		Code:      ErrCodeInvalidBrowser,
		Message:   msg,
		BrowserID: browserID,
	}
}

// NewMalformedPropertiesError creates a SyncError for persisted
// synchronization properties of a browser that did not parse.
func NewMalformedPropertiesError(browserID string, cause error) *SyncError {
	return &SyncError{
		Code:      ErrCodeMalformedProperties,
		Message:   cause.Error(),
		BrowserID: browserID,
	}
}
