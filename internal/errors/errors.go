package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates the loaded configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// AddressInUse indicates the listen address is already bound
	AddressInUse ErrorCode = "ADDRESS_IN_USE"
	// BindFailed indicates the listener could not be created for another reason
	BindFailed ErrorCode = "BIND_FAILED"
	// DatabaseUnavailable indicates the database pool could not be opened or pinged
	DatabaseUnavailable ErrorCode = "DATABASE_UNAVAILABLE"
	// CacheUnavailable indicates the cache client could not be created or pinged
	CacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration key
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Key         string        `json:"key,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error is a coded error carrying an optional cause and suggested fixes.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error with the predefined fixes for code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "greetd config show",
			Safe:        true,
			Description: "Inspect the effective configuration",
		},
	},
	AddressInUse: {
		{
			Type:        EditConfig,
			Key:         "server.port",
			Description: "Pick a free port or stop the process holding it",
		},
	},
	DatabaseUnavailable: {
		{
			Type:        RunCommand,
			Command:     "greetd doctor",
			Safe:        true,
			Description: "Check database connectivity",
		},
	},
	CacheUnavailable: {
		{
			Type:        RunCommand,
			Command:     "greetd doctor",
			Safe:        true,
			Description: "Check cache connectivity",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
