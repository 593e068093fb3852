package core

import (
	"errors"
	"fmt"
)

// Kind identifies a business failure of a lookup. The transport layer maps a
// Kind to a status code; the core never deals with transport codes.
type Kind int

const (
	KindUnknown Kind = iota
	LinkMissing
	NMissing
	LinkInvalidChars
	FileNotFound
	PathNotFile
	WrongExtension
	NNotInteger
	NNotPositive
	NoSheets
	NoNumbers
	NExceedsCount
	// InvalidWorkbook is reported by a NumberSource that cannot open or
	// parse the file it was given.
	InvalidWorkbook
)

var kindNames = map[Kind]string{
	KindUnknown:      "Unknown",
	LinkMissing:      "LinkMissing",
	NMissing:         "NMissing",
	LinkInvalidChars: "LinkInvalidChars",
	FileNotFound:     "FileNotFound",
	PathNotFile:      "PathNotFile",
	WrongExtension:   "WrongExtension",
	NNotInteger:      "NNotInteger",
	NNotPositive:     "NNotPositive",
	NoSheets:         "NoSheets",
	NoNumbers:        "NoNumbers",
	NExceedsCount:    "NExceedsCount",
	InvalidWorkbook:  "InvalidWorkbook",
}

// kindMessages holds the fixed human-readable message of each kind.
var kindMessages = map[Kind]string{
	LinkMissing:      "File link cannot be null",
	NMissing:         "N value cannot be null",
	LinkInvalidChars: "Invalid characters in file path",
	FileNotFound:     "File not found",
	PathNotFile:      "Path is not a file",
	WrongExtension:   "File is not an Excel .xlsx file",
	NNotInteger:      "N value is not a valid integer",
	NNotPositive:     "N value must be positive, starting from 1",
	NoSheets:         "Excel file contains no sheets",
	NoNumbers:        "No numbers found in first column",
	NExceedsCount:    "N exceeds the number of values in first column",
	InvalidWorkbook:  "Invalid Excel file format",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message returns the fixed message for the kind.
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "An unexpected error occurred"
}

// NotFound reports whether the kind describes a missing request parameter.
func (k Kind) NotFound() bool {
	return k == LinkMissing || k == NMissing
}

// Error is a tagged lookup failure. Message is always the fixed message of
// Kind; Err optionally carries the underlying cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError returns an Error of the given kind with its fixed message.
func NewError(kind Kind) *Error {
	return &Error{Kind: kind, Message: kind.Message()}
}

// WrapError returns an Error of the given kind that keeps cause for logging.
func WrapError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: kind.Message(), Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, NewError(k))
// works regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
