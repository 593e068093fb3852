package core

// # Error Codes Reference
//
// Every failure surfaced to a user carries a short code for support reference.
// Lookup failures are keyed by Kind; infrastructure failures fall back to
// case-insensitive pattern matching on the error text.
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - LinkMissing: file link parameter absent or empty
//	REQ002 - NMissing: N parameter absent or empty
//	REQ003 - LinkInvalidChars: link contains one of < > " | ? *
//	REQ004 - NNotInteger: N is not a base-10 integer
//	REQ005 - NNotPositive: N is zero or negative
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - FileNotFound: nothing exists at the path
//	FILE002 - PathNotFile: the path is a directory or special file
//	FILE003 - WrongExtension: the file is not an .xlsx workbook
//	FILE004 - InvalidWorkbook: the file could not be read as a workbook
//	FILE005 - NoSheets: the workbook has no sheets
//
// # Data Errors (DATA001-DATA099)
//
//	DATA001 - NoNumbers: no integer values in the first column
//	DATA002 - NExceedsCount: N is larger than the number of distinct values
//
// # Service Errors (SVC001-SVC099)
//
//	SVC001 - too many queries in flight
//	SVC002 - request cancelled
//	SVC003 - request timed out
//	SVC004 - rate limited
//
// # Default Error (ERR000)
//
// Fallback when neither a kind nor a pattern matches. Check the server logs
// for the original technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Kind    Kind
}

var kindUserMessages = map[Kind]UserMessage{
	LinkMissing:      {Action: "Pass the workbook path in the fileLink parameter", Code: "REQ001"},
	NMissing:         {Action: "Pass a positive integer in the N parameter", Code: "REQ002"},
	LinkInvalidChars: {Action: `Remove < > " | ? * from the file path`, Code: "REQ003"},
	NNotInteger:      {Action: "Use a whole number such as 1, 2 or 10", Code: "REQ004"},
	NNotPositive:     {Action: "N starts at 1 for the smallest value", Code: "REQ005"},
	FileNotFound:     {Action: "Check the path is correct and readable by the server", Code: "FILE001"},
	PathNotFile:      {Action: "Point the link at a file, not a directory", Code: "FILE002"},
	WrongExtension:   {Action: "Save the workbook as .xlsx", Code: "FILE003"},
	InvalidWorkbook:  {Action: "Re-save the file from Excel as an .xlsx workbook", Code: "FILE004"},
	NoSheets:         {Action: "Add a sheet with numbers in its first column", Code: "FILE005"},
	NoNumbers:        {Action: "Put integer values in column A of the first sheet", Code: "DATA001"},
	NExceedsCount:    {Action: "Use a smaller N", Code: "DATA002"},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is consulted for errors that carry no Kind. First match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "too many concurrent queries",
		msg: UserMessage{
			Message: "System is busy processing other lookups",
			Action:  "Please wait a moment and try again",
			Code:    "SVC001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SVC002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller workbook or try again later",
			Code:    "SVC003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "SVC004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Tagged lookup
// errors map by Kind and keep their fixed message; anything else is matched
// against known patterns, falling back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if kind := KindOf(err); kind != KindUnknown {
		msg, ok := kindUserMessages[kind]
		if !ok {
			msg = defaultMessage
		}
		msg.Message = kind.Message()
		msg.Kind = kind
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a known message rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
