package core

// error_messages.go maps technical errors to user-facing messages with codes.
//
// # Error Codes Reference
//
// Operators quote the code when reporting a failed run; the code points at
// the pattern that matched and the suggested action.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists in the store
//	        Patterns: "duplicate key"
//	DB002 - Unique constraint: A unique value (users.email) already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced record does not exist in the store
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//	DB007 - Busy: Database was busy with conflicting operations
//	        Patterns: "deadlock", "database is locked"
//
// # Source File Errors (SRC001-SRC099)
//
//	SRC001 - Empty file: A source file has no header row
//	         Patterns: "empty file"
//	SRC002 - Invalid CSV: A source file could not be parsed
//	         Patterns: "invalid csv"
//	SRC003 - Missing file: A source file could not be opened
//	         Patterns: "no such file"
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Missing reference: An entity references a table that was not loaded
//	         Patterns: "referenced table not loaded"
//	CFG002 - Unknown entity: The entity is not part of the catalogue
//	         Patterns: "unknown entity"
//	CFG003 - Invalid settings: Configuration failed validation
//	         Patterns: "config validation"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Busy: Another run is in progress
//	         Patterns: "run already in progress"
//	RUN002 - Cancelled: The run was cancelled
//	         Patterns: "context canceled"
//	RUN003 - Deadline: The run exceeded its time limit
//	         Patterns: "context deadline exceeded"
//	RUN004 - No result: No run has completed yet
//	         Patterns: "no completed run"
//
// # Report Errors (RPT001-RPT099)
//
//	RPT001 - Not found: The requested report artifact does not exist
//	         Patterns: "report not found"
//	RPT002 - Render failed: A report artifact could not be written
//	         Patterns: "render report"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively using strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrReferenceNotLoaded is returned when a foreign key points at a table
	// missing from the record set. It is a configuration error and aborts the run.
	ErrReferenceNotLoaded = errors.New("referenced table not loaded")

	// ErrUnknownEntity is returned for entity keys outside the catalogue.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrEmptyFile is returned when a source file has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidCSV is returned when a source file cannot be parsed.
	ErrInvalidCSV = errors.New("invalid csv")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Clear the target tables or point DATABASE_URL at a fresh database",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for values already stored by a previous run",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check for values already stored by a previous run",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure referenced entities are exported together",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure referenced entities are exported together",
			Code:    "DB003",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later or raise RUN_TIMEOUT",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Close other connections to the database file and try again",
			Code:    "DB007",
		},
	},

	// Source file errors
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "A source file is empty",
			Action:  "Export the entity again with a header row",
			Code:    "SRC001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "A source file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "SRC002",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "A source file could not be opened",
			Action:  "Check DATA_DIR and file permissions",
			Code:    "SRC003",
		},
	},

	// Configuration errors
	{
		pattern: "referenced table not loaded",
		msg: UserMessage{
			Message: "An entity references a table that was not loaded",
			Action:  "Provide the referenced entity file in DATA_DIR",
			Code:    "CFG001",
		},
	},
	{
		pattern: "unknown entity",
		msg: UserMessage{
			Message: "Unknown entity",
			Action:  "Use one of the catalogued entity names",
			Code:    "CFG002",
		},
	},
	{
		pattern: "config validation",
		msg: UserMessage{
			Message: "Configuration is invalid",
			Action:  "Fix the environment variables listed in the log",
			Code:    "CFG003",
		},
	},

	// Run errors
	{
		pattern: "run already in progress",
		msg: UserMessage{
			Message: "Another run is in progress",
			Action:  "Wait for the current run to finish",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Run exceeded its time limit",
			Action:  "Raise RUN_TIMEOUT or reduce the input size",
			Code:    "RUN003",
		},
	},
	{
		pattern: "no completed run",
		msg: UserMessage{
			Message: "No run has completed yet",
			Action:  "Trigger a run first",
			Code:    "RUN004",
		},
	},

	// Report errors
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "Report not found",
			Action:  "Use one of the artifact names listed by the latest run",
			Code:    "RPT001",
		},
	},
	{
		pattern: "render report",
		msg: UserMessage{
			Message: "Report could not be written",
			Action:  "Check REPORT_DIR exists and is writable",
			Code:    "RPT002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback message with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
