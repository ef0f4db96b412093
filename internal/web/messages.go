package web

// messages.go maps technical errors to user-facing messages with codes
// for support reference. Users quote the code; support staff find it
// here, together with the patterns that trigger it.
//
// Code groups:
//
//	FMT001-FMT099   workbook structure (unreadable file, missing sheet/column, empty sheet)
//	VAL001-VAL099   row-level data validation
//	DB001-DB099     database store and active-pointer state
//	CALC001-CALC099 assessment calculation
//	VER001-VER099   saved versions
//	FILE001-FILE099 file uploads
//	REQ001-REQ099   request decoding and lifecycle
//	RATE001         request throttling
//	ERR000          fallback for anything unmatched
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns sit before general ones (every
// *dataset.FormatError string starts with "invalid workbook format", which
// is therefore the last FMT pattern).

import (
	"fmt"
	"strings"
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
	// =========================================================================
	// Workbook Structure (FMT001-FMT006)
	// Structural problems that abort loading, validating, or importing.
	// =========================================================================
	{
		pattern: "cannot open workbook",
		msg: UserMessage{
			Message: "The file is not a readable Excel workbook",
			Action:  "Re-export the database as .xlsx and try again",
			Code:    "FMT001",
		},
	},
	{
		pattern: "missing required sheet",
		msg: UserMessage{
			Message: "A required worksheet is missing",
			Action:  "The workbook needs a Materials sheet and a Processes sheet",
			Code:    "FMT002",
		},
	},
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from a sheet",
			Action:  "Check the header row against the database template",
			Code:    "FMT003",
		},
	},
	{
		pattern: "sheet is empty",
		msg: UserMessage{
			Message: "A worksheet has no data",
			Action:  "Add at least one data row below the header",
			Code:    "FMT004",
		},
	},
	{
		pattern: "no valid data rows",
		msg: UserMessage{
			Message: "No usable data rows were found",
			Action:  "Fix the reported row issues and upload the file again",
			Code:    "FMT005",
		},
	},
	// FILE002 sits here rather than with the upload group: it is a
	// FormatError reason, so it must precede the generic FMT006 pattern.
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .xlsx workbooks can be imported",
			Action:  "Save the file in Excel .xlsx format",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid workbook format",
		msg: UserMessage{
			Message: "The workbook is not in the expected format",
			Action:  "Compare the file against the database template",
			Code:    "FMT006",
		},
	},

	// =========================================================================
	// Row Validation (VAL001-VAL004)
	// Cell-level problems escalated by dry-run validation or strict loads.
	// =========================================================================
	{
		pattern: "not a number",
		msg: UserMessage{
			Message: "A numeric column contains text",
			Action:  "Remove units and symbols from numeric cells",
			Code:    "VAL002",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "A value is not in the allowed list",
			Action:  "Use one of the allowed values for this column",
			Code:    "VAL003",
		},
	},
	{
		pattern: "duplicate name",
		msg: UserMessage{
			Message: "Duplicate names were found in a sheet",
			Action:  "Remove or rename the duplicated rows",
			Code:    "VAL004",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "The workbook has rows that fail validation",
			Action:  "Review the reported issues and correct those rows",
			Code:    "VAL001",
		},
	},

	// =========================================================================
	// Database Store (DB001-DB003)
	// Active-pointer and store-level conditions.
	// =========================================================================
	{
		pattern: "no active database",
		msg: UserMessage{
			Message: "No database is active yet",
			Action:  "Import a database or activate one from the list",
			Code:    "DB001",
		},
	},
	{
		pattern: "database not found",
		msg: UserMessage{
			Message: "The named database is not in the store",
			Action:  "Check the database list for available names",
			Code:    "DB002",
		},
	},
	{
		pattern: "no backup available",
		msg: UserMessage{
			Message: "There is no earlier database to roll back to",
			Action:  "Rollback needs at least one previous activation",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Calculation (CALC001-CALC003)
	// Assessment scoring failures.
	// =========================================================================
	{
		pattern: "not found in active database",
		msg: UserMessage{
			Message: "The assessment names an entry the active database does not have",
			Action:  "Check material and process names against the active database",
			Code:    "CALC001",
		},
	},
	{
		pattern: "duplicate entry",
		msg: UserMessage{
			Message: "The assessment lists the same material twice",
			Action:  "Merge duplicate material lines into one",
			Code:    "CALC003",
		},
	},
	{
		pattern: "invalid assessment",
		msg: UserMessage{
			Message: "The assessment is incomplete or has invalid values",
			Action:  "Fix the reported fields and resubmit",
			Code:    "CALC002",
		},
	},

	// =========================================================================
	// Versions (VER001-VER003)
	// Saved assessment snapshot operations.
	// =========================================================================
	{
		pattern: "version name already taken",
		msg: UserMessage{
			Message: "A version with this name already exists",
			Action:  "Pick a different name or delete the old version first",
			Code:    "VER002",
		},
	},
	{
		pattern: "invalid version name",
		msg: UserMessage{
			Message: "The version name has unsupported characters",
			Action:  "Use letters, digits, spaces, dots, underscores, or hyphens (max 64)",
			Code:    "VER003",
		},
	},
	{
		pattern: "version not found",
		msg: UserMessage{
			Message: "The requested version does not exist",
			Action:  "Check the version list for valid ids",
			Code:    "VER001",
		},
	},

	// =========================================================================
	// File Uploads (FILE001, FILE003; FILE002 lives with the FMT group)
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the maximum upload size",
			Action:  "Upload a smaller workbook",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a workbook file to upload",
			Code:    "FILE003",
		},
	},

	// =========================================================================
	// Requests (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body is not valid JSON",
			Action:  "Check the request payload format",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try again, or with a smaller file",
			Code:    "REQ003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000). Support
// staff should check the logs for the original technical error when a
// user reports ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. It
// searches the known patterns case-insensitively and returns the first
// match, or the ERR000 fallback when nothing matches.
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

// IsUserFacing reports whether an error matches a known pattern rather
// than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
