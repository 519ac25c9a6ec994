package core

// error_messages.go holds the catalogue of user-facing error codes.
//
// Users quote the code to support staff. Codes are grouped by category:
//
//	AUTH001-AUTH099  sign-in, sessions and password reset links
//	USR001-USR099    user accounts and registration requests
//	VAL001-VAL099    request and field validation
//	FILE001-FILE099  uploaded file handling
//	UPL001-UPL099    upload throttling and cancellation
//	DB001-DB099      storage constraints and connectivity
//	MAIL001          outgoing email
//	RATE001          request throttling
//	ERR000           anything else; check the server log
//
// Errors raised by this package carry their code directly (see Error).
// Errors from lower layers are matched case-insensitively against
// errorPatterns and the first match wins, so specific patterns come first.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage is what a client is shown for an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var messages = map[string]UserMessage{
	"AUTH001": {Message: "Invalid email or password", Action: "Check your credentials and try again"},
	"AUTH002": {Message: "Account is inactive", Action: "Contact an administrator to reactivate your account"},
	"AUTH003": {Message: "Access denied for this user type", Action: "Select the user type your account was created with"},
	"AUTH004": {Message: "Not authorized, please log in", Action: "Log in again"},
	"AUTH005": {Message: "You do not have permission for this action", Action: "Ask an administrator for access"},
	"AUTH006": {Message: "Reset link is invalid or has expired", Action: "Request a new password reset"},
	"AUTH007": {Message: "Password reset is only available to administrators", Action: "Ask an administrator to change your password"},
	"AUTH008": {Message: "Current password is incorrect", Action: "Check your current password and try again"},

	"USR001": {Message: "User not found", Action: "Refresh the list and try again"},
	"USR002": {Message: "A user with this email already exists", Action: "Use a different email address"},
	"USR003": {Message: "A registration request for this email is already pending", Action: "Wait for an administrator to review it"},
	"USR004": {Message: "This registration request has already been processed", Action: "Refresh the list"},
	"USR005": {Message: "You cannot delete your own account", Action: "Ask another administrator"},
	"USR006": {Message: "Registration request not found", Action: "Refresh the list and try again"},
	"USR007": {Message: "Self-registration is disabled", Action: "Submit a registration request for administrator approval"},

	"VAL001": {Message: "Invalid or missing date", Action: "Use DD/MM/YYYY, DD-MM-YYYY or YYYY-MM-DD"},
	"VAL002": {Message: "A required field is missing", Action: "Fill in every required field"},
	"VAL003": {Message: "Password is too short", Action: "Use at least 6 characters"},
	"VAL004": {Message: "Passwords do not match", Action: "Type the same password in both fields"},
	"VAL005": {Message: "Invalid role", Action: "Choose one of the listed roles"},
	"VAL006": {Message: "Invalid request", Action: "Check the request parameters"},

	"FILE001": {Message: "File exceeds the maximum upload size", Action: "Split the file into smaller files"},
	"FILE002": {Message: "Only CSV files are allowed", Action: "Export the spreadsheet as CSV and upload again"},
	"FILE003": {Message: "The file could not be read", Action: "Check the file and upload it again"},
	"FILE004": {Message: "No file was selected", Action: "Select a CSV file to upload"},
	"FILE005": {Message: "No file uploaded or file is empty", Action: "Upload a CSV file with data rows"},

	"UPL001": {Message: "System is busy processing other uploads", Action: "Wait a moment and try again"},
	"UPL002": {Message: "Request was cancelled", Action: "Try again"},
	"UPL003": {Message: "Request timed out", Action: "Try a smaller file or try again later"},

	"DB001": {Message: "A record with this key already exists", Action: "Refresh and try again"},
	"DB002": {Message: "This value must be unique but already exists", Action: "Use a different value"},
	"DB003": {Message: "Referenced record does not exist", Action: "Refresh and try again"},
	"DB004": {Message: "Unable to connect to database", Action: "Try again in a few moments"},
	"DB005": {Message: "Database connection was interrupted", Action: "Try again"},
	"DB006": {Message: "Operation timed out", Action: "Try again later"},
	"DB007": {Message: "Database was busy with conflicting operations", Action: "Try again"},
	"DB008": {Message: "Ledger entry not found", Action: "Refresh the list and try again"},

	"MAIL001": {Message: "Could not send email", Action: "Try again later or contact support"},

	"RATE001": {Message: "Too many requests", Action: "Wait a moment before trying again"},
}

var errorPatterns = []struct {
	pattern string
	code    string
}{
	// Lower-layer sentinels.
	{"no file uploaded or file is empty", "FILE005"},
	{"failed to read upload", "FILE003"},
	{"request body too large", "FILE001"},
	{"ledger entry not found", "DB008"},
	{"not authorized, token failed", "AUTH004"},
	{"session expired", "AUTH004"},
	{"password must be at least", "VAL003"},
	{"mailer is not open", "MAIL001"},
	{"smtp", "MAIL001"},
	{"too many uploads", "UPL001"},

	// Postgres and network.
	{"duplicate key", "DB001"},
	{"unique constraint", "DB002"},
	{"violates unique", "DB002"},
	{"foreign key constraint", "DB003"},
	{"violates foreign key", "DB003"},
	{"connection refused", "DB004"},
	{"connection reset", "DB005"},
	{"context canceled", "UPL002"},
	{"context deadline exceeded", "UPL003"},
	{"timeout", "DB006"},
	{"deadlock", "DB007"},

	{"rate limit", "RATE001"},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

func lookup(code string) UserMessage {
	msg, ok := messages[code]
	if !ok {
		return defaultMessage
	}
	msg.Code = code
	return msg
}

// MapError converts err to the message a client should see. Errors raised
// as *Error keep their own code; others are matched against known patterns
// and fall back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ce *Error
	if errors.As(err, &ce) {
		msg := lookup(ce.Code)
		if ce.Message != "" {
			msg.Message = ce.Message
		}
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return lookup(ep.code)
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
