package errors

import (
	"fmt"
	"strings"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapPortError wraps a failure to open or use the command station port.
func WrapPortError(err error, portSpec string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to open command station port %s", portSpec),
		Reason:  extractPortReason(err),
		Hint:    "Check that the command station is plugged in and no other program (serial monitor, IDE) holds the port",
		Try:     "dccverify selftest  (verifies the harness without hardware)",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Run 'dccverify init-config' to write a starter configuration",
		Try:     fmt.Sprintf("dccverify run --config %s --log-level debug", configPath),
		Err:     err,
	}
}

// WrapSuiteError wraps errors loading a YAML suite file.
func WrapSuiteError(err error, suitePath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Suite file error in %s", suitePath),
		Reason:  err.Error(),
		Hint:    "Each group needs a name and a list of cases with a cmd field",
		Try:     "dccverify groups --suite " + suitePath,
		Err:     err,
	}
}

func extractPortReason(err error) string {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found") {
		return "Port does not exist - device may be unplugged or enumerated under another name"
	}
	if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access is denied") {
		return "Permission denied - user may need to be in the dialout/uucp group"
	}
	if strings.Contains(errStr, "busy") || strings.Contains(errStr, "in use") {
		return "Port busy - another program has the port open"
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused - serial server may not be listening on this port"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Connection timeout - serial server may be offline or unreachable"
	}
	if strings.Contains(errStr, "unknown port scheme") {
		return "Unsupported port spec - use a device path, serial://, tcp:// or sim://"
	}

	return "Port could not be opened"
}
