package ui

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// CopyToClipboard puts text on the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available (install xclip, xsel or wl-clipboard)")
	}
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// FormatTranscript renders an exchange the way it is pasted into a bug
// report.
func FormatTranscript(command, echo, response string) string {
	if echo == "" {
		return fmt.Sprintf("> %s\n%s\n", command, response)
	}
	return fmt.Sprintf("> %s\n%s\n%s\n", command, echo, response)
}
