package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/faultline/pkg/models"
)

const maxTitleRunes = 100

// Format renders an ErrorContext as the markdown body of an issue or comment.
// Sections without data are omitted.
func Format(ec models.ErrorContext) string {
	var lines []string

	lines = append(lines, "## Error Details")
	lines = append(lines, "**Message:** "+ec.Message)
	lines = append(lines, "**Timestamp:** "+ec.Timestamp)
	lines = append(lines, "**Environment:** "+ec.Environment)

	if ec.URL != "" {
		lines = append(lines, "**URL:** "+ec.URL)
	}
	if ec.RequestMethod != "" {
		lines = append(lines, "**Method:** "+ec.RequestMethod)
	}
	if ec.UserAgent != "" {
		lines = append(lines, "**User Agent:** "+ec.UserAgent)
	}

	if ec.Stack != "" {
		lines = append(lines, "\n## Stack Trace", "```", ec.Stack, "```")
	}

	if ec.UserID != "" {
		lines = append(lines, "\n**User ID:** "+ec.UserID)
	}
	if ec.SessionID != "" {
		lines = append(lines, "**Session ID:** "+ec.SessionID)
	}

	if len(ec.AdditionalData) > 0 {
		data, err := json.MarshalIndent(ec.AdditionalData, "", "  ")
		if err != nil {
			data = []byte(fmt.Sprintf("%q", fmt.Sprint(ec.AdditionalData)))
		}
		lines = append(lines, "\n## Additional Context", "```json", string(data), "```")
	}

	return strings.Join(lines, "\n")
}

// FormatOccurrence renders the comment appended for the n-th occurrence of a signature.
func FormatOccurrence(n int, ec models.ErrorContext) string {
	return fmt.Sprintf("**Error Occurrence #%d**\n\n%s", n, Format(ec))
}

// Title builds the issue title from the first 100 characters of the message.
func Title(message string) string {
	if utf8.RuneCountInString(message) > maxTitleRunes {
		message = string([]rune(message)[:maxTitleRunes])
	}
	return "[Error] " + message
}
