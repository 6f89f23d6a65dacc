package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/fatih/color"

	"github.com/qualitytrend/sonarscrape/schema"
)

// Color variables for console output.
var (
	SucceededColor = color.New(color.FgGreen)             // SucceededColor marks finished runs.
	FailedColor    = color.New(color.FgRed, color.Bold)   // FailedColor marks runs that returned an error.
	CancelledColor = color.New(color.FgYellow)            // CancelledColor marks runs stopped by the user.
	PendingColor   = color.New(color.FgCyan, color.Faint) // PendingColor marks runs with no end time.
)

// GetColorStatus returns a colored run status for console output (table).
// An empty status means the run never finished.
func GetColorStatus(status string) string {
	switch schema.RunStatus(status) {
	case schema.RunSucceeded:
		return SucceededColor.Sprint(status)
	case schema.RunFailed:
		return FailedColor.Sprint(status)
	case schema.RunCancelled:
		return CancelledColor.Sprint(status)
	default:
		return PendingColor.Sprint("pending")
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run bookkeeping.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".sonarscrape_runs.db"
	}
	return filepath.Join(homeDir, ".sonarscrape_runs.db")
}

// SafeFileName turns a project key like "org.apache:commons-cli" into something
// usable as a file name on every platform.
func SafeFileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// TruncateCell truncates a table cell to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and at least one character.
func TruncateCell(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// TruncatePath truncates a file path to a maximum width with an ellipsis prefix,
// keeping the file name visible. Requires maxWidth > 3.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// An empty string means yes.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// SplitList splits a comma-separated flag value, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
