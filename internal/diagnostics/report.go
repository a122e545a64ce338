package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"audiototext/internal/domain"
)

// WriteReport prints one line per check, followed by its hint when it failed.
func WriteReport(w io.Writer, report domain.DiagnosticReport) error {
	var b strings.Builder
	for _, item := range report.Items {
		fmt.Fprintf(&b, "[%s] %-16s %s\n", strings.ToUpper(string(item.Status)), item.Name, item.Message)
		if item.Status == domain.DiagnosticStatusFail && item.Hint != "" {
			fmt.Fprintf(&b, "       %-16s hint: %s\n", "", item.Hint)
		}
	}
	if report.HasFailures {
		b.WriteString("Some checks failed.\n")
	} else {
		b.WriteString("All checks passed.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
