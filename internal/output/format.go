// Package output renders a transcription result as plain text, timestamped
// text, SRT and WebVTT.
package output

import (
	"fmt"
	"math"
	"strings"

	"audiototext/internal/domain"
)

// PlainText is the full transcript with surrounding whitespace removed.
func PlainText(result domain.TranscriptionResult) string {
	return strings.TrimSpace(result.Text)
}

// TimestampedText renders one "[HH:MM:SS] text" line per segment. Start
// offsets are truncated to whole seconds.
func TimestampedText(segments []domain.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		total := int64(math.Floor(s.Start))
		if total < 0 {
			total = 0
		}
		h := total / 3600
		m := (total % 3600) / 60
		sec := total % 60
		fmt.Fprintf(&b, "[%02d:%02d:%02d] %s\n", h, m, sec, strings.TrimSpace(s.Text))
	}
	return b.String()
}

// SRT renders numbered SubRip cues with HH:MM:SS,mmm timestamps.
func SRT(segments []domain.Segment) string {
	var b strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(s.Start, true, ","),
			formatTimestamp(s.End, true, ","),
			cueText(s.Text),
		)
	}
	return b.String()
}

// VTT renders a WebVTT document. Hours appear only when non-zero.
func VTT(segments []domain.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range segments {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n",
			formatTimestamp(s.Start, false, "."),
			formatTimestamp(s.End, false, "."),
			cueText(s.Text),
		)
	}
	return b.String()
}

// cueText trims a segment and keeps it from terminating the cue timing line.
func cueText(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "-->", "->")
}

// formatTimestamp renders seconds as [HH:]MM:SS<marker>mmm, rounding
// milliseconds half to even.
func formatTimestamp(seconds float64, alwaysIncludeHours bool, decimalMarker string) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.RoundToEven(seconds * 1000))

	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	secs := ms / 1000
	ms -= secs * 1000

	hoursMarker := ""
	if alwaysIncludeHours || hours > 0 {
		hoursMarker = fmt.Sprintf("%02d:", hours)
	}
	return fmt.Sprintf("%s%02d:%02d%s%03d", hoursMarker, minutes, secs, decimalMarker, ms)
}
