package subtitle

import (
	"encoding/json"
	"fmt"
	"strings"

	"echolot/internal/segment"
)

// Entry is the JSON form of one subtitle line.
type Entry struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Translation string  `json:"translation"`
}

// Entries converts segments to their JSON form. Translation is reserved for
// a later pass and stays empty.
func Entries(segments []segment.Segment) []Entry {
	entries := make([]Entry, len(segments))
	for i, seg := range segments {
		entries[i] = Entry{Start: seg.Start, End: seg.End, Text: seg.Text, Translation: ""}
	}
	return entries
}

// MarshalEntries serializes segments as a JSON array without escaping
// non-ASCII text.
func MarshalEntries(segments []segment.Segment) ([]byte, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Entries(segments)); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(buf.String(), "\n")), nil
}

// FormatSRT renders segments as an SRT document with entries numbered from
// one.
func FormatSRT(segments []segment.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			i+1, formatTime(seg.Start), formatTime(seg.End), seg.Text)
		if i < len(segments)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatTime converts seconds to HH:MM:SS,mmm. Milliseconds truncate
// rather than round so a boundary never spills into the next second.
func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int((seconds - float64(whole)) * 1000)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}
