package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolot/internal/segment"
)

func TestFormatSRT(t *testing.T) {
	segments := []segment.Segment{
		{Text: "Guten Morgen.", Start: 0, End: 2.5},
		{Text: "Wie geht es dir?", Start: 2.5, End: 5.04},
	}

	srt := FormatSRT(segments)

	expected := "1\n00:00:00,000 --> 00:00:02,500\nGuten Morgen.\n" +
		"\n" +
		"2\n00:00:02,500 --> 00:00:05,040\nWie geht es dir?\n"
	assert.Equal(t, expected, srt)
}

func TestFormatSRTEmpty(t *testing.T) {
	assert.Equal(t, "", FormatSRT(nil))
}

func TestFormatTimeTruncatesMillis(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{0.9999, "00:00:00,999"},
		{59.9995, "00:00:59,999"},
		{61.5, "00:01:01,500"},
		{3661.25, "01:01:01,250"},
		{-1, "00:00:00,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTime(tt.seconds), "seconds=%v", tt.seconds)
	}
}

func TestEntriesIncludeEmptyTranslation(t *testing.T) {
	entries := Entries([]segment.Segment{{Text: "hallo", Start: 1, End: 2}})
	require.Len(t, entries, 1)
	assert.Equal(t, "", entries[0].Translation)
}

func TestMarshalEntriesKeepsUTF8(t *testing.T) {
	data, err := MarshalEntries([]segment.Segment{{Text: "schön & größer", Start: 0, End: 1}})
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.Contains(s, "schön & größer"), "got %s", s)
	assert.True(t, strings.Contains(s, `"translation":""`))
}
