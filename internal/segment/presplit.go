package segment

import (
	"strings"

	"echolot/internal/asr"
)

// Pauses longer than this between token end times open a new segment.
const silenceGapSec = 2.0

// How far a segment start is pulled before its first token's end time.
const leadInSec = 0.5

// PreSplit cuts the transcript into segments at silence gaps detected from
// token end-time spacing. When the transcript carries no tokens, a single
// segment spanning the full duration is synthesized.
func PreSplit(transcript *asr.RawTranscript, duration float64) []Segment {
	if len(transcript.Tokens) == 0 {
		return []Segment{{Text: transcript.Text, Start: 0, End: duration}}
	}

	var segments []Segment
	groupStart := 0

	flush := func(start, end int) {
		tokens := transcript.Tokens[start:end]
		endTimes := transcript.EndTimes[start:end]

		segStart := endTimes[0] - leadInSec
		if segStart < 0 {
			segStart = 0
		}
		segments = append(segments, Segment{
			Text:     strings.TrimSpace(strings.Join(tokens, "")),
			Start:    segStart,
			End:      endTimes[len(endTimes)-1],
			Tokens:   tokens,
			EndTimes: endTimes,
		})
	}

	for i := 1; i < len(transcript.Tokens); i++ {
		if transcript.EndTimes[i]-transcript.EndTimes[i-1] > silenceGapSec {
			flush(groupStart, i)
			groupStart = i
		}
	}
	flush(groupStart, len(transcript.Tokens))

	return segments
}
