package align

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"echolot/internal/segment"
)

const (
	// A token this far from its predecessor starts a fresh window instead
	// of inheriting the previous end.
	gapThresholdSec = 1.0
	leadInSec       = 0.5

	// Pieces that cannot be located in the token stream get this nominal
	// duration.
	missDurationSec = 0.1

	// Every aligned segment keeps ringing a little past its last token.
	tailExtensionSec = 0.15
)

type tokenWindow struct {
	start, end float64
}

// Pieces maps the re-segmented text pieces of one transcript segment back
// onto its token timing. Timestamps are token end times; a token's start is
// the previous end unless the gap exceeds one second, in which case the
// window opens half a second before its end. When the segment carries no
// usable token timing the pieces are timed proportionally to their length.
func Pieces(pieces []string, seg segment.Segment) []segment.Segment {
	if len(pieces) == 0 {
		return nil
	}
	if len(seg.Tokens) == 0 || len(seg.EndTimes) != len(seg.Tokens) {
		return proportional(pieces, seg.Start, seg.End)
	}

	windows := tokenWindows(seg.EndTimes, seg.Start)
	norm, normToken := normalizeTokens(seg.Tokens)

	out := make([]segment.Segment, 0, len(pieces))
	searchPos := 0
	prevStart := seg.Start
	prevEnd := seg.Start

	for _, piece := range pieces {
		pieceNorm := normalizeText(piece)

		start, end := prevEnd, prevEnd+missDurationSec
		if pieceNorm != "" {
			a := indexFrom(norm, pieceNorm, searchPos)
			if a < 0 {
				a = strings.Index(norm, pieceNorm)
			}
			if a >= 0 {
				b := a + len(pieceNorm)
				start = windows[normToken[a]].start
				end = windows[normToken[b-1]].end
				searchPos = b
			}
		}

		// Emitted starts stay non-decreasing even when a piece matched
		// behind the cursor.
		if start < prevStart {
			start = prevStart
		}
		if end < start {
			end = start
		}

		out = append(out, segment.Segment{Text: piece, Start: start, End: end})
		prevStart = start
		prevEnd = end
	}

	for i := range out {
		out[i].End += tailExtensionSec
	}
	return out
}

// tokenWindows reconstructs per-token time windows from end times.
func tokenWindows(endTimes []float64, segStart float64) []tokenWindow {
	windows := make([]tokenWindow, len(endTimes))
	prevEnd := segStart
	for i, end := range endTimes {
		start := prevEnd
		if i == 0 || end-prevEnd > gapThresholdSec {
			start = end - leadInSec
			if start < prevEnd {
				start = prevEnd
			}
		}
		if end < start {
			end = start
		}
		windows[i] = tokenWindow{start: start, end: end}
		prevEnd = end
	}
	return windows
}

// normalizeTokens projects the token stream to lowercase alphanumerics and
// records, for every projected byte, which token it came from.
func normalizeTokens(tokens []string) (string, []int) {
	var b strings.Builder
	var owner []int
	for i, tok := range tokens {
		for _, r := range tok {
			if !isAlnum(r) {
				continue
			}
			lower := unicode.ToLower(r)
			n := utf8.RuneLen(lower)
			b.WriteRune(lower)
			for k := 0; k < n; k++ {
				owner = append(owner, i)
			}
		}
	}
	return b.String(), owner
}

func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isAlnum(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	if i := strings.Index(s[from:], substr); i >= 0 {
		return from + i
	}
	return -1
}

// proportional distributes [start, end] across the pieces by character
// count.
func proportional(pieces []string, start, end float64) []segment.Segment {
	total := 0
	for _, p := range pieces {
		total += utf8.RuneCountInString(p)
	}
	even := total == 0
	if even {
		total = len(pieces)
	}
	if end < start {
		end = start
	}

	span := end - start
	out := make([]segment.Segment, 0, len(pieces))
	cursor := start
	for i, p := range pieces {
		weight := utf8.RuneCountInString(p)
		if even {
			weight = 1
		}
		pieceEnd := cursor + span*float64(weight)/float64(total)
		if i == len(pieces)-1 {
			pieceEnd = end
		}
		out = append(out, segment.Segment{Text: p, Start: cursor, End: pieceEnd})
		cursor = pieceEnd
	}
	return out
}
