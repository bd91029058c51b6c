package segment

import "unicode/utf8"

// MergeConfig holds the validator/merger thresholds.
type MergeConfig struct {
	MinChars    int     // below this a segment is "short"
	MinDuration float64 // seconds; below this a segment is "short"
	MaxChars    int     // merged text must not exceed this
	MaxDuration float64 // merged span must not exceed this
}

// DefaultMergeConfig returns the standard thresholds.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{
		MinChars:    10,
		MinDuration: 1.0,
		MaxChars:    80,
		MaxDuration: 10.0,
	}
}

// MergeShort folds short segments into their right neighbor. A segment is
// short when its text is under MinChars or its duration under MinDuration;
// it is merged only while the combined text stays within MaxChars and the
// combined span within MaxDuration. Single-pass and idempotent; segments
// that arrive overlong are passed through unchanged.
func MergeShort(segments []Segment, cfg MergeConfig) []Segment {
	if len(segments) == 0 {
		return segments
	}

	var result []Segment
	cur := segments[0]

	for _, next := range segments[1:] {
		short := utf8.RuneCountInString(cur.Text) < cfg.MinChars || cur.Duration() < cfg.MinDuration
		merged := cur.Text + " " + next.Text

		if short &&
			utf8.RuneCountInString(merged) <= cfg.MaxChars &&
			next.End-cur.Start <= cfg.MaxDuration {
			cur.Text = merged
			cur.End = next.End
			continue
		}

		result = append(result, cur)
		cur = next
	}

	return append(result, cur)
}
