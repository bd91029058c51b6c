package segment

// Segment is one subtitle unit. Tokens and EndTimes are carried through the
// splitter passes so the aligner can recover per-token timing; they are
// omitted from serialized results.
type Segment struct {
	Text     string    `json:"text"`
	Start    float64   `json:"start"`
	End      float64   `json:"end"`
	Tokens   []string  `json:"-"`
	EndTimes []float64 `json:"-"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Joiner returns the string used to concatenate tokens or pieces for the
// given language: empty for scripts without inter-word spacing, a space
// otherwise.
func Joiner(language string) string {
	if language == "zh" {
		return ""
	}
	return " "
}
