package asr

// RawTranscript is the stitched output of one recognition run. Tokens and
// EndTimes are parallel; EndTimes is monotonically non-decreasing and
// relative to the start of the full input.
type RawTranscript struct {
	Text     string    `json:"text"`
	Tokens   []string  `json:"tokens"`
	EndTimes []float64 `json:"end_times"`
}

// LastEndTime returns the end time of the final token, or 0 when empty.
func (t *RawTranscript) LastEndTime() float64 {
	if len(t.EndTimes) == 0 {
		return 0
	}
	return t.EndTimes[len(t.EndTimes)-1]
}
