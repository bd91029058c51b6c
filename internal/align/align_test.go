package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echolot/internal/segment"
)

func TestPiecesPunctuationDrift(t *testing.T) {
	seg := segment.Segment{
		Text:     "hello world",
		Start:    0,
		End:      0.9,
		Tokens:   []string{"hello", " ", "world"},
		EndTimes: []float64{0.4, 0.5, 0.9},
	}

	out := Pieces([]string{"Hello, world"}, seg)

	require.Len(t, out, 1)
	assert.Equal(t, "Hello, world", out[0].Text)
	assert.InDelta(t, 0.0, out[0].Start, 1e-9)
	assert.InDelta(t, 1.05, out[0].End, 1e-9) // 0.9 + 150 ms tail
}

func TestPiecesTwoPieces(t *testing.T) {
	seg := segment.Segment{
		Start:    0,
		End:      2.0,
		Tokens:   []string{"guten ", "morgen ", "liebe ", "leute"},
		EndTimes: []float64{0.4, 0.8, 1.5, 2.0},
	}

	out := Pieces([]string{"guten morgen", "liebe leute"}, seg)

	require.Len(t, out, 2)
	assert.InDelta(t, 0.0, out[0].Start, 1e-9)
	assert.InDelta(t, 0.95, out[0].End, 1e-9)
	assert.InDelta(t, 0.8, out[1].Start, 1e-9)
	assert.InDelta(t, 2.15, out[1].End, 1e-9)
}

func TestPiecesGapOpensFreshWindow(t *testing.T) {
	seg := segment.Segment{
		Start:    0,
		End:      5.0,
		Tokens:   []string{"eins ", "zwei"},
		EndTimes: []float64{0.5, 5.0},
	}

	out := Pieces([]string{"zwei"}, seg)

	require.Len(t, out, 1)
	// Gap of 4.5 s: the window opens 0.5 s before the token end.
	assert.InDelta(t, 4.5, out[0].Start, 1e-9)
	assert.InDelta(t, 5.15, out[0].End, 1e-9)
}

func TestPiecesMissFallback(t *testing.T) {
	seg := segment.Segment{
		Start:    1.0,
		End:      3.0,
		Tokens:   []string{"abc ", "def"},
		EndTimes: []float64{1.5, 3.0},
	}

	out := Pieces([]string{"xyz", "def"}, seg)

	require.Len(t, out, 2)
	// First piece never matches and gets the nominal fallback window.
	assert.InDelta(t, 1.0, out[0].Start, 1e-9)
	assert.InDelta(t, 1.25, out[0].End, 1e-9) // 1.0 + 0.1 + tail
	assert.Equal(t, "def", out[1].Text)
}

func TestPiecesStartsNonDecreasing(t *testing.T) {
	seg := segment.Segment{
		Start:    0,
		End:      4.0,
		Tokens:   []string{"alpha ", "beta ", "alpha ", "gamma"},
		EndTimes: []float64{0.5, 1.0, 3.0, 4.0},
	}

	out := Pieces([]string{"beta alpha", "alpha", "gamma"}, seg)

	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i].Start, out[i-1].Start)
	}
	for _, s := range out {
		assert.LessOrEqual(t, s.Start, s.End)
	}
}

func TestPiecesProportionalFallback(t *testing.T) {
	seg := segment.Segment{Text: "abcd ef", Start: 2.0, End: 8.0}

	out := Pieces([]string{"abcd", "ef"}, seg)

	require.Len(t, out, 2)
	assert.InDelta(t, 2.0, out[0].Start, 1e-9)
	assert.InDelta(t, 6.0, out[0].End, 1e-9) // 4 of 6 chars
	assert.InDelta(t, 6.0, out[1].Start, 1e-9)
	assert.InDelta(t, 8.0, out[1].End, 1e-9)
}

func TestPiecesEmptyInput(t *testing.T) {
	assert.Nil(t, Pieces(nil, segment.Segment{}))
}
