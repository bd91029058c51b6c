package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoiner(t *testing.T) {
	assert.Equal(t, "", Joiner("zh"))
	assert.Equal(t, " ", Joiner("de"))
	assert.Equal(t, " ", Joiner("en"))
	assert.Equal(t, " ", Joiner(""))
}

func TestSegmentDuration(t *testing.T) {
	seg := Segment{Start: 1.5, End: 4.0}
	assert.InDelta(t, 2.5, seg.Duration(), 1e-9)
}
