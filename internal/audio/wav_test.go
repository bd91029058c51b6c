package audio

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32WavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	require.NoError(t, WriteFloat32Wav(path, samples, 16000))

	got, rate, err := ReadWav(path)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	require.Len(t, got, len(samples))

	for i := range samples {
		assert.InDelta(t, samples[i], got[i], 1.0/32767*2, "sample %d", i)
	}
}

func TestWriteFloat32WavClampsOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")

	require.NoError(t, WriteFloat32Wav(path, []float32{2.0, -2.0, 0}, 16000))

	got, _, err := ReadWav(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-3)
	assert.InDelta(t, -1.0, got[1], 1e-3)
	assert.InDelta(t, 0.0, got[2], 1e-3)
}

func TestProbeReportsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "norm.wav")
	require.NoError(t, WriteFloat32Wav(path, make([]float32, 16000), 16000))

	info, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 1, info.NumChannels)
	assert.Equal(t, 16, info.BitsPerSample)
	assert.True(t, info.IsNormalized())
	assert.InDelta(t, 1.0, info.Duration(), 1e-6)
}

func TestProbeRejectsNonNormalizedRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hi.wav")
	require.NoError(t, WriteFloat32Wav(path, make([]float32, 44100), 44100))

	info, err := Probe(path)
	require.NoError(t, err)
	assert.False(t, info.IsNormalized())
}

func TestWritePCM16WavHeader(t *testing.T) {
	var buf bytes.Buffer
	pcm := make([]byte, 48000) // 1 s of 24 kHz mono PCM16

	require.NoError(t, WritePCM16Wav(&buf, pcm, 24000))

	data := buf.Bytes()
	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, len(pcm)+44, len(data))
}

func TestConvertToWavPassThroughNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ready.wav")
	require.NoError(t, WriteFloat32Wav(path, make([]float32, 8000), 16000))

	out, err := ConvertToWav(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, out)
}
