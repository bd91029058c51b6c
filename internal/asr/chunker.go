package asr

import (
	"fmt"
	"log"
	"math"
	"strings"

	"echolot/internal/audio"
)

// Chunking parameters. Long audio is cut near silence close to each 60 s
// boundary so that no token straddles a chunk edge.
const (
	chunkDurationSec = 60
	minChunkSec      = 0.1
	quietWindowSec   = 0.1
)

// Transcribe loads a normalized WAV file and produces a RawTranscript.
// Audio longer than 60 seconds is processed in silence-aligned chunks.
func (r *Recognizer) Transcribe(audioPath string) (*RawTranscript, error) {
	samples, sampleRate, err := audio.ReadWav(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	// Scrub non-finite samples before they reach the model.
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			samples[i] = 0
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	if sampleRate != r.config.SampleRate {
		log.Printf("resampling audio from %dHz to %dHz", sampleRate, r.config.SampleRate)
		samples = Resample(samples, sampleRate, r.config.SampleRate)
		sampleRate = r.config.SampleRate
	}

	if len(samples) <= chunkDurationSec*sampleRate {
		text, tokens, endTimes, err := r.decodeChunk(samples, sampleRate)
		if err != nil {
			return nil, err
		}
		return &RawTranscript{Text: text, Tokens: tokens, EndTimes: endTimes}, nil
	}

	return r.transcribeLong(samples, sampleRate)
}

func (r *Recognizer) transcribeLong(samples []float32, sampleRate int) (*RawTranscript, error) {
	splitPoints := FindSplitPoints(samples, sampleRate, chunkDurationSec)

	var textParts []string
	var allTokens []string
	var allEndTimes []float64

	for i := 0; i < len(splitPoints)-1; i++ {
		start := splitPoints[i]
		end := splitPoints[i+1]
		chunk := samples[start:end]

		if float64(len(chunk)) < minChunkSec*float64(sampleRate) {
			continue
		}

		log.Printf("processing chunk %d/%d: %.2fs", i+1, len(splitPoints)-1, float64(len(chunk))/float64(sampleRate))

		text, tokens, endTimes, err := r.decodeChunk(chunk, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i+1, err)
		}

		if text != "" {
			textParts = append(textParts, text)
		}
		allTokens = append(allTokens, tokens...)

		offset := float64(start) / float64(sampleRate)
		for _, t := range endTimes {
			allEndTimes = append(allEndTimes, t+offset)
		}
	}

	return &RawTranscript{
		Text:     strings.Join(textParts, " "),
		Tokens:   allTokens,
		EndTimes: allEndTimes,
	}, nil
}

// FindSplitPoints returns sample indices at which long audio should be cut.
// For each chunk boundary it searches the window [0.75·chunk, 1.25·chunk]
// past the previous cut, evaluates peak amplitude over non-overlapping 0.1 s
// sub-windows and cuts at the midpoint of the quietest one. The result is a
// strictly increasing sequence starting at 0 and ending at len(samples).
func FindSplitPoints(samples []float32, sampleRate, chunkSec int) []int {
	totalSamples := len(samples)
	chunkSamples := chunkSec * sampleRate

	splitPoints := []int{0}
	currentStart := 0

	for currentStart+chunkSamples < totalSamples {
		searchStart := currentStart + chunkSamples*3/4
		searchEnd := currentStart + chunkSamples*5/4
		if searchEnd > totalSamples {
			searchEnd = totalSamples
		}
		if searchStart >= totalSamples {
			break
		}

		segment := samples[searchStart:searchEnd]
		if len(segment) == 0 {
			break
		}

		windowSize := int(quietWindowSec * float64(sampleRate))
		numWindows := len(segment) / windowSize

		var splitIdx int
		if numWindows == 0 {
			splitIdx = searchEnd
		} else {
			minPeak := float32(math.MaxFloat32)
			minIdx := 0
			for w := 0; w < numWindows; w++ {
				var peak float32
				for _, s := range segment[w*windowSize : (w+1)*windowSize] {
					if s < 0 {
						s = -s
					}
					if s > peak {
						peak = s
					}
				}
				if peak < minPeak {
					minPeak = peak
					minIdx = w
				}
			}
			splitIdx = searchStart + minIdx*windowSize + windowSize/2
		}

		splitPoints = append(splitPoints, splitIdx)
		currentStart = splitIdx
	}

	if splitPoints[len(splitPoints)-1] != totalSamples {
		splitPoints = append(splitPoints, totalSamples)
	}
	return splitPoints
}

// Resample converts samples to the target rate using linear interpolation.
// A single-sample input yields a constant array of the target length.
func Resample(samples []float32, sourceRate, targetRate int) []float32 {
	if sourceRate == targetRate || len(samples) == 0 {
		return samples
	}

	duration := float64(len(samples)) / float64(sourceRate)
	targetLength := int(math.Round(duration * float64(targetRate)))
	if targetLength < 1 {
		targetLength = 1
	}

	if len(samples) == 1 {
		out := make([]float32, targetLength)
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}

	out := make([]float32, targetLength)
	scale := float64(len(samples)-1) / float64(targetLength-1)
	if targetLength == 1 {
		scale = 0
	}
	for i := range out {
		pos := float64(i) * scale
		lo := int(pos)
		if lo >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(lo))
		out[i] = samples[lo]*(1-frac) + samples[lo+1]*frac
	}
	return out
}
