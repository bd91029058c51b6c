package audio

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ConversionError is returned when the external decoder fails. Stderr holds
// the decoder's standard-error text.
type ConversionError struct {
	Msg    string
	Stderr string
}

func (e *ConversionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Msg, e.Stderr)
	}
	return e.Msg
}

// ffmpegBinary returns the decoder path, honoring the FFMPEG_BINARY
// environment variable when it points at an existing file.
func ffmpegBinary() string {
	if custom := os.Getenv("FFMPEG_BINARY"); custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom
		}
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return ""
	}
	return path
}

// ApplyDemucs runs the demucs source separator on the input and returns the
// vocals track. Any failure falls back to the original input.
func ApplyDemucs(inputPath string) string {
	if _, err := exec.LookPath("demucs"); err != nil {
		log.Printf("demucs enabled but not found in PATH, skipping")
		return inputPath
	}

	outputDir := filepath.Join(filepath.Dir(inputPath), "separated")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Printf("demucs output dir: %v", err)
		return inputPath
	}

	cmd := exec.Command("demucs", "-n", "htdemucs", inputPath, "-o", outputDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Printf("demucs failed: %v: %s", err, strings.TrimSpace(stderr.String()))
		return inputPath
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	vocalsPath := filepath.Join(outputDir, "htdemucs", base, "vocals.wav")
	if _, err := os.Stat(vocalsPath); err != nil {
		log.Printf("demucs output not found at %s", vocalsPath)
		return inputPath
	}
	return vocalsPath
}

// ConvertToWav converts an arbitrary audio file to mono 16 kHz PCM WAV and
// returns the output path. A file that is already in that format is returned
// unchanged. When enableDemucs is set, vocal separation is attempted first
// (best-effort).
func ConvertToWav(inputPath string, enableDemucs bool) (string, error) {
	if enableDemucs {
		inputPath = ApplyDemucs(inputPath)
	}

	if strings.EqualFold(filepath.Ext(inputPath), ".wav") {
		if info, err := Probe(inputPath); err == nil && info.IsNormalized() {
			return inputPath, nil
		}
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".wav"
	if sameFile(inputPath, outputPath) {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_converted.wav"
	}

	bin := ffmpegBinary()
	if bin == "" {
		return "", &ConversionError{Msg: "ffmpeg executable not found, install ffmpeg or set FFMPEG_BINARY"}
	}

	cmd := exec.Command(bin, "-y", "-i", inputPath, "-ar", "16000", "-ac", "1", outputPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &ConversionError{
			Msg:    "ffmpeg conversion failed",
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	return outputPath, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

// Duration returns the duration of an audio file in seconds via ffprobe.
func Duration(inputPath string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		inputPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to get audio duration: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}
