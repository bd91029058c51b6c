package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"echolot/internal/asr"
	"echolot/internal/audio"
	"echolot/internal/segment"
	"echolot/internal/subtitle"
)

func main() {
	var (
		inputFile  = flag.String("i", "", "Input audio file")
		outputFile = flag.String("o", "", "Output file (default: stdout)")
		format     = flag.String("format", "text", "Output format: text, json, srt")
		modelDir   = flag.String("model", "models/sherpa-onnx-nemo-parakeet-tdt-0.6b-v3-int8", "Model directory path")
		numThreads = flag.Int("threads", 4, "Number of threads for inference")
		verbose    = flag.Bool("v", false, "Verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i audio.wav\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i audio.mp3 -format srt -o subtitles.srt\n", os.Args[0])
	}

	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: Input file is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: Input file not found: %s\n", *inputFile)
		os.Exit(1)
	}
	if *format != "text" && *format != "json" && *format != "srt" {
		fmt.Fprintf(os.Stderr, "Error: Invalid format '%s'. Must be: text, json, or srt\n", *format)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Loading model from: %s\n", *modelDir)
	}

	config, err := asr.NewConfig(*modelDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.NumThreads = *numThreads

	recognizer, err := asr.NewRecognizer(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	wavPath, err := audio.ConvertToWav(*inputFile, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if wavPath != *inputFile {
		defer os.Remove(wavPath)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Transcribing: %s\n", wavPath)
	}

	transcript, err := recognizer.Transcribe(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var output string
	switch *format {
	case "text":
		output = transcript.Text + "\n"
	case "json":
		data, err := json.MarshalIndent(transcript, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		output = string(data) + "\n"
	case "srt":
		segments := segment.PreSplit(transcript, transcript.LastEndTime())
		output = subtitle.FormatSRT(segments)
		if !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
	}

	if *outputFile == "" {
		fmt.Print(output)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(output), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Written to: %s\n", *outputFile)
	}
}
