package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	mdImagePattern  = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	mdLinkPattern   = regexp.MustCompile(`\[([^\]]+)\]\(.*?\)`)
	mdHeaderPattern = regexp.MustCompile(`(?m)^#+\s+`)
	mdBoldPattern   = regexp.MustCompile(`\*\*|__`)
)

// LoadScript reads a .txt or .md file and returns its spoken-text content.
// Markdown files lose images, link targets, header markers and bold
// markers; everything else is read verbatim.
func LoadScript(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
	default:
		return "", fmt.Errorf("tts: unsupported script type %q, only .txt and .md are supported", filepath.Ext(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("tts: read script: %w", err)
	}
	text := string(raw)

	if strings.EqualFold(filepath.Ext(path), ".md") {
		text = mdImagePattern.ReplaceAllString(text, "")
		text = mdLinkPattern.ReplaceAllString(text, "$1")
		text = mdHeaderPattern.ReplaceAllString(text, "")
		text = mdBoldPattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text), nil
}

// GenerateToFile synthesizes text and writes the WAV under outputDir with a
// unique name, returning the file path.
func (c *Client) GenerateToFile(ctx context.Context, text string, opts Options, outputDir string) (string, error) {
	wav, err := c.Synthesize(ctx, text, opts)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("tts: create output dir: %w", err)
	}

	path := filepath.Join(outputDir, fmt.Sprintf("tts_%s.wav", strings.ReplaceAll(uuid.NewString(), "-", "")))
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("tts: write audio: %w", err)
	}
	return path, nil
}
