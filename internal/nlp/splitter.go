package nlp

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Splitter refines overlong text into subtitle-sized pieces using the
// annotation service. It first splits at sentence boundaries, then applies
// the comma, connector and root passes in order. Each pass touches only
// parts still exceeding the length limit.
type Splitter struct {
	annotator Annotator
	language  string
	maxLength int
}

// NewSplitter creates a splitter. maxLength is in characters; values below
// one fall back to 80.
func NewSplitter(annotator Annotator, language string, maxLength int) *Splitter {
	if maxLength < 1 {
		maxLength = 80
	}
	return &Splitter{annotator: annotator, language: language, maxLength: maxLength}
}

// Split refines one text into pieces. Concatenating the pieces with the
// language joiner reproduces the input modulo whitespace.
func (s *Splitter) Split(ctx context.Context, text string) ([]string, error) {
	doc, err := s.annotator.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}

	parts := doc.Sents()
	if len(parts) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			parts = []string{t}
		} else {
			return nil, nil
		}
	}

	parts, err = s.refine(ctx, parts, s.commaPass)
	if err != nil {
		return nil, err
	}
	parts, err = s.refine(ctx, parts, s.splitByConnectors)
	if err != nil {
		return nil, err
	}
	parts, err = s.refine(ctx, parts, s.rootPass)
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// refine applies pass to every part longer than the limit and keeps the
// rest untouched.
func (s *Splitter) refine(ctx context.Context, parts []string, pass func(context.Context, string) ([]string, error)) ([]string, error) {
	var out []string
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= s.maxLength {
			out = append(out, part)
			continue
		}
		pieces, err := pass(ctx, part)
		if err != nil {
			return nil, err
		}
		out = append(out, pieces...)
	}
	return out, nil
}

func (s *Splitter) commaPass(ctx context.Context, text string) ([]string, error) {
	doc, err := s.annotator.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	return splitByComma(doc), nil
}

func (s *Splitter) rootPass(ctx context.Context, text string) ([]string, error) {
	doc, err := s.annotator.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}
	return splitByRoot(doc), nil
}
