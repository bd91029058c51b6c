package nlp

import (
	"context"
	"strings"
)

// Connector candidates per language. These are clause-introducing function
// words; inflected forms are listed explicitly.
var connectorWords = map[string]map[string]bool{
	"de": {
		"dass": true, "welche": true, "welcher": true, "welches": true,
		"wo": true, "wann": true, "weil": true, "aber": true,
		"und": true, "oder": true,
	},
	"en": {
		"that": true, "which": true, "where": true, "when": true,
		"because": true, "but": true, "and": true, "or": true, "so": true,
	},
}

// English clitics; a connector immediately followed by one of these is a
// possessive or contraction, not a clause boundary.
var cliticTokens = map[string]bool{
	"'s": true, "'re": true, "'m": true, "'ll": true,
	"'ve": true, "'d": true, "n't": true,
}

const (
	// contextWindow bounds how far around a candidate the word check looks;
	// contextMinWords is how many non-punctuation tokens each side of the
	// window must hold for a cut.
	contextWindow   = 5
	contextMinWords = 3

	// connectorMaxIterations caps the fixpoint loop against pathological
	// inputs.
	connectorMaxIterations = 100
)

// splitByConnectors repeatedly cuts the text before clause connectors until
// no further cut applies.
func (s *Splitter) splitByConnectors(ctx context.Context, text string) ([]string, error) {
	words := connectorWords[s.language]
	if words == nil {
		words = connectorWords["en"]
	}

	var parts []string
	rest := text

	for iter := 0; iter < connectorMaxIterations; iter++ {
		doc, err := s.annotator.Annotate(ctx, rest)
		if err != nil {
			return nil, err
		}

		cut := findConnectorCut(doc, words)
		if cut < 0 {
			break
		}

		if left := strings.TrimSpace(doc.SpanText(0, cut)); left != "" {
			parts = append(parts, left)
		}
		rest = strings.TrimSpace(doc.SpanText(cut, len(doc.Tokens)))
	}

	if rest != "" {
		parts = append(parts, rest)
	}
	if len(parts) == 0 {
		parts = []string{text}
	}
	return parts, nil
}

// findConnectorCut returns the index of the first token eligible as a cut
// point (the cut falls before that token), or -1.
func findConnectorCut(doc *Doc, words map[string]bool) int {
	for i, tok := range doc.Tokens {
		if !words[strings.ToLower(tok.Text)] {
			continue
		}
		if isDeterminerUse(tok) {
			continue
		}
		if i+1 < len(doc.Tokens) && cliticTokens[strings.ToLower(doc.Tokens[i+1].Text)] {
			continue
		}
		if !hasContextWords(doc, i) {
			continue
		}
		return i
	}
	return -1
}

// isDeterminerUse reports whether the candidate functions as a determiner or
// relative pronoun attached to a nominal head ("Das Buch, welches ich
// lese"): such tokens never open an independent clause.
func isDeterminerUse(tok Token) bool {
	if tok.Dep != "det" && tok.Pos != "DET" && tok.Pos != "PRON" {
		return false
	}
	switch tok.HeadPos {
	case "NOUN", "PROPN":
		return true
	}
	return false
}

func hasContextWords(doc *Doc, i int) bool {
	leftFrom := i - contextWindow
	if leftFrom < 0 {
		leftFrom = 0
	}
	rightTo := i + 1 + contextWindow
	if rightTo > len(doc.Tokens) {
		rightTo = len(doc.Tokens)
	}

	left := 0
	for _, t := range doc.Tokens[leftFrom:i] {
		if !t.IsPunct {
			left++
		}
	}
	right := 0
	for _, t := range doc.Tokens[i+1 : rightTo] {
		if !t.IsPunct {
			right++
		}
	}
	return left >= contextMinWords && right >= contextMinWords
}
