package nlp

import "strings"

// Window sizes around a comma candidate, in tokens.
const (
	commaLeftWindow  = 9
	commaRightWindow = 10
	commaMinWords    = 3 // each side must have strictly more words than this
)

// splitByComma cuts an annotated part after commas that separate two
// sufficiently word-like clauses. The right-side window must look like a
// clause of its own (verb plus subject or pronoun) before a cut is taken.
func splitByComma(doc *Doc) []string {
	var parts []string
	start := 0

	for i, tok := range doc.Tokens {
		if tok.Text != "," {
			continue
		}
		if !commaEligible(doc, start, i) {
			continue
		}
		if s := strings.TrimSpace(doc.SpanText(start, i)); s != "" {
			parts = append(parts, s)
		}
		start = i + 1
	}

	if s := strings.TrimSpace(doc.SpanText(start, len(doc.Tokens))); s != "" {
		parts = append(parts, s)
	}
	return parts
}

func commaEligible(doc *Doc, start, i int) bool {
	leftFrom := i - commaLeftWindow
	if leftFrom < start {
		leftFrom = start
	}
	rightTo := i + 1 + commaRightWindow
	if rightTo > len(doc.Tokens) {
		rightTo = len(doc.Tokens)
	}

	left := doc.Tokens[leftFrom:i]
	right := doc.Tokens[i+1 : rightTo]

	if !isValidPhrase(right) {
		return false
	}

	leftWords := 0
	for _, t := range left {
		if !t.IsPunct {
			leftWords++
		}
	}

	// Only the stretch of the right window before its first punctuation
	// counts.
	rightWords := 0
	for _, t := range right {
		if t.IsPunct {
			break
		}
		rightWords++
	}

	return leftWords > commaMinWords && rightWords > commaMinWords
}

// isValidPhrase reports whether the tokens contain both a subject (or
// pronoun) and a verb or auxiliary.
func isValidPhrase(tokens []Token) bool {
	hasSubject := false
	hasVerb := false
	for _, t := range tokens {
		if t.Dep == "nsubj" || t.Dep == "nsubjpass" || t.Pos == "PRON" {
			hasSubject = true
		}
		if t.Pos == "VERB" || t.Pos == "AUX" {
			hasVerb = true
		}
	}
	return hasSubject && hasVerb
}
