package nlp

import "strings"

// Piece bounds for the root split, in tokens.
const (
	rootMinPiece = 30
	rootMaxPiece = 100
)

// splitByRoot is the last-resort split for parts that survived the comma
// and connector passes. It solves a small DP over cut positions: a cut may
// fall at the start, or right after a sentence terminator, a verb or
// auxiliary, or the dependency root, with every piece between 30 and 100
// tokens. Among valid layouts the one with the fewest pieces wins. When no
// layout exists the text is returned unchanged.
func splitByRoot(doc *Doc) []string {
	n := len(doc.Tokens)
	if n <= rootMinPiece {
		return []string{strings.TrimSpace(doc.SpanText(0, n))}
	}

	const inf = int(^uint(0) >> 1)
	dp := make([]int, n+1)
	prev := make([]int, n+1)
	for i := range dp {
		dp[i] = inf
		prev[i] = -1
	}
	dp[0] = 0

	for i := rootMinPiece; i <= n; i++ {
		// The final boundary is the end of the text; interior boundaries
		// must fall at a natural break.
		if i != n && !cutAllowedAfter(doc.Tokens[i-1]) {
			continue
		}
		lo := i - rootMaxPiece
		if lo < 0 {
			lo = 0
		}
		for j := lo; j <= i-rootMinPiece; j++ {
			if dp[j] == inf {
				continue
			}
			if dp[j]+1 < dp[i] {
				dp[i] = dp[j] + 1
				prev[i] = j
			}
		}
	}

	if dp[n] == inf {
		return []string{strings.TrimSpace(doc.SpanText(0, n))}
	}

	var cuts []int
	for i := n; i > 0; i = prev[i] {
		cuts = append(cuts, i)
	}
	cuts = append(cuts, 0)

	// cuts were collected back-to-front.
	for l, r := 0, len(cuts)-1; l < r; l, r = l+1, r-1 {
		cuts[l], cuts[r] = cuts[r], cuts[l]
	}

	pieces := make([]string, 0, len(cuts)-1)
	for k := 0; k < len(cuts)-1; k++ {
		if s := strings.TrimSpace(doc.SpanText(cuts[k], cuts[k+1])); s != "" {
			pieces = append(pieces, s)
		}
	}
	return pieces
}

func cutAllowedAfter(tok Token) bool {
	switch tok.Text {
	case ".", "!", "?", "。", "！", "？":
		return true
	}
	if tok.Pos == "VERB" || tok.Pos == "AUX" {
		return true
	}
	return tok.Dep == "ROOT" || tok.Dep == "root"
}
