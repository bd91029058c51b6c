package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrAnnotator marks failures of the external annotation service. The
// linguistic splitter cannot degrade without it, so callers fail fast.
var ErrAnnotator = errors.New("nlp annotator error")

// Token is one annotated token. Pos uses universal POS tags (VERB, AUX,
// PRON, NOUN, ...), Dep the annotator's dependency labels (nsubj, det,
// ROOT, ...). Whitespace is the trailing whitespace of the token in the
// original text, so concatenating Text+Whitespace over a span reconstructs
// the source exactly.
type Token struct {
	Text        string `json:"text"`
	Whitespace  string `json:"whitespace"`
	Pos         string `json:"pos"`
	Dep         string `json:"dep"`
	HeadPos     string `json:"head_pos"`
	IsPunct     bool   `json:"is_punct"`
	IsSentStart bool   `json:"is_sent_start"`
}

// Doc is an annotated text.
type Doc struct {
	Tokens []Token `json:"tokens"`
}

// SpanText reconstructs the original text of tokens [i, j).
func (d *Doc) SpanText(i, j int) string {
	if i < 0 {
		i = 0
	}
	if j > len(d.Tokens) {
		j = len(d.Tokens)
	}
	var b strings.Builder
	for k := i; k < j; k++ {
		b.WriteString(d.Tokens[k].Text)
		if k < j-1 {
			b.WriteString(d.Tokens[k].Whitespace)
		}
	}
	return b.String()
}

// Sents splits the doc at annotator sentence boundaries. Empty sentences
// are dropped.
func (d *Doc) Sents() []string {
	var sents []string
	start := 0
	for i := 1; i < len(d.Tokens); i++ {
		if d.Tokens[i].IsSentStart {
			if s := strings.TrimSpace(d.SpanText(start, i)); s != "" {
				sents = append(sents, s)
			}
			start = i
		}
	}
	if start < len(d.Tokens) {
		if s := strings.TrimSpace(d.SpanText(start, len(d.Tokens))); s != "" {
			sents = append(sents, s)
		}
	}
	return sents
}

// Annotator produces POS/dependency annotations for a text.
type Annotator interface {
	Annotate(ctx context.Context, text string) (*Doc, error)
}

// HTTPAnnotator talks to the annotation sidecar service.
type HTTPAnnotator struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewHTTPAnnotator creates a client for the annotation service at baseURL.
func NewHTTPAnnotator(baseURL, language string) *HTTPAnnotator {
	return &HTTPAnnotator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   language,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type annotateRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Annotate sends the text to the service and decodes the token annotations.
func (a *HTTPAnnotator) Annotate(ctx context.Context, text string) (*Doc, error) {
	body, err := json.Marshal(annotateRequest{Text: text, Language: a.language})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/annotate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotator, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAnnotator, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var doc Doc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrAnnotator, err)
	}
	return &doc, nil
}

var (
	defaultMu        sync.Mutex
	defaultAnnotator Annotator
)

// Default returns the process-wide annotator, creating it on first use.
func Default(baseURL, language string) Annotator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAnnotator == nil {
		defaultAnnotator = NewHTTPAnnotator(baseURL, language)
	}
	return defaultAnnotator
}
