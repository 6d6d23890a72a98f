// Package faq provides a deterministic, concurrency-safe in-memory index over
// frequently asked questions. It is intentionally small and dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// entry's token set (question, category and answer combined):
// score = |Q ∩ E| / |Q ∪ E|.
package faq

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Entry is a single question/answer pair with its display category.
type Entry struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// Match is a ranked entry with its similarity score.
type Match struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Index is the read-only lookup surface over a set of entries.
type Index interface {
	// TopK returns up to k best-matching entries by Jaccard similarity.
	TopK(query string, k int) []Match
	// Filter narrows entries by substring query (against question and
	// category) and by exact category, preserving source order.
	Filter(query, category string) []Entry
	// Categories lists the distinct categories in source order.
	Categories() []string
	// Entries returns all entries in source order.
	Entries() []Entry
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
}

func defaultConfig() config {
	return config{stopwords: nil}
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	entry  Entry
	tokens map[string]struct{}
	tLen   int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndexFromMarkdown builds an Index by reading the Markdown at path and
// delegating to NewIndexFromReader (in-memory). Entries start at "## "
// headings; an optional "Category:" line follows the heading, and the
// remaining paragraphs form the answer.
func NewIndexFromMarkdown(path string, opts ...Option) (Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return &index{cfg: defaultConfig(), docs: nil}, err
	}
	return NewIndexFromReader(bytes.NewReader(b), opts...)
}

// NewIndexFromReader builds an Index from UTF-8 Markdown provided by r.
// The reader is fully consumed.
func NewIndexFromReader(r io.Reader, opts ...Option) (Index, error) {
	entries, err := parseMarkdown(r)
	if err != nil {
		return &index{cfg: defaultConfig(), docs: nil}, err
	}
	return NewIndexFromEntries(entries, opts...), nil
}

// NewIndexFromEntries builds an Index directly from a slice of entries.
func NewIndexFromEntries(entries []Entry, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(entries))
	for _, e := range entries {
		e.Question = strings.TrimSpace(normalizeWhitespace(e.Question))
		e.Answer = strings.TrimSpace(e.Answer)
		e.Category = strings.TrimSpace(e.Category)
		if e.Question == "" {
			continue
		}
		toks := tokenize(e.Question+" "+e.Category+" "+e.Answer, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{entry: e, tokens: toks, tLen: len(toks)})
	}
	return &index{cfg: cfg, docs: docs}
}

func (i *index) TopK(q string, k int) []Match {
	if len(i.docs) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	buf := make([]Match, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		score := float64(over) / union
		if score <= 0 {
			continue
		}
		buf = append(buf, Match{Entry: d.entry, Score: score})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].Entry.ID < buf[b].Entry.ID
	})

	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

// Best returns the highest-scoring entry at or above threshold.
func Best(i Index, query string, threshold float64) (Entry, float64, bool) {
	top := i.TopK(query, 1)
	if len(top) == 0 || top[0].Score < threshold {
		return Entry{}, 0, false
	}
	return top[0].Entry, top[0].Score, true
}

func (i *index) Filter(query, category string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)

	out := make([]Entry, 0, len(i.docs))
	for _, d := range i.docs {
		e := d.entry
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Question), query) &&
			!strings.Contains(strings.ToLower(e.Category), query) {
			continue
		}
		if category != "" && !strings.EqualFold(category, "all") &&
			!strings.EqualFold(e.Category, category) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (i *index) Categories() []string {
	seen := make(map[string]struct{}, len(i.docs))
	out := make([]string, 0, len(i.docs))
	for _, d := range i.docs {
		c := d.entry.Category
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func (i *index) Entries() []Entry {
	out := make([]Entry, len(i.docs))
	for n, d := range i.docs {
		out[n] = d.entry
	}
	return out
}

// ----------------------------------------------------------------------------
// Markdown parsing

// parseMarkdown splits the corpus at "## " headings. Each section becomes one
// entry: the heading is the question, an optional "Category:" line sets the
// category, everything else joins into the answer.
func parseMarkdown(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []Entry
	var cur *Entry
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Answer = strings.TrimSpace(strings.Join(body, "\n"))
		entries = append(entries, *cur)
		cur, body = nil, nil
	}

	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "## ") {
			flush()
			cur = &Entry{ID: len(entries) + 1, Question: strings.TrimSpace(line[3:])}
			continue
		}
		if cur == nil {
			continue
		}
		if c, ok := strings.CutPrefix(strings.TrimSpace(line), "Category:"); ok && cur.Category == "" {
			cur.Category = strings.TrimSpace(c)
			continue
		}
		body = append(body, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return entries, nil
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
