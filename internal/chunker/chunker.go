package chunker

import (
	"fmt"
	"strings"

	"github.com/pzc163/ragflow-dev/internal/element"
	"github.com/pzc163/ragflow-dev/internal/structure"
)

// Options controls semantic chunking for one job.
type Options struct {
	TokenBudget int    // max tokens per non-atomic chunk
	Delimiters  string // sentence-ending runes for the fallback split
	SlackPct    int    // bounded cohesion slack, percent of TokenBudget
}

// InvariantViolation signals an internal defensive check failed, e.g. an
// element lost between analysis and chunking. Always a bug, never swallowed.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return "chunking invariant violation: " + e.Detail
}

// Chunk greedily accumulates elements in document order into token-bounded
// chunks. Rules, in priority order: atomic elements (code blocks, tables)
// are never split and overflow alone when oversized; the budget closes a
// non-empty buffer before it is exceeded; related neighbors may overrun the
// budget by the bounded slack; an oversized splittable element falls back
// to delimiter splitting. Output is fully deterministic for identical
// input, budget and delimiter set.
func Chunk(elems []element.DocumentElement, ctx *structure.Context, opts Options) ([]element.Chunk, error) {
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = 128
	}
	if opts.Delimiters == "" {
		opts.Delimiters = "\n.!?。；！？"
	}
	slack := opts.TokenBudget * opts.SlackPct / 100

	var chunks []element.Chunk
	var buf []element.DocumentElement
	bufTokens := 0
	consumed := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunks = append(chunks, assemble(buf, bufTokens, ctx, false))
		buf = nil
		bufTokens = 0
	}

	for _, el := range elems {
		tok := CountTokens(el.Text)
		consumed++

		// Rule 1: an atomic element larger than the budget becomes its
		// own overflow chunk, never line-split.
		if el.Atomic() && tok > opts.TokenBudget {
			flush()
			chunks = append(chunks, assemble([]element.DocumentElement{el}, tok, ctx, true))
			continue
		}

		// Rule 4: an oversized splittable element is cut at delimiter
		// boundaries instead of being emitted wholesale.
		if !el.Atomic() && tok > opts.TokenBudget {
			flush()
			chunks = append(chunks, splitOversized(el, ctx, opts)...)
			continue
		}

		if len(buf) == 0 {
			buf = append(buf, el)
			bufTokens = tok
			continue
		}

		if bufTokens+tok <= opts.TokenBudget {
			buf = append(buf, el)
			bufTokens += tok
			continue
		}

		// Rule 3: keep related neighbors together when the overrun stays
		// within the bounded slack, then close immediately.
		last := buf[len(buf)-1]
		if slack > 0 && ctx.IsRelated(last.ID, el.ID) && bufTokens+tok <= opts.TokenBudget+slack {
			buf = append(buf, el)
			bufTokens += tok
			flush()
			continue
		}

		// Rule 2: close the current chunk, start fresh with this element.
		flush()
		buf = append(buf, el)
		bufTokens = tok
	}
	flush()

	if consumed != len(elems) {
		return nil, &InvariantViolation{Detail: fmt.Sprintf("consumed %d of %d elements", consumed, len(elems))}
	}
	if len(elems) > 0 && len(chunks) == 0 {
		return nil, &InvariantViolation{Detail: "non-empty element sequence produced no chunks"}
	}
	return chunks, nil
}

// assemble builds one chunk from a run of elements. The chunk inherits the
// context path of its first constituent element.
func assemble(run []element.DocumentElement, tokens int, ctx *structure.Context, overflow bool) element.Chunk {
	parts := make([]string, len(run))
	types := make([]string, len(run))
	for i, el := range run {
		parts[i] = el.Text
		types[i] = string(el.Type)
	}
	path := append([]int(nil), ctx.Path(run[0].ID)...)
	return element.Chunk{
		Content:          strings.Join(parts, "\n"),
		TokenCount:       tokens,
		ElementTypes:     types,
		ContextPath:      path,
		Breadcrumb:       ctx.Titles(path),
		IsAtomicOverflow: overflow,
	}
}

// splitOversized cuts a single splittable element at delimiter boundaries,
// preferring sentence ends over arbitrary token cuts. Every piece inherits
// the element's context.
func splitOversized(el element.DocumentElement, ctx *structure.Context, opts Options) []element.Chunk {
	sentences := splitAtDelimiters(el.Text, opts.Delimiters)

	var pieces []string
	cur := ""

	for _, sent := range sentences {
		if CountTokens(sent) > opts.TokenBudget {
			// No delimiter close enough; cut at word boundaries.
			if cur != "" {
				pieces = append(pieces, cur)
				cur = ""
			}
			pieces = append(pieces, splitAtWords(sent, opts.TokenBudget)...)
			continue
		}
		candidate := sent
		if cur != "" {
			candidate = cur + " " + sent
		}
		// The cut decision counts the joined text, the same call that
		// stamps the piece's token count.
		if cur != "" && CountTokens(candidate) > opts.TokenBudget {
			pieces = append(pieces, cur)
			candidate = sent
		}
		cur = candidate
	}
	if cur != "" {
		pieces = append(pieces, cur)
	}

	path := append([]int(nil), ctx.Path(el.ID)...)
	chunks := make([]element.Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, element.Chunk{
			Content:      p,
			TokenCount:   CountTokens(p),
			ElementTypes: []string{string(el.Type)},
			ContextPath:  path,
			Breadcrumb:   ctx.Titles(path),
		})
	}
	return chunks
}

// splitAtDelimiters cuts text after every delimiter rune, keeping the
// delimiter with the sentence it ends.
func splitAtDelimiters(text, delims string) []string {
	set := make(map[rune]bool, len(delims))
	for _, r := range delims {
		set[r] = true
	}

	var parts []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if set[r] {
			if s := strings.TrimSpace(cur.String()); s != "" {
				parts = append(parts, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// splitAtWords is the last-resort cut for delimiter-free text.
func splitAtWords(text string, budget int) []string {
	words := strings.Fields(text)
	maxWords := int(float64(budget) / 1.33)
	if maxWords < 1 {
		maxWords = 1
	}
	var parts []string
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[start:end], " "))
	}
	return parts
}
