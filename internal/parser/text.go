package parser

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
)

// PlainTextParser is the tertiary tier: a minimal extraction that yields
// some output even when structure extraction fails. PDF bytes go through
// pdftotext when available, then a raw printable-run scrape; anything else
// is treated as text and sanitized.
type PlainTextParser struct{}

func (p *PlainTextParser) Name() string { return "plain" }

func (p *PlainTextParser) Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved) (string, []element.TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	if bytes.HasPrefix(data, []byte("%PDF-")) {
		if text, err := extractPdftotext(ctx, data); err == nil && strings.TrimSpace(text) != "" {
			return text, nil, nil
		}
		text := scrapePrintable(data)
		if strings.TrimSpace(text) == "" {
			return "", nil, &ConversionFailure{Reason: "no extractable text"}
		}
		return text, nil, nil
	}

	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, nil)
	}
	text := sanitizeText(string(data))
	if strings.TrimSpace(text) == "" {
		return "", nil, &ConversionFailure{Reason: "no extractable text"}
	}
	return text, nil, nil
}

func extractPdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "ragflow-plain-*.pdf")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", tmpPath, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// scrapePrintable keeps runs of printable text of at least four runes,
// one run per line. Crude, but guaranteed to produce whatever readable
// content the bytes contain.
func scrapePrintable(data []byte) string {
	var out strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= 4 {
			if out.Len() > 0 {
				out.WriteString("\n")
			}
			out.WriteString(strings.TrimSpace(string(run)))
		}
		run = run[:0]
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		i += size
		if r != utf8.RuneError && (unicode.IsPrint(r) || r == ' ') {
			run = append(run, r)
		} else {
			flush()
		}
	}
	flush()
	return out.String()
}

// sanitizeText strips control characters and collapses runs of blank lines.
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out strings.Builder
	blankRun := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.Map(func(r rune) rune {
			if r == '\t' || unicode.IsPrint(r) {
				return r
			}
			return -1
		}, line)
		if strings.TrimSpace(line) == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
			out.WriteString("\n")
			continue
		}
		blankRun = 0
		out.WriteString(line)
		out.WriteString("\n")
	}
	return strings.TrimRight(out.String(), "\n")
}
