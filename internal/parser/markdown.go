package parser

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
)

// MarkdownParser is the secondary-tier parser for markdown and plain-text
// bytes. The content is already in the pipeline's normalized form, so this
// tier only sanitizes encoding and verifies the document parses as
// markdown at all.
type MarkdownParser struct{}

func (p *MarkdownParser) Name() string { return "markdown" }

func (p *MarkdownParser) Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved) (string, []element.TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("�"))
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader([]byte(content)))
	if doc.FirstChild() == nil {
		return "", nil, &ConversionFailure{Reason: "markdown document has no content"}
	}

	return content, nil, nil
}
