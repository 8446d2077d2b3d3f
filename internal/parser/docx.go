package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
)

// DOCXParser is the secondary-tier structural parser for .docx bytes. It
// re-emits the document as markdown so the rest of the pipeline sees the
// same normalized form the conversion service produces.
type DOCXParser struct{}

func (p *DOCXParser) Name() string { return "docx" }

func (p *DOCXParser) Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved) (string, []element.TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, &ConversionFailure{Reason: "parse docx", Err: err}
	}

	var out strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		if level := docxHeadingLevel(para); level > 0 {
			out.WriteString(strings.Repeat("#", level))
			out.WriteString(" ")
		}
		out.WriteString(text)
	}
	return out.String(), nil, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for level := 1; level <= 6; level++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", level)) || strings.EqualFold(style, fmt.Sprintf("heading %d", level)) {
			return level
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
