package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
)

// PDFParser is the secondary-tier structural parser for PDF bytes. It
// extracts per-page text locally with no network dependency.
type PDFParser struct{}

func (p *PDFParser) Name() string { return "pdf" }

func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved) (string, []element.TableRecord, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "ragflow-pdf-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(ctx, tmpPath)
	if err != nil {
		return "", nil, &ConversionFailure{Reason: "pdf text extraction", Err: err}
	}
	return text, nil, nil
}

func extractPDFText(ctx context.Context, path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(strings.TrimSpace(text))
	}
	return buf.String(), nil
}
