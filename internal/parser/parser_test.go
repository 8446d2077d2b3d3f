package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pzc163/ragflow-dev/internal/config"
)

func TestIsSupportedExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"report.pdf", true},
		{"notes.md", true},
		{"notes.MARKDOWN", true},
		{"contract.docx", true},
		{"readme.txt", true},
		{"image.png", false},
		{"archive.zip", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := IsSupportedExtension(tt.filename); got != tt.want {
			t.Errorf("IsSupportedExtension(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantName string
	}{
		{"doc.pdf", "pdf"},
		{"doc.md", "markdown"},
		{"doc.markdown", "markdown"},
		{"doc.txt", "markdown"},
		{"doc.docx", "docx"},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename)
		if err != nil {
			t.Errorf("ForFile(%q): unexpected error %v", tt.filename, err)
			continue
		}
		if p.Name() != tt.wantName {
			t.Errorf("ForFile(%q) = %q, want %q", tt.filename, p.Name(), tt.wantName)
		}
	}
}

func TestForFile_Unsupported(t *testing.T) {
	if _, err := ForFile("doc.xyz"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestConversionFailure_Error(t *testing.T) {
	plain := &ConversionFailure{Reason: "empty md_content"}
	if plain.Error() != "conversion failed: empty md_content" {
		t.Errorf("unexpected message %q", plain.Error())
	}

	inner := errors.New("connection refused")
	wrapped := &ConversionFailure{Reason: "transport", Err: inner}
	if !strings.Contains(wrapped.Error(), "connection refused") {
		t.Errorf("expected wrapped error in message, got %q", wrapped.Error())
	}
	if !errors.Is(wrapped, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}

func TestMarkdownParser_PassesContentThrough(t *testing.T) {
	doc := "# Title\n\nBody paragraph."
	p := &MarkdownParser{}
	text, tables, err := p.Parse(context.Background(), []byte(doc), "doc.md", config.Resolved{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != doc {
		t.Errorf("expected content unchanged, got %q", text)
	}
	if tables != nil {
		t.Errorf("expected no tables, got %v", tables)
	}
}

func TestMarkdownParser_NormalizesCRLF(t *testing.T) {
	p := &MarkdownParser{}
	text, _, err := p.Parse(context.Background(), []byte("line one\r\nline two"), "doc.md", config.Resolved{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(text, "\r") {
		t.Errorf("expected CRLF normalized, got %q", text)
	}
}

func TestMarkdownParser_ReplacesInvalidUTF8(t *testing.T) {
	p := &MarkdownParser{}
	data := append([]byte("valid start "), 0xff, 0xfe)
	text, _, err := p.Parse(context.Background(), data, "doc.md", config.Resolved{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text, "valid start") {
		t.Errorf("expected valid prefix preserved, got %q", text)
	}
}

func TestMarkdownParser_EmptyDocument(t *testing.T) {
	p := &MarkdownParser{}
	_, _, err := p.Parse(context.Background(), []byte("   \n\n  "), "doc.md", config.Resolved{})
	var cf *ConversionFailure
	if !errors.As(err, &cf) {
		t.Fatalf("expected ConversionFailure for empty document, got %v", err)
	}
}

func TestMarkdownParser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &MarkdownParser{}
	_, _, err := p.Parse(ctx, []byte("# x"), "doc.md", config.Resolved{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestPlainTextParser_SanitizesText(t *testing.T) {
	p := &PlainTextParser{}
	input := "first line\r\n\x00\x01\n\n\n\nsecond line"
	text, _, err := p.Parse(context.Background(), []byte(input), "notes.txt", config.Resolved{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.ContainsAny(text, "\x00\x01\r") {
		t.Errorf("expected control characters stripped, got %q", text)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Errorf("expected blank runs collapsed, got %q", text)
	}
	if !strings.Contains(text, "first line") || !strings.Contains(text, "second line") {
		t.Errorf("expected content preserved, got %q", text)
	}
}

func TestPlainTextParser_EmptyInput(t *testing.T) {
	p := &PlainTextParser{}
	_, _, err := p.Parse(context.Background(), nil, "x.bin", config.Resolved{})
	var cf *ConversionFailure
	if !errors.As(err, &cf) {
		t.Fatalf("expected ConversionFailure for empty input, got %v", err)
	}
}

func TestScrapePrintable(t *testing.T) {
	data := []byte("garbage\x00\x02Readable run here\x03\x04ab\x05another long run")
	got := scrapePrintable(data)
	if !strings.Contains(got, "Readable run here") {
		t.Errorf("expected printable run kept, got %q", got)
	}
	if strings.Contains(got, "ab\n") || got == "ab" {
		t.Errorf("expected short runs dropped, got %q", got)
	}
	if !strings.Contains(got, "another long run") {
		t.Errorf("expected trailing run kept, got %q", got)
	}
}

func TestSanitizeText_CollapsesBlankLines(t *testing.T) {
	got := sanitizeText("a\n\n\n\nb")
	if got != "a\n\nb" {
		t.Errorf("expected single blank line preserved, got %q", got)
	}
}
