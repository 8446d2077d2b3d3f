package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
)

// Parser converts raw document bytes into normalized markdown plus any
// tables the conversion itself produced. Implementations must be safe for
// concurrent use across jobs.
type Parser interface {
	Name() string
	Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved) (string, []element.TableRecord, error)
}

// ConversionFailure is the per-tier failure: transport errors, bad status,
// malformed bodies and empty results all map here so the fallback chain can
// move on to the next tier.
type ConversionFailure struct {
	Reason string
	Err    error
}

func (e *ConversionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion failed: %s: %v", e.Reason, e.Err)
	}
	return "conversion failed: " + e.Reason
}

func (e *ConversionFailure) Unwrap() error { return e.Err }

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".docx":     true,
	".txt":      true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ForFile returns the format-appropriate local structural parser used as
// the secondary tier.
func ForFile(filename string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return &PDFParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".txt":
		return &MarkdownParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}
