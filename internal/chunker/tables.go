package chunker

import (
	"bytes"
	"strings"

	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pzc163/ragflow-dev/internal/element"
)

var (
	borderTableRe   = regexp.MustCompile(`(?:\n|\A)(?:\|.*\|.*\|.*\n)(?:\|\s*[:-]+[-| :]*\s*\|.*\n)(?:\|.*\|.*\|.*\n)+`)
	noBorderTableRe = regexp.MustCompile(`(?:\n|\A)(?:\S.*\|.*\n)(?:\s*[:-]+[-| :]*\s*.*\n)(?:\S.*\|.*\n)+`)
	htmlTableRe     = regexp.MustCompile(`(?is)(?:\n|\A)\s*<table[^>]*>.*?</table>\s*`)
)

var tableHTMLRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// ExtractTables pulls table markup out of normalized markdown before
// structure analysis and returns the remainder plus the table records.
// Tables form a parallel output stream and are never folded back into
// chunk content.
func ExtractTables(content string) (string, []element.TableRecord) {
	var tables []element.TableRecord
	remainder := content

	add := func(markup string) {
		markup = strings.TrimSpace(markup)
		if markup == "" {
			return
		}
		tables = append(tables, element.TableRecord{
			RawMarkup:    markup,
			HTML:         RenderTableHTML(markup),
			PositionHint: len(tables),
		})
	}

	if strings.Contains(remainder, "|") {
		for _, m := range borderTableRe.FindAllString(remainder, -1) {
			add(m)
		}
		remainder = borderTableRe.ReplaceAllString(remainder, "\n")

		for _, m := range noBorderTableRe.FindAllString(remainder, -1) {
			add(m)
		}
		remainder = noBorderTableRe.ReplaceAllString(remainder, "\n")
	}

	if strings.Contains(strings.ToLower(remainder), "<table") {
		for _, m := range htmlTableRe.FindAllString(remainder, -1) {
			add(m)
		}
		remainder = htmlTableRe.ReplaceAllString(remainder, "\n")
	}

	return remainder, tables
}

// RenderTableHTML converts table markup to an HTML payload: markdown
// tables go through goldmark's table extension, HTML fragments are parsed
// and re-serialized so downstream consumers get well-formed markup.
func RenderTableHTML(markup string) string {
	if strings.HasPrefix(markup, "<") {
		return normalizeHTMLTable(markup)
	}
	var buf bytes.Buffer
	if err := tableHTMLRenderer.Convert([]byte(markup), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

func normalizeHTMLTable(fragment string) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return fragment
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if tbl := findTableNode(n); tbl != nil {
			if err := html.Render(&buf, tbl); err != nil {
				return fragment
			}
		}
	}
	if buf.Len() == 0 {
		return fragment
	}
	return buf.String()
}

func findTableNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTableNode(c); t != nil {
			return t
		}
	}
	return nil
}
