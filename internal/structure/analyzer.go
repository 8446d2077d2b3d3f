package structure

import (
	"regexp"
	"strings"

	"github.com/pzc163/ragflow-dev/internal/element"
)

var (
	headingRe       = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	unorderedItemRe = regexp.MustCompile(`^(\s*)[-*+]\s+(.+)$`)
	orderedItemRe   = regexp.MustCompile(`^(\s*)(\d+)\.\s+(.+)$`)
	tableRowRe      = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	imageRefRe      = regexp.MustCompile(`^\s*!\[.*?\]\(.*?\)\s*$`)
)

// Analyze scans normalized markdown once, left to right, and classifies
// contiguous spans into a flat ordered element sequence. Spans are
// non-overlapping and cover the whole input except pure-whitespace gaps;
// anything unclassifiable defaults to paragraph rather than being dropped.
func Analyze(content string) []element.DocumentElement {
	lines := strings.Split(content, "\n")
	var elems []element.DocumentElement

	// Innermost open heading per depth, shallow to deep.
	type openHeading struct {
		id    int
		level int
	}
	var headings []openHeading

	// Open list items per nesting depth, reset on any non-list element.
	type openItem struct {
		id    int
		level int
	}
	var listStack []openItem

	headingParent := func() int {
		if len(headings) == 0 {
			return element.NoParent
		}
		return headings[len(headings)-1].id
	}

	push := func(el element.DocumentElement) int {
		el.ID = len(elems)
		el.OrderIndex = len(elems)
		elems = append(elems, el)
		return el.ID
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			i++
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			for len(headings) > 0 && headings[len(headings)-1].level >= level {
				headings = headings[:len(headings)-1]
			}
			id := push(element.DocumentElement{
				Type:       element.Heading,
				Level:      level,
				Text:       line,
				Title:      strings.TrimSpace(m[2]),
				ParentID:   headingParent(),
				ListParent: element.NoParent,
			})
			headings = append(headings, openHeading{id: id, level: level})
			listStack = nil
			i++
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			span, consumed := scanCodeBlock(lines, i)
			push(element.DocumentElement{
				Type:       element.CodeBlock,
				Text:       span,
				ParentID:   headingParent(),
				ListParent: element.NoParent,
			})
			listStack = nil
			i += consumed
			continue
		}

		if tableRowRe.MatchString(line) {
			span, consumed := scanTable(lines, i)
			push(element.DocumentElement{
				Type:       element.Table,
				Text:       span,
				ParentID:   headingParent(),
				ListParent: element.NoParent,
			})
			listStack = nil
			i += consumed
			continue
		}

		if indent, ok := listItemIndent(line); ok {
			level := indent / 2
			for len(listStack) > 0 && listStack[len(listStack)-1].level >= level {
				listStack = listStack[:len(listStack)-1]
			}
			listParent := element.NoParent
			if len(listStack) > 0 {
				listParent = listStack[len(listStack)-1].id
			}
			id := push(element.DocumentElement{
				Type:       element.ListItem,
				Level:      level,
				Text:       line,
				ParentID:   headingParent(),
				ListParent: listParent,
			})
			listStack = append(listStack, openItem{id: id, level: level})
			i++
			continue
		}

		if imageRefRe.MatchString(line) {
			push(element.DocumentElement{
				Type:       element.ImageRef,
				Text:       line,
				ParentID:   headingParent(),
				ListParent: element.NoParent,
			})
			listStack = nil
			i++
			continue
		}

		span, consumed := scanParagraph(lines, i)
		push(element.DocumentElement{
			Type:       element.Paragraph,
			Text:       span,
			ParentID:   headingParent(),
			ListParent: element.NoParent,
		})
		listStack = nil
		i += consumed
	}

	return elems
}

// scanCodeBlock consumes a fenced block including both fence lines. An
// unterminated fence runs to end of input; the span stays a single atomic
// element either way.
func scanCodeBlock(lines []string, start int) (string, int) {
	span := []string{lines[start]}
	i := start + 1
	for i < len(lines) {
		span = append(span, lines[i])
		if strings.TrimSpace(lines[i]) == "```" {
			i++
			break
		}
		i++
	}
	return strings.Join(span, "\n"), i - start
}

func scanTable(lines []string, start int) (string, int) {
	i := start
	var span []string
	for i < len(lines) && tableRowRe.MatchString(lines[i]) {
		span = append(span, lines[i])
		i++
	}
	return strings.Join(span, "\n"), i - start
}

func scanParagraph(lines []string, start int) (string, int) {
	var span []string
	i := start
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" || startsNewSpan(line) {
			break
		}
		span = append(span, line)
		i++
	}
	if len(span) == 0 {
		// Never consume zero lines; classify the line as a one-line paragraph.
		return lines[start], 1
	}
	return strings.Join(span, "\n"), i - start
}

func startsNewSpan(line string) bool {
	trimmed := strings.TrimSpace(line)
	if headingRe.MatchString(line) || strings.HasPrefix(trimmed, "```") || tableRowRe.MatchString(line) || imageRefRe.MatchString(trimmed) {
		return true
	}
	_, isItem := listItemIndent(line)
	return isItem
}

func listItemIndent(line string) (int, bool) {
	if m := unorderedItemRe.FindStringSubmatch(line); m != nil {
		return len(m[1]), true
	}
	if m := orderedItemRe.FindStringSubmatch(line); m != nil {
		return len(m[1]), true
	}
	return 0, false
}
