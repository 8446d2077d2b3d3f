package structure

import (
	"strings"
	"testing"

	"github.com/pzc163/ragflow-dev/internal/element"
)

func TestAnalyze_Classification(t *testing.T) {
	content := strings.Join([]string{
		"# Title",
		"",
		"A paragraph of prose.",
		"",
		"- first item",
		"- second item",
		"",
		"```go",
		"fmt.Println(1)",
		"```",
		"",
		"| a | b |",
		"| - | - |",
		"| 1 | 2 |",
		"",
		"![diagram](img/flow.png)",
	}, "\n")

	elems := Analyze(content)
	wantTypes := []element.ElementType{
		element.Heading,
		element.Paragraph,
		element.ListItem,
		element.ListItem,
		element.CodeBlock,
		element.Table,
		element.ImageRef,
	}
	if len(elems) != len(wantTypes) {
		t.Fatalf("expected %d elements, got %d: %+v", len(wantTypes), len(elems), elems)
	}
	for i, want := range wantTypes {
		if elems[i].Type != want {
			t.Errorf("element %d: expected %q, got %q", i, want, elems[i].Type)
		}
	}
}

func TestAnalyze_DenseOrderedIDs(t *testing.T) {
	content := "# A\n\none\n\ntwo\n\n## B\n\nthree"
	elems := Analyze(content)
	for i, el := range elems {
		if el.ID != i {
			t.Errorf("element %d: expected dense ID %d, got %d", i, i, el.ID)
		}
		if el.OrderIndex != i {
			t.Errorf("element %d: expected order index %d, got %d", i, i, el.OrderIndex)
		}
	}
}

func TestAnalyze_HeadingParents(t *testing.T) {
	content := "# Top\n\nintro\n\n## Sub\n\nnested body"
	elems := Analyze(content)
	// 0=Top 1=intro 2=Sub 3=nested
	if elems[0].ParentID != element.NoParent {
		t.Errorf("top heading should have no parent, got %d", elems[0].ParentID)
	}
	if elems[1].ParentID != 0 {
		t.Errorf("intro should hang off Top, got %d", elems[1].ParentID)
	}
	if elems[2].ParentID != 0 {
		t.Errorf("Sub should hang off Top, got %d", elems[2].ParentID)
	}
	if elems[3].ParentID != 2 {
		t.Errorf("nested body should hang off Sub, got %d", elems[3].ParentID)
	}
}

func TestAnalyze_SiblingHeadingPops(t *testing.T) {
	content := "## First\n\na\n\n## Second\n\nb"
	elems := Analyze(content)
	// 0=First 1=a 2=Second 3=b
	if elems[2].ParentID != element.NoParent {
		t.Errorf("sibling heading must pop its predecessor, got parent %d", elems[2].ParentID)
	}
	if elems[3].ParentID != 2 {
		t.Errorf("content after sibling belongs to it, got parent %d", elems[3].ParentID)
	}
}

func TestAnalyze_HeadingTitle(t *testing.T) {
	elems := Analyze("### Install Guide  ")
	if len(elems) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elems))
	}
	if elems[0].Level != 3 {
		t.Errorf("expected level 3, got %d", elems[0].Level)
	}
	if elems[0].Title != "Install Guide" {
		t.Errorf("expected trimmed title, got %q", elems[0].Title)
	}
	if elems[0].Text != "### Install Guide  " {
		t.Errorf("expected raw text preserved, got %q", elems[0].Text)
	}
}

func TestAnalyze_NestedListParents(t *testing.T) {
	content := "- parent item\n  - child item\n- next parent"
	elems := Analyze(content)
	if len(elems) != 3 {
		t.Fatalf("expected 3 list items, got %d", len(elems))
	}
	if elems[0].ListParent != element.NoParent {
		t.Errorf("top item should have no list parent, got %d", elems[0].ListParent)
	}
	if elems[1].ListParent != 0 {
		t.Errorf("nested item should point at its parent, got %d", elems[1].ListParent)
	}
	if elems[2].ListParent != element.NoParent {
		t.Errorf("sibling item should reset to top level, got %d", elems[2].ListParent)
	}
}

func TestAnalyze_OrderedListItems(t *testing.T) {
	elems := Analyze("1. first\n2. second")
	if len(elems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(elems))
	}
	for i, el := range elems {
		if el.Type != element.ListItem {
			t.Errorf("element %d: expected list item, got %q", i, el.Type)
		}
	}
}

func TestAnalyze_MultiLineParagraph(t *testing.T) {
	content := "line one\nline two\nline three\n\nseparate paragraph"
	elems := Analyze(content)
	if len(elems) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(elems))
	}
	if elems[0].Text != "line one\nline two\nline three" {
		t.Errorf("expected lines joined, got %q", elems[0].Text)
	}
}

func TestAnalyze_ParagraphStopsAtNewSpan(t *testing.T) {
	content := "prose before\n# Heading"
	elems := Analyze(content)
	if len(elems) != 2 {
		t.Fatalf("expected paragraph then heading, got %d elements", len(elems))
	}
	if elems[0].Type != element.Paragraph || elems[1].Type != element.Heading {
		t.Errorf("unexpected types %q, %q", elems[0].Type, elems[1].Type)
	}
}

func TestAnalyze_UnterminatedCodeFence(t *testing.T) {
	content := "```python\nprint(1)\nprint(2)"
	elems := Analyze(content)
	if len(elems) != 1 {
		t.Fatalf("expected a single code block, got %d elements", len(elems))
	}
	if elems[0].Type != element.CodeBlock {
		t.Errorf("expected code block, got %q", elems[0].Type)
	}
	if !strings.Contains(elems[0].Text, "print(2)") {
		t.Errorf("expected fence to run to end of input, got %q", elems[0].Text)
	}
}

func TestAnalyze_TableSpansAllRows(t *testing.T) {
	content := "| h1 | h2 |\n| -- | -- |\n| a | b |\n| c | d |\n\nafter"
	elems := Analyze(content)
	if len(elems) != 2 {
		t.Fatalf("expected table and paragraph, got %d", len(elems))
	}
	if elems[0].Type != element.Table {
		t.Fatalf("expected table, got %q", elems[0].Type)
	}
	if strings.Count(elems[0].Text, "\n") != 3 {
		t.Errorf("expected 4 rows in span, got %q", elems[0].Text)
	}
}

func TestAnalyze_SpanCoverage(t *testing.T) {
	// Concatenated element text must reproduce the input minus blank lines.
	content := "# T\n\npara here\n\n- item\n\n```\ncode\n```"
	elems := Analyze(content)

	var joined strings.Builder
	for _, el := range elems {
		joined.WriteString(el.Text)
		joined.WriteString("\n")
	}
	got := strings.Fields(joined.String())
	want := strings.Fields(content)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("coverage mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	if elems := Analyze(""); len(elems) != 0 {
		t.Errorf("expected no elements, got %d", len(elems))
	}
	if elems := Analyze("\n\n  \n"); len(elems) != 0 {
		t.Errorf("expected no elements for whitespace, got %d", len(elems))
	}
}

func TestAnalyze_UnclassifiableDefaultsToParagraph(t *testing.T) {
	elems := Analyze("<<< weird marker >>>")
	if len(elems) != 1 {
		t.Fatalf("expected 1 element, got %d", len(elems))
	}
	if elems[0].Type != element.Paragraph {
		t.Errorf("expected paragraph fallback, got %q", elems[0].Type)
	}
}
