package structure

import (
	"reflect"
	"testing"

	"github.com/pzc163/ragflow-dev/internal/element"
)

func buildFrom(content string) ([]element.DocumentElement, *Context) {
	elems := Analyze(content)
	return elems, BuildContext(elems)
}

func TestContext_PathsFollowHeadingNesting(t *testing.T) {
	_, ctx := buildFrom("# A\n\nintro\n\n## B\n\ndeep body")
	// 0=A 1=intro 2=B 3=deep

	if got := ctx.Path(0); len(got) != 0 {
		t.Errorf("top heading should have empty path, got %v", got)
	}
	if got := ctx.Path(1); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("intro path = %v, want [0]", got)
	}
	if got := ctx.Path(2); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("sub heading path = %v, want [0]", got)
	}
	if got := ctx.Path(3); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("deep body path = %v, want [0 2]", got)
	}
}

func TestContext_SiblingHeadingReplacesOpen(t *testing.T) {
	_, ctx := buildFrom("# A\n\n## B\n\nb body\n\n## C\n\nc body")
	// 0=A 1=B 2=b 3=C 4=c

	if got := ctx.Path(2); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("b body path = %v, want [0 1]", got)
	}
	if got := ctx.Path(4); !reflect.DeepEqual(got, []int{0, 3}) {
		t.Errorf("c body path = %v, want [0 3]", got)
	}
}

func TestContext_Titles(t *testing.T) {
	_, ctx := buildFrom("# Guide\n\n## Install\n\nsteps here")
	titles := ctx.Titles(ctx.Path(2))
	want := []string{"Guide", "Install"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
}

func TestContext_PathOutOfRange(t *testing.T) {
	_, ctx := buildFrom("para")
	if got := ctx.Path(-1); got != nil {
		t.Errorf("expected nil for negative id, got %v", got)
	}
	if got := ctx.Path(99); got != nil {
		t.Errorf("expected nil for unknown id, got %v", got)
	}
}

func TestIsRelated_ParagraphsSameSection(t *testing.T) {
	_, ctx := buildFrom("# A\n\nfirst para\n\nsecond para")
	if !ctx.IsRelated(1, 2) {
		t.Error("paragraphs under the same heading should be related")
	}
}

func TestIsRelated_ParagraphsDifferentSections(t *testing.T) {
	_, ctx := buildFrom("# A\n\nunder a\n\n# B\n\nunder b")
	// 0=A 1=under_a 2=B 3=under_b
	if ctx.IsRelated(1, 3) {
		t.Error("paragraphs in different sections should not be related")
	}
}

func TestIsRelated_HeadingOpensContent(t *testing.T) {
	_, ctx := buildFrom("# A\n\nbody text")
	if !ctx.IsRelated(0, 1) {
		t.Error("a heading should be related to the content it opens")
	}
	if !ctx.IsRelated(1, 0) {
		t.Error("relatedness should hold in both directions")
	}
}

func TestIsRelated_HeadingAndForeignContent(t *testing.T) {
	_, ctx := buildFrom("# A\n\nunder a\n\n# B\n\nunder b")
	if ctx.IsRelated(0, 3) {
		t.Error("a heading is not related to another section's content")
	}
}

func TestIsRelated_ListItemsSameList(t *testing.T) {
	_, ctx := buildFrom("- one\n- two")
	if !ctx.IsRelated(0, 1) {
		t.Error("items of the same list should be related")
	}
}

func TestIsRelated_NestedListSharesAncestor(t *testing.T) {
	_, ctx := buildFrom("- parent\n  - child")
	if !ctx.IsRelated(0, 1) {
		t.Error("a nested item shares its ancestor's list")
	}
}

func TestIsRelated_SeparateLists(t *testing.T) {
	_, ctx := buildFrom("- alpha\n\nbetween them\n\n- beta")
	// 0=alpha 1=between 2=beta; the paragraph resets the list stack.
	if ctx.IsRelated(0, 2) {
		t.Error("items of separate lists should not be related")
	}
}

func TestIsRelated_TableWithLeadIn(t *testing.T) {
	_, ctx := buildFrom("The following table shows results.\n\n| a | b |\n| - | - |\n| 1 | 2 |")
	if !ctx.IsRelated(0, 1) {
		t.Error("a lead-in paragraph should bind to its table")
	}
}

func TestIsRelated_TableWithoutLeadIn(t *testing.T) {
	_, ctx := buildFrom("Completely unrelated prose.\n\n| a | b |\n| - | - |\n| 1 | 2 |")
	if ctx.IsRelated(0, 1) {
		t.Error("a table should not bind to a paragraph that never mentions it")
	}
}

func TestIsRelated_OutOfRange(t *testing.T) {
	_, ctx := buildFrom("para")
	if ctx.IsRelated(0, 99) {
		t.Error("expected false for unknown id")
	}
	if ctx.IsRelated(-1, 0) {
		t.Error("expected false for negative id")
	}
}
