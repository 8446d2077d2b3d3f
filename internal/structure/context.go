package structure

import (
	"strings"

	"github.com/pzc163/ragflow-dev/internal/element"
)

// Context exposes ancestor paths and sibling-relatedness derived from an
// element sequence. It is built once per job and read-only afterward;
// paths are recomputed from scratch rather than mutated in place.
type Context struct {
	elems []element.DocumentElement
	paths [][]int // per element: ancestor heading ids, shallow to deep
}

// BuildContext walks the element sequence in order, maintaining a stack of
// open headings keyed by depth: a heading of depth d pops all open headings
// with depth >= d, then goes on the stack itself. Every element's context
// path is the list of headings open where it occurs.
func BuildContext(elems []element.DocumentElement) *Context {
	c := &Context{
		elems: elems,
		paths: make([][]int, len(elems)),
	}

	type openHeading struct {
		id    int
		level int
	}
	var stack []openHeading

	snapshot := func() []int {
		if len(stack) == 0 {
			return nil
		}
		ids := make([]int, len(stack))
		for i, h := range stack {
			ids[i] = h.id
		}
		return ids
	}

	for i, el := range elems {
		if el.Type == element.Heading {
			for len(stack) > 0 && stack[len(stack)-1].level >= el.Level {
				stack = stack[:len(stack)-1]
			}
			c.paths[i] = snapshot()
			stack = append(stack, openHeading{id: el.ID, level: el.Level})
			continue
		}
		c.paths[i] = snapshot()
	}
	return c
}

// Path returns the ancestor heading ids for an element, root to leaf.
func (c *Context) Path(id int) []int {
	if id < 0 || id >= len(c.paths) {
		return nil
	}
	return c.paths[id]
}

// Titles maps a context path to heading titles.
func (c *Context) Titles(path []int) []string {
	if len(path) == 0 {
		return nil
	}
	titles := make([]string, 0, len(path))
	for _, id := range path {
		if id >= 0 && id < len(c.elems) {
			titles = append(titles, c.elems[id].Title)
		}
	}
	return titles
}

// innermostHeading returns the deepest open heading for an element, or
// NoParent at top level.
func (c *Context) innermostHeading(id int) int {
	p := c.Path(id)
	if len(p) == 0 {
		return element.NoParent
	}
	return p[len(p)-1]
}

// IsRelated reports whether two elements share the same innermost open
// heading and, for list items, the same list ancestor. The chunker uses it
// to avoid splitting a list or table away from its lead-in content.
func (c *Context) IsRelated(a, b int) bool {
	if a < 0 || b < 0 || a >= len(c.elems) || b >= len(c.elems) {
		return false
	}
	ea, eb := c.elems[a], c.elems[b]
	// A heading stays related to the content it opens.
	if ea.Type == element.Heading && c.innermostHeading(b) == ea.ID {
		return true
	}
	if eb.Type == element.Heading && c.innermostHeading(a) == eb.ID {
		return true
	}
	if c.innermostHeading(a) != c.innermostHeading(b) {
		return false
	}
	if ea.Type == element.ListItem && eb.Type == element.ListItem {
		return c.listAncestor(a) == c.listAncestor(b)
	}
	// A table only binds to a paragraph that actually introduces it.
	if ea.Type == element.Table || eb.Type == element.Table {
		return isTableLeadIn(ea, eb) || isTableLeadIn(eb, ea)
	}
	return ea.Type != element.Heading && eb.Type != element.Heading
}

// listAncestor resolves the root of the list-nesting chain for a list item.
func (c *Context) listAncestor(id int) int {
	cur := id
	for {
		el := c.elems[cur]
		if el.ListParent == element.NoParent {
			return cur
		}
		cur = el.ListParent
	}
}

var tableLeadInKeywords = []string{"表", "table", "如下", "见表", "统计", "上表", "表中", "如表所示", "following", "below"}

// isTableLeadIn recognizes a paragraph that introduces or explains an
// adjacent table.
func isTableLeadIn(para, table element.DocumentElement) bool {
	if para.Type != element.Paragraph || table.Type != element.Table {
		return false
	}
	content := strings.ToLower(para.Text)
	for _, kw := range tableLeadInKeywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	return false
}
