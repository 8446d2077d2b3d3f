package element

// ElementType classifies a contiguous span of normalized document content.
type ElementType string

const (
	Heading   ElementType = "heading"
	Paragraph ElementType = "paragraph"
	ListItem  ElementType = "list_item"
	CodeBlock ElementType = "code_block"
	Table     ElementType = "table"
	ImageRef  ElementType = "image_ref"
)

// NoParent marks an element with no ancestor.
const NoParent = -1

// DocumentElement is one classified span of a normalized document.
// Elements are created by the structure analyzer in document order and
// are read-only afterward; their lifetime ends with the job.
type DocumentElement struct {
	ID         int
	Type       ElementType
	Level      int    // heading depth or list nesting depth, 0 if n/a
	Text       string // raw span text, markers included
	Title      string // heading title without markers (headings only)
	ParentID   int    // innermost enclosing heading, NoParent at top level
	ListParent int    // enclosing list item for nested list items, NoParent otherwise
	OrderIndex int    // dense 0-based position in the document
}

// Atomic reports whether the element may never be split across chunks.
func (e DocumentElement) Atomic() bool {
	return e.Type == CodeBlock || e.Type == Table
}

// Chunk is a token-bounded run of elements ready for downstream indexing.
type Chunk struct {
	Content          string   `json:"content"`
	TokenCount       int      `json:"token_count"`
	ElementTypes     []string `json:"element_types"`
	ContextPath      []int    `json:"context_path"`
	Breadcrumb       []string `json:"breadcrumb"` // heading titles, shallow to deep
	IsAtomicOverflow bool     `json:"is_atomic_overflow"`
}

// TableRecord is a table extracted before chunking. Tables are returned as
// a parallel output stream and never folded into chunk content.
type TableRecord struct {
	RawMarkup    string `json:"raw_markup"`
	HTML         string `json:"html,omitempty"`
	PositionHint int    `json:"position_hint"`
}
