// internal/browser/dom/node.go
package dom

// Node is the sum type over the two snapshot node kinds. Consumers are
// expected to type-switch on the concrete *ElementNode / *TextNode rather
// than rely on dispatch through this interface.
type Node interface {
	// Visible reports whether the producer marked the node visible at
	// snapshot time.
	Visible() bool
	// ParentNode returns the non-owning back-reference to the parent
	// element, or nil for the root (and for nodes not yet linked).
	ParentNode() *ElementNode
}

// Coordinates is a 2-D point in CSS pixels.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CoordinateSet describes an element box as computed in-page: the four
// corners, the center, and the box dimensions. An element may carry two
// independent sets, one relative to the viewport and one relative to the
// document origin.
type CoordinateSet struct {
	TopLeft     Coordinates `json:"topLeft"`
	TopRight    Coordinates `json:"topRight"`
	BottomLeft  Coordinates `json:"bottomLeft"`
	BottomRight Coordinates `json:"bottomRight"`
	Center      Coordinates `json:"center"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
}

// ViewportInfo carries the scroll offsets and dimensions of a scroll
// container at snapshot time. Only present on nodes the producer marked
// as scroll containers.
type ViewportInfo struct {
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// ElementNode is a reconstructed DOM element. Children are owned forward
// edges; Parent is a plain observational link set during tree linking.
type ElementNode struct {
	TagName    string            `json:"tagName"`
	XPath      string            `json:"xpath"`
	Attributes map[string]string `json:"attributes"`
	Children   []Node            `json:"children"`

	IsVisible     bool `json:"isVisible"`
	IsInteractive bool `json:"isInteractive"`
	IsTopElement  bool `json:"isTopElement"`
	ShadowRoot    bool `json:"shadowRoot"`

	// HighlightIndex is the producer-assigned handle identifying elements
	// exposed for external action. nil means no handle was assigned.
	HighlightIndex *int `json:"highlightIndex,omitempty"`

	ViewportCoordinates *CoordinateSet `json:"viewportCoordinates,omitempty"`
	PageCoordinates     *CoordinateSet `json:"pageCoordinates,omitempty"`
	ViewportInfo        *ViewportInfo  `json:"viewport,omitempty"`

	// Parent is excluded from serialization: the back-edge would make the
	// tree cyclic for an encoder.
	Parent *ElementNode `json:"-"`
}

// TextNode is a reconstructed text node. It never has children.
type TextNode struct {
	Text      string       `json:"text"`
	IsVisible bool         `json:"isVisible"`
	Parent    *ElementNode `json:"-"`
}

func (n *ElementNode) Visible() bool            { return n.IsVisible }
func (n *ElementNode) ParentNode() *ElementNode { return n.Parent }

func (n *TextNode) Visible() bool            { return n.IsVisible }
func (n *TextNode) ParentNode() *ElementNode { return n.Parent }

// Walk visits n and every descendant in pre-order, children in record
// order. The visit function is called for element and text nodes alike.
func (n *ElementNode) Walk(visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, child := range n.Children {
		switch c := child.(type) {
		case *ElementNode:
			c.Walk(visit)
		default:
			visit(child)
		}
	}
}

// SelectorMap indexes the elements of one tree by their highlight index.
// It covers exactly the ElementNodes whose HighlightIndex is set; lookups
// are by handle only, insertion order carries no meaning.
type SelectorMap map[int]*ElementNode

// State is the combined result of one snapshot reconstruction: the rooted
// tree and the handle index derived from it. Both are rebuilt wholesale
// on every snapshot; there is no incremental update.
type State struct {
	ElementTree *ElementNode
	SelectorMap SelectorMap
}
