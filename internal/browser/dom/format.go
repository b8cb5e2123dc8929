// internal/browser/dom/format.go
package dom

import (
	"fmt"
	"strings"
)

// TextUntilNextClickable concatenates the text content of the subtree
// rooted at n, stopping at any descendant element that carries its own
// highlight index. Those subtrees belong to a different interactable and
// would otherwise be reported twice.
func (n *ElementNode) TextUntilNextClickable() string {
	var parts []string

	var collect func(node Node)
	collect = func(node Node) {
		switch t := node.(type) {
		case *TextNode:
			if t.Text != "" {
				parts = append(parts, t.Text)
			}
		case *ElementNode:
			if t != n && t.HighlightIndex != nil {
				return
			}
			for _, child := range t.Children {
				collect(child)
			}
		}
	}
	collect(n)

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// hasHighlightedAncestor reports whether any element on the parent chain
// carries a highlight index.
func hasHighlightedAncestor(n Node) bool {
	for p := n.ParentNode(); p != nil; p = p.Parent {
		if p.HighlightIndex != nil {
			return true
		}
	}
	return false
}

// ClickableElementsToString renders the tree as a flat listing suitable
// for downstream automation prompts: one `N[:]<tag ...>text</tag>` line
// per highlighted element, interleaved with `_[:]text` lines for visible
// text that sits outside any highlighted subtree. includeAttributes
// selects which element attributes are rendered; nil renders none.
func (n *ElementNode) ClickableElementsToString(includeAttributes []string) string {
	var lines []string

	var process func(node Node)
	process = func(node Node) {
		switch t := node.(type) {
		case *ElementNode:
			if t.HighlightIndex != nil {
				attrs := formatAttributes(t.Attributes, includeAttributes)
				lines = append(lines, fmt.Sprintf("%d[:]<%s%s>%s</%s>",
					*t.HighlightIndex, t.TagName, attrs, t.TextUntilNextClickable(), t.TagName))
			}
			for _, child := range t.Children {
				process(child)
			}
		case *TextNode:
			if t.IsVisible && !hasHighlightedAncestor(t) {
				lines = append(lines, "_[:]"+t.Text)
			}
		}
	}
	process(n)

	return strings.Join(lines, "\n")
}

// ClickableElementsToString renders the snapshot's tree; see the
// ElementNode method of the same name.
func (st *State) ClickableElementsToString(includeAttributes []string) string {
	if st == nil || st.ElementTree == nil {
		return ""
	}
	return st.ElementTree.ClickableElementsToString(includeAttributes)
}

func formatAttributes(attrs map[string]string, include []string) string {
	if len(include) == 0 || len(attrs) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, key := range include {
		if val, ok := attrs[key]; ok && val != "" {
			sb.WriteString(fmt.Sprintf(` %s="%s"`, key, strings.ReplaceAll(val, `"`, "'")))
		}
	}
	return sb.String()
}
