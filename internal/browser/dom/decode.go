// internal/browser/dom/decode.go
package dom

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/json-iterator/go"
)

// textNodeType is the kind discriminator the producer sets on text records.
const textNodeType = "TEXT_NODE"

// NodeID is a producer-chosen node identifier. Producers emit ids both as
// JSON strings and as bare numbers; either form is normalized to its
// textual representation so the two compare equal during linking.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid node id: %w", err)
		}
		*id = NodeID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("node id %s is neither a string nor a number", data)
	}
	*id = NodeID(data)
	return nil
}

func (id NodeID) String() string { return string(id) }

// rawNode mirrors the wire shape of one producer record. Text records
// use Type/Text/IsVisible only; element records use the rest.
type rawNode struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	IsVisible bool   `json:"isVisible"`

	TagName             string            `json:"tagName"`
	XPath               string            `json:"xpath"`
	Attributes          map[string]string `json:"attributes"`
	IsInteractive       bool              `json:"isInteractive"`
	IsTopElement        bool              `json:"isTopElement"`
	HighlightIndex      *int              `json:"highlightIndex"`
	ShadowRoot          bool              `json:"shadowRoot"`
	ViewportCoordinates *CoordinateSet    `json:"viewportCoordinates"`
	PageCoordinates     *CoordinateSet    `json:"pageCoordinates"`
	Viewport            *ViewportInfo     `json:"viewport"`
	Children            []NodeID          `json:"children"`
}

// parseNode decodes a single serialized record into a typed node plus the
// raw ids of its children. Child ids are returned unresolved: the records
// they refer to may not have been decoded yet, so attachment is the tree
// assembler's job.
//
// A (nil, nil, nil) return means the record was empty; callers log and
// skip it rather than failing the whole assembly. A non-nil error marks
// the record unusable, which is equally non-fatal to the caller.
func parseNode(data json.RawMessage) (Node, []NodeID, error) {
	if isEmptyRecord(data) {
		return nil, nil, nil
	}

	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("malformed node record: %w", err)
	}

	if raw.Type == textNodeType {
		return &TextNode{Text: raw.Text, IsVisible: raw.IsVisible}, nil, nil
	}

	if raw.TagName == "" {
		return nil, nil, fmt.Errorf("element record is missing tagName")
	}
	if raw.XPath == "" {
		return nil, nil, fmt.Errorf("element record <%s> is missing xpath", raw.TagName)
	}

	attrs := raw.Attributes
	if attrs == nil {
		attrs = make(map[string]string)
	}

	el := &ElementNode{
		TagName:             raw.TagName,
		XPath:               raw.XPath,
		Attributes:          attrs,
		Children:            make([]Node, 0, len(raw.Children)),
		IsVisible:           raw.IsVisible,
		IsInteractive:       raw.IsInteractive,
		IsTopElement:        raw.IsTopElement,
		ShadowRoot:          raw.ShadowRoot,
		HighlightIndex:      raw.HighlightIndex,
		ViewportCoordinates: raw.ViewportCoordinates,
		PageCoordinates:     raw.PageCoordinates,
		ViewportInfo:        raw.Viewport,
	}
	return el, raw.Children, nil
}

// isEmptyRecord reports whether the record carries no payload at all
// (absent, JSON null, or an empty object).
func isEmptyRecord(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return true
	}
	switch string(trimmed) {
	case "null", "{}":
		return true
	}
	return false
}
