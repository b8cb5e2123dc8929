// internal/browser/dom/service.go
package dom

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// snapshot.js is the in-page producer: it walks the live document and
// returns {map: id -> record, rootId}. The Go side treats it as opaque;
// all geometry and visibility data is computed in-page at one point in
// time.
//
//go:embed snapshot.js
var snapshotScript string

// ErrInvalidRoot is returned when the producer's declared root id is
// absent from the decoded node map or resolves to a non-element node.
// Both indicate a contract violation by the in-page script, so no partial
// tree is returned.
var ErrInvalidRoot = errors.New("snapshot root did not resolve to an element node")

// ScriptEvaluator is the document execution channel consumed by the
// Service: it runs a script inside the page, passing one JSON-encodable
// argument, and returns the JSON-serialized result.
type ScriptEvaluator interface {
	Evaluate(ctx context.Context, script string, arg any) (json.RawMessage, error)
}

// SnapshotOptions controls the in-page producer run.
type SnapshotOptions struct {
	// HighlightElements draws visual markers on interactive elements.
	// This intentionally mutates the live page.
	HighlightElements bool
	// FocusElement is the highlight index to visually focus; -1 means none.
	FocusElement int
	// ViewportExpansion is the pixel margin beyond the viewport the
	// producer still considers in scope; -1 means the whole document.
	ViewportExpansion int
}

// DefaultSnapshotOptions matches the producer defaults: highlight on,
// nothing focused, no viewport expansion.
func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{HighlightElements: true, FocusElement: -1, ViewportExpansion: 0}
}

// producerArgs is the argument record handed to the in-page script.
type producerArgs struct {
	DoHighlightElements bool `json:"doHighlightElements"`
	FocusHighlightIndex int  `json:"focusHighlightIndex"`
	ViewportExpansion   int  `json:"viewportExpansion"`
}

// snapshotPayload is the envelope the producer returns.
type snapshotPayload struct {
	Map    map[string]json.RawMessage `json:"map"`
	RootID NodeID                     `json:"rootId"`
}

// Service reconstructs a typed DOM tree from producer snapshots. It holds
// no per-snapshot state: every call to ClickableElements produces a fresh
// State, and overlapping calls against the same page are the caller's
// problem to serialize.
type Service struct {
	evaluator ScriptEvaluator
	logger    *zap.Logger
	script    string
}

// NewService creates a snapshot service bound to one page's evaluator.
func NewService(logger *zap.Logger, evaluator ScriptEvaluator) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		evaluator: evaluator,
		logger:    logger.Named("dom"),
		script:    snapshotScript,
	}
}

// ClickableElements runs the producer in-page and reconstructs the result
// into a rooted element tree plus the selector map over its highlighted
// elements.
func (s *Service) ClickableElements(ctx context.Context, opts SnapshotOptions) (*State, error) {
	payload, err := s.evaluateSnapshot(ctx, opts)
	if err != nil {
		return nil, err
	}

	root, err := s.buildTree(payload)
	if err != nil {
		return nil, err
	}

	return &State{
		ElementTree: root,
		SelectorMap: s.createSelectorMap(root),
	}, nil
}

// evaluateSnapshot invokes the in-page producer and decodes its envelope.
func (s *Service) evaluateSnapshot(ctx context.Context, opts SnapshotOptions) (*snapshotPayload, error) {
	args := producerArgs{
		DoHighlightElements: opts.HighlightElements,
		FocusHighlightIndex: opts.FocusElement,
		ViewportExpansion:   opts.ViewportExpansion,
	}

	raw, err := s.evaluator.Evaluate(ctx, s.script, args)
	if err != nil {
		return nil, fmt.Errorf("snapshot script evaluation failed: %w", err)
	}

	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	if len(payload.Map) == 0 {
		return nil, fmt.Errorf("snapshot payload contains no nodes")
	}
	return &payload, nil
}

// buildTree assembles the parent-linked tree from the unordered id ->
// record mapping.
//
// The producer emits children before parents, but that is an emission
// convention and Go map iteration is unordered anyway, so the build is
// two passes over an id-keyed arena: decode everything first, then
// resolve child edges by lookup. Undecodable records and dangling child
// references are logged and skipped; only a bad root aborts.
func (s *Service) buildTree(payload *snapshotPayload) (*ElementNode, error) {
	nodes := make(map[NodeID]Node, len(payload.Map))
	children := make(map[NodeID][]NodeID)

	for rawID, record := range payload.Map {
		id := NodeID(rawID)
		node, childIDs, err := parseNode(record)
		if err != nil {
			s.logger.Warn("Skipping undecodable snapshot node.",
				zap.String("node_id", id.String()), zap.Error(err))
			continue
		}
		if node == nil {
			s.logger.Warn("Skipping empty snapshot node.", zap.String("node_id", id.String()))
			continue
		}
		nodes[id] = node
		if len(childIDs) > 0 {
			children[id] = childIDs
		}
	}

	for id, childIDs := range children {
		parent, ok := nodes[id].(*ElementNode)
		if !ok {
			// Text nodes never list children; a text parent here means the
			// producer mislabeled the record.
			s.logger.Warn("Non-element node lists children; ignoring them.",
				zap.String("node_id", id.String()))
			continue
		}
		for _, childID := range childIDs {
			child, ok := nodes[childID]
			if !ok {
				s.logger.Warn("Child node referenced but not present in snapshot.",
					zap.String("parent_id", id.String()), zap.String("child_id", childID.String()))
				continue
			}
			parent.Children = append(parent.Children, child)
			switch c := child.(type) {
			case *ElementNode:
				c.Parent = parent
			case *TextNode:
				c.Parent = parent
			}
		}
	}

	root, ok := nodes[payload.RootID].(*ElementNode)
	if !ok {
		return nil, fmt.Errorf("root id %q: %w", payload.RootID.String(), ErrInvalidRoot)
	}
	return root, nil
}

// createSelectorMap collects every element carrying a highlight index.
// Traversal order only affects insertion order, which carries no meaning.
func (s *Service) createSelectorMap(root *ElementNode) SelectorMap {
	selectorMap := make(SelectorMap)
	root.Walk(func(n Node) {
		el, ok := n.(*ElementNode)
		if !ok || el.HighlightIndex == nil {
			return
		}
		if prev, dup := selectorMap[*el.HighlightIndex]; dup {
			// Producer bug: handles must be unique. Keep the later node so
			// the map stays consistent with the tree traversal.
			s.logger.Warn("Duplicate highlight index in snapshot.",
				zap.Int("highlight_index", *el.HighlightIndex),
				zap.String("kept_xpath", el.XPath),
				zap.String("dropped_xpath", prev.XPath))
		}
		selectorMap[*el.HighlightIndex] = el
	})
	return selectorMap
}
