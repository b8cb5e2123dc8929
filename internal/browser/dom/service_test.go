// internal/browser/dom/service_test.go
package dom

import (
	"context"
	"errors"
	"fmt"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeEvaluator is a canned document execution channel.
type fakeEvaluator struct {
	result json.RawMessage
	err    error

	lastScript string
	lastArg    any
	calls      int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, script string, arg any) (json.RawMessage, error) {
	f.calls++
	f.lastScript = script
	f.lastArg = arg
	return f.result, f.err
}

func newTestService(result string) (*Service, *fakeEvaluator) {
	eval := &fakeEvaluator{result: json.RawMessage(result)}
	return NewService(zap.NewNop(), eval), eval
}

func newObservedService(result string) (*Service, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	eval := &fakeEvaluator{result: json.RawMessage(result)}
	return NewService(zap.New(core), eval), logs
}

func TestClickableElements_BasicTree(t *testing.T) {
	svc, eval := newTestService(`{
		"map": {
			"0": {"tagName": "body", "xpath": "/body", "children": [1, 2]},
			"1": {"type": "TEXT_NODE", "text": "hi", "isVisible": true},
			"2": {"tagName": "div", "xpath": "/body/div", "isInteractive": true, "highlightIndex": 0, "children": []}
		},
		"rootId": "0"
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, eval.calls)

	root := state.ElementTree
	require.NotNil(t, root)
	assert.Equal(t, "body", root.TagName)
	assert.Nil(t, root.Parent)
	require.Len(t, root.Children, 2)

	text, ok := root.Children[0].(*TextNode)
	require.True(t, ok, "first child should be the text node, got %T", root.Children[0])
	assert.Equal(t, "hi", text.Text)
	assert.Same(t, root, text.Parent)

	div, ok := root.Children[1].(*ElementNode)
	require.True(t, ok, "second child should be the div, got %T", root.Children[1])
	assert.Equal(t, "div", div.TagName)
	assert.Same(t, root, div.Parent)

	require.Len(t, state.SelectorMap, 1)
	assert.Same(t, div, state.SelectorMap[0])
}

func TestClickableElements_ForwardsProducerArgs(t *testing.T) {
	svc, eval := newTestService(`{
		"map": {"0": {"tagName": "html", "xpath": "/html"}},
		"rootId": 0
	}`)

	opts := SnapshotOptions{HighlightElements: true, FocusElement: 7, ViewportExpansion: -1}
	_, err := svc.ClickableElements(context.Background(), opts)
	require.NoError(t, err)

	encoded, err := json.Marshal(eval.lastArg)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"doHighlightElements": true, "focusHighlightIndex": 7, "viewportExpansion": -1}`,
		string(encoded))
	assert.NotEmpty(t, eval.lastScript, "embedded producer script must be passed through")
}

func TestClickableElements_NumericRootID(t *testing.T) {
	svc, _ := newTestService(`{
		"map": {"3": {"tagName": "html", "xpath": "/html"}},
		"rootId": 3
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)
	assert.Equal(t, "html", state.ElementTree.TagName)
}

func TestClickableElements_RootMissing(t *testing.T) {
	svc, _ := newTestService(`{
		"map": {"0": {"tagName": "body", "xpath": "/body"}},
		"rootId": "99"
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	assert.ErrorIs(t, err, ErrInvalidRoot)
	assert.Nil(t, state, "no partial tree on a producer contract violation")
}

func TestClickableElements_RootIsTextNode(t *testing.T) {
	svc, _ := newTestService(`{
		"map": {"0": {"type": "TEXT_NODE", "text": "oops", "isVisible": true}},
		"rootId": "0"
	}`)

	_, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestClickableElements_DanglingChildIsSkipped(t *testing.T) {
	svc, logs := newObservedService(`{
		"map": {
			"0": {"tagName": "body", "xpath": "/body", "children": ["1", "404"]},
			"1": {"tagName": "p", "xpath": "/body/p"}
		},
		"rootId": "0"
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err, "a dangling child reference must not abort assembly")

	require.Len(t, state.ElementTree.Children, 1)
	p := state.ElementTree.Children[0].(*ElementNode)
	assert.Equal(t, "p", p.TagName)

	require.Equal(t, 1, logs.FilterMessageSnippet("Child node referenced but not present").Len())
}

func TestClickableElements_EmptyRecordIsSkipped(t *testing.T) {
	svc, logs := newObservedService(`{
		"map": {
			"0": {"tagName": "body", "xpath": "/body", "children": ["1", "2"]},
			"1": {},
			"2": {"tagName": "span", "xpath": "/body/span"}
		},
		"rootId": "0"
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)

	// The empty record contributes nothing; referencing it as a child is
	// only a diagnostic.
	require.Len(t, state.ElementTree.Children, 1)
	assert.Equal(t, 1, logs.FilterMessageSnippet("empty snapshot node").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Child node referenced but not present").Len())
}

func TestClickableElements_UndecodableRecordIsSkipped(t *testing.T) {
	svc, logs := newObservedService(`{
		"map": {
			"0": {"tagName": "body", "xpath": "/body", "children": ["1"]},
			"1": {"tagName": "div"}
		},
		"rootId": "0"
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)
	assert.Empty(t, state.ElementTree.Children)
	assert.Equal(t, 1, logs.FilterMessageSnippet("undecodable snapshot node").Len())
}

func TestClickableElements_EvaluatorError(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("page crashed")}
	svc := NewService(zap.NewNop(), eval)

	_, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	assert.ErrorContains(t, err, "page crashed")
}

func TestClickableElements_EmptyPayload(t *testing.T) {
	svc, _ := newTestService(`{"map": {}, "rootId": "0"}`)

	_, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	assert.ErrorContains(t, err, "no nodes")
}

func TestClickableElements_SelectorMapInvariants(t *testing.T) {
	// A deeper tree exercising the handle/selector-map invariants: every
	// handle in the tree appears in the map, mapped to the node carrying
	// it, and every non-root node appears in its parent's child list
	// exactly once.
	payload := `{
		"map": {
			"0": {"type": "TEXT_NODE", "text": "Sign in", "isVisible": true},
			"1": {"tagName": "button", "xpath": "/html/body/form/button", "isInteractive": true, "highlightIndex": 1, "children": ["0"]},
			"2": {"tagName": "input", "xpath": "/html/body/form/input", "isInteractive": true, "highlightIndex": 0, "children": []},
			"3": {"tagName": "form", "xpath": "/html/body/form", "children": ["2", "1"]},
			"4": {"tagName": "body", "xpath": "/html/body", "children": ["3"]},
			"5": {"tagName": "html", "xpath": "/html", "children": ["4"]}
		},
		"rootId": "5"
	}`
	svc, _ := newTestService(payload)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)

	var highlighted int
	state.ElementTree.Walk(func(n Node) {
		el, ok := n.(*ElementNode)
		if ok && el.HighlightIndex != nil {
			highlighted++
			assert.Same(t, el, state.SelectorMap[*el.HighlightIndex],
				"selector map entry %d must point at the node carrying that handle", *el.HighlightIndex)
		}

		if n == Node(state.ElementTree) {
			return
		}
		parent := n.ParentNode()
		require.NotNil(t, parent, "every non-root node must be linked to a parent")
		var count int
		for _, child := range parent.Children {
			if child == n {
				count++
			}
		}
		assert.Equal(t, 1, count, "parent child list must contain the node exactly once")
	})
	assert.Len(t, state.SelectorMap, highlighted)
}

func TestClickableElements_DuplicateHighlightIndex(t *testing.T) {
	svc, logs := newObservedService(`{
		"map": {
			"0": {"tagName": "body", "xpath": "/body", "children": ["1", "2"]},
			"1": {"tagName": "a", "xpath": "/body/a[1]", "highlightIndex": 0},
			"2": {"tagName": "a", "xpath": "/body/a[2]", "highlightIndex": 0}
		},
		"rootId": "0"
	}`)

	state, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)
	assert.Len(t, state.SelectorMap, 1)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Duplicate highlight index").Len())
}

func TestClickableElements_FreshStatePerCall(t *testing.T) {
	svc, _ := newTestService(`{
		"map": {"0": {"tagName": "html", "xpath": "/html", "highlightIndex": 0}},
		"rootId": "0"
	}`)

	first, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)
	second, err := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	require.NoError(t, err)

	assert.NotSame(t, first.ElementTree, second.ElementTree,
		"each reconstruction must build a fresh tree")
}

func ExampleService_ClickableElements() {
	eval := &fakeEvaluator{result: json.RawMessage(`{
		"map": {
			"0": {"tagName": "body", "xpath": "/body", "children": [1]},
			"1": {"tagName": "button", "xpath": "/body/button", "isVisible": true, "isInteractive": true, "highlightIndex": 0, "children": []}
		},
		"rootId": "0"
	}`)}
	svc := NewService(zap.NewNop(), eval)

	state, _ := svc.ClickableElements(context.Background(), DefaultSnapshotOptions())
	fmt.Println(len(state.SelectorMap), state.SelectorMap[0].TagName)
	// Output: 1 button
}
