// internal/browser/session/session_test.go
package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voidptr9/snapdom/internal/config"
)

func TestJSONEncode(t *testing.T) {
	assert.Equal(t, `"hello"`, jsonEncode("hello"))
	assert.Equal(t, `"say \"hi\""`, jsonEncode(`say "hi"`))
	assert.Equal(t, `{"a":1}`, jsonEncode(map[string]int{"a": 1}))

	// Unencodable values degrade to a JS null rather than breaking the
	// injected expression.
	assert.Equal(t, "null", jsonEncode(func() {}))
}

func TestScriptCall(t *testing.T) {
	script := "(function(args){ return args; })"

	assert.Equal(t, script, scriptCall(script, nil),
		"a nil argument must leave the script untouched")

	call := scriptCall(script, map[string]any{"viewportExpansion": -1})
	assert.Equal(t, `((function(args){ return args; }))({"viewportExpansion":-1})`, call)
}

func TestBuildAllocatorOptions(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless:     true,
		WindowWidth:  1280,
		WindowHeight: 800,
		Args:         []string{"--lang=en-US", "--mute-audio"},
	}

	opts := buildAllocatorOptions(cfg)
	assert.NotEmpty(t, opts)

	// One option per configured extra argument on top of the baseline set.
	baseline := buildAllocatorOptions(config.BrowserConfig{Headless: true, WindowWidth: 1280, WindowHeight: 800})
	assert.Len(t, opts, len(baseline)+2)
}

func TestBuildAllocatorOptions_UserAgent(t *testing.T) {
	withUA := buildAllocatorOptions(config.BrowserConfig{WindowWidth: 1, WindowHeight: 1, UserAgent: "snapdom-test"})
	withoutUA := buildAllocatorOptions(config.BrowserConfig{WindowWidth: 1, WindowHeight: 1})
	assert.Len(t, withUA, len(withoutUA)+1)
}
