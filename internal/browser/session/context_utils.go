// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext creates a context derived from ctx1 (the session context,
// which carries the CDP connection info) that is canceled when either ctx1
// or ctx2 (the operational context carrying the caller's deadline) is
// done. chromedp actions must run on a descendant of the session context,
// so the operational deadline cannot simply be passed through.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
