// internal/browser/session/session.go
package session

import (
	"context"
	encodingjson "encoding/json"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/voidptr9/snapdom/internal/config"
)

// Session owns one headless browser instance and the single page it
// drives. It is the document execution channel for the dom package:
// scripts evaluated through it run inside the live page.
type Session struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	closeOnce sync.Once
}

// New launches the browser process and verifies it responds before
// returning. The session stays alive until Close or until parentCtx is
// canceled.
func New(parentCtx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("session")

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, buildAllocatorOptions(cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		logger:      log,
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      browserCancel,
	}

	startupTimeout := cfg.StartupTimeout
	if startupTimeout <= 0 {
		startupTimeout = 30 * time.Second
	}

	// Run a trivial task so a broken Chrome install fails here, not on
	// the first real navigation.
	startCtx, cancelStart := context.WithTimeout(browserCtx, startupTimeout)
	defer cancelStart()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	log.Debug("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// buildAllocatorOptions assembles the launch flags for a configurable
// headless browser instance.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	// Extra arguments from configuration, "--name=value" or "--name".
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Required for containerized Linux environments.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}

	return opts
}

// RunActions executes chromedp actions on the session's CDP context while
// honoring the operational context's deadline and cancellation.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	combined, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(combined, actions...); err != nil {
		// Surface the caller's context error over the derived one for a
		// clearer cause.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads the given URL, waits for the document body, then applies
// the configured post-load settle time.
func (s *Session) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	err := s.RunActions(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	}

	if s.cfg.PostLoadWait > 0 {
		select {
		case <-time.After(s.cfg.PostLoadWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.logger.Debug("Navigation complete.", zap.String("url", url))
	return nil
}

// Evaluate runs a script inside the page and returns its JSON-serialized
// result. A non-nil arg is JSON-encoded and applied to the script as a
// function-call argument, so scripts passed with args must evaluate to a
// function expression. This implements dom.ScriptEvaluator.
func (s *Session) Evaluate(ctx context.Context, script string, arg any) (json.RawMessage, error) {
	call := scriptCall(script, arg)

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.ScriptTimeout)
	defer cancel()

	var res encodingjson.RawMessage
	err := s.RunActions(opCtx,
		chromedp.Evaluate(call, &res, func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			// Resolve promises, return the actual value, and keep in-page
			// exceptions out of the browser console.
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("script evaluation timed out after %v: %w", s.cfg.ScriptTimeout, opCtx.Err())
		}
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return json.RawMessage(res), nil
}

// Close shuts the page and the browser process down. Safe to call more
// than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// Ask the browser to exit cleanly before tearing the allocator down.
		if err := chromedp.Cancel(s.ctx); err != nil {
			s.logger.Debug("Graceful browser shutdown failed.", zap.Error(err))
		}
		s.cancel()
		s.allocCancel()
	})
}

// scriptCall turns a function-expression script plus an argument into a
// self-contained call expression. A nil arg leaves the script untouched.
func scriptCall(script string, arg any) string {
	if arg == nil {
		return script
	}
	return fmt.Sprintf("(%s)(%s)", script, jsonEncode(arg))
}

// jsonEncode safely encodes a value for injection into a JS expression.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
