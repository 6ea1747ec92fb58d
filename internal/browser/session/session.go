// Package session owns the browser lifecycle: one chromedp session per
// worker, created lazily on first use and torn down at the worker's task
// boundary.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/config"
)

// Session represents a single browser automation session. It is owned by
// exactly one worker and must never be shared across workers.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    *config.Config

	mu          sync.Mutex
	started     bool
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	closeOnce sync.Once
}

var _ ActionExecutor = (*Session)(nil)

// New constructs a session without starting the browser; the browser process
// launches on the first action.
func New(cfg *config.Config, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", id)),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// start launches the browser. Callers hold s.mu.
func (s *Session) start(parent context.Context) error {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if !s.cfg.Browser.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if execPath := resolveExecPath(s.cfg, s.logger); execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	for _, arg := range s.cfg.Browser.Args {
		name := strings.TrimPrefix(arg, "--")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			opts = append(opts, chromedp.Flag(name[:eq], name[eq+1:]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	if w, h := s.cfg.Browser.Viewport["width"], s.cfg.Browser.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(parent), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to launch now so failures surface here
	// rather than inside the first step.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.allocCancel = allocCancel
	s.tabCtx = tabCtx
	s.tabCancel = tabCancel
	s.started = true
	s.logger.Info("Browser session started",
		zap.String("browser", s.cfg.Browser.Name),
		zap.Bool("headless", s.cfg.Browser.Headless))
	return nil
}

// ensureStarted lazily launches the browser for the first action.
func (s *Session) ensureStarted(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		if err := s.start(ctx); err != nil {
			return nil, err
		}
	}
	return s.tabCtx, nil
}

// RunActions executes browser actions, combining the operational context with
// the session context.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.ensureStarted(ctx)
	if err != nil {
		return err
	}
	combined, cancel := CombineContext(tabCtx, ctx)
	defer cancel()

	if err := chromedp.Run(combined, actions...); err != nil {
		// Prefer the caller's context error as the cause when it fired.
		if ctx.Err() != nil {
			return fmt.Errorf("browser action aborted: %w", ctx.Err())
		}
		return err
	}
	return nil
}

// RunBackgroundActions executes actions that must survive the operational
// context, e.g. attribute cleanup after a failed interaction.
func (s *Session) RunBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, err := s.ensureStarted(ctx)
	if err != nil {
		return err
	}
	return chromedp.Run(Detach(tabCtx), actions...)
}

// Navigate loads a URL and waits for the document to become ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating", zap.String("url", url))
	if err := s.RunActions(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Title returns the current document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.RunActions(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// CurrentURL returns the current document location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.RunActions(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Screenshot captures the visible viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.RunActions(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Close quits the browser. Safe to call multiple times and on sessions whose
// browser never started.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.started {
			return
		}
		s.tabCancel()
		s.allocCancel()
		s.started = false
		s.logger.Info("Browser session closed")
	})
}

// chromiumNames are the browser.name values the CDP transport can drive.
var chromiumNames = map[string]bool{
	"chrome": true, "chromium": true, "edge": true, "chrome-headless-shell": true,
}

// resolveExecPath picks the browser binary: explicit config first, then the
// drivers/<os>/ layout, then chromedp's own discovery (empty return).
func resolveExecPath(cfg *config.Config, logger *zap.Logger) string {
	name := strings.ToLower(cfg.Browser.Name)
	if name != "" && !chromiumNames[name] {
		logger.Warn("Browser is not Chromium-based; falling back to the discovered Chrome binary",
			zap.String("browser", cfg.Browser.Name))
	}

	if cfg.Browser.ExecPath != "" {
		return cfg.Browser.ExecPath
	}

	if cfg.Browser.DriversDir != "" {
		candidates := []string{name, "chrome", "chromium"}
		for _, c := range candidates {
			if c == "" {
				continue
			}
			p := filepath.Join(cfg.Browser.DriversDir, runtime.GOOS, c)
			if runtime.GOOS == "windows" {
				p += ".exe"
			}
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p
			}
		}
	}
	return ""
}
