package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/utils"
)

// userAgents is the pool one agent is picked from per session. Rotating
// across sessions makes repeated runs look less uniform.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// stealthScript hides the most common automation tell before any page
// script runs.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// executableEnvVar overrides the candidate search when set.
const executableEnvVar = "LEADGEN_BROWSER"

// Session owns one local browser process and implements Driver against it.
type Session struct {
	cfg       config.BrowserConfig
	log       *logrus.Entry
	userAgent string

	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

// OpenSession locates a browser executable, starts exactly one browser
// process with anti-automation options applied, and verifies it responds.
func OpenSession(cfg config.BrowserConfig, logger *logrus.Entry) (*Session, error) {
	execPath, err := resolveExecutable(cfg.ExecutablePath, logger)
	if err != nil {
		return nil, err
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgents[rand.Intn(len(userAgents))]
	}
	logger.WithFields(logrus.Fields{
		"executable": execPath,
		"headless":   cfg.Headless,
	}).Info("Starting browser session")
	logger.Debugf("Session user agent: %s", ua)

	opts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(execPath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("start-maximized", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(ua),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		log:         logger,
		userAgent:   ua,
		browserCtx:  browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
	}

	// Register the stealth script before any navigation, then confirm the
	// browser answers the protocol at all.
	startCtx, cancel := context.WithTimeout(browserCtx, cfg.PageLoadTimeout)
	defer cancel()
	err = chromedp.Run(startCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		s.Close()
		return nil, classifyStartupError(err, execPath)
	}

	logger.Info("Browser session ready")
	return s, nil
}

// resolveExecutable picks the first usable browser binary: explicit config
// override, then environment override, then a fixed candidate order.
func resolveExecutable(override string, logger *logrus.Entry) (string, error) {
	var candidates []string
	if override != "" {
		candidates = append(candidates, override)
	}
	if env := os.Getenv(executableEnvVar); env != "" {
		candidates = append(candidates, env)
	}
	candidates = append(candidates, defaultCandidates()...)

	for _, cand := range candidates {
		info, err := os.Stat(cand)
		if err != nil || info.IsDir() {
			continue
		}
		// Windows has no executable bit; elsewhere a plain file is not enough.
		if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
			logger.Debugf("Skipping non-executable candidate: %s", cand)
			continue
		}
		logger.Debugf("Using browser executable: %s", cand)
		return cand, nil
	}

	return "", fmt.Errorf("%w: checked %d locations; set browser.executable_path or %s",
		utils.ErrBrowserNotFound, len(candidates), executableEnvVar)
}

// defaultCandidates lists the common install locations, plus the project
// tools/ and drivers/ directories for locally vendored binaries.
func defaultCandidates() []string {
	local := []string{
		filepath.Join("tools", browserBinaryName()),
		filepath.Join("drivers", browserBinaryName()),
	}
	switch runtime.GOOS {
	case "darwin":
		return append(local,
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		)
	case "windows":
		return append(local,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		)
	default:
		return append(local,
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		)
	}
}

func browserBinaryName() string {
	if runtime.GOOS == "windows" {
		return "chrome.exe"
	}
	return "chrome"
}

// classifyStartupError maps a browser startup failure onto the session
// error taxonomy. A protocol/version mismatch gets a remediation hint since
// the fix (aligning browser and client versions) is actionable.
func classifyStartupError(err error, execPath string) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "no such file"):
		return fmt.Errorf("%w: %s disappeared during startup", utils.ErrBrowserNotFound, execPath)
	case strings.Contains(msg, "version") &&
		(strings.Contains(msg, "support") || strings.Contains(msg, "mismatch") || strings.Contains(msg, "protocol")):
		return fmt.Errorf("%w: %v (update %s or point browser.executable_path at a matching version)",
			utils.ErrBrowserIncompatible, err, execPath)
	default:
		return fmt.Errorf("%w: %v", utils.ErrBrowserStartup, err)
	}
}

// UserAgent returns the agent string chosen for this session.
func (s *Session) UserAgent() string {
	return s.userAgent
}

// Close shuts the browser process down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.log.Info("Closing browser session")
		s.cancelCtx()
		s.cancelAlloc()
	})
}

// run executes chromedp actions against the session, honoring the caller's
// context for cancellation.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate implements Driver
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", utils.ErrNavigation, url, err)
	}
	return nil
}

// CurrentURL implements Driver
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("%w: reading location: %v", utils.ErrEvaluate, err)
	}
	return url, nil
}

// PageSource implements Driver
func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("%w: reading page source: %v", utils.ErrEvaluate, err)
	}
	return html, nil
}

// Evaluate implements Driver
func (s *Session) Evaluate(ctx context.Context, js string, out interface{}) error {
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrEvaluate, err)
	}
	return nil
}

// WaitVisible implements Driver
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.ElementTimeout
	}
	return s.run(ctx, timeout, chromedp.WaitVisible(selector))
}

// SendKeys implements Driver
func (s *Session) SendKeys(ctx context.Context, selector, text string) error {
	return s.run(ctx, s.cfg.ElementTimeout, chromedp.SendKeys(selector, text))
}

// Click implements Driver
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, s.cfg.ElementTimeout, chromedp.Click(selector))
}

// ScrollIntoView implements Driver
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	return s.run(ctx, s.cfg.ElementTimeout, chromedp.ScrollIntoView(selector))
}

// Screenshot implements Driver
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.cfg.ElementTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("%w: capturing screenshot: %v", utils.ErrEvaluate, err)
	}
	return buf, nil
}

var _ Driver = (*Session)(nil)
