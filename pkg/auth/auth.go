package auth

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/artifacts"
	"leadgen-scraper/pkg/browser"
	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/utils"
)

const (
	loginURL         = "https://www.linkedin.com/login"
	usernameSelector = "#username"
	passwordSelector = "#password"
	submitKey        = "\r" // Enter on the password field submits the form
)

// challengeFragments mark URLs where the site is asking for human
// verification (captcha, 2FA, suspicious-login checks).
var challengeFragments = []string{"checkpoint", "challenge"}

// authenticatedFragments mark URLs only a signed-in account reaches.
var authenticatedFragments = []string{"feed", "mynetwork", "messaging"}

// ChallengePrompter hands control to a human when the site raises a
// security challenge mid-login.
type ChallengePrompter interface {
	// PromptChallenge blocks until the human reports the challenge solved
	// (or fails). url is the challenge page for reference.
	PromptChallenge(url string) error
}

// StdinPrompter blocks on standard input; the operator solves the challenge
// in the visible browser window and presses Enter.
type StdinPrompter struct {
	Log *logrus.Entry
}

func (p *StdinPrompter) PromptChallenge(url string) error {
	p.Log.Warnf("Security challenge detected at %s", url)
	fmt.Println("A security challenge needs manual resolution.")
	fmt.Println("Complete it in the browser window, then press Enter to continue...")
	reader := bufio.NewReader(os.Stdin)
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("%w: reading confirmation: %v", utils.ErrChallengeRequired, err)
	}
	return nil
}

// Authenticator drives the login flow and answers session-state questions.
type Authenticator struct {
	drv            browser.Driver
	delays         config.DelayConfig
	elementTimeout time.Duration
	prompter       ChallengePrompter
	art            *artifacts.Writer
	log            *logrus.Entry
	rng            *rand.Rand
}

// New builds an Authenticator. prompter may be nil, in which case a stdin
// prompter is used.
func New(drv browser.Driver, cfg *config.AppConfig, art *artifacts.Writer, prompter ChallengePrompter, logger *logrus.Entry) *Authenticator {
	if prompter == nil {
		prompter = &StdinPrompter{Log: logger}
	}
	return &Authenticator{
		drv:            drv,
		delays:         cfg.Delays,
		elementTimeout: cfg.Browser.ElementTimeout,
		prompter:       prompter,
		art:            art,
		log:            logger,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IsAuthenticated reports whether the current page URL belongs to a
// signed-in session. It never navigates.
func (a *Authenticator) IsAuthenticated(ctx context.Context) bool {
	url, err := a.drv.CurrentURL(ctx)
	if err != nil {
		a.log.Debugf("IsAuthenticated: reading URL failed: %v", err)
		return false
	}
	return containsAny(url, authenticatedFragments)
}

// Login performs the full form-based login flow, including the human
// hand-off for security challenges. On failure the final page source is
// captured as a debug artifact before the error returns.
func (a *Authenticator) Login(ctx context.Context, creds config.Credentials) error {
	if err := creds.RequireLinkedIn(); err != nil {
		return err
	}

	a.log.Info("Navigating to login page")
	if err := a.drv.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrLoginPageLoad, err)
	}

	if err := a.drv.WaitVisible(ctx, usernameSelector, a.elementTimeout); err != nil {
		a.captureFailure(ctx, "login page load")
		return fmt.Errorf("%w: username field not visible within %v", utils.ErrLoginPageLoad, a.elementTimeout)
	}

	a.log.Info("Entering credentials")
	if err := a.typeHumanly(ctx, usernameSelector, creds.LinkedInUsername); err != nil {
		return err
	}
	if err := a.typeHumanly(ctx, passwordSelector, creds.LinkedInPassword); err != nil {
		return err
	}
	if err := a.drv.SendKeys(ctx, passwordSelector, submitKey); err != nil {
		return fmt.Errorf("%w: submitting login form: %v", utils.ErrLoginFailed, err)
	}

	if err := utils.SleepContext(ctx, a.delays.PaginationSettle); err != nil {
		return err
	}

	url, err := a.drv.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading post-login URL: %v", utils.ErrLoginFailed, err)
	}

	if containsAny(url, challengeFragments) {
		if err := a.prompter.PromptChallenge(url); err != nil {
			return err
		}
		if url, err = a.drv.CurrentURL(ctx); err != nil {
			return fmt.Errorf("%w: reading URL after challenge: %v", utils.ErrLoginFailed, err)
		}
	}

	if containsAny(url, authenticatedFragments) {
		a.log.Info("Login confirmed")
		return nil
	}

	a.captureFailure(ctx, "login failure")
	return fmt.Errorf("%w: landed on %s", utils.ErrLoginFailed, url)
}

// EnsureAuthenticated logs in only when the session is not already live.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context, creds config.Credentials) error {
	if a.IsAuthenticated(ctx) {
		return nil
	}
	return a.Login(ctx, creds)
}

// typeHumanly sends text one character at a time with randomized keystroke
// delays so form input does not look machine-generated.
func (a *Authenticator) typeHumanly(ctx context.Context, selector, text string) error {
	for _, r := range text {
		if err := a.drv.SendKeys(ctx, selector, string(r)); err != nil {
			return fmt.Errorf("%w: typing into %s: %v", utils.ErrLoginFailed, selector, err)
		}
		pause := utils.RandomBetween(a.rng, a.delays.TypingMin, a.delays.TypingMax)
		if err := utils.SleepContext(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

func (a *Authenticator) captureFailure(ctx context.Context, label string) {
	if a.art != nil {
		a.art.CapturePage(ctx, a.drv, label)
	}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
