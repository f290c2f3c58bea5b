package navigate

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/artifacts"
	"leadgen-scraper/pkg/auth"
	"leadgen-scraper/pkg/browser"
	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/utils"
)

const (
	searchBaseURL = "https://www.linkedin.com/search/results/people/"

	// maxScrollIterations bounds the lazy-load scroll loop per page.
	maxScrollIterations = 5

	showMoreSelector = "button.artdeco-button--muted"
)

// nextButtonSelectors are tried in order when advancing to the next results
// page. The markup has gone through several generations; any one match that
// is enabled and visible wins.
var nextButtonSelectors = []string{
	"button[aria-label='Next']",
	"button[aria-label='Next page']",
	".artdeco-pagination__button--next",
	"button.artdeco-pagination__button--next",
}

// BuildSearchURL composes a people-search URL for the given keyword query.
func BuildSearchURL(query string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
	return fmt.Sprintf("%s?keywords=%s&origin=GLOBAL_SEARCH_HEADER", searchBaseURL, encoded)
}

// Navigator drives page-level movement: loading searches, forcing lazy
// content to render, and pagination.
type Navigator struct {
	drv    browser.Driver
	auth   *auth.Authenticator
	creds  config.Credentials
	delays config.DelayConfig
	art    *artifacts.Writer
	log    *logrus.Entry
	rng    *rand.Rand
}

// New builds a Navigator.
func New(drv browser.Driver, authenticator *auth.Authenticator, creds config.Credentials, delays config.DelayConfig, art *artifacts.Writer, logger *logrus.Entry) *Navigator {
	return &Navigator{
		drv:    drv,
		auth:   authenticator,
		creds:  creds,
		delays: delays,
		art:    art,
		log:    logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadSearch re-authenticates if the session lapsed, navigates to the
// search URL, lets the page settle with a randomized extra pause, and
// archives a snapshot.
func (n *Navigator) LoadSearch(ctx context.Context, searchURL string) error {
	if n.auth != nil {
		if err := n.auth.EnsureAuthenticated(ctx, n.creds); err != nil {
			return err
		}
	}

	n.log.WithField("url", searchURL).Info("Loading search page")
	if err := n.drv.Navigate(ctx, searchURL); err != nil {
		return err
	}

	if err := utils.SleepContext(ctx, n.delays.PageSettle); err != nil {
		return err
	}
	// Extra randomized pause so page loads are not metronome-regular
	extra := utils.RandomBetween(n.rng, 0, n.delays.ScrollSettle)
	if err := utils.SleepContext(ctx, extra); err != nil {
		return err
	}

	if n.art != nil {
		n.art.CapturePage(ctx, n.drv, "search loaded")
	}
	return nil
}

// ScrollToBottom repeatedly scrolls the page so lazily loaded results
// render. It stops early once the document height stops growing, unless a
// "show more" control is present, which gets one click before giving up.
func (n *Navigator) ScrollToBottom(ctx context.Context) error {
	for i := 0; i < maxScrollIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		prevHeight, err := n.documentHeight(ctx)
		if err != nil {
			return err
		}

		if err := n.drv.Evaluate(ctx, "window.scrollTo(0, document.body.scrollHeight)", nil); err != nil {
			return err
		}
		if err := utils.SleepContext(ctx, n.delays.ScrollSettle); err != nil {
			return err
		}

		newHeight, err := n.documentHeight(ctx)
		if err != nil {
			return err
		}
		if newHeight > prevHeight {
			continue
		}

		// Height stalled; a "show more" button may gate the rest
		clicked, err := n.clickIfUsable(ctx, showMoreSelector)
		if err != nil || !clicked {
			break
		}
		n.log.Debug("Clicked show-more control")
		if err := utils.SleepContext(ctx, n.delays.ScrollSettle); err != nil {
			return err
		}
	}

	if n.art != nil {
		n.art.CapturePage(ctx, n.drv, "after scroll")
	}
	return nil
}

// AdvancePage clicks the next-page control when one is enabled and visible.
// Returns false with no error when pagination is exhausted; that is the
// normal end of a search, not a failure.
func (n *Navigator) AdvancePage(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	for _, selector := range nextButtonSelectors {
		clicked, err := n.clickIfUsable(ctx, selector)
		if err != nil {
			n.log.Debugf("Next-button candidate %q failed: %v", selector, err)
			continue
		}
		if !clicked {
			continue
		}

		n.log.WithField("selector", selector).Debug("Advanced to next results page")
		if err := utils.SleepContext(ctx, n.delays.PaginationSettle); err != nil {
			return false, err
		}
		return true, nil
	}

	n.log.Debug("No usable next-page control, pagination exhausted")
	return false, nil
}

// documentHeight reads the current scroll height of the page.
func (n *Navigator) documentHeight(ctx context.Context) (int, error) {
	var height int
	if err := n.drv.Evaluate(ctx, "document.body.scrollHeight", &height); err != nil {
		return 0, err
	}
	return height, nil
}

// clickIfUsable clicks the selector only when it matches an enabled,
// visible element. Returns whether a click happened.
func (n *Navigator) clickIfUsable(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return !!el && !el.disabled && el.offsetParent !== null; })()`,
		selector)

	var usable bool
	if err := n.drv.Evaluate(ctx, js, &usable); err != nil {
		return false, err
	}
	if !usable {
		return false, nil
	}

	if err := n.drv.ScrollIntoView(ctx, selector); err != nil {
		n.log.Debugf("ScrollIntoView %q failed: %v", selector, err)
	}
	if err := n.drv.Click(ctx, selector); err != nil {
		return false, err
	}
	return true, nil
}
