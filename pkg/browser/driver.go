package browser

import (
	"context"
	"time"
)

// Driver is the narrow capability surface the scraping layers need from a
// live browser. Keeping it small lets auth, navigation, and extraction be
// tested against a scripted fake without a browser process.
type Driver interface {
	// Navigate loads a URL and waits for the load event
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the location of the active page
	CurrentURL(ctx context.Context) (string, error)

	// PageSource returns the full rendered HTML of the active page
	PageSource(ctx context.Context) (string, error)

	// Evaluate runs a JS expression in the page and decodes the result into out.
	// Pass nil when the result is not needed.
	Evaluate(ctx context.Context, js string, out interface{}) error

	// WaitVisible blocks until the selector matches a visible element or the
	// timeout elapses
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// SendKeys types text into the element matched by selector
	SendKeys(ctx context.Context, selector, text string) error

	// Click clicks the first element matched by selector
	Click(ctx context.Context, selector string) error

	// ScrollIntoView scrolls the element matched by selector into the viewport
	ScrollIntoView(ctx context.Context, selector string) error

	// Screenshot captures a PNG of the current viewport
	Screenshot(ctx context.Context) ([]byte, error)
}
