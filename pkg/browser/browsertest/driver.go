// Package browsertest provides a scripted, in-memory implementation of the
// browser.Driver interface for tests that exercise auth, navigation, and
// extraction logic without a live browser.
package browsertest

import (
	"context"
	"sync"
	"time"
)

// Call records a single driver invocation for later assertions.
type Call struct {
	Method string
	Arg    string
}

// ScriptedDriver implements browser.Driver with per-method hooks.
// Zero-value behavior is success with empty results; tests override the
// function fields they care about.
type ScriptedDriver struct {
	mu    sync.Mutex
	calls []Call

	// URL is returned by CurrentURL when CurrentURLFunc is nil. Navigate
	// updates it on success.
	URL string
	// Source is returned by PageSource when PageSourceFunc is nil.
	Source string

	NavigateFunc       func(url string) error
	CurrentURLFunc     func() (string, error)
	PageSourceFunc     func() (string, error)
	EvaluateFunc       func(js string, out interface{}) error
	WaitVisibleFunc    func(selector string, timeout time.Duration) error
	SendKeysFunc       func(selector, text string) error
	ClickFunc          func(selector string) error
	ScrollIntoViewFunc func(selector string) error
	ScreenshotFunc     func() ([]byte, error)
}

func (d *ScriptedDriver) record(method, arg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Method: method, Arg: arg})
}

// Calls returns a copy of all recorded invocations in order.
func (d *ScriptedDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// CallsTo returns the arguments of all invocations of the given method.
func (d *ScriptedDriver) CallsTo(method string) []string {
	var args []string
	for _, c := range d.Calls() {
		if c.Method == method {
			args = append(args, c.Arg)
		}
	}
	return args
}

func (d *ScriptedDriver) Navigate(ctx context.Context, url string) error {
	d.record("Navigate", url)
	if d.NavigateFunc != nil {
		if err := d.NavigateFunc(url); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.URL = url
	d.mu.Unlock()
	return nil
}

func (d *ScriptedDriver) CurrentURL(ctx context.Context) (string, error) {
	d.record("CurrentURL", "")
	if d.CurrentURLFunc != nil {
		return d.CurrentURLFunc()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.URL, nil
}

func (d *ScriptedDriver) PageSource(ctx context.Context) (string, error) {
	d.record("PageSource", "")
	if d.PageSourceFunc != nil {
		return d.PageSourceFunc()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Source, nil
}

func (d *ScriptedDriver) Evaluate(ctx context.Context, js string, out interface{}) error {
	d.record("Evaluate", js)
	if d.EvaluateFunc != nil {
		return d.EvaluateFunc(js, out)
	}
	return nil
}

func (d *ScriptedDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	d.record("WaitVisible", selector)
	if d.WaitVisibleFunc != nil {
		return d.WaitVisibleFunc(selector, timeout)
	}
	return nil
}

func (d *ScriptedDriver) SendKeys(ctx context.Context, selector, text string) error {
	d.record("SendKeys", selector+"="+text)
	if d.SendKeysFunc != nil {
		return d.SendKeysFunc(selector, text)
	}
	return nil
}

func (d *ScriptedDriver) Click(ctx context.Context, selector string) error {
	d.record("Click", selector)
	if d.ClickFunc != nil {
		return d.ClickFunc(selector)
	}
	return nil
}

func (d *ScriptedDriver) ScrollIntoView(ctx context.Context, selector string) error {
	d.record("ScrollIntoView", selector)
	if d.ScrollIntoViewFunc != nil {
		return d.ScrollIntoViewFunc(selector)
	}
	return nil
}

func (d *ScriptedDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.record("Screenshot", "")
	if d.ScreenshotFunc != nil {
		return d.ScreenshotFunc()
	}
	return []byte("png"), nil
}
