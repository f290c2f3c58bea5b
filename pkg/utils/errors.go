package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	// Browser session errors
	ErrBrowserNotFound     = errors.New("no usable browser executable found")
	ErrBrowserIncompatible = errors.New("browser/protocol version mismatch") // Wraps startup error; hint in message
	ErrBrowserStartup      = errors.New("browser failed to start")           // Wraps other startup failures

	// Authentication errors
	ErrLoginPageLoad     = errors.New("login page did not load")
	ErrLoginFailed       = errors.New("login rejected or not confirmed")
	ErrChallengeRequired = errors.New("security challenge requires human resolution")

	// Navigation / page interaction errors
	ErrNavigation = errors.New("page navigation failed")
	ErrEvaluate   = errors.New("in-page script evaluation failed")

	// HTTP errors (Reddit listing fetcher)
	ErrRetryFailed      = errors.New("request failed after all retries") // Wraps the last underlying error
	ErrClientHTTPError  = errors.New("client HTTP error (4xx)")          // Wraps original error/status
	ErrServerHTTPError  = errors.New("server HTTP error (5xx)")          // Wraps original error/status
	ErrOtherHTTPError   = errors.New("other HTTP error (non-2xx)")       // Wraps original error/status
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

	// Application errors
	ErrParsing          = errors.New("parsing error")    // Wraps specific parsing error (HTML, URL, JSON)
	ErrFilesystem       = errors.New("filesystem error") // Wraps os errors
	ErrDatabase         = errors.New("database error")   // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
	ErrMissingSecret    = errors.New("required credential not found")
	ErrInstanceLocked   = errors.New("another instance holds the campaign lock")
	ErrLLMGeneration    = errors.New("message generation failed") // Wraps LLM client errors
	ErrTokenBudget      = errors.New("prompt exceeds token budget")
)

// WrapErrorf wraps a sentinel error with formatted context.
// Returns nil when sentinel is nil.
func WrapErrorf(sentinel error, format string, args ...interface{}) error {
	if sentinel == nil {
		return nil
	}
	return fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
}

// hasCause reports whether err wraps at least one other error, covering both
// single-wrap (Unwrap() error) and multi-wrap (Unwrap() []error) chains.
func hasCause(err error) bool {
	if errors.Unwrap(err) != nil {
		return true
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		return len(multi.Unwrap()) > 1
	}
	return false
}

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrBrowserNotFound):
		return "Browser_NotFound"
	case errors.Is(err, ErrBrowserIncompatible):
		return "Browser_Incompatible"
	case errors.Is(err, ErrBrowserStartup):
		return "Browser_Startup"
	case errors.Is(err, ErrChallengeRequired):
		return "Auth_ChallengeRequired"
	case errors.Is(err, ErrLoginPageLoad):
		return "Auth_LoginPageLoad"
	case errors.Is(err, ErrLoginFailed):
		return "Auth_LoginFailed"
	case errors.Is(err, ErrNavigation):
		return "Page_Navigation"
	case errors.Is(err, ErrEvaluate):
		return "Page_Evaluate"
	case errors.Is(err, ErrRetryFailed):
		if errors.Is(err, ErrServerHTTPError) {
			return "RetryFailed_HTTPServer"
		}
		if errors.Is(err, ErrClientHTTPError) {
			return "RetryFailed_HTTPClient"
		}
		// Check for common network error substrings if wrapped error isn't a known sentinel
		errMsg := err.Error()
		if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "Timeout") || strings.Contains(errMsg, "deadline exceeded") {
			return "RetryFailed_NetworkTimeout"
		}
		if strings.Contains(errMsg, "connection refused") {
			return "RetryFailed_ConnectionRefused"
		}
		if strings.Contains(errMsg, "no such host") {
			return "RetryFailed_DNSLookup"
		}
		var retryNetErr net.Error
		if errors.As(err, &retryNetErr) && retryNetErr.Timeout() {
			return "RetryFailed_NetworkTimeout"
		}
		if hasCause(err) {
			return "RetryFailed_NetworkOther"
		}
		return "RetryFailed_Unknown"
	case errors.Is(err, ErrClientHTTPError):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403 ") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 429 ") {
			return "HTTP_429"
		}
		return "HTTP_4xx"
	case errors.Is(err, ErrServerHTTPError):
		return "HTTP_5xx"
	case errors.Is(err, ErrOtherHTTPError):
		return "HTTP_OtherStatus"
	case errors.Is(err, ErrRobotsDisallowed):
		return "Policy_Robots"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "URL") {
			return "Content_ParsingURL"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		if strings.Contains(errMsg, "JSON") {
			return "Content_ParsingJSON"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrMissingSecret):
		return "Config_MissingSecret"
	case errors.Is(err, ErrInstanceLocked):
		return "Resource_InstanceLocked"
	case errors.Is(err, ErrTokenBudget):
		return "LLM_TokenBudget"
	case errors.Is(err, ErrLLMGeneration):
		return "LLM_Generation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	// Network errors (if not wrapped by custom sentinels)
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "Network_Timeout"
		}
	}
	errMsg := err.Error()
	// Use lowercase for reliable substring checks
	lowerErrMsg := strings.ToLower(errMsg)
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}
	if strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate") {
		return "Network_TLS"
	}
	if strings.Contains(lowerErrMsg, "reset by peer") {
		return "Network_ConnectionReset"
	}
	if strings.Contains(lowerErrMsg, "broken pipe") {
		return "Network_BrokenPipe"
	}

	return "Unknown"
}

// IsSessionFatal reports whether an error should abort the whole campaign
// rather than just the current search task. Browser and auth failures mean
// no later task can succeed either.
func IsSessionFatal(err error) bool {
	switch {
	case errors.Is(err, ErrBrowserNotFound),
		errors.Is(err, ErrBrowserIncompatible),
		errors.Is(err, ErrBrowserStartup),
		errors.Is(err, ErrLoginPageLoad),
		errors.Is(err, ErrLoginFailed),
		errors.Is(err, ErrChallengeRequired),
		errors.Is(err, context.Canceled):
		return true
	}
	return false
}
