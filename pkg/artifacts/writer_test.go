package artifacts

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgen-scraper/pkg/browser/browsertest"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	w, err := NewWriter(t.TempDir(), logrus.NewEntry(logger))
	require.NoError(t, err)
	return w
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCapturePage_WritesHTMLMarkdownAndScreenshot(t *testing.T) {
	w := newTestWriter(t)
	drv := &browsertest.ScriptedDriver{Source: "<html><body><h1>Results</h1></body></html>"}

	w.CapturePage(context.Background(), drv, "search page 1")

	names := filesIn(t, w.Dir())
	require.Len(t, names, 3)
	var exts []string
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "001_search_page_1"), "unexpected name %s", n)
		exts = append(exts, filepath.Ext(n))
	}
	assert.ElementsMatch(t, []string{".html", ".md", ".png"}, exts)
}

func TestCaptureHTML_SkipsUnchangedPage(t *testing.T) {
	w := newTestWriter(t)

	w.CaptureHTML("page", "<html>same</html>", nil)
	w.CaptureHTML("page", "<html>same</html>", nil)
	w.CaptureHTML("page", "<html>changed</html>", nil)

	names := filesIn(t, w.Dir())
	var htmlFiles []string
	for _, n := range names {
		if filepath.Ext(n) == ".html" {
			htmlFiles = append(htmlFiles, n)
		}
	}
	assert.Len(t, htmlFiles, 2)
}

func TestCaptureHTML_MarkdownContent(t *testing.T) {
	w := newTestWriter(t)
	w.CaptureHTML("login failure", "<html><body><h1>Sign in</h1></body></html>", nil)

	data, err := os.ReadFile(filepath.Join(w.Dir(), "001_login_failure.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sign in")
}

func TestCapturePage_SourceFailureDoesNotPanicOrWrite(t *testing.T) {
	w := newTestWriter(t)
	drv := &browsertest.ScriptedDriver{
		PageSourceFunc: func() (string, error) { return "", assert.AnError },
	}

	w.CapturePage(context.Background(), drv, "broken")
	assert.Empty(t, filesIn(t, w.Dir()))
}
