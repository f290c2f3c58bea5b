package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/browser"
	"leadgen-scraper/pkg/utils"
)

// Writer saves debug snapshots of scraped pages: raw HTML, a screenshot,
// and a markdown rendition for quick human review. Snapshots whose HTML is
// identical to the previous capture are skipped.
type Writer struct {
	dir  string
	log  *logrus.Entry
	conv *md.Converter

	mu       sync.Mutex
	seq      int
	lastHash string
}

// NewWriter creates a per-run artifact directory under baseDir.
func NewWriter(baseDir string, logger *logrus.Entry) (*Writer, error) {
	runID := time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8]
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating artifact directory %s: %v", utils.ErrFilesystem, dir, err)
	}
	return &Writer{
		dir:  dir,
		log:  logger.WithField("artifact_dir", dir),
		conv: md.NewConverter("", true, nil),
	}, nil
}

// Dir returns the per-run artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// CapturePage snapshots the driver's current page under the given label.
// Failures are logged, not returned: a broken snapshot must never fail the
// scrape that triggered it.
func (w *Writer) CapturePage(ctx context.Context, drv browser.Driver, label string) {
	html, err := drv.PageSource(ctx)
	if err != nil {
		w.log.Warnf("Artifact capture '%s': reading page source failed: %v", label, err)
		return
	}

	var screenshot []byte
	if png, err := drv.Screenshot(ctx); err != nil {
		w.log.Debugf("Artifact capture '%s': screenshot failed: %v", label, err)
	} else {
		screenshot = png
	}

	w.CaptureHTML(label, html, screenshot)
}

// CaptureHTML writes a snapshot from already-extracted page source.
// screenshot may be nil.
func (w *Writer) CaptureHTML(label, html string, screenshot []byte) {
	hash := utils.CalculateStringSHA256(html)

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		w.log.Debugf("Artifact capture '%s': page unchanged, skipping", label)
		return
	}
	w.lastHash = hash
	w.seq++
	base := fmt.Sprintf("%03d_%s", w.seq, utils.SanitizeFilename(label))
	w.mu.Unlock()

	htmlPath := filepath.Join(w.dir, base+".html")
	if err := os.WriteFile(htmlPath, []byte(html), 0644); err != nil {
		w.log.Warnf("Artifact capture '%s': writing HTML failed: %v", label, err)
		return
	}

	if markdown, err := w.conv.ConvertString(html); err != nil {
		w.log.Debugf("Artifact capture '%s': markdown conversion failed: %v", label, err)
	} else if err := os.WriteFile(filepath.Join(w.dir, base+".md"), []byte(markdown), 0644); err != nil {
		w.log.Debugf("Artifact capture '%s': writing markdown failed: %v", label, err)
	}

	if len(screenshot) > 0 {
		if err := os.WriteFile(filepath.Join(w.dir, base+".png"), screenshot, 0644); err != nil {
			w.log.Debugf("Artifact capture '%s': writing screenshot failed: %v", label, err)
		}
	}

	w.log.Debugf("Captured artifact %s", base)
}
