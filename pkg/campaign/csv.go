package campaign

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

// csvHeader is the fixed column set consumers of the lead CSV rely on.
var csvHeader = []string{
	"index", "name", "headline", "location",
	"profile_url", "coaching_fit_score", "coaching_notes",
}

// WriteCSV persists leads to path as a whole-file rewrite. Rows keep the
// given order and are renumbered from 1, so the index column always
// reflects the file, not discovery history.
func WriteCSV(path string, leads []models.ScoredLead) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "creating output dir for %s: %v", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "creating %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "writing CSV header: %v", err)
	}
	for i, lead := range leads {
		row := []string{
			strconv.Itoa(i + 1),
			lead.Name,
			lead.Headline,
			lead.Location,
			lead.ProfileURL,
			strconv.Itoa(lead.FitScore),
			lead.Notes,
		}
		if err := w.Write(row); err != nil {
			return utils.WrapErrorf(utils.ErrFilesystem, "writing CSV row %d: %v", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "flushing CSV: %v", err)
	}
	if err := f.Close(); err != nil {
		return utils.WrapErrorf(utils.ErrFilesystem, "closing %s: %v", path, err)
	}
	return nil
}

// LeadsCSVPath names the campaign output file inside the output directory.
func LeadsCSVPath(outputDir, campaignID string) string {
	name := fmt.Sprintf("leads_%s.csv", utils.SanitizeFilename(campaignID))
	return filepath.Join(outputDir, name)
}
