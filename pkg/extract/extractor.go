package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/browser"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

// Sentinel values for fields the markup did not expose. Records missing a
// profile URL are dropped instead; every other absence is represented
// explicitly so downstream scoring sees a complete record.
const (
	SentinelUnknownName     = "Unknown"
	SentinelNoHeadline      = "No headline"
	SentinelUnknownLocation = "Unknown location"
	SentinelNotAvailable    = "Not available"
)

// bulkExtractionJS pulls every result in one in-page pass against the
// primary markup generation. Returns an empty array when the container
// class is gone.
const bulkExtractionJS = `
(() => {
	const profiles = [];
	document.querySelectorAll('.reusable-search__result-container').forEach((profile) => {
		const nameElement = profile.querySelector('.entity-result__title-text span[aria-hidden="true"]');
		const linkElement = profile.querySelector('.app-aware-link[href*="/in/"]');
		const headlineElement = profile.querySelector('.entity-result__primary-subtitle');
		const locationElement = profile.querySelector('.entity-result__secondary-subtitle');
		if (linkElement) {
			profiles.push({
				url: linkElement.href.trim(),
				name: nameElement ? nameElement.innerText.trim() : "Unknown",
				headline: headlineElement ? headlineElement.innerText.trim() : "No headline",
				location: locationElement ? locationElement.innerText.trim() : "Unknown location",
			});
		}
	});
	return profiles;
})()`

// containerSelectors are tried in order by the per-element pass, covering
// the markup generations the results list has shipped with.
var containerSelectors = []string{
	"li.reusable-search__result-container",
	".entity-result",
	"[data-test-search-result]",
	"ul.reusable-search__entity-result-list > li",
	".search-results__list > li",
	"[data-chameleon-result-urn]",
	".artdeco-list__item",
}

var nameSelectors = []string{
	".entity-result__title-text a",
	".search-result__info .actor-name",
	".app-aware-link span[aria-hidden='true']",
	".entity-result__title-line a span span",
	"span[dir='ltr']",
	".artdeco-entity-lockup__title span",
}

var headlineSelectors = []string{
	".entity-result__primary-subtitle",
	".search-result__info .subline-level-1",
	".entity-result__summary span",
	".entity-result__primary-subtitle span",
	".artdeco-entity-lockup__subtitle",
}

var locationSelectors = []string{
	".entity-result__secondary-subtitle",
	".search-result__info .subline-level-2",
	".entity-result__secondary-subtitle span",
	".artdeco-entity-lockup__caption",
}

// bulkProfile mirrors the object shape produced by bulkExtractionJS.
type bulkProfile struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Headline string `json:"headline"`
	Location string `json:"location"`
}

// Extractor lifts profile records out of a rendered search results page.
type Extractor struct {
	drv browser.Driver
	log *logrus.Entry
}

// New builds an Extractor.
func New(drv browser.Driver, logger *logrus.Entry) *Extractor {
	return &Extractor{drv: drv, log: logger}
}

// Extract runs the three extraction tiers against the current page and
// returns the first tier's non-empty result. An empty page yields an empty
// slice, not an error; only driver-level failures error.
func (e *Extractor) Extract(ctx context.Context) ([]models.RawProfile, error) {
	profiles, err := e.extractBulk(ctx)
	if err != nil {
		e.log.Warnf("Bulk extraction failed, falling through: %v", err)
	}
	if len(profiles) > 0 {
		e.log.WithField("count", len(profiles)).Info("Extracted profiles via bulk in-page query")
		return profiles, nil
	}

	source, err := e.drv.PageSource(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrParsing, "HTML parse of results page: %v", err)
	}

	profiles = extractPerElement(doc)
	if len(profiles) > 0 {
		e.log.WithField("count", len(profiles)).Info("Extracted profiles via per-element selectors")
		return profiles, nil
	}

	profiles = extractLinkScan(doc)
	if len(profiles) > 0 {
		e.log.WithField("count", len(profiles)).Warn("Extracted profiles via link scan; page markup has drifted")
	} else {
		e.log.Warn("No profiles found on page by any extraction tier")
	}
	return profiles, nil
}

// extractBulk is tier one: a single JS query against the primary container
// markup.
func (e *Extractor) extractBulk(ctx context.Context) ([]models.RawProfile, error) {
	var raw []bulkProfile
	if err := e.drv.Evaluate(ctx, bulkExtractionJS, &raw); err != nil {
		return nil, err
	}

	profiles := make([]models.RawProfile, 0, len(raw))
	for _, r := range raw {
		if r.URL == "" {
			continue
		}
		profiles = append(profiles, models.RawProfile{
			Name:       orSentinel(r.Name, SentinelUnknownName),
			Headline:   orSentinel(r.Headline, SentinelNoHeadline),
			Location:   orSentinel(r.Location, SentinelUnknownLocation),
			ProfileURL: r.URL,
		})
	}
	return profiles, nil
}

// extractPerElement is tier two: iterate container selector candidates and
// resolve each field through its own candidate list. Absence is an explicit
// (value, found) outcome per field, never a thrown condition.
func extractPerElement(doc *goquery.Document) []models.RawProfile {
	for _, containerSel := range containerSelectors {
		containers := doc.Find(containerSel)
		if containers.Length() == 0 {
			continue
		}

		var profiles []models.RawProfile
		containers.Each(func(_ int, container *goquery.Selection) {
			url := profileLink(container)
			if url == "" {
				// Without a URL the record is unusable downstream
				return
			}

			name, found := resolveField(container, nameSelectors, func(s string) bool { return len(s) > 2 })
			if !found {
				name = SentinelUnknownName
			}
			headline, found := resolveField(container, headlineSelectors, func(s string) bool { return s != "" })
			if !found {
				headline = SentinelNoHeadline
			}
			location, found := resolveField(container, locationSelectors, func(s string) bool { return strings.Contains(s, ",") })
			if !found {
				location = SentinelUnknownLocation
			}

			profiles = append(profiles, models.RawProfile{
				Name:       name,
				Headline:   headline,
				Location:   location,
				ProfileURL: url,
			})
		})

		if len(profiles) > 0 {
			return profiles
		}
	}
	return nil
}

// extractLinkScan is tier three: under total markup drift, any anchor
// pointing at a profile still identifies a person. Fields beyond the URL
// and the link text are unknowable here and get the not-available sentinel.
func extractLinkScan(doc *goquery.Document) []models.RawProfile {
	seen := make(map[string]struct{})
	var profiles []models.RawProfile

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.Contains(href, "/in/") {
			return
		}
		canonical := models.CanonicalProfileURL(href)
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}

		name := strings.TrimSpace(link.Text())
		if len(name) <= 2 {
			name = SentinelNotAvailable
		}

		profiles = append(profiles, models.RawProfile{
			Name:       name,
			Headline:   SentinelNotAvailable,
			Location:   SentinelNotAvailable,
			ProfileURL: href,
		})
	})
	return profiles
}

// profileLink finds the first profile URL inside a result container,
// stripped of tracking parameters.
func profileLink(container *goquery.Selection) string {
	url := ""
	container.Find("a.app-aware-link, a[href*='/in/']").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, ok := link.Attr("href")
		if ok && strings.Contains(href, "/in/") {
			url = models.CanonicalProfileURL(href)
			return false
		}
		return true
	})
	return url
}

// resolveField walks candidate selectors in order and returns the first
// element text accepted by valid.
func resolveField(container *goquery.Selection, selectors []string, valid func(string) bool) (string, bool) {
	for _, sel := range selectors {
		value := ""
		container.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.TrimSpace(el.Text())
			if valid(text) {
				value = text
				return false
			}
			return true
		})
		if value != "" {
			return value, true
		}
	}
	return "", false
}

func orSentinel(value, sentinel string) string {
	if strings.TrimSpace(value) == "" {
		return sentinel
	}
	return value
}
