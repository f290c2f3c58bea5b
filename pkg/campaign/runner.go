// Package campaign orchestrates a full lead-generation run: it expands the
// search plan, drives navigation and extraction page by page, scores and
// deduplicates what comes back, and persists the result to CSV and the
// lead store.
package campaign

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/navigate"
	"leadgen-scraper/pkg/score"
	"leadgen-scraper/pkg/storage"
	"leadgen-scraper/pkg/utils"
)

const lockFileName = "campaign.lock"

// Pager drives a search results page: loading, scrolling, pagination.
// *navigate.Navigator is the production implementation.
type Pager interface {
	LoadSearch(ctx context.Context, searchURL string) error
	ScrollToBottom(ctx context.Context) error
	AdvancePage(ctx context.Context) (bool, error)
}

// ProfileSource extracts raw profiles from the currently loaded page.
type ProfileSource interface {
	Extract(ctx context.Context) ([]models.RawProfile, error)
}

// Runner executes one campaign end to end.
type Runner struct {
	pager   Pager
	src     ProfileSource
	store   storage.LeadStore // may be nil
	cfg     *config.AppConfig
	log     *logrus.Entry
	limiter *rate.Limiter
	rng     *rand.Rand
}

// New builds a Runner. store may be nil when cross-campaign persistence is
// not wanted.
func New(pager Pager, src ProfileSource, store storage.LeadStore, cfg *config.AppConfig, logger *logrus.Entry) *Runner {
	perSecond := cfg.Delays.SearchesPerMinute / 60.0
	return &Runner{
		pager:   pager,
		src:     src,
		store:   store,
		cfg:     cfg,
		log:     logger,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes the search plan and returns the aggregated lead set. Task
// failures are logged and skipped; session-fatal failures (browser gone,
// authentication lost) abort the campaign with whatever was collected so
// far. Exactly one campaign may run against a state dir at a time.
func (r *Runner) Run(ctx context.Context) (*models.LeadSet, error) {
	if err := os.MkdirAll(r.cfg.StateDir, 0o755); err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "creating state dir: %v", err)
	}
	lock := flock.New(filepath.Join(r.cfg.StateDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrFilesystem, "acquiring campaign lock: %v", err)
	}
	if !locked {
		return nil, utils.WrapErrorf(utils.ErrInstanceLocked, "another campaign is already running against %s", r.cfg.StateDir)
	}
	defer lock.Unlock()

	set := &models.LeadSet{
		CampaignID: uuid.NewString(),
		StartedAt:  time.Now(),
	}
	log := r.log.WithField("campaign_id", set.CampaignID)

	plan := BuildPlan(r.cfg.Search)
	dedup := newDedupSet(r.cfg.Search.DedupPolicy)
	target := r.cfg.Search.TargetLeadCount

	log.WithFields(logrus.Fields{
		"tasks":  len(plan),
		"target": target,
	}).Info("Campaign starting")

	for i, task := range plan {
		if dedup.Len() >= target {
			log.WithField("leads", dedup.Len()).Info("Target lead count reached, stopping search")
			break
		}
		if err := ctx.Err(); err != nil {
			r.finish(set, dedup, log)
			return set, err
		}
		if err := r.pace(ctx, i); err != nil {
			r.finish(set, dedup, log)
			return set, err
		}

		taskLog := log.WithField("task", task.Label)
		leads, pages, err := r.runTask(ctx, task)
		set.Searches++
		set.Pages += pages
		added := 0
		for _, lead := range leads {
			if dedup.Add(lead) {
				added++
			}
		}
		if err != nil {
			if utils.IsSessionFatal(err) {
				taskLog.WithField("error_category", utils.CategorizeError(err)).Error("Session lost, aborting campaign")
				r.finish(set, dedup, log)
				return set, err
			}
			taskLog.WithField("error_category", utils.CategorizeError(err)).Warnf("Search task failed, skipping: %v", err)
			continue
		}
		taskLog.WithFields(logrus.Fields{
			"pages":     pages,
			"extracted": len(leads),
			"new":       added,
			"total":     dedup.Len(),
		}).Info("Search task complete")
	}

	r.finish(set, dedup, log)
	if r.store != nil {
		r.persist(set, log)
	}
	return set, nil
}

// pace enforces the configured rate floor plus a randomized human-looking
// delay between searches.
func (r *Runner) pace(ctx context.Context, taskIndex int) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	if taskIndex == 0 {
		return nil
	}
	delay := utils.RandomBetween(r.rng, r.cfg.Delays.SearchMin, r.cfg.Delays.SearchMax)
	return utils.SleepContext(ctx, delay)
}

// runTask loads one search and walks its result pages up to the configured
// limit. Leads collected before a failure are returned alongside the error.
func (r *Runner) runTask(ctx context.Context, task models.SearchTask) ([]models.ScoredLead, int, error) {
	var leads []models.ScoredLead
	pages := 0

	if err := r.pager.LoadSearch(ctx, navigate.BuildSearchURL(task.Query)); err != nil {
		return leads, pages, err
	}

	for page := 1; page <= r.cfg.Search.MaxPagesPer; page++ {
		if err := ctx.Err(); err != nil {
			return leads, pages, err
		}
		if err := r.pager.ScrollToBottom(ctx); err != nil {
			return leads, pages, err
		}
		profiles, err := r.src.Extract(ctx)
		if err != nil {
			return leads, pages, err
		}
		pages++
		leads = append(leads, score.ScoreAll(profiles)...)

		if page == r.cfg.Search.MaxPagesPer {
			break
		}
		// The pager settles after a successful advance; no extra delay here.
		advanced, err := r.pager.AdvancePage(ctx)
		if err != nil {
			return leads, pages, err
		}
		if !advanced {
			break
		}
	}
	return leads, pages, nil
}

func (r *Runner) finish(set *models.LeadSet, dedup *dedupSet, log *logrus.Entry) {
	set.Leads = dedup.Sorted()
	set.FinishedAt = time.Now()
	log.WithFields(logrus.Fields{
		"searches": set.Searches,
		"pages":    set.Pages,
		"leads":    len(set.Leads),
	}).Info("Campaign finished")
}

// persist upserts the campaign's leads into the store. First-seen time and
// lifecycle status of known leads are preserved; scores and notes are
// refreshed from this campaign.
func (r *Runner) persist(set *models.LeadSet, log *logrus.Entry) {
	now := time.Now()
	for _, lead := range set.Leads {
		key := models.CanonicalProfileURL(lead.ProfileURL)
		entry := &models.LeadDBEntry{
			Name:       lead.Name,
			ProfileURL: key,
			Headline:   lead.Headline,
			Location:   lead.Location,
			FitScore:   lead.FitScore,
			Notes:      lead.Notes,
			Status:     models.LeadStatusNew,
			Source:     "linkedin",
			CampaignID: set.CampaignID,
			FirstSeen:  now,
			LastSeen:   now,
		}
		if status, existing, err := r.store.CheckLead(key); err == nil && existing != nil && status != models.LeadStatusNotFound {
			entry.Status = existing.Status
			entry.FirstSeen = existing.FirstSeen
			entry.ContactedAt = existing.ContactedAt
		}
		if _, err := r.store.UpsertLead(key, entry); err != nil {
			log.WithField("error_category", utils.CategorizeError(err)).Warnf("Failed to persist lead %s: %v", key, err)
		}
	}
}

// WriteOutput writes the lead set's CSV into the configured output dir and
// returns the file path.
func (r *Runner) WriteOutput(set *models.LeadSet) (string, error) {
	path := LeadsCSVPath(r.cfg.OutputDir, set.CampaignID)
	if err := WriteCSV(path, set.Leads); err != nil {
		return "", err
	}
	return path, nil
}
