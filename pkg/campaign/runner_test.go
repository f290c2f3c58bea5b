package campaign

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

func discardEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		OutputDir: t.TempDir(),
		StateDir:  t.TempDir(),
		Search: config.SearchConfig{
			Industries:      []string{"Technology"},
			Roles:           []string{"CEO"},
			Keywords:        []string{"career transition"},
			MaxIndustries:   1,
			MaxRoles:        1,
			MaxPagesPer:     2,
			TargetLeadCount: 100,
			DedupPolicy:     config.DedupFirstSeen,
		},
		Delays: config.DelayConfig{
			SearchMin:         time.Millisecond,
			SearchMax:         2 * time.Millisecond,
			SearchesPerMinute: 6000,
		},
	}
}

// fakePager scripts LoadSearch/ScrollToBottom/AdvancePage behavior.
type fakePager struct {
	loads       []string
	loadErrs    []error
	advanceSeq  []bool
	advanceCall int
	scrollErr   error
}

func (p *fakePager) LoadSearch(ctx context.Context, url string) error {
	p.loads = append(p.loads, url)
	if len(p.loadErrs) > 0 {
		err := p.loadErrs[0]
		p.loadErrs = p.loadErrs[1:]
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *fakePager) ScrollToBottom(ctx context.Context) error {
	return p.scrollErr
}

func (p *fakePager) AdvancePage(ctx context.Context) (bool, error) {
	if p.advanceCall < len(p.advanceSeq) {
		ok := p.advanceSeq[p.advanceCall]
		p.advanceCall++
		return ok, nil
	}
	p.advanceCall++
	return false, nil
}

// fakeSource pops one batch of profiles per Extract call.
type fakeSource struct {
	batches [][]models.RawProfile
	err     error
}

func (s *fakeSource) Extract(ctx context.Context) ([]models.RawProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

// fakeStore is an in-memory LeadStore.
type fakeStore struct {
	entries map[string]*models.LeadDBEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*models.LeadDBEntry)}
}

func (s *fakeStore) CheckLead(url string) (models.LeadStatus, *models.LeadDBEntry, error) {
	if e, ok := s.entries[url]; ok {
		copied := *e
		return e.Status, &copied, nil
	}
	return models.LeadStatusNotFound, nil, nil
}

func (s *fakeStore) ListLeads(ctx context.Context) ([]models.LeadDBEntry, error) {
	var out []models.LeadDBEntry
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) LeadCount() (int, error) { return len(s.entries), nil }

func (s *fakeStore) UpsertLead(url string, entry *models.LeadDBEntry) (bool, error) {
	_, existed := s.entries[url]
	copied := *entry
	s.entries[url] = &copied
	return !existed, nil
}

func (s *fakeStore) UpdateLeadStatus(url string, status models.LeadStatus) error {
	if e, ok := s.entries[url]; ok {
		e.Status = status
	}
	return nil
}

func (s *fakeStore) RunGC(ctx context.Context, interval time.Duration) {}
func (s *fakeStore) Close() error                                      { return nil }

func profile(slug, headline string) models.RawProfile {
	return models.RawProfile{
		Name:       slug,
		Headline:   headline,
		Location:   "London, UK",
		ProfileURL: "https://www.linkedin.com/in/" + slug,
	}
}

func TestBuildPlan(t *testing.T) {
	plan := BuildPlan(config.SearchConfig{
		Industries:    []string{"Technology", "Finance", "Healthcare"},
		Roles:         []string{"CEO", "Director"},
		Keywords:      []string{"career transition"},
		MaxIndustries: 2,
		MaxRoles:      2,
	})

	require.Len(t, plan, 5)
	assert.Equal(t, "Technology CEO", plan[0].Query)
	assert.Equal(t, models.TaskIndustryRole, plan[0].Kind)
	assert.Equal(t, "Technology Director", plan[1].Query)
	assert.Equal(t, "Finance CEO", plan[2].Query)
	assert.Equal(t, "Finance Director", plan[3].Query)
	assert.Equal(t, "career transition", plan[4].Query)
	assert.Equal(t, models.TaskKeyword, plan[4].Kind)
}

func TestBuildPlanClipsBeyondAvailable(t *testing.T) {
	plan := BuildPlan(config.SearchConfig{
		Industries:    []string{"Technology"},
		Roles:         []string{"CEO"},
		MaxIndustries: 5,
		MaxRoles:      5,
	})
	require.Len(t, plan, 1)
}

func TestRunHappyPath(t *testing.T) {
	cfg := testConfig(t)
	pager := &fakePager{advanceSeq: []bool{true, true}}
	src := &fakeSource{batches: [][]models.RawProfile{
		{profile("jane-doe", "CEO")},
		{profile("bob-smith", "Director")},
		{profile("ann-poe", "Founder")},
		{profile("kim-west", "Student")},
	}}

	set, err := New(pager, src, nil, cfg, discardEntry()).Run(context.Background())
	require.NoError(t, err)

	// two tasks, two pages each
	assert.Equal(t, 2, set.Searches)
	assert.Equal(t, 4, set.Pages)
	require.Len(t, pager.loads, 2)
	assert.Contains(t, pager.loads[0], "Technology%20CEO")

	require.Len(t, set.Leads, 4)
	for i := 1; i < len(set.Leads); i++ {
		assert.GreaterOrEqual(t, set.Leads[i-1].FitScore, set.Leads[i].FitScore)
	}
	assert.NotEmpty(t, set.CampaignID)
	assert.False(t, set.FinishedAt.Before(set.StartedAt))
}

func TestRunAddsNoDelayAfterPageAdvance(t *testing.T) {
	// Post-advance settling is the pager's responsibility. With a fake pager
	// that returns immediately, an hour-long settle must not slow the run.
	cfg := testConfig(t)
	cfg.Delays.PaginationSettle = time.Hour
	pager := &fakePager{advanceSeq: []bool{true, true}}
	src := &fakeSource{batches: [][]models.RawProfile{
		{profile("jane-doe", "CEO")},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	set, err := New(pager, src, nil, cfg, discardEntry()).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Pages)
}

func TestRunDedupFirstSeen(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.MaxPagesPer = 1
	pager := &fakePager{}
	src := &fakeSource{batches: [][]models.RawProfile{
		{{Name: "Jane Doe", Headline: "Manager", ProfileURL: "https://www.linkedin.com/in/jane-doe?trk=a"}},
		{{Name: "Jane Doe", Headline: "CEO", ProfileURL: "https://www.linkedin.com/in/jane-doe"}},
	}}

	set, err := New(pager, src, nil, cfg, discardEntry()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Leads, 1)
	assert.Equal(t, "Manager", set.Leads[0].Headline)
}

func TestRunDedupHighestScore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.MaxPagesPer = 1
	cfg.Search.DedupPolicy = config.DedupHighestScore
	pager := &fakePager{}
	src := &fakeSource{batches: [][]models.RawProfile{
		{{Name: "Jane Doe", Headline: "Manager", ProfileURL: "https://www.linkedin.com/in/jane-doe?trk=a"}},
		{{Name: "Jane Doe", Headline: "CEO", ProfileURL: "https://www.linkedin.com/in/jane-doe"}},
	}}

	set, err := New(pager, src, nil, cfg, discardEntry()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Leads, 1)
	assert.Equal(t, "CEO", set.Leads[0].Headline)
}

func TestRunStopsAtTargetCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.MaxPagesPer = 1
	cfg.Search.TargetLeadCount = 1
	pager := &fakePager{}
	src := &fakeSource{batches: [][]models.RawProfile{
		{profile("jane-doe", "CEO")},
		{profile("bob-smith", "Director")},
	}}

	set, err := New(pager, src, nil, cfg, discardEntry()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, set.Searches)
	require.Len(t, pager.loads, 1)
	require.Len(t, set.Leads, 1)
}

func TestRunSkipsFailedTask(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.MaxPagesPer = 1
	pager := &fakePager{loadErrs: []error{
		fmt.Errorf("%w: results page timed out", utils.ErrNavigation),
		nil,
	}}
	src := &fakeSource{batches: [][]models.RawProfile{
		{profile("bob-smith", "Director")},
	}}

	set, err := New(pager, src, nil, cfg, discardEntry()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, set.Searches)
	require.Len(t, set.Leads, 1)
	assert.Equal(t, "bob-smith", set.Leads[0].Name)
}

func TestRunAbortsOnSessionFatalError(t *testing.T) {
	cfg := testConfig(t)
	pager := &fakePager{loadErrs: []error{
		fmt.Errorf("%w: tab crashed", utils.ErrBrowserStartup),
	}}

	set, err := New(pager, &fakeSource{}, nil, cfg, discardEntry()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrBrowserStartup)
	require.NotNil(t, set)
	assert.Equal(t, 1, set.Searches)
	require.Len(t, pager.loads, 1)
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	held := flock.New(filepath.Join(cfg.StateDir, lockFileName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = New(&fakePager{}, &fakeSource{}, nil, cfg, discardEntry()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrInstanceLocked)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := New(&fakePager{}, &fakeSource{}, nil, testConfig(t), discardEntry()).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, set)
	assert.Empty(t, set.Leads)
}

func TestRunPersistsToStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.MaxPagesPer = 1
	cfg.Search.Keywords = nil
	store := newFakeStore()

	earlier := time.Now().Add(-48 * time.Hour)
	_, err := store.UpsertLead("https://www.linkedin.com/in/jane-doe", &models.LeadDBEntry{
		Name:      "Jane Doe",
		FitScore:  70,
		Status:    models.LeadStatusContacted,
		FirstSeen: earlier,
	})
	require.NoError(t, err)

	src := &fakeSource{batches: [][]models.RawProfile{
		{profile("jane-doe", "CEO"), profile("bob-smith", "Director")},
	}}
	_, err = New(&fakePager{}, src, store, cfg, discardEntry()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, store.entries, 2)
	jane := store.entries["https://www.linkedin.com/in/jane-doe"]
	require.NotNil(t, jane)
	// existing lifecycle state and first-seen survive the refresh
	assert.Equal(t, models.LeadStatusContacted, jane.Status)
	assert.True(t, jane.FirstSeen.Equal(earlier))
	assert.Greater(t, jane.FitScore, 70)

	bob := store.entries["https://www.linkedin.com/in/bob-smith"]
	require.NotNil(t, bob)
	assert.Equal(t, models.LeadStatusNew, bob.Status)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "leads.csv")
	leads := []models.ScoredLead{
		{Name: "Jane Doe", Headline: "CEO", Location: "London, UK", ProfileURL: "https://www.linkedin.com/in/jane-doe", FitScore: 90, Notes: "HIGH"},
		{Name: "Bob Smith", Headline: "Director", Location: "Leeds, UK", ProfileURL: "https://www.linkedin.com/in/bob-smith", FitScore: 70, Notes: "GOOD"},
	}
	require.NoError(t, WriteCSV(path, leads))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"1", "Jane Doe", "CEO", "London, UK", "https://www.linkedin.com/in/jane-doe", "90", "HIGH"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
}

func TestWriteOutput(t *testing.T) {
	cfg := testConfig(t)
	r := New(&fakePager{}, &fakeSource{}, nil, cfg, discardEntry())
	set := &models.LeadSet{CampaignID: "abc-123", Leads: []models.ScoredLead{
		{Name: "Jane Doe", ProfileURL: "https://www.linkedin.com/in/jane-doe", FitScore: 90},
	}}

	path, err := r.WriteOutput(set)
	require.NoError(t, err)
	assert.Equal(t, LeadsCSVPath(cfg.OutputDir, "abc-123"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)
}
