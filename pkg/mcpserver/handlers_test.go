package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
)

type fakeReader struct {
	entries []models.LeadDBEntry
	err     error
}

func (r *fakeReader) CheckLead(url string) (models.LeadStatus, *models.LeadDBEntry, error) {
	return models.LeadStatusNotFound, nil, nil
}

func (r *fakeReader) ListLeads(ctx context.Context) ([]models.LeadDBEntry, error) {
	return r.entries, r.err
}

func (r *fakeReader) LeadCount() (int, error) { return len(r.entries), nil }

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T, launch CampaignFunc, store *fakeReader) *Server {
	t.Helper()
	cfg := &ServerConfig{
		AppConfig: &config.AppConfig{},
		Transport: "stdio",
		Logger:    silentLogger(),
		Launch:    launch,
	}
	if store != nil {
		cfg.Store = store
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestRunCampaignLifecycle(t *testing.T) {
	done := make(chan struct{})
	launch := func(ctx context.Context) (*models.LeadSet, string, error) {
		defer close(done)
		return &models.LeadSet{
			Searches: 3,
			Pages:    7,
			Leads:    []models.ScoredLead{{Name: "Jane Doe", ProfileURL: "https://www.linkedin.com/in/jane-doe"}},
		}, "/tmp/leads.csv", nil
	}
	s := newTestServer(t, launch, nil)

	res, err := s.handleRunCampaign(context.Background(), callRequest(nil))
	require.NoError(t, err)
	started := resultJSON(t, res)
	assert.Equal(t, "started", started["status"])
	jobID := started["job_id"].(string)

	<-done
	require.Eventually(t, func() bool {
		job := s.jobManager.GetJob(jobID)
		return job != nil && job.Status == JobStatusCompleted
	}, time.Second, 5*time.Millisecond)

	res, err = s.handleCampaignStatus(context.Background(), callRequest(map[string]any{"job_id": jobID}))
	require.NoError(t, err)
	status := resultJSON(t, res)
	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, float64(3), status["searches"])
	assert.Equal(t, float64(7), status["pages"])
	assert.Equal(t, float64(1), status["lead_count"])
	assert.Equal(t, "/tmp/leads.csv", status["csv_path"])
}

func TestRunCampaignFailureRecorded(t *testing.T) {
	done := make(chan struct{})
	launch := func(ctx context.Context) (*models.LeadSet, string, error) {
		defer close(done)
		return &models.LeadSet{Searches: 1}, "", errors.New("browser crashed")
	}
	s := newTestServer(t, launch, nil)

	res, err := s.handleRunCampaign(context.Background(), callRequest(nil))
	require.NoError(t, err)
	jobID := resultJSON(t, res)["job_id"].(string)

	<-done
	require.Eventually(t, func() bool {
		job := s.jobManager.GetJob(jobID)
		return job != nil && job.Status == JobStatusFailed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "browser crashed", s.jobManager.GetJob(jobID).ErrorMessage)
}

func TestRunCampaignSingleInstance(t *testing.T) {
	release := make(chan struct{})
	launch := func(ctx context.Context) (*models.LeadSet, string, error) {
		<-release
		return &models.LeadSet{}, "", nil
	}
	s := newTestServer(t, launch, nil)

	res, err := s.handleRunCampaign(context.Background(), callRequest(nil))
	require.NoError(t, err)
	first := resultJSON(t, res)
	assert.Equal(t, "started", first["status"])

	res, err = s.handleRunCampaign(context.Background(), callRequest(nil))
	require.NoError(t, err)
	second := resultJSON(t, res)
	assert.Equal(t, "already_running", second["status"])

	close(release)
}

func TestCampaignStatusUnknownJob(t *testing.T) {
	s := newTestServer(t, func(ctx context.Context) (*models.LeadSet, string, error) {
		return &models.LeadSet{}, "", nil
	}, nil)

	res, err := s.handleCampaignStatus(context.Background(), callRequest(map[string]any{"job_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListLeadsFilters(t *testing.T) {
	store := &fakeReader{entries: []models.LeadDBEntry{
		{Name: "Jane Doe", FitScore: 90, Status: models.LeadStatusNew, Source: "linkedin"},
		{Name: "Bob Smith", FitScore: 70, Status: models.LeadStatusContacted, Source: "linkedin"},
		{Name: "Kim West", FitScore: 50, Status: models.LeadStatusNew, Source: "reddit"},
	}}
	s := newTestServer(t, func(ctx context.Context) (*models.LeadSet, string, error) {
		return &models.LeadSet{}, "", nil
	}, store)

	res, err := s.handleListLeads(context.Background(), callRequest(map[string]any{
		"min_score": 60,
		"status":    "new",
	}))
	require.NoError(t, err)
	out := resultJSON(t, res)
	leads := out["leads"].([]any)
	require.Len(t, leads, 1)
	assert.Equal(t, "Jane Doe", leads[0].(map[string]any)["name"])
}

func TestListLeadsInvalidStatus(t *testing.T) {
	s := newTestServer(t, func(ctx context.Context) (*models.LeadSet, string, error) {
		return &models.LeadSet{}, "", nil
	}, &fakeReader{})

	res, err := s.handleListLeads(context.Background(), callRequest(map[string]any{"status": "bogus"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListLeadsNoStore(t *testing.T) {
	s := newTestServer(t, func(ctx context.Context) (*models.LeadSet, string, error) {
		return &models.LeadSet{}, "", nil
	}, nil)

	res, err := s.handleListLeads(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
