package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"leadgen-scraper/pkg/models"
)

// handleRunCampaign handles the run_campaign tool
func (s *Server) handleRunCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.browserSem.TryAcquire(1) {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A campaign is already in progress",
		}
		if active := s.jobManager.ActiveJob(); active != nil {
			result["job_id"] = active.ID
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	job := s.jobManager.CreateJob()
	go s.runCampaignJob(job)

	result := map[string]interface{}{
		"status":  "started",
		"message": "Campaign started successfully",
		"job_id":  job.ID,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runCampaignJob executes the campaign in the background, releasing the
// browser semaphore when done
func (s *Server) runCampaignJob(job *Job) {
	defer s.browserSem.Release(1)

	jobLog := s.log.WithField("job_id", job.ID)
	s.jobManager.UpdateStatus(job.ID, JobStatusRunning, "")
	jobLog.Info("Campaign job started")

	set, csvPath, err := s.cfg.Launch(s.jobManager.GetContext(job.ID))
	if set != nil {
		s.jobManager.UpdateResult(job.ID, set.Searches, set.Pages, len(set.Leads), csvPath)
	}
	if err != nil {
		// a cancelled job keeps its cancelled status
		if current := s.jobManager.GetJob(job.ID); current != nil && current.Status == JobStatusCancelled {
			jobLog.Info("Campaign job cancelled")
			return
		}
		s.jobManager.UpdateStatus(job.ID, JobStatusFailed, err.Error())
		jobLog.Errorf("Campaign job failed: %v", err)
		return
	}

	s.jobManager.UpdateStatus(job.ID, JobStatusCompleted, "")
	jobLog.WithField("leads", job.LeadCount).Info("Campaign job completed")
}

// handleCampaignStatus handles the campaign_status tool
func (s *Server) handleCampaignStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job := s.jobManager.GetJob(jobID)
	if job == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
		"searches":   job.Searches,
		"pages":      job.Pages,
		"lead_count": job.LeadCount,
	}
	if job.CSVPath != "" {
		result["csv_path"] = job.CSVPath
	}
	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleCancelCampaign handles the cancel_campaign tool
func (s *Server) handleCancelCampaign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	if !s.jobManager.CancelJob(jobID) {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' is not running", jobID)), nil
	}

	result := map[string]interface{}{
		"status": "cancelled",
		"job_id": jobID,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleListLeads handles the list_leads tool
func (s *Server) handleListLeads(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Store == nil {
		return mcp.NewToolResultError("lead store is not available"), nil
	}

	minScore := request.GetInt("min_score", 0)
	statusFilter := request.GetString("status", "")
	limit := request.GetInt("limit", 25)
	if limit <= 0 {
		limit = 25
	}
	if limit > 200 {
		limit = 200
	}
	if statusFilter != "" && !models.LeadStatus(statusFilter).IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status filter '%s'", statusFilter)), nil
	}

	entries, err := s.cfg.Store.ListLeads(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing leads: %v", err)), nil
	}

	leads := make([]map[string]interface{}, 0, limit)
	for _, entry := range entries {
		if entry.FitScore < minScore {
			continue
		}
		if statusFilter != "" && entry.Status != models.LeadStatus(statusFilter) {
			continue
		}
		leads = append(leads, map[string]interface{}{
			"name":        entry.Name,
			"profile_url": entry.ProfileURL,
			"headline":    entry.Headline,
			"location":    entry.Location,
			"fit_score":   entry.FitScore,
			"status":      entry.Status.String(),
			"source":      entry.Source,
			"notes":       entry.Notes,
		})
		if len(leads) >= limit {
			break
		}
	}

	result := map[string]interface{}{
		"leads":       leads,
		"total":       len(leads),
		"config_path": s.cfg.ConfigPath,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
