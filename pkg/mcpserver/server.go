// Package mcpserver exposes lead-generation operations over the Model
// Context Protocol so agent clients can launch campaigns, poll their
// progress, and query the lead store.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/storage"
)

const (
	serverName    = "leadgen-scraper"
	serverVersion = "1.0.0"
)

// CampaignFunc runs one full campaign under ctx and returns the lead set
// plus the path of the written CSV.
type CampaignFunc func(ctx context.Context) (*models.LeadSet, string, error)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Transport  string // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger
	Store      storage.LeadReader // may be nil; list_leads then reports an error
	Launch     CampaignFunc
}

// Server wraps the MCP server with lead-generation functionality
type Server struct {
	mcpServer  *server.MCPServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager

	// one live browser campaign at a time
	browserSem *semaphore.Weighted
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Launch == nil {
		return nil, fmt.Errorf("Launch function is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(),
		browserSem: semaphore.NewWeighted(1),
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	runCampaignTool := mcp.NewTool("run_campaign",
		mcp.WithDescription("Start a lead-generation campaign in the background. Returns immediately with a job ID. Only one campaign can hold the browser at a time."),
	)
	s.mcpServer.AddTool(runCampaignTool, s.handleRunCampaign)

	campaignStatusTool := mcp.NewTool("campaign_status",
		mcp.WithDescription("Get the status of a campaign job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by run_campaign"),
		),
	)
	s.mcpServer.AddTool(campaignStatusTool, s.handleCampaignStatus)

	cancelCampaignTool := mcp.NewTool("cancel_campaign",
		mcp.WithDescription("Cancel a running campaign job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID to cancel"),
		),
	)
	s.mcpServer.AddTool(cancelCampaignTool, s.handleCancelCampaign)

	listLeadsTool := mcp.NewTool("list_leads",
		mcp.WithDescription("List stored leads ordered by descending fit score"),
		mcp.WithNumber("min_score",
			mcp.Description("Only return leads with at least this fit score"),
		),
		mcp.WithString("status",
			mcp.Description("Only return leads in this lifecycle status (new, contacted, responded, qualified, disqualified)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of leads to return (default: 25, max: 200)"),
		),
	)
	s.mcpServer.AddTool(listLeadsTool, s.handleListLeads)

	s.log.Infof("Registered %d MCP tools", 4)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)
		return sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running jobs before the process exits
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	return nil
}
