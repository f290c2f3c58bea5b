package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/artifacts"
	"leadgen-scraper/pkg/auth"
	"leadgen-scraper/pkg/browser"
	"leadgen-scraper/pkg/campaign"
	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/extract"
	"leadgen-scraper/pkg/log"
	"leadgen-scraper/pkg/mcpserver"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/navigate"
	"leadgen-scraper/pkg/outreach"
	"leadgen-scraper/pkg/reddit"
	"leadgen-scraper/pkg/report"
	"leadgen-scraper/pkg/score"
	"leadgen-scraper/pkg/storage"
	"leadgen-scraper/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "campaign":
		runCampaign(os.Args[2:])
	case "rescore":
		runRescore(os.Args[2:])
	case "messages":
		runMessages(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "reddit":
		runReddit(os.Args[2:])
	case "validate":
		os.Exit(doValidate(os.Args[2:], os.Stdout, os.Stderr))
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("leadgen %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `leadgen - Coaching lead generation toolkit

Usage:
  leadgen <command> [options]

Commands:
  campaign    Run a full lead-generation campaign
  rescore     Re-score stored leads with engagement signals
  messages    Draft outreach messages for stored leads
  report      Email a summary report of stored leads
  reddit      Discover leads in discussion listings
  validate    Validate configuration file
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'leadgen <command> -h' for command-specific help.`)
}

// setup loads and validates the config, then builds the root logger.
// Validation warnings are logged, never fatal.
func setup(configPath, logLevel string) (*config.AppConfig, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	logger := log.Setup(logLevel, cfg.LogFormat)
	for _, w := range warnings {
		logger.Warn(w)
	}
	return cfg, logger, nil
}

func fatal(logger *logrus.Logger, err error) {
	if logger != nil {
		logger.WithField("error_category", utils.CategorizeError(err)).Errorf("%v", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openStore(cfg *config.AppConfig, entry *logrus.Entry) (*storage.BadgerStore, error) {
	return storage.NewBadgerStore(cfg.StateDir, entry.WithField("component", "storage"))
}

// runCampaign handles the campaign subcommand
func runCampaign(args []string) {
	fs := flag.NewFlagSet("campaign", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override (debug, info, warn, error)")
	noStore := fs.Bool("no-store", false, "Skip persisting leads to the lead database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen campaign [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, logger, err := setup(*configFile, *logLevel)
	if err != nil {
		fatal(logger, err)
	}

	ctx, stop := signalContext()
	defer stop()

	var store *storage.BadgerStore
	if !*noStore {
		store, err = openStore(cfg, logger.WithField("component", "campaign"))
		if err != nil {
			fatal(logger, err)
		}
		defer store.Close()
		go store.RunGC(ctx, 5*time.Minute)
	}

	set, csvPath, err := executeCampaign(ctx, cfg, logger, leadStoreOrNil(store))
	if set != nil && len(set.Leads) > 0 {
		fmt.Printf("Collected %d unique leads across %d searches (%d pages).\n",
			len(set.Leads), set.Searches, set.Pages)
		if csvPath != "" {
			fmt.Printf("Leads written to %s\n", csvPath)
		}
	}
	if err != nil {
		fatal(logger, err)
	}
}

// executeCampaign wires the browser stack together and runs one campaign.
// Shared by the campaign subcommand and the MCP run_campaign tool. The
// caller owns the store; badger holds an exclusive directory lock, so a
// long-lived process must hand its open store in rather than reopen it.
// A nil store disables persistence.
func executeCampaign(ctx context.Context, cfg *config.AppConfig, logger *logrus.Logger, store storage.LeadStore) (*models.LeadSet, string, error) {
	entry := logger.WithField("component", "campaign")
	creds := config.LoadCredentials(entry)
	if err := creds.RequireLinkedIn(); err != nil {
		return nil, "", err
	}

	art, err := artifacts.NewWriter(cfg.DebugDir, logger.WithField("component", "artifacts"))
	if err != nil {
		return nil, "", err
	}

	session, err := browser.OpenSession(cfg.Browser, logger.WithField("component", "browser"))
	if err != nil {
		return nil, "", err
	}
	defer session.Close()

	authenticator := auth.New(session, cfg, art, nil, logger.WithField("component", "auth"))
	nav := navigate.New(session, authenticator, creds, cfg.Delays, art, logger.WithField("component", "navigate"))
	ext := extract.New(session, logger.WithField("component", "extract"))

	runner := campaign.New(nav, ext, store, cfg, entry)
	set, runErr := runner.Run(ctx)

	csvPath := ""
	if set != nil && len(set.Leads) > 0 {
		path, werr := runner.WriteOutput(set)
		if werr != nil {
			entry.Errorf("Failed to write campaign CSV: %v", werr)
		} else {
			csvPath = path
		}
	}
	return set, csvPath, runErr
}

// leadStoreOrNil avoids handing the runner a typed nil inside an interface.
func leadStoreOrNil(store *storage.BadgerStore) storage.LeadStore {
	if store == nil {
		return nil
	}
	return store
}

// runRescore handles the rescore subcommand
func runRescore(args []string) {
	fs := flag.NewFlagSet("rescore", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override")
	threshold := fs.Float64("threshold", 0.5, "Qualification threshold for the blended score")
	apply := fs.Bool("apply", false, "Mark qualifying leads as qualified in the lead database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen rescore [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, logger, err := setup(*configFile, *logLevel)
	if err != nil {
		fatal(logger, err)
	}
	entry := logger.WithField("component", "rescore")

	store, err := openStore(cfg, entry)
	if err != nil {
		fatal(logger, err)
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	entries, err := store.ListLeads(ctx)
	if err != nil {
		fatal(logger, err)
	}

	leads := make([]score.EngagementLead, 0, len(entries))
	for _, e := range entries {
		leads = append(leads, score.Signals(e))
	}
	rescored := score.Rescore(leads, *threshold)

	qualified := 0
	for _, lead := range rescored {
		mark := " "
		if lead.Qualified {
			mark = "*"
			qualified++
		}
		fmt.Printf("%s %-30s fit=%3d engagement=%.2f response=%.2f final=%.2f\n",
			mark, lead.Name, lead.FitScore, lead.EngagementScore, lead.ResponseLikelihood, lead.FinalScore)

		if *apply && lead.Qualified && lead.Status != models.LeadStatusQualified {
			if err := store.UpdateLeadStatus(lead.ProfileURL, models.LeadStatusQualified); err != nil {
				entry.Warnf("Could not mark %s qualified: %v", lead.Name, err)
			}
		}
	}
	fmt.Printf("\n%d of %d leads qualified at threshold %.2f\n", qualified, len(rescored), *threshold)
}

// runMessages handles the messages subcommand
func runMessages(args []string) {
	fs := flag.NewFlagSet("messages", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override")
	minScore := fs.Int("min-score", 60, "Minimum fit score for a lead to get a draft")
	maxLeads := fs.Int("max", 5, "Maximum number of drafts to generate")
	markContacted := fs.Bool("mark-contacted", false, "Mark drafted leads as contacted in the lead database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen messages [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, logger, err := setup(*configFile, *logLevel)
	if err != nil {
		fatal(logger, err)
	}
	entry := logger.WithField("component", "outreach")
	creds := config.LoadCredentials(entry)

	writer, err := outreach.NewOpenAI(creds, cfg.Outreach, entry)
	if err != nil {
		fatal(logger, err)
	}

	store, err := openStore(cfg, entry)
	if err != nil {
		fatal(logger, err)
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	entries, err := store.ListLeads(ctx)
	if err != nil {
		fatal(logger, err)
	}

	messagesDir := filepath.Join(cfg.OutputDir, "messages")
	if err := os.MkdirAll(messagesDir, 0o755); err != nil {
		fatal(logger, err)
	}

	drafted := 0
	for _, lead := range entries {
		if drafted >= *maxLeads {
			break
		}
		if lead.FitScore < *minScore || lead.Status != models.LeadStatusNew {
			continue
		}

		message, err := writer.Draft(ctx, lead)
		if err != nil {
			if utils.IsSessionFatal(err) {
				fatal(logger, err)
			}
			entry.WithField("error_category", utils.CategorizeError(err)).
				Warnf("Skipping draft for %s: %v", lead.Name, err)
			continue
		}

		path := filepath.Join(messagesDir, utils.SanitizeFilename(lead.Name)+".txt")
		if err := os.WriteFile(path, []byte(message), 0o644); err != nil {
			fatal(logger, utils.WrapErrorf(utils.ErrFilesystem, "writing draft %s: %v", path, err))
		}
		drafted++
		fmt.Printf("Drafted message for %s -> %s\n", lead.Name, path)

		if *markContacted {
			if err := store.UpdateLeadStatus(lead.ProfileURL, models.LeadStatusContacted); err != nil {
				entry.Warnf("Could not mark %s contacted: %v", lead.Name, err)
			}
		}
	}
	fmt.Printf("\n%d drafts written to %s\n", drafted, messagesDir)
}

// runReport handles the report subcommand
func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override")
	dryRun := fs.Bool("dry-run", false, "Print the markdown report instead of emailing it")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen report [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, logger, err := setup(*configFile, *logLevel)
	if err != nil {
		fatal(logger, err)
	}
	entry := logger.WithField("component", "report")

	store, err := openStore(cfg, entry)
	if err != nil {
		fatal(logger, err)
	}
	defer store.Close()

	ctx, stop := signalContext()
	defer stop()

	entries, err := store.ListLeads(ctx)
	if err != nil {
		fatal(logger, err)
	}

	// the report covers the whole lead database, not a single campaign
	set := &models.LeadSet{
		CampaignID: "lead-database",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}
	for _, e := range entries {
		set.Leads = append(set.Leads, models.ScoredLead{
			Name:       e.Name,
			Headline:   e.Headline,
			Location:   e.Location,
			ProfileURL: e.ProfileURL,
			FitScore:   e.FitScore,
			Notes:      e.Notes,
		})
	}

	markdown := report.BuildMarkdown(set, cfg.Report)
	if *dryRun {
		fmt.Print(markdown)
		return
	}

	html, err := report.RenderHTML(markdown)
	if err != nil {
		fatal(logger, err)
	}
	creds := config.LoadCredentials(entry)
	mailer := report.NewMailer(creds, cfg.Report, entry)
	if err := mailer.Send(cfg.Report.Subject, html); err != nil {
		fatal(logger, err)
	}
	fmt.Println("Report sent.")
}

// runReddit handles the reddit subcommand
func runReddit(args []string) {
	fs := flag.NewFlagSet("reddit", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override")
	noStore := fs.Bool("no-store", false, "Skip persisting leads to the lead database")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen reddit [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, logger, err := setup(*configFile, *logLevel)
	if err != nil {
		fatal(logger, err)
	}
	entry := logger.WithField("component", "reddit")

	ctx, stop := signalContext()
	defer stop()

	client := reddit.NewClient(cfg.HTTP, logger)
	scraper := reddit.NewScraper(client, "", cfg.Reddit, entry)

	posts, err := scraper.FindPosts(ctx)
	if err != nil {
		fatal(logger, err)
	}
	leads := scraper.Leads(posts)

	csvPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("reddit_leads_%s.csv", time.Now().Format("2006-01-02")))
	if err := campaign.WriteCSV(csvPath, leads); err != nil {
		fatal(logger, err)
	}
	fmt.Printf("Found %d discussion leads, written to %s\n", len(leads), csvPath)

	if *noStore {
		return
	}
	store, err := openStore(cfg, entry)
	if err != nil {
		fatal(logger, err)
	}
	defer store.Close()

	now := time.Now()
	for _, lead := range leads {
		key := models.CanonicalProfileURL(lead.ProfileURL)
		dbEntry := &models.LeadDBEntry{
			Name:       lead.Name,
			ProfileURL: key,
			Headline:   lead.Headline,
			Location:   lead.Location,
			FitScore:   lead.FitScore,
			Notes:      lead.Notes,
			Status:     models.LeadStatusNew,
			Source:     "reddit",
			FirstSeen:  now,
			LastSeen:   now,
		}
		if status, existing, cerr := store.CheckLead(key); cerr == nil && existing != nil && status != models.LeadStatusNotFound {
			dbEntry.Status = existing.Status
			dbEntry.FirstSeen = existing.FirstSeen
			dbEntry.ContactedAt = existing.ContactedAt
		}
		if _, err := store.UpsertLead(key, dbEntry); err != nil {
			entry.Warnf("Failed to persist lead %s: %v", key, err)
		}
	}
}

// doValidate performs validation and writes output to the provided writers.
// Returns an exit code (0 = success, 1 = error).
func doValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	warnings, err := cfg.Validate()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	fmt.Fprintln(stdout, "Configuration valid.")
	return 0
}

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override")
	transport := fs.String("transport", "stdio", "Transport: stdio or sse")
	port := fs.Int("port", 8400, "Port for SSE transport")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: leadgen mcp-server [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, logger, err := setup(*configFile, *logLevel)
	if err != nil {
		fatal(logger, err)
	}
	if *transport == "stdio" {
		// stdout carries the protocol; logs must not pollute it
		logger.SetOutput(os.Stderr)
	}
	entry := logger.WithField("component", "mcp")

	store, err := openStore(cfg, entry)
	if err != nil {
		fatal(logger, err)
	}
	defer store.Close()

	gcCtx, stopGC := signalContext()
	defer stopGC()
	go store.RunGC(gcCtx, 5*time.Minute)

	srv, err := mcpserver.NewServer(&mcpserver.ServerConfig{
		AppConfig:  cfg,
		ConfigPath: *configFile,
		Transport:  *transport,
		Port:       *port,
		Logger:     logger,
		Store:      store,
		Launch: func(ctx context.Context) (*models.LeadSet, string, error) {
			return executeCampaign(ctx, cfg, logger, store)
		},
	})
	if err != nil {
		fatal(logger, err)
	}

	if err := srv.Run(); err != nil {
		fatal(logger, err)
	}
}
