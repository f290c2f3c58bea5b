package config

import (
	"fmt"
	"time"
)

// Default search lists for the coaching niche. Used when the config file
// leaves the corresponding slices empty.
var (
	DefaultIndustries = []string{
		"Technology", "Finance", "Healthcare", "Education", "Consulting",
		"Media", "Marketing", "Entrepreneurship", "Human Resources",
	}
	DefaultRoles = []string{
		"CEO", "CTO", "CFO", "Director", "Manager", "Executive", "VP",
		"President", "Founder", "Owner", "Leader", "Head", "Professional",
	}
	DefaultKeywords = []string{
		"career transition", "professional development", "leadership development",
		"work life balance", "burnout", "career growth", "personal development",
		"executive coaching", "leadership coaching", "professional coaching",
		"business coaching", "transformation",
	}
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// OutputDir
	if c.OutputDir == "" {
		warnings = append(warnings, "output_dir is empty, defaulting to './leads'")
		c.OutputDir = "./leads"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './scraper_state'")
		c.StateDir = "./scraper_state"
	}

	// DebugDir
	if c.DebugDir == "" {
		c.DebugDir = "./debug"
	}

	warnings = append(warnings, c.validateBrowser()...)
	warnings = append(warnings, c.validateSearch()...)
	warnings = append(warnings, c.validateDelays()...)
	warnings = append(warnings, c.validateOutreach()...)
	warnings = append(warnings, c.validateReport()...)
	warnings = append(warnings, c.validateReddit()...)
	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

func (c *AppConfig) validateBrowser() (warnings []string) {
	b := &c.Browser
	if b.WindowWidth <= 0 {
		b.WindowWidth = 1920
	}
	if b.WindowHeight <= 0 {
		b.WindowHeight = 1080
	}
	if b.PageLoadTimeout <= 0 {
		b.PageLoadTimeout = 30 * time.Second
	}
	if b.ElementTimeout <= 0 {
		b.ElementTimeout = 10 * time.Second
	}
	return warnings
}

func (c *AppConfig) validateSearch() (warnings []string) {
	s := &c.Search
	if len(s.Industries) == 0 {
		s.Industries = append([]string(nil), DefaultIndustries...)
	}
	if len(s.Roles) == 0 {
		s.Roles = append([]string(nil), DefaultRoles...)
	}
	if len(s.Keywords) == 0 {
		s.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if s.MaxIndustries <= 0 || s.MaxIndustries > len(s.Industries) {
		s.MaxIndustries = min(3, len(s.Industries))
	}
	if s.MaxRoles <= 0 || s.MaxRoles > len(s.Roles) {
		s.MaxRoles = min(3, len(s.Roles))
	}
	if s.MaxPagesPer <= 0 {
		warnings = append(warnings, "max_pages_per_search should be > 0, defaulting to 3")
		s.MaxPagesPer = 3
	}
	if s.TargetLeadCount <= 0 {
		warnings = append(warnings, "target_lead_count should be > 0, defaulting to 50")
		s.TargetLeadCount = 50
	}
	switch s.DedupPolicy {
	case "":
		s.DedupPolicy = DedupFirstSeen
	case DedupFirstSeen, DedupHighestScore:
	default:
		warnings = append(warnings, fmt.Sprintf(
			"unknown dedup_policy '%s', using '%s'", s.DedupPolicy, DedupFirstSeen))
		s.DedupPolicy = DedupFirstSeen
	}
	return warnings
}

func (c *AppConfig) validateDelays() (warnings []string) {
	d := &c.Delays
	if d.SearchMin <= 0 {
		d.SearchMin = 5 * time.Second
	}
	if d.SearchMax <= 0 {
		d.SearchMax = 12 * time.Second
	}
	if d.SearchMax < d.SearchMin {
		warnings = append(warnings, fmt.Sprintf(
			"search_max (%v) < search_min (%v), using search_min for both", d.SearchMax, d.SearchMin))
		d.SearchMax = d.SearchMin
	}
	if d.PageSettle <= 0 {
		d.PageSettle = 3 * time.Second
	}
	if d.ScrollSettle <= 0 {
		d.ScrollSettle = 2 * time.Second
	}
	if d.PaginationSettle <= 0 {
		d.PaginationSettle = 5 * time.Second
	}
	if d.TypingMin <= 0 {
		d.TypingMin = 50 * time.Millisecond
	}
	if d.TypingMax <= d.TypingMin {
		d.TypingMax = 200 * time.Millisecond
	}
	if d.SearchesPerMinute <= 0 {
		d.SearchesPerMinute = 6
	}
	return warnings
}

func (c *AppConfig) validateOutreach() (warnings []string) {
	o := &c.Outreach
	if o.Model == "" {
		o.Model = "gpt-4o-mini"
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 300
	}
	if o.PromptTokenBudget <= 0 {
		o.PromptTokenBudget = 3000
	}
	// 0 means unset; -1 disables retries entirely.
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.InitialRetryDelay <= 0 {
		o.InitialRetryDelay = 2 * time.Second
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 30 * time.Second
	}
	if o.InitialRetryDelay > o.MaxRetryDelay {
		warnings = append(warnings, fmt.Sprintf(
			"outreach initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			o.InitialRetryDelay, o.MaxRetryDelay))
		o.InitialRetryDelay = o.MaxRetryDelay
	}
	return warnings
}

func (c *AppConfig) validateReport() (warnings []string) {
	r := &c.Report
	if r.SMTPHost == "" {
		r.SMTPHost = "smtp.gmail.com"
	}
	if r.SMTPPort <= 0 {
		r.SMTPPort = 587
	}
	if r.Subject == "" {
		r.Subject = "Coaching Lead Generation Report"
	}
	if r.TopLeads <= 0 {
		r.TopLeads = 10
	}
	return warnings
}

func (c *AppConfig) validateReddit() (warnings []string) {
	r := &c.Reddit
	if len(r.Subreddits) == 0 {
		r.Subreddits = []string{"careerguidance", "careeradvice", "leadership", "Entrepreneur", "managers"}
	}
	if len(r.Keywords) == 0 {
		r.Keywords = []string{"career change", "burnout", "leadership", "coaching"}
	}
	switch r.TimeFilter {
	case "":
		r.TimeFilter = "week"
	case "hour", "day", "week", "month", "year", "all":
	default:
		warnings = append(warnings, fmt.Sprintf(
			"unknown reddit time_filter '%s', using 'week'", r.TimeFilter))
		r.TimeFilter = "week"
	}
	if r.PostLimit <= 0 {
		r.PostLimit = 25
	}
	if r.MinEngagement < 0 {
		warnings = append(warnings, "reddit min_engagement cannot be negative, setting to 0")
		r.MinEngagement = 0
	}
	if r.UserAgent == "" {
		r.UserAgent = "leadgen-scraper/1.0 (coaching lead research)"
	}
	if r.RequestInterval <= 0 {
		r.RequestInterval = 2 * time.Second
	}
	return warnings
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTP
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
