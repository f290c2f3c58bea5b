package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"leadgen-scraper/pkg/utils"
)

// DedupPolicy names the strategy used when the same profile URL is seen twice
// during a campaign.
type DedupPolicy string

const (
	// DedupFirstSeen keeps the first record encountered (extraction order).
	DedupFirstSeen DedupPolicy = "first_seen"
	// DedupHighestScore keeps the record with the higher fit score.
	DedupHighestScore DedupPolicy = "highest_score"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	OutputDir string `yaml:"output_dir"`           // CSV exports and reports
	StateDir  string `yaml:"state_dir"`            // lead database and lock file
	DebugDir  string `yaml:"debug_dir,omitempty"`  // page snapshots and screenshots
	LogLevel  string `yaml:"log_level,omitempty"`  // trace|debug|info|warn|error
	LogFormat string `yaml:"log_format,omitempty"` // text|json

	Browser  BrowserConfig    `yaml:"browser,omitempty"`
	Search   SearchConfig     `yaml:"search,omitempty"`
	Delays   DelayConfig      `yaml:"delays,omitempty"`
	Outreach OutreachConfig   `yaml:"outreach,omitempty"`
	Report   ReportConfig     `yaml:"report,omitempty"`
	Reddit   RedditConfig     `yaml:"reddit,omitempty"`
	HTTP     HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// BrowserConfig holds browser session settings
type BrowserConfig struct {
	Headless        bool          `yaml:"headless,omitempty"`
	ExecutablePath  string        `yaml:"executable_path,omitempty"` // explicit override; candidates searched otherwise
	UserAgent       string        `yaml:"user_agent,omitempty"`      // explicit override; random pool entry otherwise
	WindowWidth     int           `yaml:"window_width,omitempty"`
	WindowHeight    int           `yaml:"window_height,omitempty"`
	PageLoadTimeout time.Duration `yaml:"page_load_timeout,omitempty"`
	ElementTimeout  time.Duration `yaml:"element_timeout,omitempty"` // bounded wait for required elements
}

// SearchConfig drives campaign planning
type SearchConfig struct {
	Industries      []string    `yaml:"industries,omitempty"`
	Roles           []string    `yaml:"roles,omitempty"`
	Keywords        []string    `yaml:"keywords,omitempty"`
	MaxIndustries   int         `yaml:"max_industries,omitempty"`    // first N industries used in the cross-product phase
	MaxRoles        int         `yaml:"max_roles,omitempty"`         // first N roles used in the cross-product phase
	MaxPagesPer     int         `yaml:"max_pages_per_search,omitempty"`
	TargetLeadCount int         `yaml:"target_lead_count,omitempty"` // campaign stops once this many unique leads exist
	DedupPolicy     DedupPolicy `yaml:"dedup_policy,omitempty"`
}

// DelayConfig holds human-pacing delays between browser actions
type DelayConfig struct {
	SearchMin         time.Duration `yaml:"search_min,omitempty"` // randomized floor between searches
	SearchMax         time.Duration `yaml:"search_max,omitempty"`
	PageSettle        time.Duration `yaml:"page_settle,omitempty"`        // after navigation
	ScrollSettle      time.Duration `yaml:"scroll_settle,omitempty"`      // after each scroll step
	PaginationSettle  time.Duration `yaml:"pagination_settle,omitempty"`  // after a next-page click
	TypingMin         time.Duration `yaml:"typing_min,omitempty"`         // per-character keystroke floor
	TypingMax         time.Duration `yaml:"typing_max,omitempty"`
	SearchesPerMinute float64       `yaml:"searches_per_minute,omitempty"` // hard rate floor on top of randomized delays
}

// OutreachConfig holds LLM message-generation settings
type OutreachConfig struct {
	Model             string        `yaml:"model,omitempty"`
	Temperature       float64       `yaml:"temperature,omitempty"`
	MaxTokens         int           `yaml:"max_tokens,omitempty"`
	PromptTokenBudget int           `yaml:"prompt_token_budget,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"` // 0 = default (3), -1 = never retry
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay,omitempty"`
	SenderName        string        `yaml:"sender_name,omitempty"`
	SenderBusiness    string        `yaml:"sender_business,omitempty"`
}

// ReportConfig holds email report settings
type ReportConfig struct {
	SMTPHost   string   `yaml:"smtp_host,omitempty"`
	SMTPPort   int      `yaml:"smtp_port,omitempty"`
	Recipients []string `yaml:"recipients,omitempty"`
	Subject    string   `yaml:"subject,omitempty"`
	TopLeads   int      `yaml:"top_leads,omitempty"` // rows in the top-leads table
}

// RedditConfig holds the discussion-listing lead source settings
type RedditConfig struct {
	Subreddits      []string      `yaml:"subreddits,omitempty"`
	Keywords        []string      `yaml:"keywords,omitempty"`
	TimeFilter      string        `yaml:"time_filter,omitempty"` // hour|day|week|month|year|all
	PostLimit       int           `yaml:"post_limit,omitempty"`
	MinEngagement   int           `yaml:"min_engagement,omitempty"` // score+comments floor for a post to count
	UserAgent       string        `yaml:"user_agent,omitempty"`
	RequestInterval time.Duration `yaml:"request_interval,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// Load reads and parses the YAML config file. Validation is separate so the
// caller can surface warnings before applying defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config %s: %v", utils.ErrFilesystem, path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing YAML config %s: %v", utils.ErrConfigValidation, path, err)
	}
	return &cfg, nil
}
