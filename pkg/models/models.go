package models

import (
	"strings"
	"time"
)

// RawProfile is a single person hit lifted from a search results page,
// before any enrichment. Fields other than ProfileURL may carry sentinel
// values when the markup did not expose them.
type RawProfile struct {
	Name       string
	Headline   string
	Location   string
	ProfileURL string
}

// ScoredLead is an enriched profile ready for persistence and export.
type ScoredLead struct {
	Name       string
	Headline   string
	Location   string
	ProfileURL string
	FitScore   int    // 0-100 coaching fit
	Notes      string // pipe-joined human-readable scoring rationale
}

// LeadSet is the aggregated outcome of one campaign run.
type LeadSet struct {
	CampaignID string
	StartedAt  time.Time
	FinishedAt time.Time
	Searches   int // search tasks attempted
	Pages      int // result pages processed
	Leads      []ScoredLead
}

// SearchTask is one planned search query within a campaign.
type SearchTask struct {
	Label string // human-readable, e.g. "Technology CEO"
	Query string // raw keyword string before URL encoding
	Kind  TaskKind
}

// TaskKind distinguishes the two planning phases of a campaign.
type TaskKind string

const (
	TaskIndustryRole TaskKind = "industry_role"
	TaskKeyword      TaskKind = "keyword"
)

// LeadDBEntry stores the cross-campaign state of a lead in the database,
// keyed by canonical profile URL.
type LeadDBEntry struct {
	Name        string     `json:"name"`
	ProfileURL  string     `json:"profile_url,omitempty"` // canonical; mirrors the store key
	Headline    string     `json:"headline,omitempty"`
	Location    string     `json:"location,omitempty"`
	FitScore    int        `json:"fit_score"`
	Notes       string     `json:"notes,omitempty"`
	Status      LeadStatus `json:"status"`
	Source      string     `json:"source"`      // "linkedin" or "reddit"
	CampaignID  string     `json:"campaign_id"` // campaign that first produced this lead
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
	ContactedAt time.Time  `json:"contacted_at,omitempty"`
}

// RedditPost is a discussion post pulled from the public listing API.
type RedditPost struct {
	Title       string
	Author      string
	Subreddit   string
	Permalink   string
	Score       int
	NumComments int
	CreatedUTC  time.Time
}

// CanonicalProfileURL strips the query string from a profile URL so that
// tracking-parameter variants of the same profile collapse to one key.
func CanonicalProfileURL(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
