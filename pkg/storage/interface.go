package storage

import (
	"context"
	"time"

	"leadgen-scraper/pkg/models"
)

// LeadReader provides read access to the lead database
type LeadReader interface {
	// CheckLead retrieves the status and details of a lead by canonical profile URL
	// Returns status (a lifecycle value, LeadStatusNotFound, or LeadStatusDBError),
	// the LeadDBEntry if found and parsed, and any error
	CheckLead(canonicalURL string) (status models.LeadStatus, entry *models.LeadDBEntry, err error)

	// ListLeads returns all stored leads ordered by descending fit score
	ListLeads(ctx context.Context) ([]models.LeadDBEntry, error)

	// LeadCount returns an approximate count of leads in the store
	LeadCount() (int, error)
}

// LeadWriter provides write access to the lead database
type LeadWriter interface {
	// UpsertLead writes the entry for a canonical profile URL
	// Returns true if the lead was newly added, false if it already existed
	UpsertLead(canonicalURL string, entry *models.LeadDBEntry) (added bool, err error)

	// UpdateLeadStatus transitions the lifecycle status of an existing lead
	UpdateLeadStatus(canonicalURL string, status models.LeadStatus) error
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// LeadStore combines all store interfaces for components that need full access
type LeadStore interface {
	LeadReader
	LeadWriter
	StoreAdmin
}
