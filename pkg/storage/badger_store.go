package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"leadgen-scraper/pkg/log"
	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

const (
	leadKeyPrefix = "lead:"    // Prefix for lead keys in DB (key = prefix + canonical profile URL)
	leadDBDir     = "leads_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the LeadStore interface using BadgerDB.
// Leads persist across campaigns so repeat runs recognize known profiles.
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) LeadCount
}

// NewBadgerStore initializes and returns a new BadgerStore under stateDir.
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	dbPath := filepath.Join(stateDir, leadDBDir)
	logger.Infof("Initializing lead database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %v", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only keep the latest lead state

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %v", utils.ErrDatabase, dbPath, err)
	}

	// Initialize key count from existing data
	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing leads: %v", err)
	} else {
		store.keyCount.Store(int64(count))
	}

	logger.Infof("Lead database initialized (%d known leads).", store.keyCount.Load())
	return store, nil
}

// countKeys performs a one-time full key scan (used only during initialization).
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// UpsertLead implements the LeadStore interface
func (s *BadgerStore) UpsertLead(canonicalURL string, entry *models.LeadDBEntry) (bool, error) {
	if s.db == nil {
		return false, errors.New("lead DB not initialized")
	}
	key := []byte(leadKeyPrefix + canonicalURL)

	entryBytes, errJson := json.Marshal(entry)
	if errJson != nil {
		wrappedErr := fmt.Errorf("%w: failed to marshal LeadDBEntry for key '%s': %w", utils.ErrParsing, string(key), errJson)
		s.log.Error(wrappedErr)
		return false, wrappedErr
	}

	isNew := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		}
		e := badger.NewEntry(key, entryBytes)
		return txn.SetEntry(e)
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in UpsertLead: %v", err)
		return false, fmt.Errorf("%w: failed upserting lead '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if isNew {
		s.keyCount.Add(1)
	}

	s.log.Debugf("Upserted lead '%s' (new: %v, score: %d)", string(key), isNew, entry.FitScore)
	return isNew, nil
}

// CheckLead implements the LeadStore interface
func (s *BadgerStore) CheckLead(canonicalURL string) (models.LeadStatus, *models.LeadDBEntry, error) {
	status := models.LeadStatusNotFound
	var entry *models.LeadDBEntry
	key := []byte(leadKeyPrefix + canonicalURL)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			status = models.LeadStatusNotFound
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting lead key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}

		return item.Value(func(val []byte) error {
			// Lead entries should never be empty if written correctly
			if len(val) == 0 {
				s.log.Warnf("Lead key '%s' found with empty value, invalid state. Treating as 'not_found'.", string(key))
				status = models.LeadStatusNotFound
				return nil
			}

			var decodedEntry models.LeadDBEntry
			if errJson := json.Unmarshal(val, &decodedEntry); errJson != nil {
				s.log.Warnf("Failed to unmarshal LeadDBEntry for key '%s': %v. Treating as 'not_found'.", string(key), errJson)
				status = models.LeadStatusNotFound
				return nil
			}

			entry = &decodedEntry
			status = decodedEntry.Status
			return nil
		})
	})

	if errView != nil {
		s.log.Errorf("DB View error in CheckLead for key '%s': %v", string(key), errView)
		return models.LeadStatusDBError, nil, errView
	}

	return status, entry, nil
}

// UpdateLeadStatus implements the LeadStore interface
func (s *BadgerStore) UpdateLeadStatus(canonicalURL string, status models.LeadStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid lead status '%s'", utils.ErrDatabase, status)
	}

	current, entry, err := s.CheckLead(canonicalURL)
	if err != nil {
		return err
	}
	if current == models.LeadStatusNotFound || entry == nil {
		return fmt.Errorf("%w: lead '%s' not found", utils.ErrDatabase, canonicalURL)
	}

	entry.Status = status
	if status == models.LeadStatusContacted {
		entry.ContactedAt = time.Now().UTC()
	}
	_, err = s.UpsertLead(canonicalURL, entry)
	return err
}

// ListLeads implements the LeadStore interface.
// Results are sorted by fit score descending, ties by first-seen ascending.
func (s *BadgerStore) ListLeads(ctx context.Context) ([]models.LeadDBEntry, error) {
	var leads []models.LeadDBEntry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(leadKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			key := string(it.Item().Key())
			errVal := it.Item().Value(func(val []byte) error {
				var entry models.LeadDBEntry
				if errJson := json.Unmarshal(val, &entry); errJson != nil {
					s.log.Warnf("ListLeads: skipping undecodable entry '%s': %v", key, errJson)
					return nil
				}
				if entry.ProfileURL == "" {
					entry.ProfileURL = strings.TrimPrefix(key, leadKeyPrefix)
				}
				leads = append(leads, entry)
				return nil
			})
			if errVal != nil {
				return errVal
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing leads: %w", utils.ErrDatabase, err)
	}

	sort.SliceStable(leads, func(i, j int) bool {
		if leads[i].FitScore != leads[j].FitScore {
			return leads[i].FitScore > leads[j].FitScore
		}
		return leads[i].FirstSeen.Before(leads[j].FirstSeen)
	})
	return leads, nil
}

// LeadCount implements the LeadStore interface.
// Returns the cached key count (O(1)) maintained by atomic increments on writes.
func (s *BadgerStore) LeadCount() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute // Default interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Debug("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for {
				// Run GC if log is at least 50% reclaimable space
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
			}

			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements the LeadStore interface
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	s.log.Info("Closing lead database...")
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing lead database: %v", utils.ErrDatabase, err)
	}
	return nil
}
