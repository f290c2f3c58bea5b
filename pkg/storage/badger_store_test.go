package storage

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgen-scraper/pkg/models"
	"leadgen-scraper/pkg/utils"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := NewBadgerStore(t.TempDir(), logrus.NewEntry(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleEntry(name string, score int) *models.LeadDBEntry {
	now := time.Now().Truncate(time.Second).UTC()
	return &models.LeadDBEntry{
		Name:       name,
		Headline:   "CEO at Example Ltd",
		Location:   "London, UK",
		FitScore:   score,
		Status:     models.LeadStatusNew,
		Source:     "linkedin",
		CampaignID: "c-1",
		FirstSeen:  now,
		LastSeen:   now,
	}
}

func TestBadgerStore_UpsertAndCheck(t *testing.T) {
	store := newTestStore(t)
	url := "https://www.linkedin.com/in/jane-smith"

	added, err := store.UpsertLead(url, sampleEntry("Jane Smith", 85))
	require.NoError(t, err)
	assert.True(t, added)

	status, entry, err := store.CheckLead(url)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNew, status)
	require.NotNil(t, entry)
	assert.Equal(t, "Jane Smith", entry.Name)
	assert.Equal(t, 85, entry.FitScore)

	// Second upsert of the same key is not "new"
	added, err = store.UpsertLead(url, sampleEntry("Jane Smith", 90))
	require.NoError(t, err)
	assert.False(t, added)
}

func TestBadgerStore_SecondOpenOnSameDirFails(t *testing.T) {
	// Badger takes an exclusive directory lock. Long-lived processes must
	// share one open store; reopening the state dir is not an option.
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	dir := t.TempDir()

	first, err := NewBadgerStore(dir, logrus.NewEntry(logger))
	require.NoError(t, err)
	defer first.Close()

	second, err := NewBadgerStore(dir, logrus.NewEntry(logger))
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrDatabase)
	assert.Nil(t, second)
}

func TestBadgerStore_CheckLead_NotFound(t *testing.T) {
	store := newTestStore(t)

	status, entry, err := store.CheckLead("https://www.linkedin.com/in/nobody")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNotFound, status)
	assert.Nil(t, entry)
}

func TestBadgerStore_UpdateLeadStatus(t *testing.T) {
	store := newTestStore(t)
	url := "https://www.linkedin.com/in/jane-smith"

	_, err := store.UpsertLead(url, sampleEntry("Jane Smith", 85))
	require.NoError(t, err)

	require.NoError(t, store.UpdateLeadStatus(url, models.LeadStatusContacted))

	status, entry, err := store.CheckLead(url)
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, status)
	require.NotNil(t, entry)
	assert.False(t, entry.ContactedAt.IsZero())
}

func TestBadgerStore_UpdateLeadStatus_Unknown(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateLeadStatus("https://www.linkedin.com/in/nobody", models.LeadStatusContacted)
	assert.Error(t, err)

	// Invalid lifecycle values are rejected before hitting the DB
	err = store.UpdateLeadStatus("https://www.linkedin.com/in/nobody", models.LeadStatus("bogus"))
	assert.Error(t, err)
}

func TestBadgerStore_ListLeads_SortedByScore(t *testing.T) {
	store := newTestStore(t)

	_, err := store.UpsertLead("https://www.linkedin.com/in/a", sampleEntry("A", 60))
	require.NoError(t, err)
	_, err = store.UpsertLead("https://www.linkedin.com/in/b", sampleEntry("B", 95))
	require.NoError(t, err)
	_, err = store.UpsertLead("https://www.linkedin.com/in/c", sampleEntry("C", 80))
	require.NoError(t, err)

	leads, err := store.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 3)
	assert.Equal(t, "B", leads[0].Name)
	assert.Equal(t, "C", leads[1].Name)
	assert.Equal(t, "A", leads[2].Name)

	// entries written without a URL get it backfilled from the store key
	assert.Equal(t, "https://www.linkedin.com/in/b", leads[0].ProfileURL)
}

func TestBadgerStore_LeadCount(t *testing.T) {
	store := newTestStore(t)

	count, err := store.LeadCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = store.UpsertLead("https://www.linkedin.com/in/a", sampleEntry("A", 60))
	require.NoError(t, err)
	_, err = store.UpsertLead("https://www.linkedin.com/in/a", sampleEntry("A", 70))
	require.NoError(t, err)
	_, err = store.UpsertLead("https://www.linkedin.com/in/b", sampleEntry("B", 60))
	require.NoError(t, err)

	count, err = store.LeadCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBadgerStore_CloseIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
