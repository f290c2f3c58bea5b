package campaign

import (
	"sort"

	"leadgen-scraper/pkg/config"
	"leadgen-scraper/pkg/models"
)

// dedupSet accumulates scored leads keyed by canonical profile URL.
// URL variants that differ only in tracking query strings collapse to a
// single lead, with the configured policy deciding which record wins.
type dedupSet struct {
	policy config.DedupPolicy
	index  map[string]int
	leads  []models.ScoredLead
}

func newDedupSet(policy config.DedupPolicy) *dedupSet {
	return &dedupSet{
		policy: policy,
		index:  make(map[string]int),
	}
}

// Add inserts a lead and reports whether it was new. Leads without a
// profile URL are rejected outright.
func (d *dedupSet) Add(lead models.ScoredLead) bool {
	if lead.ProfileURL == "" {
		return false
	}
	key := models.CanonicalProfileURL(lead.ProfileURL)

	if i, seen := d.index[key]; seen {
		if d.policy == config.DedupHighestScore && lead.FitScore > d.leads[i].FitScore {
			d.leads[i] = lead
		}
		return false
	}
	d.index[key] = len(d.leads)
	d.leads = append(d.leads, lead)
	return true
}

func (d *dedupSet) Len() int {
	return len(d.leads)
}

// Sorted returns the accumulated leads in non-increasing fit score order.
// The sort is stable, so equal scores keep discovery order.
func (d *dedupSet) Sorted() []models.ScoredLead {
	out := make([]models.ScoredLead, len(d.leads))
	copy(out, d.leads)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FitScore > out[j].FitScore
	})
	return out
}
