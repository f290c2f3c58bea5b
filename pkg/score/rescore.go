package score

import "leadgen-scraper/pkg/models"

// EngagementLead is a stored lead annotated with post-contact signals and
// the blended re-score computed from them.
type EngagementLead struct {
	models.LeadDBEntry

	EngagementScore    float64 `json:"engagement_score"`
	ResponseLikelihood float64 `json:"response_likelihood"`
	FinalScore         float64 `json:"final_score"`
	Qualified          bool    `json:"qualified"`
}

// engagement/response blend weights
const (
	engagementWeight = 0.6
	responseWeight   = 0.4
)

// Rescore blends engagement and response likelihood into a final score in
// [0, 1] and marks leads at or above threshold as qualified. Input order is
// preserved.
func Rescore(leads []EngagementLead, threshold float64) []EngagementLead {
	out := make([]EngagementLead, 0, len(leads))
	for _, lead := range leads {
		lead.FinalScore = lead.EngagementScore*engagementWeight + lead.ResponseLikelihood*responseWeight
		lead.Qualified = lead.FinalScore >= threshold
		out = append(out, lead)
	}
	return out
}

// Signals derives re-scoring inputs from a stored lead. Engagement is the
// normalized fit score; response likelihood follows the lead's lifecycle
// status, with a reply counting far more than an unanswered message.
func Signals(entry models.LeadDBEntry) EngagementLead {
	lead := EngagementLead{
		LeadDBEntry:     entry,
		EngagementScore: float64(entry.FitScore) / float64(maxScore),
	}

	switch entry.Status {
	case models.LeadStatusQualified:
		lead.ResponseLikelihood = 1.0
	case models.LeadStatusResponded:
		lead.ResponseLikelihood = 0.8
	case models.LeadStatusContacted:
		lead.ResponseLikelihood = 0.4
	case models.LeadStatusNew:
		lead.ResponseLikelihood = 0.2
	default:
		lead.ResponseLikelihood = 0
	}
	return lead
}
