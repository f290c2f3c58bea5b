// Package score assigns coaching-fit scores to extracted profiles. Scoring
// is deterministic: the same profile always produces the same score and
// notes, so campaign output is reproducible and diffable across runs.
package score

import (
	"fmt"
	"strings"

	"leadgen-scraper/pkg/models"
)

const (
	baseScore = 50
	maxScore  = 100

	coachingKeywordPoints = 5
	locationPoints        = 10

	highPotentialThreshold = 80
	goodMatchThreshold     = 60

	highPotentialNote = "HIGH POTENTIAL: Executive/leadership role ideal for Peak Transformation coaching"
	goodMatchNote     = "GOOD MATCH: Professional background aligns with Peak Transformation services"

	noteSeparator = " | "
)

// coachingKeywords signal an interest area Peak Transformation coaches on.
// Each distinct keyword found in the headline adds points.
var coachingKeywords = []string{
	"development", "growth", "transition", "leadership",
	"change", "transform", "burnout", "balance", "career",
}

type roleRule struct {
	keyword string
	points  int
}

// roleRules are substring matches against the lowercased headline. All
// matching rules add points; the first match supplies the decision-maker
// note. Overlapping matches ("vp" inside "vice president") count
// separately, which keeps the model a plain additive table.
var roleRules = []roleRule{
	{"ceo", 20},
	{"chief executive", 20},
	{"founder", 15},
	{"president", 15},
	{"director", 10},
	{"manager", 8},
	{"head", 8},
	{"vp", 10},
	{"vice president", 10},
	{"executive", 10},
	{"officer", 5},
	{"professional", 3},
	{"hr", 5},
	{"human resources", 5},
}

// targetLocations are Peak Transformation's service areas. Only the first
// match adds points, so "London, United Kingdom" is not counted twice.
var targetLocations = []string{
	"london", "uk", "united kingdom", "england",
	"manchester", "birmingham", "leeds", "bristol",
}

// Score rates a raw profile for coaching fit and produces explanatory
// notes. The score is clamped to [0, 100].
func Score(p models.RawProfile) models.ScoredLead {
	score := baseScore
	headline := strings.ToLower(p.Headline)
	location := strings.ToLower(p.Location)

	for _, kw := range coachingKeywords {
		if strings.Contains(headline, kw) {
			score += coachingKeywordPoints
		}
	}

	matchedRole := ""
	for _, rule := range roleRules {
		if strings.Contains(headline, rule.keyword) {
			score += rule.points
			if matchedRole == "" {
				matchedRole = rule.keyword
			}
		}
	}

	matchedLocation := false
	for _, target := range targetLocations {
		if strings.Contains(location, target) {
			score += locationPoints
			matchedLocation = true
			break
		}
	}

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}

	var notes []string
	if matchedRole != "" {
		notes = append(notes, fmt.Sprintf("%s is a %s - key decision maker", p.Name, strings.ToUpper(matchedRole)))
	} else {
		notes = append(notes, fmt.Sprintf("Role: %s", p.Headline))
	}
	if matchedLocation {
		notes = append(notes, fmt.Sprintf("Located in %s - within Peak Transformation's target area", p.Location))
	} else {
		notes = append(notes, fmt.Sprintf("Location: %s", p.Location))
	}
	if score >= highPotentialThreshold {
		notes = append(notes, highPotentialNote)
	} else if score >= goodMatchThreshold {
		notes = append(notes, goodMatchNote)
	}

	return models.ScoredLead{
		Name:       p.Name,
		Headline:   p.Headline,
		Location:   p.Location,
		ProfileURL: p.ProfileURL,
		FitScore:   score,
		Notes:      strings.Join(notes, noteSeparator),
	}
}

// ScoreAll scores a batch of profiles in order.
func ScoreAll(profiles []models.RawProfile) []models.ScoredLead {
	leads := make([]models.ScoredLead, 0, len(profiles))
	for _, p := range profiles {
		leads = append(leads, Score(p))
	}
	return leads
}
