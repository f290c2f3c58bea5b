package models

// LeadStatus represents the lifecycle state of a lead in the database
type LeadStatus string

const (
	LeadStatusUnset        LeadStatus = ""             // Zero value = unset/unknown
	LeadStatusNew          LeadStatus = "new"          // Lead discovered, no outreach yet
	LeadStatusContacted    LeadStatus = "contacted"    // Outreach message sent
	LeadStatusResponded    LeadStatus = "responded"    // Lead replied
	LeadStatusQualified    LeadStatus = "qualified"    // Passed the secondary scoring threshold
	LeadStatusDisqualified LeadStatus = "disqualified" // Ruled out
	LeadStatusNotFound     LeadStatus = "not_found"    // Lead not in database
	LeadStatusDBError      LeadStatus = "db_error"     // Database error occurred
)

// String implements fmt.Stringer for logging
func (s LeadStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the status is a known operational value
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusResponded,
		LeadStatusQualified, LeadStatusDisqualified:
		return true
	}
	return false
}
