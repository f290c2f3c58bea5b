package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadStatus_String(t *testing.T) {
	tests := []struct {
		status LeadStatus
		want   string
	}{
		{LeadStatusUnset, "unset"},
		{LeadStatusNew, "new"},
		{LeadStatusContacted, "contacted"},
		{LeadStatusResponded, "responded"},
		{LeadStatusQualified, "qualified"},
		{LeadStatusDisqualified, "disqualified"},
		{LeadStatusNotFound, "not_found"},
		{LeadStatusDBError, "db_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestLeadStatus_IsValid(t *testing.T) {
	tests := []struct {
		status LeadStatus
		want   bool
	}{
		{LeadStatusNew, true},
		{LeadStatusContacted, true},
		{LeadStatusResponded, true},
		{LeadStatusQualified, true},
		{LeadStatusDisqualified, true},
		{LeadStatusUnset, false},
		{LeadStatusNotFound, false},
		{LeadStatusDBError, false},
		{LeadStatus("arbitrary"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.IsValid(), "LeadStatus(%q).IsValid()", string(tt.status))
	}
}
