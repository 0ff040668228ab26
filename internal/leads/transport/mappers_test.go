package transport

import (
	"testing"

	"deskcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLeadResponseResolvesState(t *testing.T) {
	stateID := uuid.New()
	label := "Contacted by phone"
	color := "#F59E0B"
	raw := "06 12345678"
	v := domain.LeadView{
		Lead:       domain.Lead{ID: uuid.New(), Status: "contacted", Phone: &raw},
		StateID:    &stateID,
		StateLabel: &label,
		StateColor: &color,
	}

	resp := ToLeadResponse(v)
	require.NotNil(t, resp.State)
	assert.Equal(t, StateRef{ID: stateID, Label: label, Color: color}, *resp.State)
	assert.Equal(t, "contacted", resp.Status)
	assert.Equal(t, "+31612345678", *resp.Phone)
}

func TestToLeadResponseUnresolvedStatus(t *testing.T) {
	resp := ToLeadResponse(domain.LeadView{Lead: domain.Lead{ID: uuid.New(), Status: "Legacy Hot"}})

	assert.Nil(t, resp.State)
	assert.Nil(t, resp.Phone)
	assert.Equal(t, "Legacy Hot", resp.Status)
}

func TestToLeadResponseFallsBackToStatusLabel(t *testing.T) {
	stateID := uuid.New()
	empty := ""
	resp := ToLeadResponse(domain.LeadView{Lead: domain.Lead{Status: "New"}, StateID: &stateID, StateLabel: &empty})

	require.NotNil(t, resp.State)
	assert.Equal(t, "New", resp.State.Label)
}
