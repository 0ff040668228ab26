package transport

import (
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/platform/phone"
)

// ToLeadResponse maps an enriched lead.
func ToLeadResponse(v domain.LeadView) LeadResponse {
	resp := LeadResponse{
		ID:           v.ID,
		DeskID:       v.DeskID,
		DeskName:     v.DeskName,
		AssignedTo:   v.AssignedTo,
		AssigneeName: v.AssigneeName,
		FirstName:    v.FirstName,
		LastName:     v.LastName,
		Email:        v.Email,
		Phone:        phone.NormalizeE164Ptr(v.Phone),
		Status:       v.Status,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
	if v.StateID != nil {
		ref := &StateRef{ID: *v.StateID, Label: v.Status}
		if v.StateLabel != nil && *v.StateLabel != "" {
			ref.Label = *v.StateLabel
		}
		if v.StateColor != nil {
			ref.Color = *v.StateColor
		}
		resp.State = ref
	}
	return resp
}

// ToHistoryResponse maps a history entry.
func ToHistoryResponse(v domain.HistoryView) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:            v.ID,
		OldStateID:    v.OldStateID,
		OldStateLabel: v.OldStateLabel,
		NewStateID:    v.NewStateID,
		NewStateLabel: v.NewStateLabel,
		ChangedBy:     v.ChangedBy,
		ChangedByName: v.ChangedByName,
		Reason:        v.Reason,
		ChangedAt:     v.ChangedAt,
	}
}
