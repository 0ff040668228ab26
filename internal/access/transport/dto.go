package transport

import "github.com/google/uuid"

// IdentityResponse describes the caller's resolved access.
type IdentityResponse struct {
	UserID      uuid.UUID   `json:"userId"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
	DeskIDs     []uuid.UUID `json:"deskIds"`
	LeadScope   string      `json:"leadScope"`
}
