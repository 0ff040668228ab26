// Package management serves lead reads: the access-filtered listing and the
// single enriched lead.
package management

import (
	"context"
	"strings"

	accessdomain "deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/ports"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/internal/leads/transport"
	"deskcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the management service.
type Repository interface {
	GetLeadView(ctx context.Context, id uuid.UUID) (domain.LeadView, error)
	ListLeads(ctx context.Context, params repository.ListParams) ([]domain.LeadView, int, error)
}

// Service handles lead read operations.
type Service struct {
	repo   Repository
	access ports.AccessChecker
}

// New creates a new lead management service.
func New(repo Repository, access ports.AccessChecker) *Service {
	return &Service{repo: repo, access: access}
}

// GetByID returns one lead if the caller may access it.
func (s *Service) GetByID(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) (transport.LeadResponse, error) {
	if id == nil || !s.access.CanAccessLead(ctx, id, leadID) {
		return transport.LeadResponse{}, apperr.Forbidden("you do not have access to this lead")
	}
	view, err := s.repo.GetLeadView(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(view), nil
}

// List retrieves a page of the leads visible to the caller.
func (s *Service) List(ctx context.Context, id *accessdomain.Identity, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	params := repository.ListParams{
		Filter: s.access.LeadsFilter(id),
		Status: strings.TrimSpace(req.Status),
		Search: strings.TrimSpace(req.Search),
		Offset: (req.Page - 1) * req.PageSize,
		Limit:  req.PageSize,
	}
	if req.DeskID != "" {
		deskID, err := uuid.Parse(req.DeskID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid desk id")
		}
		params.DeskID = &deskID
	}

	items := make([]transport.LeadResponse, 0)
	total := 0
	if params.Filter.Scope != accessdomain.ScopeNone {
		leads, count, err := s.repo.ListLeads(ctx, params)
		if err != nil {
			return transport.LeadListResponse{}, err
		}
		for _, l := range leads {
			items = append(items, transport.ToLeadResponse(l))
		}
		total = count
	}

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: (total + req.PageSize - 1) / req.PageSize,
	}, nil
}
