// Package lifecycle moves leads through their desk's pipeline. Every accepted
// change updates the lead and appends one history entry in the same
// transaction, with the lead row locked for the duration.
package lifecycle

import (
	"context"

	accessdomain "deskcrm_backend/internal/access/domain"
	desksdomain "deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/events"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/ports"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/internal/leads/transport"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"
	"deskcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository defines the data access the lifecycle needs.
type Repository interface {
	repository.Transactor
	repository.HistoryReader
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetLeadView(ctx context.Context, id uuid.UUID) (domain.LeadView, error)
}

// Service is the lead state machine.
type Service struct {
	repo   Repository
	graphs ports.GraphLoader
	access ports.AccessChecker
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new lifecycle service.
func New(repo Repository, graphs ports.GraphLoader, access ports.AccessChecker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, graphs: graphs, access: access, bus: bus, log: log}
}

func errForbidden() error {
	return apperr.Forbidden("you do not have access to this lead")
}

func (s *Service) authorizeChange(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) error {
	if id == nil || !id.Can(accessdomain.OpChangeLeadState) {
		return apperr.Forbidden("missing permission " + string(accessdomain.PermChangeLeadState))
	}
	if !s.access.CanAccessLead(ctx, id, leadID) {
		return errForbidden()
	}
	return nil
}

// ChangeState moves a lead to newStateID.
func (s *Service) ChangeState(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID, req transport.ChangeStateRequest) (transport.LeadResponse, error) {
	if err := s.authorizeChange(ctx, id, leadID); err != nil {
		return transport.LeadResponse{}, err
	}
	reason := normalizeReason(req.Reason)

	var changed events.LeadStateChanged
	err := s.repo.InTx(ctx, func(tx repository.TxStore) error {
		lead, err := tx.LockLead(ctx, leadID)
		if err != nil {
			return err
		}
		if !id.CanAccess(lead.Access()) {
			return errForbidden()
		}
		if lead.DeskID == nil {
			return apperr.Validation("lead is not assigned to a desk")
		}
		deskID := *lead.DeskID

		graph, err := s.graphs.LoadGraph(ctx, deskID)
		if err != nil {
			return err
		}
		target, err := tx.LockState(ctx, req.NewStateID)
		if err != nil {
			return err
		}
		if target.DeskID != deskID {
			return apperr.Validation("state does not belong to the lead's desk")
		}
		if !target.IsActive {
			return apperr.Validation("state " + target.Label() + " is inactive")
		}

		var oldStateID *uuid.UUID
		current, resolved := graph.ResolveStatus(lead.Status)
		if resolved {
			oldStateID = &current.ID
			if err := checkEdge(id, graph, current, target); err != nil {
				return err
			}
		} else {
			s.log.WithContext(ctx).DataQuality("lead_status_unresolved",
				"leadId", lead.ID, "deskId", deskID, "status", lead.Status)
			if !target.IsSelectable {
				return apperr.Validation("state " + target.Label() + " cannot be selected")
			}
		}

		if _, err := tx.UpdateStatus(ctx, lead.ID, target.Name); err != nil {
			return err
		}
		if _, err := tx.AppendHistory(ctx, domain.NewHistoryEntry{
			LeadID:     lead.ID,
			OldStateID: oldStateID,
			NewStateID: target.ID,
			ChangedBy:  id.ID,
			Reason:     reason,
		}); err != nil {
			return err
		}

		changed = events.LeadStateChanged{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			DeskID:     lead.DeskID,
			OldStateID: oldStateID,
			NewStateID: target.ID,
			NewStatus:  target.Name,
			ChangedBy:  id.ID,
		}
		if reason != nil {
			changed.Reason = *reason
		}
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.Info("lead state changed", "leadId", leadID, "newStateId", changed.NewStateID, "status", changed.NewStatus, "changedBy", id.ID)
	if s.bus != nil {
		s.bus.Publish(ctx, changed)
	}

	view, err := s.repo.GetLeadView(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(view), nil
}

// checkEdge validates a move between two resolved states. Re-confirming the
// current state is always allowed.
func checkEdge(id *accessdomain.Identity, graph *desksdomain.Graph, current, target desksdomain.DeskState) error {
	if current.ID == target.ID {
		return nil
	}
	edge, ok := graph.Edge(current.ID, target.ID)
	if !ok {
		return apperr.InvalidTransition(current.Label(), target.Label())
	}
	if !target.IsSelectable {
		return apperr.Validation("state " + target.Label() + " cannot be selected")
	}
	if edge.RequiredPermission != nil && !id.HasPermission(*edge.RequiredPermission) {
		return apperr.Forbidden("missing permission " + *edge.RequiredPermission)
	}
	return nil
}

func normalizeReason(reason *string) *string {
	return sanitize.OptionalText(reason)
}

// GetHistory returns the lead's state changes, newest first.
func (s *Service) GetHistory(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) ([]transport.HistoryEntryResponse, error) {
	if err := s.authorizeChange(ctx, id, leadID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, leadID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.ToHistoryResponse(e))
	}
	return out, nil
}

// GetAvailableStates returns the states the lead can move to next. When the
// status does not resolve, every selectable state of the desk is offered.
func (s *Service) GetAvailableStates(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) (transport.AvailableStatesResponse, error) {
	if id == nil || !s.access.CanAccessLead(ctx, id, leadID) {
		return transport.AvailableStatesResponse{}, errForbidden()
	}

	lead, err := s.repo.GetLead(ctx, leadID)
	if err != nil {
		return transport.AvailableStatesResponse{}, err
	}
	resp := transport.AvailableStatesResponse{States: []transport.AvailableStateResponse{}}
	if lead.DeskID == nil {
		return resp, nil
	}

	graph, err := s.graphs.LoadGraph(ctx, *lead.DeskID)
	if err != nil {
		return transport.AvailableStatesResponse{}, err
	}
	canChange := id.Can(accessdomain.OpChangeLeadState)

	current, resolved := graph.ResolveStatus(lead.Status)
	if !resolved {
		resp.Unconstrained = true
		for _, st := range graph.States() {
			if st.IsSelectable {
				resp.States = append(resp.States, availableState(st, nil, nil, canChange))
			}
		}
		return resp, nil
	}

	resp.CurrentStateID = &current.ID
	for _, a := range graph.Available(current.ID) {
		if !a.State.IsSelectable {
			continue
		}
		permitted := canChange && (a.RequiredPermission == nil || id.HasPermission(*a.RequiredPermission))
		transitionID := a.TransitionID
		resp.States = append(resp.States, availableState(a.State, &transitionID, a.RequiredPermission, permitted))
	}
	return resp, nil
}

func availableState(st desksdomain.DeskState, transitionID *uuid.UUID, perm *string, permitted bool) transport.AvailableStateResponse {
	return transport.AvailableStateResponse{
		StateID:            st.ID,
		Name:               st.Name,
		Label:              st.Label(),
		Color:              st.Color,
		IsFinal:            st.IsFinal,
		TransitionID:       transitionID,
		RequiredPermission: perm,
		Permitted:          permitted,
	}
}
