// Package backfill finds leads whose status does not resolve to an active
// state of their desk, flags them, and optionally maps them onto a state.
package backfill

import (
	"context"
	"strings"

	desksdomain "deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/events"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/ports"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Reason is recorded on history entries written by Apply.
const Reason = "status backfill"

// Store is the data access the auditor needs.
type Store interface {
	repository.FlagStore
	repository.Transactor
}

// Auditor scans and repairs lead statuses.
type Auditor struct {
	store  Store
	graphs ports.GraphLoader
	log    *logger.Logger
}

// New creates a new auditor.
func New(store Store, graphs ports.GraphLoader, log *logger.Logger) *Auditor {
	return &Auditor{store: store, graphs: graphs, log: log}
}

// ScanReport summarizes one scan.
type ScanReport struct {
	Desks    int `json:"desks"`
	Scanned  int `json:"scanned"`
	Flagged  int `json:"flagged"`
	Resolved int `json:"resolved"`
}

// Scan flags every unresolved lead and closes flags of leads that resolve again.
func (a *Auditor) Scan(ctx context.Context) (ScanReport, error) {
	var report ScanReport

	open, err := a.store.ListOpenFlags(ctx)
	if err != nil {
		return report, err
	}
	flagged := make(map[uuid.UUID]struct{}, len(open))
	for _, f := range open {
		flagged[f.LeadID] = struct{}{}
	}

	desks, err := a.store.ListDeskIDs(ctx)
	if err != nil {
		return report, err
	}
	for _, deskID := range desks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		graph, err := a.graphs.LoadGraph(ctx, deskID)
		if err != nil {
			return report, err
		}
		statuses, err := a.store.ListLeadStatuses(ctx, deskID)
		if err != nil {
			return report, err
		}
		report.Desks++

		for _, ls := range statuses {
			report.Scanned++
			if _, ok := graph.ResolveStatus(ls.Status); ok {
				if _, wasFlagged := flagged[ls.LeadID]; wasFlagged {
					if _, err := a.store.ResolveFlag(ctx, ls.LeadID); err != nil {
						return report, err
					}
					report.Resolved++
				}
				continue
			}

			created, err := a.store.FlagLead(ctx, domain.StatusFlag{LeadID: ls.LeadID, DeskID: deskID, RawStatus: ls.Status})
			if err != nil {
				return report, err
			}
			if created {
				report.Flagged++
				a.log.DataQuality("lead_status_unresolved", "leadId", ls.LeadID, "deskId", deskID, "status", ls.Status)
			}
		}
	}

	a.log.Info("lead status audit finished", "desks", report.Desks, "scanned", report.Scanned, "flagged", report.Flagged, "resolved", report.Resolved)
	return report, nil
}

// ApplyReport summarizes one backfill run.
type ApplyReport struct {
	Fixed   int `json:"fixed"`
	Skipped int `json:"skipped"`
}

// Apply maps each flagged lead onto the state whose name matches its status
// ignoring case and surrounding space, or else onto the desk's initial state. Each fix writes one
// history entry without an old state.
func (a *Auditor) Apply(ctx context.Context, actorID uuid.UUID) (ApplyReport, error) {
	var report ApplyReport

	flags, err := a.store.ListOpenFlags(ctx)
	if err != nil {
		return report, err
	}

	graphs := make(map[uuid.UUID]*desksdomain.Graph)
	for _, flag := range flags {
		graph, ok := graphs[flag.DeskID]
		if !ok {
			graph, err = a.graphs.LoadGraph(ctx, flag.DeskID)
			if err != nil {
				return report, err
			}
			graphs[flag.DeskID] = graph
		}

		target, ok := graph.ResolveStatus(strings.TrimSpace(flag.RawStatus))
		if !ok {
			target, ok = graph.Initial()
		}
		if !ok {
			a.log.Warn("status backfill skipped: desk has no initial state", "leadId", flag.LeadID, "deskId", flag.DeskID)
			report.Skipped++
			continue
		}

		fixed, err := a.fixLead(ctx, graph, flag, target, actorID)
		if err != nil {
			return report, err
		}
		if fixed {
			report.Fixed++
		} else {
			report.Skipped++
		}
	}

	a.log.Info("status backfill finished", "fixed", report.Fixed, "skipped", report.Skipped, "actor", actorID)
	return report, nil
}

func (a *Auditor) fixLead(ctx context.Context, graph *desksdomain.Graph, flag domain.StatusFlag, target desksdomain.DeskState, actorID uuid.UUID) (bool, error) {
	fixed := false
	err := a.store.InTx(ctx, func(tx repository.TxStore) error {
		lead, err := tx.LockLead(ctx, flag.LeadID)
		if err != nil {
			return err
		}
		if lead.DeskID == nil || *lead.DeskID != flag.DeskID {
			return tx.ResolveFlag(ctx, lead.ID)
		}
		if _, ok := graph.ResolveStatus(lead.Status); ok {
			return tx.ResolveFlag(ctx, lead.ID)
		}

		state, err := tx.LockState(ctx, target.ID)
		if err != nil {
			return err
		}
		if !state.IsActive {
			return nil
		}

		if _, err := tx.UpdateStatus(ctx, lead.ID, state.Name); err != nil {
			return err
		}
		reason := Reason
		if _, err := tx.AppendHistory(ctx, domain.NewHistoryEntry{
			LeadID:     lead.ID,
			NewStateID: state.ID,
			ChangedBy:  actorID,
			Reason:     &reason,
		}); err != nil {
			return err
		}
		if err := tx.ResolveFlag(ctx, lead.ID); err != nil {
			return err
		}
		fixed = true
		return nil
	})
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fixed {
		a.log.Info("lead status backfilled", "leadId", flag.LeadID, "from", flag.RawStatus, "to", target.Name)
	}
	return fixed, nil
}

// ResolveLead closes the open flag of a lead, if any.
func (a *Auditor) ResolveLead(ctx context.Context, leadID uuid.UUID) error {
	resolved, err := a.store.ResolveFlag(ctx, leadID)
	if err != nil {
		return err
	}
	if resolved {
		a.log.Info("lead status flag resolved", "leadId", leadID)
	}
	return nil
}

// Handle resolves the flag of a lead after a committed state change.
func (a *Auditor) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadStateChanged)
	if !ok {
		return nil
	}
	return a.ResolveLead(ctx, e.LeadID)
}
