package sweep

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/models"
)

const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

type Service struct {
	Store       *db.Store
	Concurrency int
	Logger      zerolog.Logger
}

type Summary struct {
	Assigned       int      `json:"assigned"`
	AssignSkipped  int      `json:"assign_skipped"`
	AssignFailed   int      `json:"assign_failed"`
	Escalated      int      `json:"escalated"`
	EscalateNoop   int      `json:"escalate_noop"`
	EscalateFailed int      `json:"escalate_failed"`
	ElapsedMS      int64    `json:"elapsed_ms"`
	Errors         []string `json:"errors,omitempty"`
}

// Run executes both sweep phases. Each phase is independent: an error in one
// is recorded in the summary and the other still runs. Re-entrancy is safe
// because every write is conditional on the record still being in the state
// the sweep decided on.
func (s *Service) Run(ctx context.Context) Summary {
	start := time.Now()
	summary := Summary{}

	s.autoAssign(ctx, &summary)
	s.escalate(ctx, &summary)

	summary.ElapsedMS = time.Since(start).Milliseconds()
	s.Logger.Info().
		Int("assigned", summary.Assigned).
		Int("escalated", summary.Escalated).
		Int64("elapsed_ms", summary.ElapsedMS).
		Msg("sweep finished")
	return summary
}

// RunEscalation executes only the escalation phase, for callers on the fixed
// external escalation schedule.
func (s *Service) RunEscalation(ctx context.Context) Summary {
	start := time.Now()
	summary := Summary{}
	s.escalate(ctx, &summary)
	summary.ElapsedMS = time.Since(start).Milliseconds()
	return summary
}

// RunWithAudit wraps Run with a row in the runs table, mirroring how manual
// processing runs are audited.
func (s *Service) RunWithAudit(ctx context.Context, kind string) (Summary, error) {
	runID, err := s.Store.CreateRun(ctx, kind, RunStatusRunning)
	if err != nil {
		return Summary{}, err
	}

	summary := s.Run(ctx)
	status := RunStatusSuccess
	if len(summary.Errors) > 0 {
		status = RunStatusFailed
	}
	b, _ := json.Marshal(summary)
	if err := s.Store.FinishRun(ctx, runID, status, b); err != nil {
		s.Logger.Error().Err(err).Str("run_id", runID).Msg("failed to finish run")
	}
	return summary, nil
}

// autoAssign hands every unowned open lead to the least-loaded active agent
// of its supplier. Leads are grouped per supplier so the load bookkeeping
// stays consistent within the batch; suppliers fan out behind a bounded
// semaphore. The conditional write means a lead assigned manually in the
// meantime is simply skipped.
func (s *Service) autoAssign(ctx context.Context, summary *Summary) {
	leads, err := s.Store.ListUnassignedOpenLeads(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, "list unassigned leads: "+err.Error())
		return
	}
	if len(leads) == 0 {
		return
	}

	bySupplier := map[string][]models.Lead{}
	for _, l := range leads {
		bySupplier[l.SupplierID] = append(bySupplier[l.SupplierID], l)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency())
	)
	for supplierID, supplierLeads := range bySupplier {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(supplierID string, supplierLeads []models.Lead) {
			defer wg.Done()
			defer func() { <-sem }()

			assigned, skipped, failed, errs := s.assignSupplier(ctx, supplierID, supplierLeads)

			mu.Lock()
			summary.Assigned += assigned
			summary.AssignSkipped += skipped
			summary.AssignFailed += failed
			summary.Errors = append(summary.Errors, errs...)
			mu.Unlock()
		}(supplierID, supplierLeads)
	}
	wg.Wait()
}

func (s *Service) assignSupplier(ctx context.Context, supplierID string, leads []models.Lead) (assigned, skipped, failed int, errs []string) {
	agents, err := s.Store.ListActiveAgents(ctx, supplierID)
	if err != nil {
		return 0, 0, len(leads), []string{"list agents for " + supplierID + ": " + err.Error()}
	}
	if len(agents) == 0 {
		return 0, len(leads), 0, nil
	}

	loads := map[string]int{}
	for _, a := range agents {
		loads[a.ID] = a.CurrentLoad
	}

	for _, lead := range leads {
		if ctx.Err() != nil {
			return assigned, skipped, failed, errs
		}
		for i := range agents {
			agents[i].CurrentLoad = loads[agents[i].ID]
		}
		agent, ok := PickAgent(lead.ID, agents)
		if !ok {
			skipped++
			continue
		}

		ok, err := s.Store.AssignLeadIfUnassigned(ctx, lead.ID, agent.ID)
		if err != nil {
			failed++
			errs = append(errs, "assign "+lead.ID+": "+err.Error())
			continue
		}
		if !ok {
			// Someone assigned it between the listing and the write.
			skipped++
			continue
		}
		assigned++
		loads[agent.ID]++
	}
	return assigned, skipped, failed, errs
}

// escalate flips the one-way escalated flag on overdue tickets. The flag flip
// and the notification are tied together by the conditional update: only the
// run that actually flipped the row notifies, so re-running against an
// already-escalated ticket is a no-op.
func (s *Service) escalate(ctx context.Context, summary *Summary) {
	now := time.Now().UTC()
	tickets, err := s.Store.ListOverdueUnescalatedTickets(ctx, now)
	if err != nil {
		summary.Errors = append(summary.Errors, "list overdue tickets: "+err.Error())
		return
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency())
	)
	for _, t := range tickets {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ticket models.SupportTicket) {
			defer wg.Done()
			defer func() { <-sem }()

			flipped, err := s.Store.EscalateTicketIfDue(ctx, ticket.ID, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.EscalateFailed++
				summary.Errors = append(summary.Errors, "escalate "+ticket.ID+": "+err.Error())
				return
			}
			if !flipped {
				summary.EscalateNoop++
				return
			}
			summary.Escalated++
			s.Logger.Warn().
				Str("ticket_id", ticket.ID).
				Str("lead_id", ticket.LeadID).
				Str("supplier_id", ticket.SupplierID).
				Time("response_due_at", ticket.ResponseDueAt).
				Msg("ticket escalated: response overdue")
		}(t)
	}
	wg.Wait()
}

func (s *Service) concurrency() int {
	if s.Concurrency <= 0 {
		return 8
	}
	return s.Concurrency
}
