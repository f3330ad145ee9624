package sla

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/models"
)

type Tracker struct {
	Store              *db.Store
	RiskThreshold      time.Duration
	SnoozeDefaultHours int
	Logger             zerolog.Logger
}

// IsAtRisk evaluates the risk predicate against the current wall clock, so it
// is always consistent with "now" rather than a pre-computed flag. A ticket is
// at risk when it is still open, has been waiting longer than the threshold,
// and is not currently snoozed.
func IsAtRisk(t models.SupportTicket, now time.Time, threshold time.Duration) bool {
	if t.Status != models.TicketStatusOpen {
		return false
	}
	if now.Sub(t.CreatedAt) <= threshold {
		return false
	}
	if t.SnoozedUntil != nil && t.SnoozedUntil.After(now) {
		return false
	}
	return true
}

// Snooze hides the risk flag for the given number of hours without touching
// the response deadline. Returns false when the lead has no snoozable ticket.
func (tr *Tracker) Snooze(ctx context.Context, leadID string, hours int) (bool, error) {
	if hours <= 0 {
		hours = tr.SnoozeDefaultHours
	}
	until := time.Now().UTC().Add(time.Duration(hours) * time.Hour)
	ok, err := tr.Store.SnoozeTicket(ctx, leadID, until)
	if err != nil {
		return false, err
	}
	if ok {
		tr.Logger.Info().Str("lead_id", leadID).Time("snoozed_until", until).Msg("lead snoozed")
	}
	return ok, nil
}

func (tr *Tracker) Metrics(ctx context.Context, supplierID string, windowDays int) (db.SLAMetrics, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	return tr.Store.SLAMetrics(ctx, supplierID, windowDays, tr.RiskThreshold)
}

// AtRisk reports the live risk flag for a single lead's ticket.
func (tr *Tracker) AtRisk(ctx context.Context, leadID string) (bool, error) {
	ticket, err := tr.Store.GetTicketByLead(ctx, leadID)
	if err != nil {
		return false, err
	}
	return IsAtRisk(ticket, time.Now().UTC(), tr.RiskThreshold), nil
}
