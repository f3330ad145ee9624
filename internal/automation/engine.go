package automation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/delivery"
	"github.com/leadengine/backend/internal/models"
)

// ErrLimiterUnavailable marks jobs on rate-limited channels as failed when no
// limiter backend is configured, instead of letting them bypass the cap.
var ErrLimiterUnavailable = errors.New("rate limiter unavailable")

type Engine struct {
	Store   *db.Store
	Limiter *RateLimiter
	Sender  delivery.Sender
	Logger  zerolog.Logger

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// Trigger evaluates a lead/ticket event against the enabled rules for its
// trigger type and supplier scope, writes one job per matching rule, and
// executes each job through the suppression pipeline. Every job ends in
// sent, suppressed, or failed; suppression is a successful non-sending
// outcome, not an error.
func (e *Engine) Trigger(ctx context.Context, event models.TriggerEvent) ([]models.AutomationJob, error) {
	lead, err := e.Store.GetLead(ctx, event.LeadID)
	if err != nil {
		return nil, err
	}
	supplierID := event.SupplierID
	if supplierID == "" {
		supplierID = lead.SupplierID
	}

	rules, err := e.Store.ListEnabledRulesForTrigger(ctx, event.Type, supplierID)
	if err != nil {
		return nil, err
	}
	rules = ResolveRuleOverrides(rules)

	jobs := make([]models.AutomationJob, 0, len(rules))
	for _, rule := range rules {
		job := models.AutomationJob{
			ID:         uuid.NewString(),
			RuleID:     rule.ID,
			LeadID:     lead.ID,
			SupplierID: supplierID,
			Channel:    rule.Channel,
			Status:     models.JobStatusPending,
			CreatedAt:  e.now(),
		}
		if err := e.Store.InsertJob(ctx, job); err != nil {
			return jobs, err
		}

		e.execute(ctx, &job, lead, rule)
		if err := e.Store.UpdateJobOutcome(ctx, job); err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ResolveRuleOverrides drops template rules when the supplier has its own
// rule for the trigger type.
func ResolveRuleOverrides(rules []models.AutomationRule) []models.AutomationRule {
	hasScoped := false
	for _, r := range rules {
		if r.SupplierID != nil {
			hasScoped = true
			break
		}
	}
	if !hasScoped {
		return rules
	}
	out := make([]models.AutomationRule, 0, len(rules))
	for _, r := range rules {
		if r.SupplierID != nil {
			out = append(out, r)
		}
	}
	return out
}

// execute runs the suppression pipeline for one job and records the outcome
// on the job value: quiet hours first, then an atomic rate-limit reservation,
// then delivery. A failed delivery releases its reservation so the attempt
// never counts against the cap.
func (e *Engine) execute(ctx context.Context, job *models.AutomationJob, lead models.Lead, rule models.AutomationRule) {
	now := e.now()

	qh, err := e.Store.GetQuietHours(ctx, job.SupplierID)
	if err != nil {
		e.fail(job, err)
		return
	}
	if qh != nil {
		inside, err := InQuietHours(*qh, now)
		if err != nil {
			e.fail(job, err)
			return
		}
		if inside {
			e.suppress(job, models.SuppressionQuietHours)
			return
		}
	}

	limit, err := e.Store.GetRateLimit(ctx, job.SupplierID, job.Channel)
	if err != nil {
		e.fail(job, err)
		return
	}
	reserved, proceed := e.reserveCapacity(ctx, job, limit, now)
	if !proceed {
		return
	}

	if err := e.Sender.Send(ctx, *job, lead, rule); err != nil {
		if reserved {
			if relErr := e.Limiter.Release(ctx, *limit, job.ID); relErr != nil {
				e.Logger.Error().Err(relErr).Str("job_id", job.ID).Msg("rate limit release failed")
			}
		}
		e.fail(job, err)
		return
	}

	sentAt := e.now()
	job.Status = models.JobStatusSent
	job.SentAt = &sentAt
}

// reserveCapacity claims a send slot when the job's supplier+channel is
// capped. A configured cap with no limiter backend fails the job: a breach of
// the window count must never look like a successful send.
func (e *Engine) reserveCapacity(ctx context.Context, job *models.AutomationJob, limit *models.RateLimit, now time.Time) (reserved, proceed bool) {
	if limit == nil {
		return false, true
	}
	if e.Limiter == nil {
		e.fail(job, ErrLimiterUnavailable)
		return false, false
	}
	ok, err := e.Limiter.Reserve(ctx, *limit, job.ID, now)
	if err != nil {
		e.fail(job, err)
		return false, false
	}
	if !ok {
		e.suppress(job, models.SuppressionRateLimited)
		return false, false
	}
	return true, true
}

func (e *Engine) suppress(job *models.AutomationJob, reason string) {
	job.Status = models.JobStatusSuppressed
	job.SuppressionReason = &reason
	e.Logger.Info().Str("job_id", job.ID).Str("reason", reason).Msg("job suppressed")
}

func (e *Engine) fail(job *models.AutomationJob, err error) {
	detail := err.Error()
	job.Status = models.JobStatusFailed
	job.ErrorDetail = &detail
	e.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("job failed")
}

// Analytics aggregates job counts by status and by rule over the trailing
// window. Read-only.
func (e *Engine) Analytics(ctx context.Context, supplierID string, days int) (db.AutomationAnalytics, error) {
	if days <= 0 {
		days = 30
	}
	return e.Store.AutomationAnalytics(ctx, supplierID, days)
}
