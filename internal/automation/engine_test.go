package automation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/models"
)

func supplierPtr(s string) *string { return &s }

func TestResolveRuleOverridesPrefersSupplierScope(t *testing.T) {
	rules := []models.AutomationRule{
		{ID: "template", SupplierID: nil, TriggerType: models.TriggerLeadCreated, Channel: "email"},
		{ID: "scoped", SupplierID: supplierPtr("sup1"), TriggerType: models.TriggerLeadCreated, Channel: "sms"},
	}

	resolved := ResolveRuleOverrides(rules)
	if len(resolved) != 1 || resolved[0].ID != "scoped" {
		t.Fatalf("expected only the supplier-scoped rule, got %+v", resolved)
	}
}

func TestResolveRuleOverridesKeepsTemplatesWithoutScopedRule(t *testing.T) {
	rules := []models.AutomationRule{
		{ID: "t1", SupplierID: nil, TriggerType: models.TriggerQuoteViewed, Channel: "email"},
		{ID: "t2", SupplierID: nil, TriggerType: models.TriggerQuoteViewed, Channel: "sms"},
	}

	resolved := ResolveRuleOverrides(rules)
	if len(resolved) != 2 {
		t.Fatalf("expected both template rules to survive, got %+v", resolved)
	}
}

func TestResolveRuleOverridesEmpty(t *testing.T) {
	if got := ResolveRuleOverrides(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestReserveCapacityFailsClosedWithoutLimiter(t *testing.T) {
	e := &Engine{Logger: zerolog.Nop()}
	job := models.AutomationJob{ID: "j1", Status: models.JobStatusPending}
	limit := &models.RateLimit{SupplierID: "sup1", Channel: "sms", MaxSends: 5, WindowSeconds: 3600}

	reserved, proceed := e.reserveCapacity(context.Background(), &job, limit, time.Now().UTC())
	if reserved || proceed {
		t.Fatalf("capped channel without a limiter must not proceed: reserved=%v proceed=%v", reserved, proceed)
	}
	if job.Status != models.JobStatusFailed {
		t.Fatalf("expected job failed, got %s", job.Status)
	}
	if job.ErrorDetail == nil || *job.ErrorDetail != ErrLimiterUnavailable.Error() {
		t.Fatalf("expected limiter-unavailable detail, got %v", job.ErrorDetail)
	}
}

func TestReserveCapacityUncappedChannelProceeds(t *testing.T) {
	e := &Engine{Logger: zerolog.Nop()}
	job := models.AutomationJob{ID: "j1", Status: models.JobStatusPending}

	reserved, proceed := e.reserveCapacity(context.Background(), &job, nil, time.Now().UTC())
	if reserved || !proceed {
		t.Fatalf("channel without a configured cap should proceed unreserved: reserved=%v proceed=%v", reserved, proceed)
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("job status should be untouched, got %s", job.Status)
	}
}

func TestReserveCapacitySuppressesAtCap(t *testing.T) {
	e := &Engine{Limiter: setupLimiter(t), Logger: zerolog.Nop()}
	limit := &models.RateLimit{SupplierID: "sup1", Channel: "sms", MaxSends: 1, WindowSeconds: 3600}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := models.AutomationJob{ID: "j1", Status: models.JobStatusPending}
	reserved, proceed := e.reserveCapacity(context.Background(), &first, limit, now)
	if !reserved || !proceed {
		t.Fatalf("first job should reserve the slot: reserved=%v proceed=%v", reserved, proceed)
	}

	second := models.AutomationJob{ID: "j2", Status: models.JobStatusPending}
	reserved, proceed = e.reserveCapacity(context.Background(), &second, limit, now.Add(time.Second))
	if reserved || proceed {
		t.Fatalf("second job should be suppressed at the cap: reserved=%v proceed=%v", reserved, proceed)
	}
	if second.Status != models.JobStatusSuppressed || second.SuppressionReason == nil || *second.SuppressionReason != models.SuppressionRateLimited {
		t.Fatalf("expected rate_limited suppression, got status=%s reason=%v", second.Status, second.SuppressionReason)
	}
}
