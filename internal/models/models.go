package models

import "time"

const (
	LeadStatusNew              = "new"
	LeadStatusFollowup         = "followup"
	LeadStatusNoAnswer         = "no_answer"
	LeadStatusProjectInProcess = "project_in_process"
	LeadStatusConverted        = "converted"
	LeadStatusClosed           = "closed"
)

// OpenLeadStatuses are the statuses in which a lead still needs attention:
// it may be auto-assigned and its SLA clock keeps running.
var OpenLeadStatuses = []string{LeadStatusNew, LeadStatusFollowup, LeadStatusNoAnswer}

const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

const (
	JobStatusPending    = "pending"
	JobStatusSent       = "sent"
	JobStatusSuppressed = "suppressed"
	JobStatusFailed     = "failed"
)

const (
	SuppressionQuietHours  = "quiet_hours"
	SuppressionRateLimited = "rate_limited"
)

const (
	TriggerLeadCreated   = "lead_created"
	TriggerStatusChanged = "status_changed"
	TriggerQuoteViewed   = "quote_viewed"
	TriggerQuoteAccepted = "quote_accepted"
	TriggerQuoteRejected = "quote_rejected"
)

type Lead struct {
	ID          string     `json:"id"`
	SupplierID  string     `json:"supplier_id"`
	BudgetRange string     `json:"budget_range"`
	StartDate   *time.Time `json:"start_date"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	CategoryID  *string    `json:"category_id"`
	Notes       string     `json:"notes"`
	ProjectSize string     `json:"project_size"`
	Status      string     `json:"status"`
	AssigneeID  *string    `json:"assignee_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ScoreBreakdown struct {
	Budget       int `json:"budget"`
	Urgency      int `json:"urgency"`
	Category     int `json:"category"`
	Completeness int `json:"completeness"`
	Intent       int `json:"intent"`
}

type LeadScore struct {
	LeadID    string         `json:"lead_id"`
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type SupportTicket struct {
	ID              string     `json:"id"`
	LeadID          string     `json:"lead_id"`
	SupplierID      string     `json:"supplier_id"`
	Status          string     `json:"status"`
	Priority        int        `json:"priority"`
	ResponseDueAt   time.Time  `json:"response_due_at"`
	FirstResponseAt *time.Time `json:"first_response_at"`
	SnoozedUntil    *time.Time `json:"snoozed_until"`
	Escalated       bool       `json:"escalated"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Agent struct {
	ID          string    `json:"id"`
	SupplierID  string    `json:"supplier_id"`
	Name        string    `json:"name"`
	Active      bool      `json:"active"`
	CurrentLoad int       `json:"current_load"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AutomationRule with a nil SupplierID is a template rule shared by all
// suppliers; a supplier-scoped rule for the same trigger type overrides it.
type AutomationRule struct {
	ID          string    `json:"id"`
	SupplierID  *string   `json:"supplier_id"`
	TriggerType string    `json:"trigger_type"`
	Channel     string    `json:"channel"`
	Enabled     bool      `json:"enabled"`
	TemplateRef string    `json:"template_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

type AutomationJob struct {
	ID                string     `json:"id"`
	RuleID            string     `json:"rule_id"`
	LeadID            string     `json:"lead_id"`
	SupplierID        string     `json:"supplier_id"`
	Channel           string     `json:"channel"`
	Status            string     `json:"status"`
	SuppressionReason *string    `json:"suppression_reason"`
	ErrorDetail       *string    `json:"error_detail"`
	CreatedAt         time.Time  `json:"created_at"`
	SentAt            *time.Time `json:"sent_at"`
}

// QuietHours window in minutes since local midnight. A window with
// EndMinute < StartMinute wraps past midnight.
type QuietHours struct {
	SupplierID  string `json:"supplier_id"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Timezone    string `json:"timezone"`
}

type RateLimit struct {
	SupplierID    string `json:"supplier_id"`
	Channel       string `json:"channel"`
	MaxSends      int    `json:"max_sends"`
	WindowSeconds int    `json:"window_seconds"`
}

func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

type TriggerEvent struct {
	Type       string `json:"type"`
	LeadID     string `json:"lead_id"`
	SupplierID string `json:"supplier_id"`
}

type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Status     string     `json:"status"`
	Summary    []byte     `json:"summary"`
}
