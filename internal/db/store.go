package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadengine/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const leadColumns = `id, supplier_id, budget_range, start_date, address, phone, email, category_id, notes, project_size, status, assignee_id, created_at`

func scanLead(row pgx.Row) (models.Lead, error) {
	var l models.Lead
	err := row.Scan(&l.ID, &l.SupplierID, &l.BudgetRange, &l.StartDate, &l.Address, &l.Phone, &l.Email,
		&l.CategoryID, &l.Notes, &l.ProjectSize, &l.Status, &l.AssigneeID, &l.CreatedAt)
	return l, err
}

func (s *Store) GetLead(ctx context.Context, id string) (models.Lead, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (s *Store) ListLeads(ctx context.Context, status, supplierID, q string, limit, offset int) ([]models.Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	var wheres []string
	if status != "" {
		args = append(args, status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	if supplierID != "" {
		args = append(args, supplierID)
		wheres = append(wheres, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if q != "" {
		args = append(args, "%"+q+"%")
		wheres = append(wheres, fmt.Sprintf("(notes ILIKE $%d OR id ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + fmt.Sprint(len(args)+1) + " OFFSET $" + fmt.Sprint(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListLeadIDsWithoutScore returns the backfill candidate set: leads that have
// no lead_scores row yet.
func (s *Store) ListLeadIDsWithoutScore(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT l.id
		FROM leads l
		LEFT JOIN lead_scores ls ON ls.lead_id = l.id
		WHERE ls.lead_id IS NULL
		ORDER BY l.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListUnassignedOpenLeads(ctx context.Context) ([]models.Lead, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assignee_id IS NULL AND status = ANY($1)
		ORDER BY created_at ASC
	`, models.OpenLeadStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AssignLeadIfUnassigned sets the assignee only when the lead is still
// unowned, so a concurrent manual assignment or a second sweep always wins or
// turns this into a no-op. Returns false when the precondition failed.
func (s *Store) AssignLeadIfUnassigned(ctx context.Context, leadID, agentID string) (bool, error) {
	assigned := false
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE leads SET assignee_id = $1
			WHERE id = $2 AND assignee_id IS NULL AND status = ANY($3)
		`, agentID, leadID, models.OpenLeadStatuses)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		assigned = true
		_, err = tx.Exec(ctx, `UPDATE agents SET current_load = current_load + 1, updated_at = NOW() WHERE id = $1`, agentID)
		return err
	})
	return assigned, err
}

// ReassignLead is the manual-override path; it moves load between agents and
// overwrites whatever the sweep decided.
func (s *Store) ReassignLead(ctx context.Context, leadID, agentID string) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var prev *string
		if err := tx.QueryRow(ctx, `SELECT assignee_id FROM leads WHERE id = $1 FOR UPDATE`, leadID).Scan(&prev); err != nil {
			return err
		}
		if prev != nil && *prev == agentID {
			return nil
		}
		if prev != nil {
			if _, err := tx.Exec(ctx, `UPDATE agents SET current_load = GREATEST(current_load - 1, 0), updated_at = NOW() WHERE id = $1`, *prev); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE agents SET current_load = current_load + 1, updated_at = NOW() WHERE id = $1`, agentID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE leads SET assignee_id = $1 WHERE id = $2`, agentID, leadID)
		return err
	})
}

func (s *Store) ListActiveAgents(ctx context.Context, supplierID string) ([]models.Agent, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, supplier_id, name, active, current_load, updated_at
		FROM agents
		WHERE supplier_id = $1 AND active
		ORDER BY current_load ASC, id ASC
	`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		var a models.Agent
		if err := rows.Scan(&a.ID, &a.SupplierID, &a.Name, &a.Active, &a.CurrentLoad, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpsertLeadScore(ctx context.Context, score models.LeadScore) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO lead_scores (lead_id, score, breakdown, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id) DO UPDATE SET
			score = EXCLUDED.score,
			breakdown = EXCLUDED.breakdown,
			updated_at = EXCLUDED.updated_at
	`, score.LeadID, score.Score, breakdown, score.UpdatedAt)
	return err
}

func (s *Store) GetLeadScore(ctx context.Context, leadID string) (models.LeadScore, error) {
	var (
		score     models.LeadScore
		breakdown []byte
	)
	row := s.Pool.QueryRow(ctx, `SELECT lead_id, score, breakdown, updated_at FROM lead_scores WHERE lead_id = $1`, leadID)
	if err := row.Scan(&score.LeadID, &score.Score, &breakdown, &score.UpdatedAt); err != nil {
		return models.LeadScore{}, err
	}
	if err := json.Unmarshal(breakdown, &score.Breakdown); err != nil {
		return models.LeadScore{}, err
	}
	return score, nil
}

const ticketColumns = `id, lead_id, supplier_id, status, priority, response_due_at, first_response_at, snoozed_until, escalated, created_at`

func scanTicket(row pgx.Row) (models.SupportTicket, error) {
	var t models.SupportTicket
	err := row.Scan(&t.ID, &t.LeadID, &t.SupplierID, &t.Status, &t.Priority, &t.ResponseDueAt,
		&t.FirstResponseAt, &t.SnoozedUntil, &t.Escalated, &t.CreatedAt)
	return t, err
}

func (s *Store) GetTicketByLead(ctx context.Context, leadID string) (models.SupportTicket, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE lead_id = $1`, leadID)
	return scanTicket(row)
}

// SnoozeTicket suppresses the risk flag until the given instant. It returns
// false when the lead has no ticket or the ticket is already resolved/closed;
// the underlying response deadline is left untouched.
func (s *Store) SnoozeTicket(ctx context.Context, leadID string, until time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE support_tickets SET snoozed_until = $1
		WHERE lead_id = $2 AND status IN ($3, $4)
	`, until, leadID, models.TicketStatusOpen, models.TicketStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListOverdueUnescalatedTickets(ctx context.Context, now time.Time) ([]models.SupportTicket, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM support_tickets
		WHERE status IN ($1, $2) AND NOT escalated AND response_due_at < $3
		ORDER BY response_due_at ASC
	`, models.TicketStatusOpen, models.TicketStatusInProgress, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SupportTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EscalateTicketIfDue flips the one-way escalated flag. The WHERE clause
// repeats the overdue predicate so two concurrent sweeps cannot both observe
// a flip; only the caller that gets rows_affected=1 sends the notification.
func (s *Store) EscalateTicketIfDue(ctx context.Context, ticketID string, now time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE support_tickets
		SET escalated = TRUE, priority = priority + 1
		WHERE id = $1 AND NOT escalated AND response_due_at < $2 AND status IN ($3, $4)
	`, ticketID, now, models.TicketStatusOpen, models.TicketStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

type SLAMetrics struct {
	AvgResponseTimeHours float64 `json:"avg_response_time_hours"`
	ResponseRatePercent  float64 `json:"response_rate_percent"`
	SLACompliantPercent  float64 `json:"sla_compliant_percent"`
	PeriodDays           int     `json:"period_days"`
}

func (s *Store) SLAMetrics(ctx context.Context, supplierID string, windowDays int, threshold time.Duration) (SLAMetrics, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(EXTRACT(EPOCH FROM first_response_at - created_at)) FILTER (WHERE first_response_at IS NOT NULL), 0),
			COUNT(*),
			COUNT(first_response_at),
			COUNT(*) FILTER (WHERE first_response_at IS NOT NULL AND first_response_at - created_at <= $3)
		FROM support_tickets
		WHERE supplier_id = $1 AND created_at >= NOW() - make_interval(days => $2)
	`, supplierID, windowDays, threshold)

	var (
		avgSeconds float64
		total      int
		responded  int
		compliant  int
	)
	if err := row.Scan(&avgSeconds, &total, &responded, &compliant); err != nil {
		return SLAMetrics{}, err
	}

	m := SLAMetrics{
		AvgResponseTimeHours: avgSeconds / 3600,
		PeriodDays:           windowDays,
	}
	if total > 0 {
		m.ResponseRatePercent = float64(responded) / float64(total) * 100
		m.SLACompliantPercent = float64(compliant) / float64(total) * 100
	}
	return m, nil
}

const ruleColumns = `id, supplier_id, trigger_type, channel, enabled, template_ref, created_at`

// ListEnabledRulesForTrigger returns enabled rules matching the trigger type
// that are either scoped to the supplier or templates (supplier_id IS NULL).
func (s *Store) ListEnabledRulesForTrigger(ctx context.Context, triggerType, supplierID string) ([]models.AutomationRule, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM communication_automations
		WHERE trigger_type = $1 AND enabled AND (supplier_id = $2 OR supplier_id IS NULL)
		ORDER BY created_at ASC
	`, triggerType, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AutomationRule
	for rows.Next() {
		var r models.AutomationRule
		if err := rows.Scan(&r.ID, &r.SupplierID, &r.TriggerType, &r.Channel, &r.Enabled, &r.TemplateRef, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetRuleEnabled only gates creation of new jobs; jobs already written keep
// their state.
func (s *Store) SetRuleEnabled(ctx context.Context, ruleID string, enabled bool) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE communication_automations SET enabled = $1 WHERE id = $2`, enabled, ruleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) InsertJob(ctx context.Context, job models.AutomationJob) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO automation_jobs (id, rule_id, lead_id, supplier_id, channel, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.ID, job.RuleID, job.LeadID, job.SupplierID, job.Channel, job.Status, job.CreatedAt)
	return err
}

func (s *Store) UpdateJobOutcome(ctx context.Context, job models.AutomationJob) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE automation_jobs
		SET status = $1, suppression_reason = $2, error_detail = $3, sent_at = $4
		WHERE id = $5
	`, job.Status, job.SuppressionReason, job.ErrorDetail, job.SentAt, job.ID)
	return err
}

type AutomationAnalytics struct {
	ByStatus   map[string]int `json:"by_status"`
	ByRule     map[string]int `json:"by_rule"`
	PeriodDays int            `json:"period_days"`
}

func (s *Store) AutomationAnalytics(ctx context.Context, supplierID string, days int) (AutomationAnalytics, error) {
	out := AutomationAnalytics{
		ByStatus:   map[string]int{},
		ByRule:     map[string]int{},
		PeriodDays: days,
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT status, rule_id, COUNT(*)
		FROM automation_jobs
		WHERE supplier_id = $1 AND created_at >= NOW() - make_interval(days => $2)
		GROUP BY status, rule_id
	`, supplierID, days)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			ruleID string
			count  int
		)
		if err := rows.Scan(&status, &ruleID, &count); err != nil {
			return out, err
		}
		out.ByStatus[status] += count
		out.ByRule[ruleID] += count
	}
	return out, rows.Err()
}

func (s *Store) GetQuietHours(ctx context.Context, supplierID string) (*models.QuietHours, error) {
	var qh models.QuietHours
	row := s.Pool.QueryRow(ctx, `
		SELECT supplier_id, start_minute, end_minute, timezone
		FROM quiet_hours WHERE supplier_id = $1
	`, supplierID)
	if err := row.Scan(&qh.SupplierID, &qh.StartMinute, &qh.EndMinute, &qh.Timezone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &qh, nil
}

func (s *Store) GetRateLimit(ctx context.Context, supplierID, channel string) (*models.RateLimit, error) {
	var rl models.RateLimit
	row := s.Pool.QueryRow(ctx, `
		SELECT supplier_id, channel, max_sends, window_seconds
		FROM rate_limits WHERE supplier_id = $1 AND channel = $2
	`, supplierID, channel)
	if err := row.Scan(&rl.SupplierID, &rl.Channel, &rl.MaxSends, &rl.WindowSeconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rl, nil
}

func (s *Store) CreateRun(ctx context.Context, kind, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `INSERT INTO runs (kind, status, started_at) VALUES ($1, $2, NOW()) RETURNING id`, kind, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, kind, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var r models.Run
	if err := row.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Summary); err != nil {
		return models.Run{}, err
	}
	return r, nil
}
