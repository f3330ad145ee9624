package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/automation"
	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/models"
	"github.com/leadengine/backend/internal/scoring"
	"github.com/leadengine/backend/internal/sla"
	"github.com/leadengine/backend/internal/sweep"
)

type Handler struct {
	Store      *db.Store
	Scoring    *scoring.Service
	SLA        *sla.Tracker
	Automation *automation.Engine
	Sweep      *sweep.Service
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ComputeScoreRequest struct {
	LeadID string `json:"lead_id" validate:"required"`
}

// @Summary Compute lead score
// @Description Recomputes and persists the 0-100 priority score for one lead
// @Tags scoring
// @Accept json
// @Produce json
// @Param request body ComputeScoreRequest true "lead id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/compute-lead-score [post]
func (h *Handler) ComputeLeadScore(c *gin.Context) {
	var req ComputeScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "lead_id is required", err.Error())
		return
	}

	score, err := h.Scoring.ComputeAndStore(c.Request.Context(), req.LeadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store score", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score.Score, "breakdown": score.Breakdown})
}

// @Summary Backfill lead scores
// @Description Scores every lead that has no score yet; per-item failures are reported, not fatal
// @Tags scoring
// @Produce json
// @Success 200 {object} scoring.BackfillReport
// @Router /api/backfill-lead-scores [post]
func (h *Handler) BackfillLeadScores(c *gin.Context) {
	runID, err := h.Store.CreateRun(c.Request.Context(), "backfill", sweep.RunStatusRunning)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	report, err := h.Scoring.Backfill(c.Request.Context())
	status := sweep.RunStatusSuccess
	if err != nil {
		status = sweep.RunStatusFailed
	}
	b, _ := json.Marshal(report)
	if finishErr := h.Store.FinishRun(c.Request.Context(), runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list backfill candidates", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Escalate overdue tickets
// @Tags sweep
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/escalate-tickets [post]
func (h *Handler) EscalateTickets(c *gin.Context) {
	summary := h.Sweep.RunEscalation(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success":   len(summary.Errors) == 0,
		"message":   escalationMessage(summary),
		"timestamp": time.Now().UTC(),
	})
}

func escalationMessage(s sweep.Summary) string {
	if len(s.Errors) > 0 {
		return "escalation completed with errors"
	}
	return "escalated " + strconv.Itoa(s.Escalated) + " tickets"
}

// @Summary Run assignment and escalation sweep
// @Tags sweep
// @Produce json
// @Success 200 {object} sweep.Summary
// @Router /api/sweep [post]
func (h *Handler) RunSweep(c *gin.Context) {
	summary, err := h.Sweep.RunWithAudit(c.Request.Context(), "sweep")
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

type SnoozeRequest struct {
	Hours int `json:"hours" validate:"gte=0,lte=168"`
}

func (h *Handler) SnoozeLead(c *gin.Context) {
	id := c.Param("id")
	var req SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ok, err := h.SLA.Snooze(c.Request.Context(), id, req.Hours)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to snooze", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"snoozed": ok})
}

func (h *Handler) SLAMetrics(c *gin.Context) {
	supplierID := c.Param("id")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	metrics, err := h.SLA.Metrics(c.Request.Context(), supplierID, days)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to aggregate SLA metrics", err.Error())
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *Handler) AutomationAnalytics(c *gin.Context) {
	supplierID := c.Param("id")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	analytics, err := h.Automation.Analytics(c.Request.Context(), supplierID, days)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to aggregate analytics", err.Error())
		return
	}
	c.JSON(http.StatusOK, analytics)
}

type TriggerRequest struct {
	TriggerType string `json:"trigger_type" validate:"required,oneof=lead_created status_changed quote_viewed quote_accepted quote_rejected"`
	LeadID      string `json:"lead_id" validate:"required"`
	SupplierID  string `json:"supplier_id"`
}

// @Summary Fire an automation trigger event
// @Tags automation
// @Accept json
// @Produce json
// @Param request body TriggerRequest true "event"
// @Success 200 {object} map[string]any
// @Router /api/automation/trigger [post]
func (h *Handler) TriggerAutomation(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	jobs, err := h.Automation.Trigger(c.Request.Context(), models.TriggerEvent{
		Type:       req.TriggerType,
		LeadID:     req.LeadID,
		SupplierID: req.SupplierID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Trigger evaluation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

type ToggleRuleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *Handler) ToggleAutomation(c *gin.Context) {
	id := c.Param("id")
	var req ToggleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "enabled is required", err.Error())
		return
	}

	ok, err := h.Store.SetRuleEnabled(c.Request.Context(), id, *req.Enabled)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to toggle rule", err.Error())
		return
	}
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "enabled": *req.Enabled})
}

func (h *Handler) LeadsList(c *gin.Context) {
	status := c.Query("status")
	supplierID := c.Query("supplier_id")
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListLeads(c.Request.Context(), status, supplierID, q, limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list leads", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) LeadDetails(c *gin.Context) {
	id := c.Param("id")
	lead, err := h.Store.GetLead(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get lead", err.Error())
		return
	}

	resp := gin.H{"lead": lead}

	if score, err := h.Store.GetLeadScore(c.Request.Context(), id); err == nil {
		resp["score"] = score
	}
	if ticket, err := h.Store.GetTicketByLead(c.Request.Context(), id); err == nil {
		resp["ticket"] = ticket
		resp["at_risk"] = sla.IsAtRisk(ticket, time.Now().UTC(), h.SLA.RiskThreshold)
	}
	c.JSON(http.StatusOK, resp)
}

type AssignRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
}

// AssignLead is the manual override path; it always wins over a concurrent
// sweep decision for the same lead.
func (h *Handler) AssignLead(c *gin.Context) {
	id := c.Param("id")
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "agent_id is required", err.Error())
		return
	}

	if err := h.Store.ReassignLead(c.Request.Context(), id, req.AgentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to assign", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "agent_id": req.AgentID})
}

func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
