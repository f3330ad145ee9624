package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/leadengine/backend/internal/automation"
	"github.com/leadengine/backend/internal/config"
	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/http/handlers"
	"github.com/leadengine/backend/internal/http/middleware"
	"github.com/leadengine/backend/internal/scoring"
	"github.com/leadengine/backend/internal/sla"
	"github.com/leadengine/backend/internal/sweep"

	_ "github.com/leadengine/backend/docs"
)

func Router(cfg config.Config, store *db.Store, scorer *scoring.Service, tracker *sla.Tracker, engine *automation.Engine, sweeper *sweep.Service, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:      store,
		Scoring:    scorer,
		SLA:        tracker,
		Automation: engine,
		Sweep:      sweeper,
		Validator:  validator.New(),
		Logger:     logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/leads", h.LeadsList)
		api.GET("/leads/:id", h.LeadDetails)
		api.GET("/suppliers/:id/sla-metrics", h.SLAMetrics)
		api.GET("/suppliers/:id/automation-analytics", h.AutomationAnalytics)
		api.GET("/runs/latest", h.RunsLatest)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/compute-lead-score", h.ComputeLeadScore)
		admin.POST("/backfill-lead-scores", h.BackfillLeadScores)
		admin.POST("/escalate-tickets", h.EscalateTickets)
		admin.POST("/sweep", h.RunSweep)
		admin.POST("/leads/:id/snooze", h.SnoozeLead)
		admin.POST("/leads/:id/assign", h.AssignLead)
		admin.POST("/automation/trigger", h.TriggerAutomation)
		admin.POST("/automations/:id/toggle", h.ToggleAutomation)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
