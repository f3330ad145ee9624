package scoring

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/models"
)

const itemTimeout = 5 * time.Second

type Service struct {
	Store       *db.Store
	Keywords    []string
	Concurrency int
	Logger      zerolog.Logger
}

// ComputeAndStore recomputes the lead's score and upserts it keyed by lead id.
// Recomputing with unchanged inputs writes an identical record, so retries are
// safe.
func (s *Service) ComputeAndStore(ctx context.Context, leadID string) (models.LeadScore, error) {
	lead, err := s.Store.GetLead(ctx, leadID)
	if err != nil {
		return models.LeadScore{}, err
	}

	res := Compute(lead, time.Now().UTC(), s.Keywords)
	score := models.LeadScore{
		LeadID:    lead.ID,
		Score:     res.Score,
		Breakdown: res.Breakdown,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.Store.UpsertLeadScore(ctx, score); err != nil {
		return models.LeadScore{}, err
	}
	return score, nil
}

type BackfillResult struct {
	LeadID string `json:"lead_id"`
	Status string `json:"status"`
	Score  int    `json:"score,omitempty"`
	Error  string `json:"error,omitempty"`
}

type BackfillReport struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []BackfillResult `json:"results"`
}

// Backfill scores every lead that has no lead_scores row yet. Candidates run
// concurrently behind a bounded semaphore; one lead's failure is recorded in
// its own result and never aborts the batch. Cancelling the context stops
// launching new items, and the report covers only items that completed.
func (s *Service) Backfill(ctx context.Context) (BackfillReport, error) {
	ids, err := s.Store.ListLeadIDsWithoutScore(ctx)
	if err != nil {
		return BackfillReport{}, err
	}

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, concurrency)
		results = make([]BackfillResult, 0, len(ids))
	)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(leadID string) {
			defer wg.Done()
			defer func() { <-sem }()

			itemCtx, cancel := context.WithTimeout(ctx, itemTimeout)
			defer cancel()

			score, err := s.ComputeAndStore(itemCtx, leadID)
			res := BackfillResult{LeadID: leadID, Status: "ok", Score: score.Score}
			if err != nil {
				res = BackfillResult{LeadID: leadID, Status: "failed", Error: err.Error()}
				s.Logger.Warn().Err(err).Str("lead_id", leadID).Msg("backfill item failed")
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	report := BackfillReport{Results: results}
	for _, r := range results {
		if r.Status == "ok" {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	report.Total = report.Successful + report.Failed
	return report, nil
}
