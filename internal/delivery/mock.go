package delivery

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/models"
)

// MockSender logs instead of delivering; used for local development and
// whenever DELIVERY_URL is unset.
type MockSender struct {
	Logger zerolog.Logger
	Fail   bool
}

func (m MockSender) Send(ctx context.Context, job models.AutomationJob, lead models.Lead, rule models.AutomationRule) error {
	if m.Fail {
		return errors.New("mock delivery failure")
	}
	m.Logger.Info().
		Str("job_id", job.ID).
		Str("channel", job.Channel).
		Str("lead_id", lead.ID).
		Str("template", rule.TemplateRef).
		Msg("mock delivery")
	return nil
}
