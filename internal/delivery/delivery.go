package delivery

import (
	"context"

	"github.com/leadengine/backend/internal/models"
)

// Sender executes one delivery attempt for an automation job on its channel.
// Implementations report failure with an error; suppression decisions are
// made before a sender is ever invoked.
type Sender interface {
	Send(ctx context.Context, job models.AutomationJob, lead models.Lead, rule models.AutomationRule) error
}
