package sweep

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/models"
)

func TestEscalationFlipsOnceIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := db.New(ctx, url)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	defer store.Close()

	leadID := "lead-" + uuid.NewString()
	ticketID := "ticket-" + uuid.NewString()
	supplierID := "sup-" + uuid.NewString()

	if _, err := store.Pool.Exec(ctx, `
		INSERT INTO leads (id, supplier_id, status) VALUES ($1, $2, $3)
	`, leadID, supplierID, models.LeadStatusNew); err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	t.Cleanup(func() {
		store.Pool.Exec(ctx, `DELETE FROM support_tickets WHERE id = $1`, ticketID)
		store.Pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, leadID)
	})

	overdue := time.Now().UTC().Add(-time.Hour)
	if _, err := store.Pool.Exec(ctx, `
		INSERT INTO support_tickets (id, lead_id, supplier_id, status, priority, response_due_at)
		VALUES ($1, $2, $3, $4, 1, $5)
	`, ticketID, leadID, supplierID, models.TicketStatusOpen, overdue); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}

	svc := &Service{Store: store, Logger: zerolog.Nop()}

	first := svc.RunEscalation(ctx)
	if len(first.Errors) > 0 {
		t.Fatalf("first escalation run reported errors: %v", first.Errors)
	}

	var (
		escalated bool
		priority  int
	)
	if err := store.Pool.QueryRow(ctx, `
		SELECT escalated, priority FROM support_tickets WHERE id = $1
	`, ticketID).Scan(&escalated, &priority); err != nil {
		t.Fatalf("read ticket: %v", err)
	}
	if !escalated || priority != 2 {
		t.Fatalf("expected escalated with priority bumped once, got escalated=%v priority=%d", escalated, priority)
	}

	// A second run over the same ticket must be a no-op: the flag flips one
	// way and the priority bump happens exactly once.
	second := svc.RunEscalation(ctx)
	if len(second.Errors) > 0 {
		t.Fatalf("second escalation run reported errors: %v", second.Errors)
	}
	if err := store.Pool.QueryRow(ctx, `
		SELECT priority FROM support_tickets WHERE id = $1
	`, ticketID).Scan(&priority); err != nil {
		t.Fatalf("re-read ticket: %v", err)
	}
	if priority != 2 {
		t.Fatalf("second run bumped priority again: %d", priority)
	}
}
