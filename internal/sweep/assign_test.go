package sweep

import (
	"testing"

	"github.com/leadengine/backend/internal/models"
)

func TestPickAgentDeterministic(t *testing.T) {
	agents := []models.Agent{
		{ID: "a1", Active: true, CurrentLoad: 5},
		{ID: "a2", Active: true, CurrentLoad: 1},
		{ID: "a3", Active: true, CurrentLoad: 1},
	}

	first, ok := PickAgent("lead-1", agents)
	if !ok {
		t.Fatalf("expected an agent to be picked")
	}
	second, _ := PickAgent("lead-1", agents)
	if first.ID != second.ID {
		t.Fatalf("expected deterministic pick for the same lead")
	}
}

func TestPickAgentPrefersLeastLoaded(t *testing.T) {
	agents := []models.Agent{
		{ID: "a1", Active: true, CurrentLoad: 9},
		{ID: "a2", Active: true, CurrentLoad: 0},
		{ID: "a3", Active: true, CurrentLoad: 7},
	}

	// The split only happens between the two least-loaded agents, so the
	// heaviest agent must never be picked.
	for _, leadID := range []string{"l1", "l2", "l3", "l4", "l5"} {
		agent, ok := PickAgent(leadID, agents)
		if !ok {
			t.Fatalf("expected a pick for %s", leadID)
		}
		if agent.ID == "a1" {
			t.Fatalf("heaviest agent picked for %s", leadID)
		}
	}
}

func TestPickAgentSkipsInactive(t *testing.T) {
	agents := []models.Agent{
		{ID: "a1", Active: false, CurrentLoad: 0},
		{ID: "a2", Active: true, CurrentLoad: 10},
	}
	agent, ok := PickAgent("lead-1", agents)
	if !ok || agent.ID != "a2" {
		t.Fatalf("expected the only active agent, got %+v ok=%v", agent, ok)
	}
}

func TestPickAgentNoneEligible(t *testing.T) {
	if _, ok := PickAgent("lead-1", nil); ok {
		t.Fatalf("expected no pick without agents")
	}
	if _, ok := PickAgent("lead-1", []models.Agent{{ID: "a1", Active: false}}); ok {
		t.Fatalf("expected no pick with only inactive agents")
	}
}
