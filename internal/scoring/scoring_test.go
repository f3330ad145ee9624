package scoring

import (
	"testing"
	"time"

	"github.com/leadengine/backend/internal/config"
	"github.com/leadengine/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestComputeWorkedExample(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	lead := models.Lead{
		ID:          "l1",
		BudgetRange: "150,000–350,000",
		StartDate:   timePtr(now.Add(10 * 24 * time.Hour)),
		CategoryID:  strPtr("kitchens"),
		Phone:       "050-0000000",
		Email:       "lead@example.com",
		Notes:       "הפרויקט דחוף, הלקוח מוכן להתחיל",
	}

	res := Compute(lead, now, config.DefaultIntentKeywords)
	b := res.Breakdown
	if b.Budget != 20 {
		t.Fatalf("expected budget=20, got %d", b.Budget)
	}
	if b.Urgency != 25 {
		t.Fatalf("expected urgency=25, got %d", b.Urgency)
	}
	if b.Category != 15 {
		t.Fatalf("expected category=15, got %d", b.Category)
	}
	if b.Completeness != 15 {
		t.Fatalf("expected completeness=15, got %d", b.Completeness)
	}
	if b.Intent != 6 {
		t.Fatalf("expected intent=6, got %d", b.Intent)
	}
	if res.Score != 81 {
		t.Fatalf("expected score=81, got %d", res.Score)
	}
}

func TestBudgetBuckets(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"up_to_50000", 10},
		{"50,000-150,000", 15},
		{"150000_350000", 20},
		{"350,000+", 25},
		{"over_350000", 25},
		{"", 0},
		{"something else", 0},
	}
	for _, tc := range cases {
		if got := budgetPoints(tc.raw); got != tc.want {
			t.Fatalf("budgetPoints(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestUrgencyBands(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want int
	}{
		{10, 25},
		{45, 20},
		{75, 15},
		{120, 10},
		{365, 5},
	}
	for _, tc := range cases {
		start := now.Add(time.Duration(tc.days) * 24 * time.Hour)
		if got := urgencyPoints(&start, now); got != tc.want {
			t.Fatalf("urgencyPoints(+%dd) = %d, want %d", tc.days, got, tc.want)
		}
	}
	if got := urgencyPoints(nil, now); got != 0 {
		t.Fatalf("expected 0 for missing start date, got %d", got)
	}
}

func TestUrgencyMonotonicity(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	prev := 26
	for days := 1; days <= 400; days += 7 {
		start := now.Add(time.Duration(days) * 24 * time.Hour)
		got := urgencyPoints(&start, now)
		if got > prev {
			t.Fatalf("urgency increased with farther start date: day %d gave %d after %d", days, got, prev)
		}
		prev = got
	}
}

func TestIntentRepeatsAndCap(t *testing.T) {
	keywords := []string{"urgent", "ready"}

	if got := intentPoints("urgent urgent", keywords); got != 6 {
		t.Fatalf("expected repeated keyword to count per occurrence, got %d", got)
	}
	if got := intentPoints("urgent urgent urgent ready ready", keywords); got != 10 {
		t.Fatalf("expected intent capped at 10, got %d", got)
	}
	if got := intentPoints("nothing relevant here", keywords); got != 0 {
		t.Fatalf("expected 0 for no matches, got %d", got)
	}
	if got := intentPoints("URGENT!", keywords); got != 3 {
		t.Fatalf("expected case-insensitive match, got %d", got)
	}
}

func TestCompletenessBounds(t *testing.T) {
	full := models.Lead{Phone: "1", Email: "a@b", Address: "st", ProjectSize: "large"}
	if got := completenessPoints(full); got != 25 {
		t.Fatalf("expected 25 for full lead, got %d", got)
	}
	if got := completenessPoints(models.Lead{}); got != 0 {
		t.Fatalf("expected 0 for empty lead, got %d", got)
	}
	if got := completenessPoints(models.Lead{Phone: "  "}); got != 0 {
		t.Fatalf("expected whitespace-only fields to count as missing, got %d", got)
	}
}

func TestComputeDeterministicAndClamped(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	lead := models.Lead{
		BudgetRange: "350,000+",
		StartDate:   timePtr(now.Add(24 * time.Hour)),
		CategoryID:  strPtr("c"),
		Phone:       "1",
		Email:       "a@b",
		Address:     "st",
		ProjectSize: "xl",
		Notes:       "urgent urgent ready ready budget",
	}

	first := Compute(lead, now, config.DefaultIntentKeywords)
	second := Compute(lead, now, config.DefaultIntentKeywords)
	if first != second {
		t.Fatalf("expected identical results for identical inputs: %+v vs %+v", first, second)
	}

	sum := first.Breakdown.Budget + first.Breakdown.Urgency + first.Breakdown.Category +
		first.Breakdown.Completeness + first.Breakdown.Intent
	if first.Score != sum {
		t.Fatalf("score %d does not equal breakdown sum %d", first.Score, sum)
	}
	if first.Score != 100 {
		t.Fatalf("expected maxed-out lead to score 100, got %d", first.Score)
	}
}
