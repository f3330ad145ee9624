package scoring

import (
	"strings"
	"time"

	"github.com/leadengine/backend/internal/models"
)

// Fixed point allocation per factor. The factor caps sum to exactly 100:
// budget 25 + urgency 25 + category 15 + completeness 25 + intent 10.
const (
	categoryPoints   = 15
	pointsPerKeyword = 3
	intentCap        = 10
)

type Result struct {
	Score     int                   `json:"score"`
	Breakdown models.ScoreBreakdown `json:"breakdown"`
}

// Compute derives the 0-100 priority score for a lead. Pure: the caller
// supplies the clock and the intent keyword set, and persistence is the
// service's concern.
func Compute(lead models.Lead, now time.Time, keywords []string) Result {
	b := models.ScoreBreakdown{
		Budget:       budgetPoints(lead.BudgetRange),
		Urgency:      urgencyPoints(lead.StartDate, now),
		Completeness: completenessPoints(lead),
		Intent:       intentPoints(lead.Notes, keywords),
	}
	if lead.CategoryID != nil {
		b.Category = categoryPoints
	}

	total := b.Budget + b.Urgency + b.Category + b.Completeness + b.Intent
	return Result{Score: clamp(total, 0, 100), Breakdown: b}
}

func budgetPoints(raw string) int {
	switch normalizeBudget(raw) {
	case "up_to_50000", "under_50000":
		return 10
	case "50000_150000":
		return 15
	case "150000_350000":
		return 20
	case "over_350000", "above_350000":
		return 25
	default:
		return 0
	}
}

// normalizeBudget maps both the stored enum keys and the display strings the
// intake form historically submitted ("150,000–350,000", "350,000+") onto a
// single canonical key.
func normalizeBudget(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ""
	}
	replacer := strings.NewReplacer(",", "", " ", "", "₪", "", "–", "-", "—", "-")
	v = replacer.Replace(v)
	switch v {
	case "0-50000", "<50000", "upto50000", "under50000":
		return "up_to_50000"
	case "50000-150000":
		return "50000_150000"
	case "150000-350000":
		return "150000_350000"
	case "350000+", ">350000", "over350000", "above350000":
		return "over_350000"
	}
	return strings.ReplaceAll(v, "-", "_")
}

func urgencyPoints(startDate *time.Time, now time.Time) int {
	if startDate == nil {
		return 0
	}
	days := int(startDate.Sub(now).Hours() / 24)
	switch {
	case days <= 30:
		return 25
	case days <= 60:
		return 20
	case days <= 90:
		return 15
	case days <= 180:
		return 10
	default:
		return 5
	}
}

func completenessPoints(lead models.Lead) int {
	points := 0
	if strings.TrimSpace(lead.Phone) != "" {
		points += 8
	}
	if strings.TrimSpace(lead.Email) != "" {
		points += 7
	}
	if strings.TrimSpace(lead.Address) != "" {
		points += 5
	}
	if strings.TrimSpace(lead.ProjectSize) != "" {
		points += 5
	}
	return points
}

// intentPoints counts readiness keywords in the free-text notes. Repeat
// occurrences of the same keyword keep counting until the cap.
func intentPoints(notes string, keywords []string) int {
	text := strings.ToLower(notes)
	if text == "" {
		return 0
	}
	points := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		points += strings.Count(text, kw) * pointsPerKeyword
		if points >= intentCap {
			return intentCap
		}
	}
	return points
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
