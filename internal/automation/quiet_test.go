package automation

import (
	"testing"
	"time"

	"github.com/leadengine/backend/internal/models"
)

func TestInQuietHoursSameDayWindow(t *testing.T) {
	qh := models.QuietHours{StartMinute: 8 * 60, EndMinute: 10 * 60, Timezone: "UTC"}

	inside := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if in, err := InQuietHours(qh, inside); err != nil || !in {
		t.Fatalf("09:00 should be inside [08:00,10:00): in=%v err=%v", in, err)
	}

	// End bound is exclusive.
	atEnd := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if in, _ := InQuietHours(qh, atEnd); in {
		t.Fatalf("10:00 should be outside [08:00,10:00)")
	}

	outside := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	if in, _ := InQuietHours(qh, outside); in {
		t.Fatalf("14:00 should be outside the window")
	}
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	qh := models.QuietHours{StartMinute: 21 * 60, EndMinute: 8 * 60, Timezone: "UTC"}

	cases := []struct {
		hour int
		want bool
	}{
		{22, true},
		{23, true},
		{0, true},
		{7, true},
		{8, false},
		{12, false},
		{20, false},
	}
	for _, tc := range cases {
		now := time.Date(2024, 5, 1, tc.hour, 30, 0, 0, time.UTC)
		if in, _ := InQuietHours(qh, now); in != tc.want {
			t.Fatalf("hour %d: expected in=%v", tc.hour, tc.want)
		}
	}
}

func TestInQuietHoursSupplierTimezone(t *testing.T) {
	// 20:00 UTC is 23:00 in Jerusalem during summer: inside a local
	// 22:00-07:00 window even though UTC says otherwise.
	qh := models.QuietHours{StartMinute: 22 * 60, EndMinute: 7 * 60, Timezone: "Asia/Jerusalem"}
	now := time.Date(2024, 7, 1, 20, 30, 0, 0, time.UTC)

	in, err := InQuietHours(qh, now)
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	if !in {
		t.Fatalf("expected 23:30 local to be inside the quiet window")
	}
}

func TestInQuietHoursEmptyWindow(t *testing.T) {
	qh := models.QuietHours{StartMinute: 600, EndMinute: 600, Timezone: "UTC"}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if in, _ := InQuietHours(qh, now); in {
		t.Fatalf("start==end means no quiet window")
	}
}

func TestInQuietHoursBadTimezone(t *testing.T) {
	qh := models.QuietHours{StartMinute: 0, EndMinute: 60, Timezone: "Not/AZone"}
	if _, err := InQuietHours(qh, time.Now()); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
