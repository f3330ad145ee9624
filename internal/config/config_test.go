package config

import "testing"

func TestIntentKeywordListDefaults(t *testing.T) {
	cfg := Config{}
	got := cfg.IntentKeywordList()
	if len(got) != len(DefaultIntentKeywords) {
		t.Fatalf("expected default keywords, got %v", got)
	}
}

func TestIntentKeywordListParsesAndTrims(t *testing.T) {
	cfg := Config{IntentKeywords: " urgent, ready ,, this week "}
	got := cfg.IntentKeywordList()
	want := []string{"urgent", "ready", "this week"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.RiskThreshold.Hours() != 2 {
		t.Fatalf("expected default risk threshold 2h, got %s", cfg.RiskThreshold)
	}
	if cfg.SnoozeDefaultHours != 4 {
		t.Fatalf("expected default snooze 4h, got %d", cfg.SnoozeDefaultHours)
	}
}
