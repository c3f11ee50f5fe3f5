package config

import "testing"

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if cfg.AssistantModel == "" || cfg.CompanionModel == "" || cfg.SupervisorModel == "" {
		t.Fatalf("model defaults missing: %+v", cfg)
	}
	if len(cfg.ExitKeywords) != 3 || cfg.ExitKeywords[2] != "stop" {
		t.Fatalf("unexpected exit keyword defaults: %v", cfg.ExitKeywords)
	}
	if len(cfg.DenyList) == 0 {
		t.Fatalf("deny list must never be empty")
	}
	if cfg.MemoryMinFactLength <= 0 || cfg.MemoryRecallLimit <= 0 {
		t.Fatalf("memory thresholds malformed: %+v", cfg)
	}
	if cfg.SupervisorMaxIterations < 1 {
		t.Fatalf("supervisor iteration cap must be at least 1")
	}
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv("EXIT_KEYWORDS", "goodbye her,release")
	t.Setenv("MEMORY_MIN_FACT_LENGTH", "10")
	cfg, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if len(cfg.ExitKeywords) != 2 || cfg.ExitKeywords[0] != "goodbye her" {
		t.Fatalf("env override not applied: %v", cfg.ExitKeywords)
	}
	if cfg.MemoryMinFactLength != 10 {
		t.Fatalf("env override not applied: %d", cfg.MemoryMinFactLength)
	}
}
