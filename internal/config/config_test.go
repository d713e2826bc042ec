package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Fatalf("default addr %q", cfg.Addr)
	}
	if cfg.MinPlayers != 2 || cfg.MaxPlayersLimit != 8 || cfg.MaxRounds != 15 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ROUND_DEADLINE_SECONDS", "45")
	t.Setenv("MIN_PLAYERS", "3")
	t.Setenv("MAX_ROUNDS", "20")

	cfg := Load()
	if cfg.Addr != ":9000" {
		t.Fatalf("addr override failed: %q", cfg.Addr)
	}
	if cfg.RoundDeadlineSeconds != 45 || cfg.MinPlayers != 3 || cfg.MaxRounds != 20 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadIgnoresBadValues(t *testing.T) {
	t.Setenv("MIN_PLAYERS", "1")
	t.Setenv("MAX_ROUNDS", "not a number")

	cfg := Load()
	if cfg.MinPlayers != 2 {
		t.Fatalf("min players below floor accepted: %d", cfg.MinPlayers)
	}
	if cfg.MaxRounds != 15 {
		t.Fatalf("garbage override applied: %d", cfg.MaxRounds)
	}
}
