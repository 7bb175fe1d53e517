package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	for _, name := range []string{"market", "tech", "breaking"} {
		if _, ok := cfg.Pipelines[name]; !ok {
			t.Errorf("expected pipeline %q in default config", name)
		}
	}

	breaking := cfg.Pipelines["breaking"]
	if breaking.CutoffHours != 4 {
		t.Errorf("expected breaking cutoff 4h, got %d", breaking.CutoffHours)
	}
	if breaking.Ranked {
		t.Error("expected breaking pipeline to be unranked")
	}
	if !breaking.SkipEmpty {
		t.Error("expected breaking pipeline to skip empty runs")
	}

	if cfg.Ranking.Provider != "groq" {
		t.Errorf("expected provider 'groq', got %q", cfg.Ranking.Provider)
	}
	if cfg.Telegram.TokenEnv != "TG_TOKEN" {
		t.Errorf("expected token_env TG_TOKEN, got %q", cfg.Telegram.TokenEnv)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
ranking:
  provider: openai
server:
  port: 9000
pipelines:
  market:
    header: "Market"
    sections:
      - name: Global
        feeds:
          - url: https://example.com/feed
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Ranking.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Ranking.Provider)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Ranking.GroqModel != "llama-3.3-70b-versatile" {
		t.Errorf("expected default groq model, got %q", cfg.Ranking.GroqModel)
	}

	market := cfg.Pipelines["market"]
	if market.Name != "market" {
		t.Errorf("expected pipeline name to be filled in, got %q", market.Name)
	}
	if market.CutoffHours != 24 {
		t.Errorf("expected default cutoff 24h, got %d", market.CutoffHours)
	}
	if market.MaxItems != 12 {
		t.Errorf("expected default max_items 12, got %d", market.MaxItems)
	}
}

func TestGetPipelineUnknown(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}
	if _, err := cfg.GetPipeline("nope"); err == nil {
		t.Error("expected error for unknown pipeline")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Pipelines) != 3 {
		t.Errorf("expected 3 pipelines, got %d", len(cfg.Pipelines))
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
