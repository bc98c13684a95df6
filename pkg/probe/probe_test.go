package probe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"impactgo/pkg/config"
)

func TestRunAndAnalyze(t *testing.T) {
	probes := []Probe{
		{Name: "ok", Check: func(ctx context.Context) error { return nil }},
		{Name: "warn", Check: func(ctx context.Context) error { return errors.New("degraded") }},
	}

	results := Run(context.Background(), probes)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("ok probe failed: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("warn probe passed unexpectedly")
	}

	// Non-critical failure: startup proceeds.
	if err := AnalyzeResults(results); err != nil {
		t.Errorf("non-critical failure blocked startup: %v", err)
	}
}

func TestAnalyzeCriticalFailure(t *testing.T) {
	results := Run(context.Background(), []Probe{
		{Name: "boom", Critical: true, Check: func(ctx context.Context) error { return errors.New("down") }},
	})
	if err := AnalyzeResults(results); err == nil {
		t.Error("critical failure did not block startup")
	}
}

func TestWebhookProbe(t *testing.T) {
	p := Webhook(&config.DiscordConfig{})
	if err := p.Check(context.Background()); err == nil {
		t.Error("empty webhook passed")
	}

	p = Webhook(&config.DiscordConfig{WebhookURL: "https://discord.com/api/webhooks/1/x"})
	if err := p.Check(context.Background()); err != nil {
		t.Errorf("configured webhook failed: %v", err)
	}
}

func TestDataDirProbe(t *testing.T) {
	p := DataDir(&config.DBConfig{Path: filepath.Join(t.TempDir(), "data", "impact.db")})
	if err := p.Check(context.Background()); err != nil {
		t.Errorf("writable dir failed: %v", err)
	}
}
