package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/statsapi"
)

// StatsAPI verifies the MLB Stats API answers a schedule request. Critical:
// without it there is nothing to track.
func StatsAPI(client *statsapi.Client) Probe {
	return Probe{
		Name:     "MLB Stats API",
		Critical: true,
		Check: func(ctx context.Context) error {
			_, err := client.Schedule(ctx, time.Now().Format("2006-01-02"))
			return err
		},
	}
}

// FFmpeg verifies the configured converter binary exists. Non-critical:
// the tracker degrades to text-only posts without it.
func FFmpeg(cfg *config.MediaConfig) Probe {
	return Probe{
		Name: "ffmpeg",
		Check: func(ctx context.Context) error {
			if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
				return fmt.Errorf("%q not found in PATH", cfg.FFmpegPath)
			}
			return nil
		},
	}
}

// Webhook verifies a Discord webhook URL is configured. Non-critical:
// scanning and scoring still work, publishing is skipped.
func Webhook(cfg *config.DiscordConfig) Probe {
	return Probe{
		Name: "Discord webhook",
		Check: func(ctx context.Context) error {
			if cfg.WebhookURL == "" {
				return fmt.Errorf("DISCORD_WEBHOOK_URL not set")
			}
			return nil
		},
	}
}

// DataDir verifies the database directory is writable.
func DataDir(cfg *config.DBConfig) Probe {
	return Probe{
		Name:     "Data directory",
		Critical: true,
		Check: func(ctx context.Context) error {
			dir := filepath.Dir(cfg.Path)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return err
			}
			name := f.Name()
			f.Close()
			return os.Remove(name)
		},
	}
}
