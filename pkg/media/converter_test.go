package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/request"
	"impactgo/pkg/tracker"
)

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Media.WorkDir = t.TempDir()

	reqCfg := &config.RequestConfig{
		Retries: 2,
		Timeout: config.Duration(5 * time.Second),
		Backoff: config.BackoffConfig{
			BaseDelay: config.Duration(10 * time.Millisecond),
			MaxDelay:  config.Duration(100 * time.Millisecond),
		},
	}
	return NewConverter(&cfg.Media, request.New(reqCfg, nil, tracker.New()))
}

func TestPaletteArgs(t *testing.T) {
	c := newTestConverter(t)
	args := c.paletteArgs("/tmp/in.mp4", "/tmp/p.png")

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /tmp/in.mp4",
		"-t 10",
		"fps=15,scale=480:-1:flags=lanczos,palettegen=stats_mode=diff",
		"-y /tmp/p.png",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("palette args missing %q: %v", want, args)
		}
	}
}

func TestGifArgs(t *testing.T) {
	c := newTestConverter(t)
	args := c.gifArgs("/tmp/in.mp4", "/tmp/p.png", "/tmp/out.gif")

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /tmp/in.mp4",
		"-i /tmp/p.png",
		"fps=15,scale=480:-1:flags=lanczos[x];[x][1:v]paletteuse=dither=bayer:bayer_scale=5",
		"-y /tmp/out.gif",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("gif args missing %q: %v", want, args)
		}
	}
}

func TestDownload(t *testing.T) {
	payload := []byte("fake mp4 bytes")
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer svr.Close()

	c := newTestConverter(t)
	path, err := c.Download(context.Background(), svr.URL+"/clip.mp4")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer os.Remove(path)

	if filepath.Ext(path) != ".mp4" {
		t.Errorf("unexpected extension: %s", path)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded clip: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("downloaded clip does not match served bytes")
	}
}

func TestCheckSize(t *testing.T) {
	c := newTestConverter(t)

	small := filepath.Join(t.TempDir(), "small.gif")
	if err := os.WriteFile(small, make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.checkSize(small); err != nil {
		t.Errorf("small gif rejected: %v", err)
	}

	c.config.MaxSizeMB = 0
	if err := c.checkSize(small); err == nil {
		t.Error("oversized gif accepted")
	}
}

func TestDuration(t *testing.T) {
	c := newTestConverter(t)
	if got := c.duration(); got != "10" {
		t.Errorf("duration = %q, want \"10\"", got)
	}

	c.config.MaxDuration = config.Duration(7500 * time.Millisecond)
	if got := c.duration(); got != "7.5" {
		t.Errorf("duration = %q, want \"7.5\"", got)
	}
}
