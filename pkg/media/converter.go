// Package media turns Savant video clips into Discord-sized GIFs with
// ffmpeg. Conversion is the classic two-pass palette pipeline; a single
// pass produces visibly dithered, oversized output.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"impactgo/pkg/config"
	"impactgo/pkg/request"
)

// Converter downloads clips and renders GIFs.
type Converter struct {
	config  *config.MediaConfig
	request *request.Client
	logger  *slog.Logger
}

// NewConverter creates a converter. The work directory is created lazily.
func NewConverter(cfg *config.MediaConfig, r *request.Client) *Converter {
	return &Converter{
		config:  cfg,
		request: r,
		logger:  slog.With("component", "media"),
	}
}

// Available reports whether the configured ffmpeg binary can be found.
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.config.FFmpegPath)
	return err == nil
}

func (c *Converter) workDir() (string, error) {
	dir := c.config.WorkDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "impactgo-media")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("work dir: %w", err)
	}
	return dir, nil
}

// CreateGIF downloads the clip and converts it. Returns the GIF path; the
// intermediate video and palette are always cleaned up, the GIF only on
// failure.
func (c *Converter) CreateGIF(ctx context.Context, videoURL, name string) (string, error) {
	videoPath, err := c.Download(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(videoPath)

	dir, err := c.workDir()
	if err != nil {
		return "", err
	}
	gifPath := filepath.Join(dir, name+".gif")

	if err := c.ConvertToGIF(ctx, videoPath, gifPath); err != nil {
		os.Remove(gifPath)
		return "", err
	}

	if err := c.checkSize(gifPath); err != nil {
		os.Remove(gifPath)
		return "", err
	}

	c.logger.Info("gif created", "path", gifPath, "source", videoURL)
	return gifPath, nil
}

// Download fetches the clip to a uniquely named temp file.
func (c *Converter) Download(ctx context.Context, videoURL string) (string, error) {
	dir, err := c.workDir()
	if err != nil {
		return "", err
	}

	body, err := c.request.Get(ctx, videoURL, "")
	if err != nil {
		return "", fmt.Errorf("clip download failed: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String()+".mp4")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("clip write failed: %w", err)
	}
	return path, nil
}

// ConvertToGIF runs the two-pass ffmpeg pipeline: palettegen over the
// clip, then paletteuse with ordered dithering.
func (c *Converter) ConvertToGIF(ctx context.Context, videoPath, gifPath string) error {
	dir, err := c.workDir()
	if err != nil {
		return err
	}
	palette := filepath.Join(dir, uuid.New().String()+"-palette.png")
	defer os.Remove(palette)

	if err := c.run(ctx, c.paletteArgs(videoPath, palette)); err != nil {
		return fmt.Errorf("palette pass: %w", err)
	}
	if err := c.run(ctx, c.gifArgs(videoPath, palette, gifPath)); err != nil {
		return fmt.Errorf("gif pass: %w", err)
	}
	return nil
}

func (c *Converter) paletteArgs(video, palette string) []string {
	return []string{
		"-i", video,
		"-t", c.duration(),
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos,palettegen=stats_mode=diff",
			c.config.FPS, c.config.Width),
		"-y", palette,
	}
}

func (c *Converter) gifArgs(video, palette, out string) []string {
	return []string{
		"-i", video,
		"-i", palette,
		"-t", c.duration(),
		"-lavfi", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos[x];[x][1:v]paletteuse=dither=bayer:bayer_scale=5",
			c.config.FPS, c.config.Width),
		"-y", out,
	}
}

func (c *Converter) duration() string {
	return strconv.FormatFloat(time.Duration(c.config.MaxDuration).Seconds(), 'f', -1, 64)
}

func (c *Converter) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.config.FFmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", c.config.FFmpegPath, err, tail(out, 300))
	}
	return nil
}

// checkSize enforces the upload cap. Discord rejects oversized attachments
// with an opaque 413, better to fail here with the actual number.
func (c *Converter) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	limit := int64(c.config.MaxSizeMB) * 1024 * 1024
	if info.Size() > limit {
		return fmt.Errorf("gif too large: %.1fMB (limit %dMB)",
			float64(info.Size())/1024/1024, c.config.MaxSizeMB)
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
