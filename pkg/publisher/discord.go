// Package publisher posts marquee plays to a Discord webhook.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/model"
	"impactgo/pkg/request"
)

const (
	colorPlay  = 0xFF6B35
	colorOK    = 0x28A745
	colorBad   = 0xDC3545
	footerText = "MLB Impact Tracker"
)

// Publisher sends webhook messages. Not configured is a valid state; every
// send then reports failure without touching the network.
type Publisher struct {
	config  *config.DiscordConfig
	teams   *config.TeamsConfig
	request *request.Client
	logger  *slog.Logger
}

// New creates a publisher.
func New(cfg *config.DiscordConfig, teams *config.TeamsConfig, r *request.Client) *Publisher {
	return &Publisher{
		config:  cfg,
		teams:   teams,
		request: r,
		logger:  slog.With("component", "publisher"),
	}
}

// Configured reports whether a webhook URL is set.
func (p *Publisher) Configured() bool {
	return p.config.WebhookURL != ""
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      struct {
		Text string `json:"text"`
	} `json:"footer"`
	Timestamp string `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Content   string  `json:"content,omitempty"`
	Embeds    []embed `json:"embeds"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
}

// PublishPlay posts one queued play, attaching the GIF at gifPath when it
// exists. Success means Discord accepted the message (2xx; webhooks answer
// 204 with no body).
func (p *Publisher) PublishPlay(ctx context.Context, item *model.QueuedItem, gifPath string) error {
	if !p.Configured() {
		return fmt.Errorf("discord webhook not configured")
	}

	payload := p.playPayload(item)

	if gifPath != "" {
		if _, err := os.Stat(gifPath); err == nil {
			return p.sendWithFile(ctx, payload, gifPath)
		}
		p.logger.Warn("gif missing at publish time, sending text only", "path", gifPath)
	}
	return p.send(ctx, payload)
}

func (p *Publisher) playPayload(item *model.QueuedItem) *webhookPayload {
	play := &item.Play

	e := embed{
		Title:       fmt.Sprintf("🎯 %s", orDefault(play.Event, "High-Impact Play")),
		Description: play.Description,
		Color:       colorPlay,
		Fields: []embedField{
			{Name: "⚾ Game", Value: fmt.Sprintf("%s @ %s", orDefault(item.AwayTeam, "Away"), orDefault(item.HomeTeam, "Home")), Inline: true},
			{Name: "📊 Impact", Value: fmt.Sprintf("%.1f%% WP Change", item.ImpactScore*100), Inline: true},
			{Name: "⏰ Inning", Value: fmt.Sprintf("%s %d", play.HalfInning, play.Inning), Inline: true},
		},
	}
	e.Footer.Text = footerText
	if !play.StartTime.IsZero() {
		e.Timestamp = play.StartTime.Format(time.RFC3339)
	}
	if play.Batter != "" {
		e.Fields = append(e.Fields, embedField{Name: "🏏 Batter", Value: play.Batter, Inline: true})
	}
	if play.Pitcher != "" {
		e.Fields = append(e.Fields, embedField{Name: "⚾ Pitcher", Value: play.Pitcher, Inline: true})
	}

	return &webhookPayload{
		Content:   p.teams.HashtagLine(item.AwayTeam, item.HomeTeam),
		Embeds:    []embed{e},
		Username:  p.config.Username,
		AvatarURL: p.config.AvatarURL,
	}
}

// SendStatus posts a plain status embed, used by probes and the dashboard
// test button.
func (p *Publisher) SendStatus(ctx context.Context, title, message string, healthy bool) error {
	if !p.Configured() {
		return fmt.Errorf("discord webhook not configured")
	}

	color := colorOK
	if !healthy {
		color = colorBad
	}
	e := embed{
		Title:       title,
		Description: message,
		Color:       color,
	}
	e.Footer.Text = footerText

	return p.send(ctx, &webhookPayload{
		Embeds:   []embed{e},
		Username: p.config.Username,
	})
}

func (p *Publisher) send(ctx context.Context, payload *webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := p.request.Post(ctx, p.config.WebhookURL, body, "application/json"); err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	return nil
}

// sendWithFile uploads the GIF alongside the message. Discord wants the
// JSON in a payload_json form part when files are attached.
func (p *Publisher) sendWithFile(ctx context.Context, payload *webhookPayload, gifPath string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = p.request.PostMultipart(ctx, p.config.WebhookURL, func(w *multipart.Writer) error {
		if err := w.WriteField("payload_json", string(body)); err != nil {
			return err
		}
		f, err := os.Open(gifPath)
		if err != nil {
			return err
		}
		defer f.Close()

		part, err := w.CreateFormFile("file", filepath.Base(gifPath))
		if err != nil {
			return err
		}
		_, err = io.Copy(part, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("webhook upload failed: %w", err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
