package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Request RequestConfig `yaml:"request"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Monitor MonitorConfig `yaml:"monitor"`
	Scorer  ScorerConfig  `yaml:"scorer"`
	Queue   QueueConfig   `yaml:"queue"`
	Savant  SavantConfig  `yaml:"savant"`
	Media   MediaConfig   `yaml:"media"`
	Discord DiscordConfig `yaml:"discord"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// MonitorConfig holds game-scan loop settings.
type MonitorConfig struct {
	PollInterval      Duration `yaml:"poll_interval"`
	ErrorRetry        Duration `yaml:"error_retry"`
	Heartbeat         Duration `yaml:"heartbeat"`
	RecentGameWindow  Duration `yaml:"recent_game_window"`
	OffseasonLookback int      `yaml:"offseason_lookback_days"`
}

// ScorerConfig holds impact scoring weights and marquee thresholds.
// The base rates are hand-tuned estimates of win-probability swing per
// event type, not calibrated domain truth.
type ScorerConfig struct {
	// Marquee thresholds, evaluated in order.
	MarqueeScore    float64 `yaml:"marquee_score"`
	ClutchScore     float64 `yaml:"clutch_score"`
	ClutchLeverage  float64 `yaml:"clutch_leverage"`
	WalkoffScore    float64 `yaml:"walkoff_score"`
	WalkoffLeverage float64 `yaml:"walkoff_leverage"`

	// Plays at or above this preliminary score get a Savant lookup during
	// the scan; below it the heuristic stands until enrichment.
	SignificantScore float64 `yaml:"significant_score"`

	// Heuristic base rates per event type.
	Walkoff     float64 `yaml:"walkoff"`
	GrandSlam   float64 `yaml:"grand_slam"`
	HomeRunLate float64 `yaml:"home_run_late"`
	HomeRun     float64 `yaml:"home_run"`
	Triple      float64 `yaml:"triple"`
	Double      float64 `yaml:"double"`
	Single      float64 `yaml:"single"`
	Walk        float64 `yaml:"walk"`
	Strikeout   float64 `yaml:"strikeout"`
	Out         float64 `yaml:"out"`
	Unknown     float64 `yaml:"unknown"`

	// Late-inning amplification.
	NinthBoost   float64 `yaml:"ninth_boost"`
	SeventhBoost float64 `yaml:"seventh_boost"`
}

// QueueConfig holds play-queue settings.
type QueueConfig struct {
	MaxSize         int      `yaml:"max_size"`
	MaxProcessed    int      `yaml:"max_processed"`
	MaxAttempts     int      `yaml:"max_attempts"`
	RetryCooldown   Duration `yaml:"retry_cooldown"`
	ProcessInterval Duration `yaml:"process_interval"`
}

// SavantConfig holds Baseball Savant matching weights and thresholds.
// Candidate rows are scored by summing the weights of matching criteria;
// ties are broken first-seen (arbitrary).
type SavantConfig struct {
	Season        string  `yaml:"season"`
	InningWeight  int     `yaml:"inning_weight"`
	EventPartial  int     `yaml:"event_partial_weight"`
	EventExact    int     `yaml:"event_exact_weight"`
	BatterWeight  int     `yaml:"batter_weight"`
	AtBatWeight   int     `yaml:"at_bat_weight"`
	DeltaWeight   int     `yaml:"delta_weight"`
	MinConfidence int     `yaml:"min_confidence"`
	MinDelta      float64 `yaml:"min_delta"`
}

// MediaConfig holds GIF conversion settings.
type MediaConfig struct {
	FFmpegPath  string   `yaml:"ffmpeg_path"`
	MaxDuration Duration `yaml:"max_duration"`
	FPS         int      `yaml:"fps"`
	Width       int      `yaml:"width"`
	MaxSizeMB   int      `yaml:"max_size_mb"`
	WorkDir     string   `yaml:"work_dir"`
}

// DiscordConfig holds webhook settings. The webhook URL is a secret and is
// normally supplied via the DISCORD_WEBHOOK_URL environment variable.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Username   string `yaml:"username"`
	AvatarURL  string `yaml:"avatar_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(60 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/impact.db",
		},
		Server: ServerConfig{
			Address: "localhost:8421",
		},
		Monitor: MonitorConfig{
			PollInterval:      Duration(120 * time.Second),
			ErrorRetry:        Duration(120 * time.Second),
			Heartbeat:         Duration(10 * time.Minute),
			RecentGameWindow:  Duration(3 * time.Hour),
			OffseasonLookback: 5,
		},
		Scorer: ScorerConfig{
			MarqueeScore:     0.40,
			ClutchScore:      0.30,
			ClutchLeverage:   3.0,
			WalkoffScore:     0.25,
			WalkoffLeverage:  2.5,
			SignificantScore: 0.20,
			Walkoff:          0.50,
			GrandSlam:        0.40,
			HomeRunLate:      0.25,
			HomeRun:          0.15,
			Triple:           0.12,
			Double:           0.08,
			Single:           0.06,
			Walk:             0.04,
			Strikeout:        -0.05,
			Out:              -0.03,
			Unknown:          0.02,
			NinthBoost:       1.5,
			SeventhBoost:     1.2,
		},
		Queue: QueueConfig{
			MaxSize:         10,
			MaxProcessed:    100,
			MaxAttempts:     5,
			RetryCooldown:   Duration(5 * time.Minute),
			ProcessInterval: Duration(60 * time.Second),
		},
		Savant: SavantConfig{
			Season:        "2025",
			InningWeight:  30,
			EventPartial:  50,
			EventExact:    100,
			BatterWeight:  40,
			AtBatWeight:   30,
			DeltaWeight:   20,
			MinConfidence: 50,
			MinDelta:      0.01,
		},
		Media: MediaConfig{
			FFmpegPath:  "ffmpeg",
			MaxDuration: Duration(10 * time.Second),
			FPS:         15,
			Width:       480,
			MaxSizeMB:   15,
			WorkDir:     "",
		},
		Discord: DiscordConfig{
			WebhookURL: "",
			Username:   "MLB Impact Tracker",
			AvatarURL:  "",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT
// save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		cfg.applyEnv()
		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills secrets from the environment when the file left them empty.
func (c *Config) applyEnv() {
	if c.Discord.WebhookURL == "" {
		if u := os.Getenv("DISCORD_WEBHOOK_URL"); u != "" {
			c.Discord.WebhookURL = u
		}
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# impactgo Configuration
# ---------------------
# Supported Duration units: ns, us, ms, s, m, h, d (day), w (week)
# The Discord webhook URL may be left empty and supplied via the
# DISCORD_WEBHOOK_URL environment variable instead.

`)
	data = append(header, data...)

	// Annotate the scorer section: these are estimates, not calibrated truth.
	reScorer := regexp.MustCompile(`(?m)^scorer:`)
	data = reScorer.ReplaceAll(data, []byte("# Base rates are hand-tuned win-probability estimates per event type.\nscorer:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
