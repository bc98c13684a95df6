package request

import "testing"

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"statsapi.mlb.com", "statsapi"},
		{"statsapi.mlb.com:443", "statsapi"},
		{"baseballsavant.mlb.com", "savant"},
		{"sporty-clips.mlb.com", "savant"},
		{"fastball-clips.mlb.com", "savant"},
		{"discord.com", "discord"},
		{"cdn.discordapp.com", "discord"},
		{"other.com", "other.com"},
	}

	for _, tt := range tests {
		got := normalizeProvider(tt.host)
		if got != tt.expected {
			t.Errorf("normalizeProvider(%q) = %q; want %q", tt.host, got, tt.expected)
		}
	}
}
