package scorer

import (
	"math"
	"testing"

	"impactgo/pkg/config"
	"impactgo/pkg/model"
)

func newTestScorer() *Scorer {
	cfg := config.DefaultConfig()
	return NewScorer(&cfg.Scorer)
}

func TestImpactSourcePreference(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name     string
		play     model.Play
		expected float64
	}{
		{
			name:     "SavantDeltaWins",
			play:     model.Play{DeltaHomeWinExp: -0.42, WPA: 0.10, Event: "Single"},
			expected: 0.42,
		},
		{
			name:     "WPAFallback",
			play:     model.Play{WPA: -0.31, Event: "Single"},
			expected: 0.31,
		},
		{
			name:     "NegativeDeltaAbsolute",
			play:     model.Play{DeltaHomeWinExp: -0.55},
			expected: 0.55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Impact(&tt.play)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Impact() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestImpactHeuristic(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name     string
		play     model.Play
		expected float64
	}{
		{
			// 0.25 * 3.5 leverage * 1.5 ninth-inning boost
			name:     "LateHomeRunHighLeverage",
			play:     model.Play{Event: "Home Run", Inning: 9, LeverageIndex: 3.5},
			expected: 1.0, // 1.3125 clamped
		},
		{
			// 0.15 * 2.0
			name:     "EarlyHomeRun",
			play:     model.Play{Event: "Home Run", Inning: 4, LeverageIndex: 2.0},
			expected: 0.30,
		},
		{
			// 0.08 * 1.0 * 1.2 seventh-inning boost
			name:     "SeventhInningDouble",
			play:     model.Play{Event: "Double", Inning: 7, LeverageIndex: 1.0},
			expected: 0.096,
		},
		{
			// walk-off rate is flat, then ninth-inning boost
			name:     "Walkoff",
			play:     model.Play{Event: "Walk Off Single", Inning: 9, LeverageIndex: 4.0},
			expected: 0.75, // 0.50 * 1.5
		},
		{
			// negative base rates surface as positive magnitude: 0.05 * 1.0
			name:     "Strikeout",
			play:     model.Play{Event: "Strikeout", Inning: 3, LeverageIndex: 1.0},
			expected: 0.05,
		},
		{
			// "Groundout" contains "out": 0.03 * 2.0
			name:     "Groundout",
			play:     model.Play{Event: "Groundout", Inning: 5, LeverageIndex: 2.0},
			expected: 0.06,
		},
		{
			// zero leverage treated as 1.0
			name:     "ZeroLeverageDefaults",
			play:     model.Play{Event: "Single", Inning: 2},
			expected: 0.06,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Impact(&tt.play)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Impact() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestImpactNilPlay(t *testing.T) {
	s := newTestScorer()
	if got := s.Impact(nil); got != 0 {
		t.Errorf("Impact(nil) = %v, want 0", got)
	}
}

func TestMarqueeBands(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name     string
		score    float64
		leverage float64
		want     bool
	}{
		{"EliteSwing", 0.40, 1.0, true},
		{"JustUnderElite", 0.399, 1.0, false},
		{"ClutchBand", 0.30, 3.0, true},
		{"ClutchBandLowLeverage", 0.30, 2.9, false},
		{"WalkoffBand", 0.25, 2.5, true},
		{"WalkoffBandLowLeverage", 0.25, 2.4, false},
		{"BelowAllBands", 0.24, 5.0, false},
		{"ZeroScore", 0.0, 5.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Marquee(tt.score, tt.leverage); got != tt.want {
				t.Errorf("Marquee(%v, %v) = %v, want %v", tt.score, tt.leverage, got, tt.want)
			}
		})
	}
}

func TestNormalizeEvent(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Home Run", "home_run"},
		{"  Walk Off Single ", "walk_off_single"},
		{"Grand Slam", "grand_slam"},
		{"strikeout", "strikeout"},
	}
	for _, tt := range tests {
		if got := normalizeEvent(tt.in); got != tt.expected {
			t.Errorf("normalizeEvent(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
