package scorer

import (
	"math"
	"strings"

	"impactgo/pkg/config"
	"impactgo/pkg/model"
)

// Scorer estimates the win-probability impact of plays and decides which
// ones are marquee moments worth publishing.
type Scorer struct {
	config *config.ScorerConfig
}

// NewScorer creates a new Scorer.
func NewScorer(cfg *config.ScorerConfig) *Scorer {
	return &Scorer{config: cfg}
}

// Impact returns the estimated win-probability swing of a play in [0, 1].
// Preference order: the Savant-enriched delta, the feed's WPA, then a
// heuristic estimate from event type and situation. It never fails;
// unusable input scores 0.
func (s *Scorer) Impact(p *model.Play) float64 {
	if p == nil {
		return 0
	}

	// PRIMARY: Baseball Savant's delta_home_win_exp.
	if p.DeltaHomeWinExp != 0 {
		return clamp01(math.Abs(p.DeltaHomeWinExp))
	}

	// SECONDARY: the live feed's own WPA.
	if p.WPA != 0 {
		return clamp01(math.Abs(p.WPA))
	}

	return s.estimate(p)
}

// estimate derives a WP swing from event type, leverage, and inning when no
// measured value exists.
func (s *Scorer) estimate(p *model.Play) float64 {
	cfg := s.config
	leverage := p.LeverageIndex
	if leverage <= 0 {
		leverage = 1.0
	}

	event := normalizeEvent(p.Event)

	var change float64
	switch {
	case strings.Contains(event, "walk_off") || strings.Contains(event, "walkoff"):
		change = cfg.Walkoff // walk-offs are always huge, leverage-independent
	case strings.Contains(event, "grand_slam"):
		change = cfg.GrandSlam * leverage
	case strings.Contains(event, "home_run"):
		if p.Inning >= 9 {
			change = cfg.HomeRunLate * leverage
		} else {
			change = cfg.HomeRun * leverage
		}
	case strings.Contains(event, "triple"):
		change = cfg.Triple * leverage
	case strings.Contains(event, "double"):
		change = cfg.Double * leverage
	case strings.Contains(event, "single"):
		change = cfg.Single * leverage
	case strings.Contains(event, "walk"), strings.Contains(event, "base_on_balls"):
		change = cfg.Walk * leverage
	case strings.Contains(event, "strikeout"):
		change = cfg.Strikeout * leverage
	case strings.Contains(event, "out"):
		change = cfg.Out * leverage
	default:
		change = cfg.Unknown * leverage
	}

	// Late-game situations swing harder.
	if p.Inning >= 9 {
		change *= cfg.NinthBoost
	} else if p.Inning >= 7 {
		change *= cfg.SeventhBoost
	}

	return clamp01(round4(math.Abs(change)))
}

// Marquee reports whether a scored play clears one of the publish bands:
// a huge swing outright, a big swing in very high leverage, or a moderate
// swing in walk-off-grade leverage.
func (s *Scorer) Marquee(score, leverage float64) bool {
	cfg := s.config

	if score >= cfg.MarqueeScore {
		return true
	}
	if score >= cfg.ClutchScore && leverage >= cfg.ClutchLeverage {
		return true
	}
	if score >= cfg.WalkoffScore && leverage >= cfg.WalkoffLeverage {
		return true
	}
	return false
}

// normalizeEvent lowercases and underscores an event name so feed values
// like "Home Run" match the configured event classes.
func normalizeEvent(event string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(event)), " ", "_")
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
