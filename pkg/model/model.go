package model

import (
	"fmt"
	"time"
)

// Play represents one discrete game event parsed from the live feed.
// It is immutable once polled; enrichment fills DeltaHomeWinExp later.
type Play struct {
	GamePK     int    `json:"game_pk"`
	AtBatIndex int    `json:"at_bat_index"`
	Inning     int    `json:"inning"`
	HalfInning string `json:"half_inning"` // "top" or "bottom"

	Event       string `json:"event"`       // e.g. "Home Run"
	Description string `json:"description"` // full play-by-play text
	Batter      string `json:"batter"`
	Pitcher     string `json:"pitcher"`

	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`

	// Win-probability context. Leverage defaults to 1.0 when the feed
	// omits it; WPA and the delta stay 0 until known.
	LeverageIndex   float64 `json:"leverage_index"`
	WPA             float64 `json:"wpa"`
	DeltaHomeWinExp float64 `json:"delta_home_win_exp"`
	HomeWinProb     float64 `json:"home_win_prob"`
	AwayWinProb     float64 `json:"away_win_prob"`

	StartTime time.Time `json:"start_time"`
}

// Key returns the composite identity of the play.
func (p *Play) Key() PlayKey {
	return PlayKey{
		GamePK:     p.GamePK,
		AtBatIndex: p.AtBatIndex,
		Inning:     p.Inning,
		HalfInning: p.HalfInning,
	}
}

// IsWalkoff reports whether the play ended the game in the home half of a
// late inning with the home team ahead.
func (p *Play) IsWalkoff() bool {
	return p.Inning >= 9 && p.HalfInning == "bottom" && p.HomeScore > p.AwayScore
}

// PlayKey uniquely identifies a play across polling cycles.
type PlayKey struct {
	GamePK     int    `json:"game_pk"`
	AtBatIndex int    `json:"at_bat_index"`
	Inning     int    `json:"inning"`
	HalfInning string `json:"half_inning"`
}

// String renders the canonical form "gamePK_atBatIndex_inning_half".
func (k PlayKey) String() string {
	return fmt.Sprintf("%d_%d_%d_%s", k.GamePK, k.AtBatIndex, k.Inning, k.HalfInning)
}

// QueuedItem is a marquee play waiting for media enrichment and publishing.
type QueuedItem struct {
	Play        Play    `json:"play"`
	ImpactScore float64 `json:"impact_score"`

	GameDate string `json:"game_date"` // YYYY-MM-DD, for Savant lookups
	HomeTeam string `json:"home_team"` // abbreviation
	AwayTeam string `json:"away_team"`

	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastAttempt time.Time `json:"last_attempt"`

	MediaCreated bool   `json:"media_created"`
	Published    bool   `json:"published"`
	MediaPath    string `json:"media_path"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Key returns the identity of the queued play.
func (q *QueuedItem) Key() PlayKey {
	return q.Play.Key()
}

// Exhausted reports whether the item has used up its attempts without
// being published.
func (q *QueuedItem) Exhausted() bool {
	return !q.Published && q.Attempts >= q.MaxAttempts
}

// Game is a scheduled or live game from the schedule endpoint.
type Game struct {
	GamePK     int       `json:"game_pk"`
	GameDate   string    `json:"game_date"` // YYYY-MM-DD
	StartTime  time.Time `json:"start_time"`
	Status     string    `json:"status"` // abstract status code: I, F, O, W, D, PW, ...
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	HomeScore  int       `json:"home_score"`
	AwayScore  int       `json:"away_score"`
	Inning     int       `json:"inning"`
	InningHalf string    `json:"inning_half"`
}

// Live reports whether the game is currently in progress (including warmups
// and delays that resolve back into play).
func (g *Game) Live() bool {
	switch g.Status {
	case "I", "PW", "W", "D":
		return true
	}
	return false
}

// Final reports whether the game has ended.
func (g *Game) Final() bool {
	return g.Status == "F" || g.Status == "O"
}
