// Package savant pulls win-probability data and video clips from Baseball
// Savant. Savant has no stable public API for either, so this works the way
// the site does: the Statcast CSV export for numbers, HEAD-probed URL
// templates and a page scan for clips.
package savant

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/logging"
	"impactgo/pkg/model"
	"impactgo/pkg/request"
)

const defaultBase = "https://baseballsavant.mlb.com"

// Client handles Baseball Savant interactions.
type Client struct {
	request *request.Client
	config  *config.SavantConfig
	Base    string // Optional override for testing
}

// NewClient creates a new Savant client.
func NewClient(r *request.Client, cfg *config.SavantConfig) *Client {
	return &Client{request: r, config: cfg}
}

func (c *Client) base() string {
	if c.Base != "" {
		return c.Base
	}
	return defaultBase
}

// Match is the best Statcast row matched to a play. Confidence is the sum of
// the matched-criteria weights.
type Match struct {
	Delta       float64
	SVID        string
	AtBatNumber string
	Event       string
	Inning      string
	Batter      string
	Confidence  int
}

// WinProbability looks up the Savant delta_home_win_exp for a play by
// scoring every Statcast row of the game against it. Returns nil when no
// row reaches the confidence threshold; that is normal for fresh plays,
// Savant lags the live feed by minutes.
func (c *Client) WinProbability(ctx context.Context, play *model.Play, gameDate string) (*Match, error) {
	u := fmt.Sprintf("%s/statcast_search/csv?%s", c.base(), statcastQuery(play.GamePK, gameDate, c.config.Season).Encode())

	body, err := c.request.Get(ctx, u, gameCacheKey("savant:wp", play.GamePK, gameDate))
	if err != nil {
		return nil, fmt.Errorf("statcast search failed for game %d: %w", play.GamePK, err)
	}

	return c.bestMatch(play, body)
}

// gameCacheKey decides whether a per-game Savant response may be cached.
// The Statcast CSV and the gf feed grow while a game is live and settle
// once it ends; prior-day games are done.
func gameCacheKey(prefix string, gamePK int, gameDate string) string {
	if gameDate == "" || gameDate >= time.Now().Format("2006-01-02") {
		return ""
	}
	return fmt.Sprintf("%s:%d", prefix, gamePK)
}

// statcastQuery builds the Statcast search parameters for one game. The
// long tail of empty filters is required; the endpoint rejects requests
// without them.
func statcastQuery(gamePK int, gameDate, season string) url.Values {
	q := url.Values{}
	q.Set("all", "true")
	for _, k := range []string{
		"hfPT", "hfAB", "hfBBT", "hfPR", "hfZ", "stadium", "hfBBL",
		"hfNewZones", "hfC", "hfSit", "hfOuts", "opponent",
		"pitcher_throws", "batter_stands", "hfSA", "hfInfield", "team",
		"position", "hfOutfield", "hfRO", "home_road", "hfFlag",
		"hfPull", "metric_1", "hfInn",
	} {
		q.Set(k, "")
	}
	q.Set("hfGT", "R|")
	q.Set("hfSea", season+"|")
	q.Set("player_type", "batter")
	q.Set("game_date_gt", gameDate)
	q.Set("game_date_lt", gameDate)
	q.Set("game_pk", strconv.Itoa(gamePK))
	q.Set("min_pitches", "0")
	q.Set("min_results", "0")
	q.Set("group_by", "name")
	q.Set("sort_col", "pitches")
	q.Set("player_event_sort", "h_launch_speed")
	q.Set("sort_order", "desc")
	q.Set("min_pas", "0")
	q.Set("type", "details")
	return q
}

func (c *Client) bestMatch(play *model.Play, csvBody []byte) (*Match, error) {
	r := csv.NewReader(bytes.NewReader(csvBody))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statcast csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var best *Match
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row must not sink the whole lookup.
			continue
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		m, ok := c.scoreRow(play, get)
		if !ok {
			continue
		}
		logging.TraceDefault("statcast row scored",
			"event", m.Event, "delta", m.Delta, "confidence", m.Confidence)
		// Strictly-greater keeps the first row on ties.
		if best == nil || m.Confidence > best.Confidence {
			best = m
		}
	}

	if best == nil || best.Confidence < c.config.MinConfidence {
		return nil, nil
	}
	return best, nil
}

// scoreRow rates one Statcast row against the play. Rows without a usable
// delta_home_win_exp are discarded outright; the delta is the whole point.
func (c *Client) scoreRow(play *model.Play, get func(string) string) (*Match, bool) {
	delta, err := strconv.ParseFloat(get("delta_home_win_exp"), 64)
	if err != nil || math.Abs(delta) <= c.config.MinDelta {
		return nil, false
	}

	score := c.config.DeltaWeight

	if get("inning") == strconv.Itoa(play.Inning) {
		score += c.config.InningWeight
	}

	target := strings.ToLower(play.Event)
	rowEvent := strings.ToLower(get("events"))
	if target != "" && rowEvent != "" {
		if strings.Contains(rowEvent, target) || strings.Contains(target, rowEvent) {
			score += c.config.EventPartial
		}
		if target == rowEvent {
			score += c.config.EventExact
		}
	}

	if nameMatch(play.Batter, get("player_name")) {
		score += c.config.BatterWeight
	}

	if ab := get("at_bat_number"); ab != "" && ab == strconv.Itoa(play.AtBatIndex) {
		score += c.config.AtBatWeight
	}

	return &Match{
		Delta:       delta,
		SVID:        get("sv_id"),
		AtBatNumber: get("at_bat_number"),
		Event:       get("events"),
		Inning:      get("inning"),
		Batter:      get("player_name"),
		Confidence:  score,
	}, true
}

// nameMatch compares player names across formats: the live feed says
// "Francisco Lindor", Statcast says "Lindor, Francisco". Every token of the
// shorter name must appear in the longer one.
func nameMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	at := nameTokens(a)
	bt := nameTokens(b)
	if len(at) == 0 || len(bt) == 0 {
		return false
	}
	short, long := at, bt
	if len(bt) < len(at) {
		short, long = bt, at
	}
	set := make(map[string]bool, len(long))
	for _, t := range long {
		set[t] = true
	}
	for _, t := range short {
		if !set[t] {
			return false
		}
	}
	return true
}

func nameTokens(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, ",", " "))
	return strings.Fields(s)
}
