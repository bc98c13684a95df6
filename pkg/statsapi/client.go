package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"impactgo/pkg/model"
	"impactgo/pkg/request"
)

const (
	defaultAPIBase  = "https://statsapi.mlb.com/api/v1"
	defaultLiveBase = "https://statsapi.mlb.com/api/v1.1"
)

// Client handles MLB Stats API interactions.
type Client struct {
	request  *request.Client
	APIBase  string // Optional override for testing
	LiveBase string // Optional override for testing
}

// NewClient creates a new Stats API client.
func NewClient(r *request.Client) *Client {
	return &Client{request: r}
}

func (c *Client) apiBase() string {
	if c.APIBase != "" {
		return c.APIBase
	}
	return defaultAPIBase
}

func (c *Client) liveBase() string {
	if c.LiveBase != "" {
		return c.LiveBase
	}
	return defaultLiveBase
}

// Schedule fetches the games for one date (YYYY-MM-DD).
func (c *Client) Schedule(ctx context.Context, date string) ([]model.Game, error) {
	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("date", date)
	q.Set("hydrate", "linescore,decisions,team")
	q.Set("useLatestGames", "false")
	q.Set("language", "en")

	u := fmt.Sprintf("%s/schedule?%s", c.apiBase(), q.Encode())

	body, err := c.request.Get(ctx, u, scheduleCacheKey(date, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("schedule fetch failed: %w", err)
	}

	var resp scheduleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("schedule decode failed: %w", err)
	}

	var games []model.Game
	for _, d := range resp.Dates {
		for _, g := range d.Games {
			games = append(games, convertGame(d.Date, &g))
		}
	}
	return games, nil
}

// scheduleCacheKey decides whether a schedule response may be cached.
// Settled dates never change, so the off-season lookback stays off the
// network; today's and yesterday's games can still be live or suspended.
func scheduleCacheKey(date string, now time.Time) string {
	if date <= now.AddDate(0, 0, -2).Format("2006-01-02") {
		return "statsapi:schedule:" + date
	}
	return ""
}

func convertGame(date string, g *scheduleGame) model.Game {
	game := model.Game{
		GamePK:     g.GamePK,
		GameDate:   g.OfficialDate,
		Status:     g.Status.StatusCode,
		HomeTeam:   g.Teams.Home.Team.Abbreviation,
		AwayTeam:   g.Teams.Away.Team.Abbreviation,
		HomeScore:  g.Teams.Home.Score,
		AwayScore:  g.Teams.Away.Score,
		Inning:     g.Linescore.CurrentInning,
		InningHalf: g.Linescore.InningHalf,
	}
	if game.GameDate == "" {
		game.GameDate = date
	}
	if t, err := time.Parse(time.RFC3339, g.GameDate); err == nil {
		game.StartTime = t
	}
	return game
}

// LiveGames returns the games worth scanning right now: live games plus
// finals that ended recently enough for clips to still matter. It checks
// today and yesterday; during the off-season (Nov-Feb) it looks back a few
// extra days so late playoff or early spring games are not missed.
func (c *Client) LiveGames(ctx context.Context, now time.Time, recentWindow time.Duration, offseasonLookback int) ([]model.Game, error) {
	dates := scanDates(now, offseasonLookback)

	var result []model.Game
	seen := make(map[int]bool)

	for _, date := range dates {
		games, err := c.Schedule(ctx, date)
		if err != nil {
			// One bad date must not sink the scan.
			slog.Debug("schedule lookup failed", "date", date, "error", err)
			continue
		}

		for _, g := range games {
			if seen[g.GamePK] {
				continue
			}
			if !g.Live() && !g.Final() {
				continue
			}
			// Skip finals whose clips are past the freshness window.
			if g.Final() && !g.StartTime.IsZero() && now.Sub(g.StartTime) > recentWindow {
				continue
			}
			seen[g.GamePK] = true
			result = append(result, g)
		}
	}
	return result, nil
}

// scanDates lists the schedule dates to check, newest first.
func scanDates(now time.Time, offseasonLookback int) []string {
	days := 2 // today and yesterday
	switch now.Month() {
	case time.November, time.December, time.January, time.February:
		if offseasonLookback > days {
			days = offseasonLookback
		}
	}

	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, now.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	return dates
}

// Plays fetches all plays of a game from the v1.1 live feed.
// Missing leverage defaults to 1.0 and inning to 1 so downstream scoring
// has usable values.
func (c *Client) Plays(ctx context.Context, gamePK int) ([]model.Play, error) {
	u := fmt.Sprintf("%s/game/%d/feed/live", c.liveBase(), gamePK)

	body, err := c.request.Get(ctx, u, "")
	if err != nil {
		return nil, fmt.Errorf("live feed fetch failed for game %d: %w", gamePK, err)
	}

	var resp liveFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("live feed decode failed for game %d: %w", gamePK, err)
	}

	plays := make([]model.Play, 0, len(resp.LiveData.Plays.AllPlays))
	for i := range resp.LiveData.Plays.AllPlays {
		plays = append(plays, convertPlay(gamePK, &resp.LiveData.Plays.AllPlays[i]))
	}
	return plays, nil
}

func convertPlay(gamePK int, fp *feedPlay) model.Play {
	p := model.Play{
		GamePK:        gamePK,
		AtBatIndex:    fp.About.AtBatIndex,
		Inning:        fp.About.Inning,
		HalfInning:    fp.About.HalfInning,
		Event:         fp.Result.Event,
		Description:   fp.Result.Description,
		Batter:        fp.Matchup.Batter.FullName,
		Pitcher:       fp.Matchup.Pitcher.FullName,
		HomeScore:     fp.Result.HomeScore,
		AwayScore:     fp.Result.AwayScore,
		LeverageIndex: fp.About.LeverageIndex,
		WPA:           fp.Result.WPA,
		HomeWinProb:   fp.About.HomeWinExpectancy,
		AwayWinProb:   fp.About.AwayWinExpectancy,
	}
	if p.LeverageIndex == 0 {
		p.LeverageIndex = 1.0
	}
	if p.Inning == 0 {
		p.Inning = 1
	}
	if t, err := time.Parse(time.RFC3339, fp.About.StartTime); err == nil {
		p.StartTime = t
	}
	return p
}
