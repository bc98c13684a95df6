package savant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"impactgo/pkg/model"
)

// Clip URL scan order matters: the sporty-clips CDN link is the real asset,
// the generic patterns are fallbacks that can pick up player thumbnails.
var clipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://sporty-clips\.mlb\.com/[^"'\s\\]*\.mp4`),
	regexp.MustCompile(`"videoUrl"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`"url"\s*:\s*"([^"]*\.mp4[^"]*)"`),
	regexp.MustCompile(`"src"\s*:\s*"([^"]*\.mp4[^"]*)"`),
	regexp.MustCompile(`https?://[^"'\s\\]*\.mp4[^"'\s\\]*`),
	regexp.MustCompile(`https?://[^"'\s\\]*\.m3u8[^"'\s\\]*`),
}

// ResolveClip finds a downloadable video URL for a queued play. It probes
// the known URL templates first, then falls back to scanning the
// sporty-videos page for the play. An empty result with a nil error means
// the clip is not available yet; Savant publishes video well after the
// play happens.
func (c *Client) ResolveClip(ctx context.Context, item *model.QueuedItem, m *Match) (string, error) {
	for _, u := range c.templateURLs(item, m) {
		ok, err := c.request.Head(ctx, u)
		if err != nil {
			return "", fmt.Errorf("clip probe failed: %w", err)
		}
		if ok {
			return u, nil
		}
	}

	playID, err := c.playUUID(ctx, &item.Play, item.GameDate)
	if err != nil {
		return "", err
	}
	if playID == "" {
		return "", nil
	}

	page := fmt.Sprintf("%s/sporty-videos?playId=%s", c.base(), url.QueryEscape(playID))
	body, err := c.request.Get(ctx, page, "")
	if err != nil {
		return "", fmt.Errorf("clip page fetch failed: %w", err)
	}
	return extractVideoURL(body), nil
}

func (c *Client) templateURLs(item *model.QueuedItem, m *Match) []string {
	if m == nil {
		return nil
	}
	var urls []string
	if m.SVID != "" {
		urls = append(urls,
			fmt.Sprintf("%s/sporty-videos/%d/%s.mp4", c.base(), item.Play.GamePK, m.SVID),
			fmt.Sprintf("%s/illustrator/download?game_pk=%d&sv_id=%s", c.base(), item.Play.GamePK, m.SVID),
		)
	}
	if m.AtBatNumber != "" {
		urls = append(urls,
			fmt.Sprintf("%s/videos/%d/%s.mp4", c.base(), item.Play.GamePK, m.AtBatNumber))
	}
	return urls
}

// gf is Savant's per-game feed; it carries the play UUID the video pages
// are keyed by.
type gfResponse struct {
	TeamHome []gfPlay `json:"team_home"`
	TeamAway []gfPlay `json:"team_away"`
}

type gfPlay struct {
	PlayID     string `json:"play_id"`
	ABNumber   int    `json:"ab_number"`
	Inning     int    `json:"inning"`
	Events     string `json:"events"`
	BatterName string `json:"batter_name"`
}

// playUUID resolves the Savant play UUID for a live-feed play. The gf feed
// numbers at-bats from 1 while the live feed indexes from 0; batter+inning
// is the fallback when the numbering does not line up.
func (c *Client) playUUID(ctx context.Context, play *model.Play, gameDate string) (string, error) {
	u := fmt.Sprintf("%s/gf?game_pk=%d", c.base(), play.GamePK)

	body, err := c.request.Get(ctx, u, gameCacheKey("savant:gf", play.GamePK, gameDate))
	if err != nil {
		return "", fmt.Errorf("gf fetch failed for game %d: %w", play.GamePK, err)
	}

	var resp gfResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil
	}

	all := append(resp.TeamHome, resp.TeamAway...)

	for _, p := range all {
		if p.PlayID == "" {
			continue
		}
		if p.ABNumber == play.AtBatIndex+1 || p.ABNumber == play.AtBatIndex {
			return p.PlayID, nil
		}
	}
	for _, p := range all {
		if p.PlayID == "" || p.Inning != play.Inning {
			continue
		}
		if nameMatch(play.Batter, p.BatterName) {
			return p.PlayID, nil
		}
	}
	return "", nil
}

// extractVideoURL scans a Savant video page for the clip asset. Regex
// first, then a proper HTML pass for video/source tags. Returns "" when
// nothing useful is on the page.
func extractVideoURL(page []byte) string {
	text := string(page)
	for _, re := range clipPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		u := m[0]
		if len(m) > 1 {
			u = m[1]
		}
		u = strings.ReplaceAll(u, `\/`, "/")
		if strings.HasPrefix(u, "http") {
			return u
		}
	}
	return extractFromHTML(text)
}

func extractFromHTML(text string) string {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return ""
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "video" || n.Data == "source") {
			for _, a := range n.Attr {
				if a.Key == "src" && strings.HasPrefix(a.Val, "http") {
					found = a.Val
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}
