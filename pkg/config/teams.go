package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TeamsConfig holds team metadata loaded from YAML.
type TeamsConfig struct {
	Hashtags map[string]string `yaml:"hashtags"`
}

// defaultHashtags maps team abbreviations to their social hashtags.
var defaultHashtags = map[string]string{
	"LAA": "#Angels", "HOU": "#Astros", "OAK": "#Athletics", "TOR": "#BlueJays",
	"ATL": "#Braves", "MIL": "#Brewers", "STL": "#Cardinals", "CHC": "#Cubs",
	"ARI": "#Dbacks", "LAD": "#Dodgers", "SF": "#SFGiants", "CLE": "#Guardians",
	"SEA": "#Mariners", "MIA": "#Marlins", "NYM": "#Mets", "WSH": "#Nationals",
	"BAL": "#Orioles", "SD": "#Padres", "PHI": "#Phillies", "PIT": "#Pirates",
	"TEX": "#Rangers", "TB": "#Rays", "BOS": "#RedSox", "CIN": "#Reds",
	"COL": "#Rockies", "KC": "#Royals", "DET": "#Tigers", "MIN": "#Twins",
	"CWS": "#WhiteSox", "NYY": "#Yankees",
}

// DefaultTeams returns the built-in team table.
func DefaultTeams() *TeamsConfig {
	hashtags := make(map[string]string, len(defaultHashtags))
	for k, v := range defaultHashtags {
		hashtags[k] = v
	}
	return &TeamsConfig{Hashtags: hashtags}
}

// LoadTeams loads the team table from a YAML file, overlaying the built-in
// defaults. A missing file is not an error; the defaults are returned.
func LoadTeams(path string) (*TeamsConfig, error) {
	cfg := DefaultTeams()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read teams file: %w", err)
	}

	var overlay TeamsConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse teams file: %w", err)
	}

	for abbr, tag := range overlay.Hashtags {
		cfg.Hashtags[strings.ToUpper(abbr)] = tag
	}

	return cfg, nil
}

// Hashtag returns the hashtag for a team abbreviation, or "" if unknown.
func (t *TeamsConfig) Hashtag(abbr string) string {
	return t.Hashtags[strings.ToUpper(abbr)]
}

// HashtagLine builds a hashtag string for the two teams in a game, falling
// back to #MLB when neither team is known.
func (t *TeamsConfig) HashtagLine(away, home string) string {
	var tags []string
	if tag := t.Hashtag(away); tag != "" {
		tags = append(tags, tag)
	}
	if tag := t.Hashtag(home); tag != "" && !strings.EqualFold(home, away) {
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return "#MLB"
	}
	return strings.Join(tags, " ")
}
