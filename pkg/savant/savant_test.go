package savant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/db"
	"impactgo/pkg/model"
	"impactgo/pkg/request"
	"impactgo/pkg/store"
	"impactgo/pkg/tracker"
)

func testRequestConfig() *config.RequestConfig {
	return &config.RequestConfig{
		Retries: 2,
		Timeout: config.Duration(5 * time.Second),
		Backoff: config.BackoffConfig{
			BaseDelay: config.Duration(10 * time.Millisecond),
			MaxDelay:  config.Duration(100 * time.Millisecond),
		},
	}
}

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	c := NewClient(request.New(testRequestConfig(), nil, tracker.New()), &cfg.Savant)
	c.Base = base
	return c
}

func newCachingClient(t *testing.T, base string) *Client {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	cfg := config.DefaultConfig()
	c := NewClient(request.New(testRequestConfig(), store.NewSQLiteStore(d), tracker.New()), &cfg.Savant)
	c.Base = base
	return c
}

func testPlay() *model.Play {
	return &model.Play{
		GamePK:        716463,
		AtBatIndex:    42,
		Inning:        9,
		HalfInning:    "bottom",
		Event:         "Home Run",
		Batter:        "Francisco Lindor",
		LeverageIndex: 3.5,
	}
}

const statcastCSV = `pitch_type,inning,events,player_name,at_bat_number,delta_home_win_exp,sv_id
FF,9,home run,"Lindor, Francisco",42,-0.42,240830_223015
SL,9,single,"Nimmo, Brandon",40,0.05,240830_221500
CH,3,strikeout,"Alonso, Pete",15,,240830_210000
`

func TestWinProbability(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/statcast_search/csv" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("game_pk") != "716463" {
			t.Errorf("game_pk = %q", r.URL.Query().Get("game_pk"))
		}
		if r.URL.Query().Get("type") != "details" {
			t.Errorf("type = %q", r.URL.Query().Get("type"))
		}
		w.Write([]byte(statcastCSV))
	}))
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	m, err := c.WinProbability(context.Background(), testPlay(), "2025-08-30")
	if err != nil {
		t.Fatalf("WinProbability failed: %v", err)
	}
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Delta != -0.42 {
		t.Errorf("Delta = %v, want -0.42", m.Delta)
	}
	if m.SVID != "240830_223015" {
		t.Errorf("SVID = %q", m.SVID)
	}
	// delta 20 + inning 30 + partial 50 + exact 100 + batter 40 + at-bat 30
	if m.Confidence != 270 {
		t.Errorf("Confidence = %d, want 270", m.Confidence)
	}
}

func TestWinProbabilityCachesFinishedGames(t *testing.T) {
	hits := 0
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(statcastCSV))
	}))
	defer svr.Close()

	c := newCachingClient(t, svr.URL)
	ctx := context.Background()

	// Retry cycles for a prior-day game must not refetch the settled CSV.
	for i := 0; i < 2; i++ {
		m, err := c.WinProbability(ctx, testPlay(), "2020-05-01")
		if err != nil || m == nil {
			t.Fatalf("lookup %d: match %+v, err %v", i+1, m, err)
		}
	}
	if hits != 1 {
		t.Errorf("upstream hits = %d, want 1 (second lookup served from cache)", hits)
	}
}

func TestGameCacheKey(t *testing.T) {
	if got := gameCacheKey("savant:gf", 716463, "2020-05-01"); got != "savant:gf:716463" {
		t.Errorf("prior-day key = %q", got)
	}
	today := time.Now().Format("2006-01-02")
	if got := gameCacheKey("savant:gf", 716463, today); got != "" {
		t.Errorf("same-day key = %q, want empty", got)
	}
	if got := gameCacheKey("savant:gf", 716463, ""); got != "" {
		t.Errorf("unknown-date key = %q, want empty", got)
	}
}

func TestWinProbabilityBelowThreshold(t *testing.T) {
	// Only row with a delta matches nothing else: confidence stays at the
	// delta weight alone, under the minimum.
	csv := "inning,events,player_name,at_bat_number,delta_home_win_exp\n" +
		"1,groundout,\"Somebody, Else\",3,0.08\n"

	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(csv))
	}))
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	m, err := c.WinProbability(context.Background(), testPlay(), "2025-08-30")
	if err != nil {
		t.Fatalf("WinProbability failed: %v", err)
	}
	if m != nil {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestWinProbabilityEmptyBody(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	m, err := c.WinProbability(context.Background(), testPlay(), "2025-08-30")
	if err != nil || m != nil {
		t.Errorf("empty body: match %+v, err %v", m, err)
	}
}

func TestNameMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Francisco Lindor", "Lindor, Francisco", true},
		{"Francisco Lindor", "Francisco Lindor", true},
		{"Lindor", "Lindor, Francisco", true},
		{"Francisco Lindor", "Alonso, Pete", false},
		{"", "Lindor, Francisco", false},
	}
	for _, tt := range tests {
		if got := nameMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("nameMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestResolveClipTemplateHit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sporty-videos/716463/240830_223015.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})
	svr := httptest.NewServer(mux)
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	item := &model.QueuedItem{Play: *testPlay()}
	m := &Match{SVID: "240830_223015", AtBatNumber: "42"}

	got, err := c.ResolveClip(context.Background(), item, m)
	if err != nil {
		t.Fatalf("ResolveClip failed: %v", err)
	}
	want := svr.URL + "/sporty-videos/716463/240830_223015.mp4"
	if got != want {
		t.Errorf("clip = %q, want %q", got, want)
	}
}

func TestResolveClipPageFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"team_home":[{"play_id":"7373d94a-4dcf-312c-9a24-19a9aef5eeef","ab_number":43,"inning":9,"events":"Home Run","batter_name":"Francisco Lindor"}],"team_away":[]}`))
	})
	mux.HandleFunc("/sporty-videos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("playId") != "7373d94a-4dcf-312c-9a24-19a9aef5eeef" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><body><script>var clip = "https://sporty-clips.mlb.com/abc123.mp4";</script></body></html>`))
	})
	svr := httptest.NewServer(mux)
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	item := &model.QueuedItem{Play: *testPlay()}

	// No match: template probing is skipped, the page scan carries it.
	got, err := c.ResolveClip(context.Background(), item, nil)
	if err != nil {
		t.Fatalf("ResolveClip failed: %v", err)
	}
	if got != "https://sporty-clips.mlb.com/abc123.mp4" {
		t.Errorf("clip = %q", got)
	}
}

func TestResolveClipNotAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"team_home":[],"team_away":[]}`))
	})
	svr := httptest.NewServer(mux)
	defer svr.Close()

	c := newTestClient(t, svr.URL)
	item := &model.QueuedItem{Play: *testPlay()}

	got, err := c.ResolveClip(context.Background(), item, &Match{SVID: "nope"})
	if err != nil {
		t.Fatalf("ResolveClip failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected no clip, got %q", got)
	}
}

func TestExtractVideoURL(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "SportyClips",
			page: `<script>"https://sporty-clips.mlb.com/x.mp4"</script>`,
			want: "https://sporty-clips.mlb.com/x.mp4",
		},
		{
			name: "VideoURLField",
			page: `{"videoUrl": "https://example.com/clip.mp4"}`,
			want: "https://example.com/clip.mp4",
		},
		{
			name: "EscapedSlashes",
			page: `{"videoUrl": "https:\/\/example.com\/clip.mp4"}`,
			want: "https://example.com/clip.mp4",
		},
		{
			name: "SourceTag",
			page: `<html><body><video><source src="https://example.com/v.m3u8"></video></body></html>`,
			want: "https://example.com/v.m3u8",
		},
		{
			name: "Nothing",
			page: `<html><body>No video here</body></html>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractVideoURL([]byte(tt.page)); got != tt.want {
				t.Errorf("extractVideoURL = %q, want %q", got, tt.want)
			}
		})
	}
}
