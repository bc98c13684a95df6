package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"impactgo/internal/api"
	"impactgo/pkg/config"
	"impactgo/pkg/core"
	"impactgo/pkg/db"
	"impactgo/pkg/enricher"
	"impactgo/pkg/logging"
	"impactgo/pkg/media"
	"impactgo/pkg/metrics"
	"impactgo/pkg/probe"
	"impactgo/pkg/publisher"
	"impactgo/pkg/queue"
	"impactgo/pkg/request"
	"impactgo/pkg/savant"
	"impactgo/pkg/scorer"
	"impactgo/pkg/statsapi"
	"impactgo/pkg/store"
	"impactgo/pkg/tracker"
	"impactgo/pkg/version"
)

// cachePruneAge is how long polled API responses stay in the cache table.
const cachePruneAge = 7 * 24 * time.Hour

var (
	configPath = flag.String("config", "configs/impactgo.yaml", "Path to config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Secrets (webhook URL) may come from a local .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("MLB Impact Tracker started", "version", version.Version)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.PruneCache(cachePruneAge); err != nil {
		slog.Warn("Cache pruning failed", "error", err)
	}

	st := store.NewSQLiteStore(dbConn)
	tr := tracker.New()
	daily := tracker.NewDaily(st)
	daily.Load(ctx)

	teams, err := config.LoadTeams("configs/teams.yaml")
	if err != nil {
		return fmt.Errorf("failed to load teams config: %w", err)
	}

	reqClient := request.New(&appCfg.Request, st, tr)

	games := statsapi.NewClient(reqClient)
	sv := savant.NewClient(reqClient, &appCfg.Savant)
	pub := publisher.New(&appCfg.Discord, teams, reqClient)
	sc := scorer.NewScorer(&appCfg.Scorer)

	conv := media.NewConverter(&appCfg.Media, reqClient)
	var enrichConv enricher.Converter
	if conv.Available() {
		enrichConv = conv
	} else {
		slog.Warn("ffmpeg not found, publishing text-only posts", "path", appCfg.Media.FFmpegPath)
	}

	q := queue.NewManager(&appCfg.Queue, st)
	if err := q.Hydrate(ctx); err != nil {
		return fmt.Errorf("failed to hydrate queue: %w", err)
	}

	m := metrics.New()

	// Startup probes. The schedule endpoint must answer; ffmpeg and the
	// webhook are optional and only degrade the output.
	results := probe.Run(ctx, []probe.Probe{
		probe.DataDir(&appCfg.DB),
		probe.StatsAPI(games),
		probe.FFmpeg(&appCfg.Media),
		probe.Webhook(&appCfg.Discord),
	})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	enr := enricher.New(&appCfg.Queue, q, sv, enrichConv, pub, sc, daily, m)
	go enr.Run(ctx)

	scanJob := core.NewScanJob(appCfg, games, sv, sc, q, daily, m)
	sched := core.NewScheduler(time.Second)
	sched.AddJob(scanJob)
	sched.AddJob(core.NewCleanupJob(q, daily, 10*time.Minute))
	sched.AddJob(core.NewHeartbeatJob(q, daily, tr, time.Now(), time.Duration(appCfg.Monitor.Heartbeat)))
	go sched.Start(ctx)

	srv := buildServer(appCfg, q, daily, tr, pub, scanJob, enr, m, cancel)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return runServerLifecycle(ctx, srv, quit)
}

func buildServer(cfg *config.Config, q *queue.Manager, daily *tracker.DailyCounters,
	tr *tracker.Tracker, pub *publisher.Publisher, scanJob *core.ScanJob,
	enr *enricher.Enricher, m *metrics.Metrics, shutdown func()) *http.Server {
	status := &api.StatusHandler{
		Queue:     q,
		Daily:     daily,
		Tracker:   tr,
		Started:   time.Now(),
		Publisher: pub,
		Monitor:   scanJob,
	}

	control := &api.ControlHandler{
		Actions: map[string]func(ctx context.Context) error{
			"scan": func(ctx context.Context) error {
				go scanJob.Run(ctx, time.Now())
				return nil
			},
			"pause": func(ctx context.Context) error {
				scanJob.SetPaused(true)
				return nil
			},
			"resume": func(ctx context.Context) error {
				scanJob.SetPaused(false)
				return nil
			},
			"process": func(ctx context.Context) error {
				go enr.Process(ctx)
				return nil
			},
			"cleanup": func(ctx context.Context) error {
				q.Cleanup(ctx)
				return nil
			},
		},
	}
	if pub.Configured() {
		control.TestWebhook = func(ctx context.Context) error {
			return pub.SendStatus(ctx, "Test", "Webhook connectivity check", true)
		}
	}

	return api.NewServer(cfg.Server.Address, status, control, api.NewWSHandler(status), m.Handler(), shutdown)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
