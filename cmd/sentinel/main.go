package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ValuationSentinel/internal/calculator"
	"ValuationSentinel/internal/collector"
	"ValuationSentinel/internal/config"
	"ValuationSentinel/internal/evaluator"
	"ValuationSentinel/internal/indicator"
	"ValuationSentinel/internal/metrics"
	"ValuationSentinel/internal/notifier"
	"ValuationSentinel/internal/recorder"
	"ValuationSentinel/internal/scheduler"
	"ValuationSentinel/internal/server"
	"ValuationSentinel/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] ValuationSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fetcher, err := buildFetcher(ctx, cfg, m)
	if err != nil {
		log.Fatalf("[FATAL] init data source: %v", err)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Indicator engine and classifier
	rsiMethod, err := calculator.ParseRSIMethod(cfg.Engine.RSIMethod)
	if err != nil {
		log.Fatalf("[FATAL] init indicator engine: %v", err)
	}
	engine := indicator.NewEngine(indicator.Options{
		RSIMethod:        rsiMethod,
		RSIPeriod:        cfg.Engine.RSIPeriod,
		TrendWindow:      cfg.Engine.TrendWindow,
		BazinTargetYield: cfg.Classifier.BazinTargetYield,
	})
	policy, err := strategy.NewPolicy(cfg.Classifier.Policy, cfg.Classifier.Thresholds)
	if err != nil {
		log.Fatalf("[FATAL] init classifier: %v", err)
	}
	log.Printf("[INFO] policy=%s rsi=%s(%d) trend=MA%d workers=%d",
		policy.Name(), engine.RSIMethod(), cfg.Engine.RSIPeriod, cfg.Engine.TrendWindow, cfg.Engine.Workers)

	col := collector.NewCollector(fetcher, engine, cfg.DataSource.LookbackDays, cfg.DataSource.Timeout)
	col.Metrics = m
	ev := evaluator.New(col, policy, cfg.Engine.Workers)
	ev.RSIMethod = string(engine.RSIMethod())
	ev.Metrics = m

	if os.Getenv("RUN_ONCE") == "true" {
		run := ev.Run(ctx, cfg.Watchlist)
		fmt.Println(notifier.FormatReport(run))
		return
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			log.Printf("[WARN] create data dir: %v", err)
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
		n = tn
	} else {
		log.Println("[INFO] telegram not configured, notifications disabled")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, ev, cfg.Watchlist, n, rec)
	sched.Cache = fetcher
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// HTTP API
	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           server.NewRouter(&server.Handler{Refresher: sched, Recorder: rec}, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[INFO] http listening on %s", cfg.HTTP.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] http server: %v", err)
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, refreshing now")
		go func() {
			if _, err := sched.RefreshNow(ctx); err != nil {
				log.Printf("[WARN] initial refresh: %v", err)
			}
		}()
	}

	log.Println("[INFO] ValuationSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] ValuationSentinel stopped")
}

// buildFetcher selects the provider and stacks rate limiting and caching on top.
func buildFetcher(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*collector.CachingFetcher, error) {
	scale, err := collector.ParseRatioScale(cfg.DataSource.YieldScale)
	if err != nil {
		return nil, err
	}

	var base collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		base = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.DataSource.Proxy, cfg.DataSource.Timeout, scale)
	case "mock":
		base = &collector.MockFetcher{Price: 25}
	default:
		yf := collector.NewYahooFetcher(cfg.DataSource.Proxy, cfg.DataSource.Timeout)
		if cfg.DataSource.BaseURL != "" {
			yf.BaseURL = cfg.DataSource.BaseURL
		}
		base = yf
	}
	limited := collector.NewRateLimitedFetcher(base, cfg.DataSource.MinInterval)

	var store collector.Store
	if cfg.Cache.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rdb, err := collector.NewRedisClient(pingCtx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Printf("[WARN] redis unavailable, using in-memory cache: %v", err)
			store = collector.NewMemoryStore()
		} else {
			store = collector.NewRedisStore(rdb)
		}
	} else {
		store = collector.NewMemoryStore()
	}

	cached := collector.NewCachingFetcher(limited, store, cfg.Cache.TTL, "valuation")
	cached.Metrics = m
	return cached, nil
}
