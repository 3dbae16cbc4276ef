package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legalsum/internal/config"
	"legalsum/internal/database"
	"legalsum/internal/extract"
	"legalsum/internal/feed"
	"legalsum/internal/queue"
	"legalsum/internal/scheduler"
	"legalsum/internal/server"
	"legalsum/internal/summarizer"
	"legalsum/internal/tokenizer"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	var level slog.Level
	if err = level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.WarnContext(ctx, "Unknown log level so info will be used",
			"logLevel", cfg.LogLevel)
	} else {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(log)
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	backend, err := initSummarizer(cfg)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarizer",
			"error", err,
			"modelPath", cfg.ModelPath,
			"inferenceBaseURL", cfg.InferenceBaseURL)

		return
	}
	log.InfoContext(ctx, "Summarizer is initialized",
		"modelPath", cfg.ModelPath,
		"modelName", cfg.ModelName,
		"inferenceBaseURL", cfg.InferenceBaseURL)

	genQueue := queue.New(backend, cfg.QueueSize, cfg.GenerationTimeout, log)
	defer genQueue.Stop()

	cached := summarizer.NewCachedSummarizer(genQueue, cfg.CacheEntries, cfg.CacheTTL)

	extractor, err := extract.New(cfg.FetchURLs)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize extractor",
			"error", err)

		return
	}

	var feeds scheduler.FeedChecker
	if len(cfg.JudgmentFeeds) > 0 {
		watcher := feed.NewWatcher(cfg.JudgmentFeeds, db, cached, extractor, log)
		feeds = watcher
		log.InfoContext(ctx, "Judgment feed watcher is initialized",
			"feedCount", len(watcher.Feeds()))
	}

	sched := scheduler.New(ctx, feeds, db, cfg.HistoryRetention, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"feedCheckSpec", scheduler.FeedCheckSpec,
			"historyPruneSpec", scheduler.HistoryPruneSpec)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"jobCount", sched.JobCount(),
		"timezone", time.FixedZone(scheduler.Timezone, scheduler.TimezoneOffsetSeconds).String())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cached, extractor, db, genQueue.Len, log).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.InfoContext(ctx, "Server is started",
		"addr", cfg.Addr)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed",
				"error", err,
				"addr", cfg.Addr)
		}
	}

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down server",
			"error", err)
	}
	cancel()
	log.InfoContext(shutdownCtx, "Server is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

func initSummarizer(cfg config.Config) (*summarizer.OpenAISummarizer, error) {
	tok, err := tokenizer.Load(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	truncator, err := tokenizer.NewTruncator(tok)
	if err != nil {
		return nil, err
	}

	params := summarizer.DefaultParams()
	params.MaxInputTokens = cfg.MaxInputTokens
	params.MaxLength = cfg.MaxLength
	params.MinLength = cfg.MinLength
	params.NumBeams = cfg.NumBeams
	params.LengthPenalty = cfg.LengthPenalty
	params.NoRepeatNgramSize = cfg.NoRepeatNgramSize

	return summarizer.NewOpenAISummarizer(
		cfg.InferenceBaseURL,
		cfg.InferenceAPIKey,
		cfg.ModelName,
		params,
		truncator,
	)
}
