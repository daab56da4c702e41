// Package main provides the entry point for the ChessMate context server.
// The server keeps per-session conversational context for a chess-game
// retrieval assistant: it records turns, classifies utterances, compiles
// filters and serves fresh or refined result sets over a JSON API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/chessmate-ai/chessmate/internal/api"
	"github.com/chessmate-ai/chessmate/internal/buildinfo"
	"github.com/chessmate-ai/chessmate/internal/config"
	"github.com/chessmate-ai/chessmate/internal/ledger"
	"github.com/chessmate-ai/chessmate/internal/logging"
	"github.com/chessmate-ai/chessmate/internal/orchestrator"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
	"github.com/chessmate-ai/chessmate/internal/usage"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("ChessMate Context Server Version: %s, Commit: %s, BuiltAt: %s\n",
		buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		return
	}

	// A .env next to the binary supplements the environment; absence is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("loading .env: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}
	applyEnvOverrides(cfg)
	logging.SetLogLevel(cfg.LoggingLevel)
	logging.EnableFileOutput(cfg.LogFile)
	usage.SetMetricsEnabled(cfg.Metrics)
	if cfg.Metrics {
		usage.RegisterMetrics()
	}

	store, err := ledger.NewSQLiteStore(cfg.SQLitePath, nil)
	if err != nil {
		log.Fatalf("open session log %s: %v", cfg.SQLitePath, err)
	}
	defer func() { _ = store.Close() }()

	cache := buildSessionCache(cfg)
	led := ledger.New(store, cache, ledger.Config{
		CacheCapacity: cfg.Ledger.CacheCapacity,
		CacheTTL:      cfg.Ledger.CacheTTL(),
		Lookback:      cfg.Ledger.Lookback,
	})

	var search retrieval.Client
	search = retrieval.NewHTTPClient(cfg.Retrieval.BaseURL, cfg.Retrieval.APIKey, cfg.Retrieval.Timeout())
	search = retrieval.NewQueryCache(search, retrieval.QueryCacheConfig{
		Enabled: cfg.QueryCache.Enabled,
		MaxSize: cfg.QueryCache.MaxSize,
		TTL:     cfg.QueryCache.TTL(),
	}, nil)

	orch := orchestrator.New(led, search, orchestrator.Config{SearchLimit: cfg.SearchLimit}, nil)
	server := api.NewServer(cfg, orch, led)

	watcher := config.NewWatcher(configPath, func(next *config.Config) {
		// Only logging knobs apply without a restart; structural settings
		// stay as loaded.
		logging.SetLogLevel(next.LoggingLevel)
	})
	if err := watcher.Start(); err != nil {
		log.Warnf("config watcher: %v", err)
	}
	defer watcher.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server: %v", err)
		}
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}
}

// buildSessionCache prefers Redis and degrades to the in-process cache when
// no address is configured or the initial ping fails.
func buildSessionCache(cfg *config.Config) ledger.Cache {
	if cfg.Redis.Addr == "" {
		log.Info("session cache: no redis address, running in-process")
		usage.SetLedgerDegraded(true)
		return ledger.NewMemoryCache(nil)
	}
	cache, err := ledger.NewRedisCache(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warnf("session cache: redis %s unreachable, degrading to in-process: %v", cfg.Redis.Addr, err)
		usage.SetLedgerDegraded(true)
		return ledger.NewMemoryCache(nil)
	}
	log.Infof("session cache: redis at %s", cfg.Redis.Addr)
	usage.SetLedgerDegraded(false)
	return cache
}

// applyEnvOverrides lets deployment environments override file settings
// without editing the file.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("CHESSMATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("CHESSMATE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CHESSMATE_SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("CHESSMATE_RETRIEVAL_URL"); v != "" {
		cfg.Retrieval.BaseURL = v
	}
	if v := os.Getenv("CHESSMATE_RETRIEVAL_API_KEY"); v != "" {
		cfg.Retrieval.APIKey = v
	}
	if v := os.Getenv("CHESSMATE_LOG_LEVEL"); v != "" {
		cfg.LoggingLevel = v
	}
}
