package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

type config struct {
	Port        string
	DataPath    string
	StoreDriver string
	DatabaseURL string
	DocName     string
	LogLevel    string

	MetricsEnabled    bool
	MetricsToken      string
	CreateLimitPerMin int
}

func loadConfig() (config, error) {
	cfg := config{
		Port:         getenv("PORT", "8082"),
		DataPath:     getenv("DATA_PATH", "data/items.json"),
		StoreDriver:  getenv("STORE_DRIVER", "file"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DocName:      getenv("DOCUMENT_NAME", "items"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		MetricsToken: os.Getenv("METRICS_TOKEN"),
	}

	var err error
	if cfg.MetricsEnabled, err = strconv.ParseBool(getenv("METRICS_ENABLED", "true")); err != nil {
		return config{}, fmt.Errorf("METRICS_ENABLED: %w", err)
	}
	if cfg.CreateLimitPerMin, err = strconv.Atoi(getenv("CREATE_LIMIT_PER_MIN", "120")); err != nil {
		return config{}, fmt.Errorf("CREATE_LIMIT_PER_MIN: %w", err)
	}

	switch cfg.StoreDriver {
	case "file":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return config{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func main() {
	service := "catalog"

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, newWatcher, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store failed", zap.Error(err), zap.String("driver", cfg.StoreDriver))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stats := catalog.NewStatsCache(catalog.NewStatsMetrics(reg))

	watch := &catalog.WatchSupervisor{New: newWatcher, Stats: stats, Log: log}
	go watch.Run(ctx)

	s := &catalog.Server{
		Store:       store,
		Stats:       stats,
		IDs:         catalog.NewIDGenerator(),
		Log:         log,
		ReadyChecks: []func(context.Context) error{watch.Ready},
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:               log,
		Service:           service,
		Registry:          reg,
		MetricsEnabled:    cfg.MetricsEnabled,
		MetricsToken:      cfg.MetricsToken,
		CreateLimitPerMin: cfg.CreateLimitPerMin,
	})

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config, log *zap.Logger) (catalog.Store, func() (catalog.Watcher, error), func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		ps, err := catalog.OpenPostgresStore(cfg.DatabaseURL, cfg.DocName, log)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := ps.Migrate(ctx); err != nil {
			_ = ps.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		// each Run opens its own listener connection
		newWatcher := func() (catalog.Watcher, error) { return ps, nil }
		return ps, newWatcher, func() { _ = ps.Close() }, nil

	default:
		fs := catalog.NewFileStore(cfg.DataPath)
		if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o755); err != nil {
			return nil, nil, nil, err
		}
		newWatcher := func() (catalog.Watcher, error) { return catalog.NewFileWatcher(cfg.DataPath, log) }
		log.Info("using file store", zap.String("path", fs.Path()))
		return fs, newWatcher, func() {}, nil
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
