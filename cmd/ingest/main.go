package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"recipehub/internal/ingest"
	"recipehub/internal/recipe"
	"recipehub/pkg/database"
	"recipehub/pkg/logging"
	"recipehub/pkg/utils"
)

func main() {
	os.Exit(realMain(os.Args))
}

// realMain runs the command and returns the process exit code, so deferred
// cleanup runs before the process exits.
func realMain(args []string) int {
	if err := utils.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		return 1
	}
	logging.Setup(logging.DefaultConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, args); err != nil {
		ev := log.Error().Err(err)
		var se *ingest.StageError
		if errors.As(err, &se) {
			ev = ev.Str("stage", string(se.Stage))
		}
		ev.Msg("ingestion failed")
		return 1
	}
	return 0
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load recipes from the Edamam API into the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Value: ingest.DefaultQuery,
				Usage: "search term sent to the recipe API",
			},
			&cli.StringFlag{
				Name:    "app-id",
				Value:   ingest.DefaultAppID,
				Usage:   "Edamam application id",
				Sources: cli.EnvVars("EDAMAM_APP_ID"),
			},
			&cli.StringFlag{
				Name:    "app-key",
				Usage:   "Edamam application key (required)",
				Sources: cli.EnvVars("EDAMAM_APP_KEY"),
			},
			&cli.StringFlag{
				Name:  "base-url",
				Value: ingest.DefaultBaseURL,
				Usage: "recipe search endpoint",
			},
			&cli.IntFlag{
				Name:  "threshold",
				Value: ingest.DefaultThreshold,
				Usage: "stop once the reported remaining count drops to this value",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Value: ingest.DefaultDelay,
				Usage: "minimum delay between page requests",
			},
			&cli.StringFlag{
				Name:    "content-dir",
				Value:   "images",
				Usage:   "directory downloaded images are written to",
				Sources: cli.EnvVars("RECIPEHUB_CONTENT_DIR"),
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: ingest.DefaultConcurrency,
				Usage: "parallel image downloads per page",
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   "sqlite",
				Usage:   "target store: sqlite or mongo",
				Sources: cli.EnvVars("RECIPEHUB_STORE"),
			},
			&cli.StringFlag{
				Name:    "db",
				Value:   database.DefaultConfig().Path,
				Usage:   "SQLite database path",
				Sources: cli.EnvVars("RECIPEHUB_DB_PATH"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "search cache to flush after a successful load",
				Sources: cli.EnvVars("RECIPEHUB_REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address while running",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "walk, validate and download without writing to the store",
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger := logging.NewLogger("ingest")

	pages, err := ingest.NewPaginator(ingest.PaginatorConfig{
		BaseURL:   cmd.String("base-url"),
		Query:     cmd.String("query"),
		AppID:     cmd.String("app-id"),
		AppKey:    cmd.String("app-key"),
		Delay:     cmd.Duration("delay"),
		Threshold: int(cmd.Int("threshold")),
		Log:       logger,
	})
	if err != nil {
		return &ingest.StageError{Stage: ingest.StageConfig, Err: err}
	}

	loader, closeStore, err := openLoader(ctx, storeConfig{
		Store:  cmd.String("store"),
		DBPath: cmd.String("db"),
		DryRun: cmd.Bool("dry-run"),
	}, logger)
	if err != nil {
		return &ingest.StageError{Stage: ingest.StageConfig, Err: err}
	}
	defer closeStore()

	if addr := cmd.String("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	reg := ingest.NewRegistry()
	if lister, ok := loader.(ingest.IngredientLister); ok {
		existing, err := lister.IngredientIDs(ctx)
		if err != nil {
			return &ingest.StageError{Stage: ingest.StageConfig, Err: err}
		}
		reg.Seed(existing)
		logger.Info().Int("ingredients", len(existing)).Msg("seeded ingredient registry")
	}

	p := &ingest.Pipeline{
		Pages:  pages,
		Images: ingest.NewImageFetcher(cmd.String("content-dir"), int(cmd.Int("concurrency")), logger),
		Loader: loader,
		Log:    logger,
	}

	logger.Info().
		Str("query", cmd.String("query")).
		Str("store", cmd.String("store")).
		Bool("dry_run", cmd.Bool("dry-run")).
		Dur("delay", cmd.Duration("delay")).
		Msg("starting ingestion")

	ingestion := ingest.NewIngestionRun(reg)
	if err := p.Run(ctx, ingestion); err != nil {
		return err
	}

	if addr := cmd.String("redis-addr"); addr != "" && !cmd.Bool("dry-run") {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		if err := recipe.NewSearchCache(rdb, 0).Flush(ctx); err != nil {
			logger.Warn().Err(err).Msg("flush search cache")
		}
	}
	return nil
}

type storeConfig struct {
	Store  string // sqlite or mongo
	DBPath string
	DryRun bool
}

func openLoader(ctx context.Context, sc storeConfig, logger zerolog.Logger) (ingest.Loader, func(), error) {
	if sc.DryRun {
		return ingest.DiscardLoader{Log: logger}, func() {}, nil
	}

	switch sc.Store {
	case "sqlite":
		db, err := database.Open(database.Config{Path: sc.DBPath})
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return ingest.NewSQLiteLoader(db), func() { _ = db.Close() }, nil

	case "mongo":
		cfg := database.DefaultMongoConfig()
		client, err := database.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return ingest.NewMongoLoader(client.Database(cfg.Database)), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want sqlite or mongo)", sc.Store)
	}
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
	return srv
}
