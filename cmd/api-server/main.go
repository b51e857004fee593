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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"recipehub/internal/auth"
	synchub "recipehub/internal/sync"
	"recipehub/pkg/database"
	"recipehub/pkg/logging"
	"recipehub/pkg/utils"
)

func main() {
	if err := utils.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(logging.DefaultConfig())
	gin.SetMode(gin.ReleaseMode)

	dbCfg := database.DefaultConfig()
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	srvCfg := utils.LoadServerConfig()
	if err := os.MkdirAll(srvCfg.ContentDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", srvCfg.ContentDir).Msg("create content dir")
	}

	var rdb *redis.Client
	if srvCfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: srvCfg.RedisAddr})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", srvCfg.RedisAddr).Msg("redis unreachable, search cache will miss until it is back")
		}
		cancel()
	}

	authCfg := utils.LoadAuthConfig()
	tokens := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}

	router := newRouter(app{
		db:     db,
		rdb:    rdb,
		cfg:    srvCfg,
		tokens: tokens,
		hub:    synchub.NewHub(),
		log:    logger,
	})

	httpSrv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           withCORS(router, srvCfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srvCfg.Addr).Str("db", dbCfg.Path).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("server stopped")
}
