package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"recipehub/internal/mirror"
	"recipehub/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.DefaultConfig())
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "mirror-server",
		Usage: "serve data/mirror.json as a local Edamam recipe search",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:8090"},
			&cli.StringFlag{Name: "data", Value: "data/mirror.json", Usage: "file written by export-mirror"},
			&cli.StringFlag{Name: "images", Value: "images", Usage: "directory served under /images", Sources: cli.EnvVars("RECIPEHUB_CONTENT_DIR")},
			&cli.IntFlag{Name: "page-size", Value: mirror.DefaultPageSize},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			hits, err := mirror.Load(cmd.String("data"))
			if err != nil {
				return err
			}

			router := gin.New()
			router.Use(gin.Recovery(), logging.GinMiddleware(logger))
			mirror.NewServer(hits, int(cmd.Int("page-size")), logger).RegisterRoutes(router)
			router.Static("/images", cmd.String("images"))

			srv := &http.Server{Addr: cmd.String("addr"), Handler: router, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info().Str("addr", srv.Addr).Int("recipes", len(hits)).Msg("mirror listening on /api/recipes/v2")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("mirror-server failed")
	}
}
