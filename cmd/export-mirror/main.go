package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"recipehub/internal/mirror"
	"recipehub/internal/recipe"
	"recipehub/pkg/database"
	"recipehub/pkg/logging"
	"recipehub/pkg/utils"
)

func main() {
	if err := utils.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(logging.DefaultConfig())

	cmd := &cli.Command{
		Name:  "export-mirror",
		Usage: "write the stored catalog as Edamam search hits for mirror-server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite database path", Sources: cli.EnvVars("RECIPEHUB_DB_PATH")},
			&cli.StringFlag{Name: "out", Value: "data/mirror.json", Usage: "output JSON path"},
			&cli.IntFlag{Name: "limit", Value: 200, Usage: "how many recipes to export (0 for all)"},
			&cli.StringFlag{Name: "image-base", Value: "http://127.0.0.1:8090/images/", Usage: "URL prefix for image files"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()

			cfg := database.DefaultConfig()
			if p := cmd.String("db"); p != "" {
				cfg.Path = p
			}
			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("db migrate: %w", err)
			}

			hits, err := mirror.FromCatalog(ctx, recipe.NewRepo(db), cmd.String("image-base"), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			if err := mirror.Save(cmd.String("out"), hits); err != nil {
				return fmt.Errorf("write mirror: %w", err)
			}

			log.Info().Int("recipes", len(hits)).Str("out", cmd.String("out")).Msg("mirror exported")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("export-mirror failed")
	}
}
