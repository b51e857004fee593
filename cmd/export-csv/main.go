package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

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
		Name:  "export-csv",
		Usage: "dump the recipe catalog to CSV files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite database path", Sources: cli.EnvVars("RECIPEHUB_DB_PATH")},
			&cli.StringFlag{Name: "recipes", Value: "data/recipes.csv", Usage: "output CSV path for recipes"},
			&cli.StringFlag{Name: "ingredients", Value: "data/ingredients.csv", Usage: "output CSV path for ingredients"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
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

			n, err := exportRecipes(ctx, db, cmd.String("recipes"))
			if err != nil {
				return fmt.Errorf("export recipes: %w", err)
			}
			m, err := exportIngredients(ctx, db, cmd.String("ingredients"))
			if err != nil {
				return fmt.Errorf("export ingredients: %w", err)
			}

			log.Info().
				Int("recipes", n).
				Int("ingredients", m).
				Str("recipes_path", cmd.String("recipes")).
				Str("ingredients_path", cmd.String("ingredients")).
				Msg("export complete")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
}

func createCSV(outPath string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, csv.NewWriter(f), nil
}

var recipeHeader = []string{"id", "name", "servings", "calories", "diet_labels", "health_labels", "cautions", "ingredient_lines", "image", "link"}

func exportRecipes(ctx context.Context, db *sql.DB, outPath string) (int, error) {
	f, w, err := createCSV(outPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := w.Write(recipeHeader); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `SELECT `+recipe.Columns+` FROM recipes ORDER BY name, id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		rec, err := recipe.ScanRecipe(rows)
		if err != nil {
			return n, err
		}
		image, _ := recipe.PickImage(rec.Images, "largest")

		if err := w.Write([]string{
			rec.ID,
			rec.Name,
			strconv.FormatFloat(rec.Servings, 'f', -1, 64),
			strconv.FormatFloat(rec.Calories, 'f', 2, 64),
			strings.Join(rec.DietLabels, "|"),
			strings.Join(rec.HealthLabels, "|"),
			strings.Join(rec.Cautions, "|"),
			strings.Join(rec.IngredientLines, "|"),
			image,
			rec.Link,
		}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	w.Flush()
	return n, w.Error()
}

func exportIngredients(ctx context.Context, db *sql.DB, outPath string) (int, error) {
	f, w, err := createCSV(outPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := w.Write([]string{"id", "name", "category", "recipes"}); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT i.id, i.name, i.category, COUNT(DISTINCT ri.recipe_id)
        FROM ingredients i
        LEFT JOIN recipe_ingredients ri ON ri.ingredient_id = i.id
        GROUP BY i.id, i.name, i.category
        ORDER BY i.name
    `)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			id, name, category string
			uses               int
		)
		if err := rows.Scan(&id, &name, &category, &uses); err != nil {
			return n, err
		}
		if err := w.Write([]string{id, name, category, strconv.Itoa(uses)}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	w.Flush()
	return n, w.Error()
}
