package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"recipehub/pkg/models"
)

// SQLiteLoader writes each batch in one transaction through a prepared statement.
type SQLiteLoader struct {
	DB *sql.DB
}

func NewSQLiteLoader(db *sql.DB) *SQLiteLoader {
	return &SQLiteLoader{DB: db}
}

func (l *SQLiteLoader) InsertRecipes(ctx context.Context, recipes []models.Recipe) error {
	return l.batch(ctx, "recipes", `
		INSERT INTO recipes (id, name, images, ingredient_lines, servings, diet_labels, health_labels,
			calories, nutrients, daily_nutrients, cautions, link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(recipes), func(stmt *sql.Stmt, i int) error {
		r := recipes[i]
		cols, err := jsonColumns(r.Images, r.IngredientLines, r.DietLabels, r.HealthLabels,
			r.Nutrients, r.DailyNutrients, r.Cautions)
		if err != nil {
			return fmt.Errorf("marshal recipe %s: %w", r.ID, err)
		}
		_, err = stmt.ExecContext(ctx, r.ID, r.Name, cols[0], cols[1], r.Servings, cols[2], cols[3],
			r.Calories, cols[4], cols[5], cols[6], r.Link, r.CreatedAt)
		return err
	})
}

func (l *SQLiteLoader) InsertIngredients(ctx context.Context, ingredients []models.Ingredient) error {
	return l.batch(ctx, "ingredients", `
		INSERT INTO ingredients (id, name, category) VALUES (?, ?, ?)
	`, len(ingredients), func(stmt *sql.Stmt, i int) error {
		ing := ingredients[i]
		_, err := stmt.ExecContext(ctx, ing.ID, ing.Name, ing.Category)
		return err
	})
}

func (l *SQLiteLoader) InsertRecipeIngredients(ctx context.Context, links []models.RecipeIngredient) error {
	return l.batch(ctx, "recipe_ingredients", `
		INSERT INTO recipe_ingredients (recipe_id, ingredient_id, text, quantity, measure)
		VALUES (?, ?, ?, ?, ?)
	`, len(links), func(stmt *sql.Stmt, i int) error {
		ri := links[i]
		_, err := stmt.ExecContext(ctx, ri.RecipeID, ri.IngredientID, ri.Text, ri.Quantity, ri.Measure)
		return err
	})
}

// IngredientIDs returns name -> id for every stored ingredient.
func (l *SQLiteLoader) IngredientIDs(ctx context.Context) (map[string]string, error) {
	rows, err := l.DB.QueryContext(ctx, `SELECT id, name FROM ingredients`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (l *SQLiteLoader) batch(ctx context.Context, table, query string, n int, exec func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := range n {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("insert into %s (row %d): %w", table, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	loadedRows.WithLabelValues(table).Add(float64(n))
	return nil
}

func jsonColumns(vals ...any) ([]string, error) {
	out := make([]string, len(vals))
	for i, v := range vals {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}
