package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"recipehub/pkg/models"
)

// randomAttempts bounds Random when rows vanish between COUNT and SELECT.
const randomAttempts = 3

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q           string   // keyword in recipe name
	Diet        []string // all-match
	Health      []string // all-match
	Ingredient  string   // recipe uses an ingredient whose name contains this
	MinCalories *float64
	MaxCalories *float64
	Limit       int
	Offset      int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Columns is the recipe column list ScanRecipe expects.
const Columns = `id, name, images, ingredient_lines, servings, diet_labels, health_labels,
	calories, nutrients, daily_nutrients, cautions, link, created_at`

type RowScanner interface {
	Scan(dest ...any) error
}

// ScanRecipe reads the Columns of one recipe row followed by any extra
// destinations selected after them.
func ScanRecipe(s RowScanner, extra ...any) (models.Recipe, error) {
	var rec models.Recipe
	var images, lines, diet, health, nutr, daily, caut string
	dest := []any{
		&rec.ID, &rec.Name, &images, &lines, &rec.Servings, &diet, &health,
		&rec.Calories, &nutr, &daily, &caut, &rec.Link, &rec.CreatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return rec, err
	}

	for _, f := range []struct {
		raw string
		dst any
	}{
		{images, &rec.Images},
		{lines, &rec.IngredientLines},
		{diet, &rec.DietLabels},
		{health, &rec.HealthLabels},
		{nutr, &rec.Nutrients},
		{daily, &rec.DailyNutrients},
		{caut, &rec.Cautions},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return rec, fmt.Errorf("decode recipe %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.RecipeDetail, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+Columns+` FROM recipes WHERE id = ?`, id)

	rec, err := ScanRecipe(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}

	ings, err := r.Ingredients(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.RecipeDetail{Recipe: rec, Ingredients: ings}, nil
}

// Exists reports whether a recipe with the id is in the catalog.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM recipes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// Ingredients returns the join rows of a recipe in insertion order.
func (r *Repo) Ingredients(ctx context.Context, recipeID string) ([]models.RecipeIngredientView, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT ri.ingredient_id, i.name, i.category, ri.text, ri.quantity, ri.measure
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ?
		ORDER BY ri.id ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("ingredients query: %w", err)
	}
	defer rows.Close()

	out := []models.RecipeIngredientView{}
	for rows.Next() {
		var v models.RecipeIngredientView
		if err := rows.Scan(&v.IngredientID, &v.Name, &v.Category, &v.Text, &v.Quantity, &v.Measure); err != nil {
			return nil, fmt.Errorf("ingredients scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Recipe, error) {
	sqlStr, args := buildListSQL(q, false)
	return r.query(ctx, sqlStr, args...)
}

// SearchByKeyword matches the keyword case-insensitively against recipe names.
func (r *Repo) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]models.Recipe, error) {
	return r.List(ctx, ListQuery{Q: keyword, Limit: limit})
}

// Random picks one recipe uniformly. It returns nil when the catalog is empty.
func (r *Repo) Random(ctx context.Context) (*models.RecipeDetail, error) {
	for range randomAttempts {
		total, err := r.Count(ctx, ListQuery{})
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return nil, nil
		}

		row := r.DB.QueryRowContext(ctx,
			`SELECT id FROM recipes ORDER BY id LIMIT 1 OFFSET ?`, rand.IntN(total))
		var id string
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("random scan: %w", err)
		}

		d, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, nil
}

func (r *Repo) query(ctx context.Context, sqlStr string, args ...any) ([]models.Recipe, error) {
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := []models.Recipe{}
	for rows.Next() {
		rec, err := ScanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or SELECT list.
// Label filters are LIKE searches for the quoted label inside the stored JSON text.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + Columns + ` FROM recipes`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM recipes`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(kw))+"%")
	}

	for _, f := range []struct {
		column string
		labels []string
	}{
		{"diet_labels", q.Diet},
		{"health_labels", q.Health},
	} {
		for _, l := range f.labels {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			where = append(where, "LOWER("+f.column+`) LIKE ? ESCAPE '\'`)
			args = append(args, `%"`+escapeLike(strings.ToLower(l))+`"%`)
		}
	}

	if ing := strings.TrimSpace(q.Ingredient); ing != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM recipe_ingredients ri
			JOIN ingredients i ON i.id = ri.ingredient_id
			WHERE ri.recipe_id = recipes.id AND LOWER(i.name) LIKE ? ESCAPE '\')`)
		args = append(args, "%"+escapeLike(strings.ToLower(ing))+"%")
	}

	if q.MinCalories != nil {
		where = append(where, "calories >= ?")
		args = append(args, *q.MinCalories)
	}
	if q.MaxCalories != nil {
		where = append(where, "calories <= ?")
		args = append(args, *q.MaxCalories)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY name ASC, id ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, normLimit(q.Limit), max(q.Offset, 0))
	}

	return sqlStr, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func normLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
