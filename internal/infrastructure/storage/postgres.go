package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresLikedStore implements LikedStore on PostgreSQL.
type PostgresLikedStore struct {
	db *sqlx.DB
}

// NewPostgresLikedStore connects to PostgreSQL and ensures the
// liked_recipes table exists.
func NewPostgresLikedStore(dataSourceName string) (*PostgresLikedStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS liked_recipes (
		user_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		title TEXT,
		image TEXT,
		ingredients JSONB,
		steps JSONB,
		recipe JSONB,
		saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, recipe_id)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create liked_recipes table: %w", err)
	}

	return &PostgresLikedStore{db: db}, nil
}

// Save stores or replaces a liked recipe.
func (s *PostgresLikedStore) Save(ctx context.Context, liked LikedRecipe) error {
	ingredientsJSON, err := json.Marshal(liked.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	stepsJSON, err := json.Marshal(liked.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	recipeJSON, err := json.Marshal(liked.Recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO liked_recipes (user_id, recipe_id, title, image, ingredients, steps, recipe) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (user_id, recipe_id) DO UPDATE SET title = $3, image = $4, ingredients = $5, steps = $6, recipe = $7",
		liked.UserID,
		liked.RecipeID,
		liked.Title,
		liked.Image,
		ingredientsJSON,
		stepsJSON,
		recipeJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save liked recipe: %w", err)
	}
	return nil
}

// ListByUser returns the user's liked recipes in save order.
func (s *PostgresLikedStore) ListByUser(ctx context.Context, userID string) ([]LikedRecipe, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT user_id, recipe_id, title, image, ingredients, steps, recipe FROM liked_recipes WHERE user_id = $1 ORDER BY saved_at",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked recipes: %w", err)
	}
	defer rows.Close()

	var out []LikedRecipe
	for rows.Next() {
		var liked LikedRecipe
		var ingredientsJSON, stepsJSON, recipeJSON []byte
		if err := rows.Scan(
			&liked.UserID,
			&liked.RecipeID,
			&liked.Title,
			&liked.Image,
			&ingredientsJSON,
			&stepsJSON,
			&recipeJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan liked recipe row: %w", err)
		}

		if err := json.Unmarshal(ingredientsJSON, &liked.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
		if err := json.Unmarshal(stepsJSON, &liked.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
		if err := json.Unmarshal(recipeJSON, &liked.Recipe); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe: %w", err)
		}
		out = append(out, liked)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// Close closes the database connection.
func (s *PostgresLikedStore) Close() error {
	return s.db.Close()
}
