// Seed creates the bootstrap administrator role (every catalog permission),
// a first operator account, and the assignment between them. Safe to re-run.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mealbridge/mealbridge/internal/app"
	"github.com/mealbridge/mealbridge/internal/catalog"
	"github.com/mealbridge/mealbridge/internal/platform/db"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	perms := make([]string, 0)
	for _, def := range catalog.All() {
		perms = append(perms, string(def.Permission))
	}

	var roleID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO roles (name, name_fold, description, permissions)
		VALUES ('Administrator', 'administrator', 'Full access to every permission in the catalog', $1)
		ON CONFLICT (name_fold) DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = now()
		RETURNING id`, perms).Scan(&roleID)
	if err != nil {
		logger.Error("seed administrator role", slog.Any("error", err))
		os.Exit(1)
	}

	var userID int64
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, name)
		VALUES ('admin@mealbridge.local', 'Administrator')
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id`).Scan(&userID)
	if err != nil {
		logger.Error("seed administrator user", slog.Any("error", err))
		os.Exit(1)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID); err != nil {
		logger.Error("seed assignment", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("seed complete",
		slog.Int64("role_id", roleID),
		slog.Int64("user_id", userID),
		slog.Int("permissions", len(perms)))
}
