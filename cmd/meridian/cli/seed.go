package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/platform/db"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/roles"
)

// SeedReferenceData installs the built-in rights catalog and role registry
// and makes sure the master department exists. Every step is idempotent so
// the seeder can run on each startup.
func SeedReferenceData(
	ctx context.Context,
	pool *pgxpool.Pool,
	rightsService *rights.Service,
	rolesService *roles.Service,
	directoryService *directory.Service,
	masterCode string,
	logger *slog.Logger,
) error {
	if err := ensureMasterDepartment(ctx, pool, masterCode); err != nil {
		return err
	}
	if err := rightsService.Seed(ctx); err != nil {
		return err
	}
	if err := rolesService.Seed(ctx); err != nil {
		return err
	}
	master, err := directoryService.Master(ctx)
	if err != nil {
		return fmt.Errorf("cli: verify master department: %w", err)
	}
	logger.Info("reference data seeded",
		slog.Int64("master_department_id", master.ID),
		slog.String("master_department_code", master.Code),
	)
	return nil
}

// ensureMasterDepartment creates the master department row if it is missing.
// The check and insert run in one transaction so concurrent seeders cannot
// race each other into a duplicate singleton.
func ensureMasterDepartment(ctx context.Context, pool *pgxpool.Pool, code string) error {
	return db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM departments WHERE is_master = TRUE`).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("cli: lookup master department: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO departments (name, code, parent_id, is_master, is_active)
			VALUES ('Master', $1, NULL, TRUE, TRUE)
		`, code)
		if err != nil {
			return fmt.Errorf("cli: create master department: %w", err)
		}
		return nil
	})
}
