package system

import (
	"context"
	"fmt"
	"log/slog"

	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/errors"
	"planets-universe/internal/spatial"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing system repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) ListSystems(ctx context.Context, tx *database.Tx) ([]StarSystem, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "system_repository", "operation", "list_systems")

	query := `
		SELECT id, name, x, y, z, planet_count, discovered, created_at, updated_at
		FROM star_systems
		ORDER BY id
	`

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query systems", "error", err)
		return nil, fmt.Errorf("failed to query systems: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var systems []StarSystem
	for rows.Next() {
		var system StarSystem
		err := rows.Scan(
			&system.ID,
			&system.Name,
			&system.X,
			&system.Y,
			&system.Z,
			&system.PlanetCount,
			&system.Discovered,
			&system.CreatedAt,
			&system.UpdatedAt,
		)
		if err != nil {
			logger.Error("Failed to scan system row", "error", err)
			return nil, fmt.Errorf("failed to scan system: %w", err)
		}
		systems = append(systems, system)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating systems: %w", err)
	}

	logger.Debug("Systems retrieved", "count", len(systems))
	return systems, nil
}

// CreateSystem inserts system and fills in its ID and timestamps.
func (r *Repository) CreateSystem(ctx context.Context, system *StarSystem, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	logger := r.logger.With(
		"component", "system_repository",
		"operation", "create_system",
		"name", system.Name,
	)
	logger.Debug("Creating system")

	query := `
		INSERT INTO star_systems (name, x, y, z, planet_count, discovered)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := exec.QueryRowContext(ctx, query,
		system.Name, system.X, system.Y, system.Z, system.PlanetCount, system.Discovered,
	).Scan(&system.ID, &system.CreatedAt, &system.UpdatedAt)
	if err != nil {
		logger.Error("Failed to create system", "error", err)
		return fmt.Errorf("failed to create system: %w", err)
	}

	logger.Debug("System created successfully", "system_id", system.ID)
	return nil
}

func (r *Repository) UpdatePlanetCount(ctx context.Context, id, count int, tx *database.Tx) error {
	query := `UPDATE star_systems SET planet_count = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, tx, "update_planet_count", id, query, id, count)
}

func (r *Repository) IncrementPlanetCount(ctx context.Context, id, delta int, tx *database.Tx) error {
	query := `UPDATE star_systems SET planet_count = planet_count + $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, tx, "increment_planet_count", id, query, id, delta)
}

func (r *Repository) UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error {
	query := `UPDATE star_systems SET x = $2, y = $3, z = $4, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, tx, "update_position", id, query, id, pos.X, pos.Y, pos.Z)
}

func (r *Repository) exec(ctx context.Context, tx *database.Tx, operation string, id int, query string, args ...interface{}) error {
	logger := r.logger.With("component", "system_repository", "operation", operation, "system_id", id)

	result, err := r.getExecutor(tx).ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to update system", "error", err)
		return fmt.Errorf("failed to %s for system %d: %w", operation, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		logger.Warn("System not found for update")
		return errors.NotFoundf("star system %d not found", id)
	}

	return nil
}
