package planet

import (
	"context"
	"encoding/json"
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
	logger.Debug("Initializing planet repository")

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

const planetColumns = `p.id, p.star_system_id, p.name, p.type, p.x, p.y, p.z,
			p.orbital_distance, p.orbital_angle, p.orbital_inclination,
			pp.planet_id IS NOT NULL AS has_properties, p.created_at, p.updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlanet(row scanner, planet *Planet) error {
	return row.Scan(
		&planet.ID,
		&planet.StarSystemID,
		&planet.Name,
		&planet.Type,
		&planet.X,
		&planet.Y,
		&planet.Z,
		&planet.OrbitalDistance,
		&planet.OrbitalAngle,
		&planet.OrbitalInclination,
		&planet.HasProperties,
		&planet.CreatedAt,
		&planet.UpdatedAt,
	)
}

func (r *Repository) ListPlanets(ctx context.Context, tx *database.Tx) ([]Planet, error) {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "planet_repository", "operation", "list_planets")

	query := `
		SELECT ` + planetColumns + `
		FROM planets p
		LEFT JOIN planet_properties pp ON pp.planet_id = p.id
		ORDER BY p.id
	`

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query planets", "error", err)
		return nil, fmt.Errorf("failed to query planets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var planets []Planet
	for rows.Next() {
		var planet Planet
		if err := scanPlanet(rows, &planet); err != nil {
			logger.Error("Failed to scan planet row", "error", err)
			return nil, fmt.Errorf("failed to scan planet: %w", err)
		}
		planets = append(planets, planet)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating planets: %w", err)
	}

	logger.Debug("Planets retrieved", "count", len(planets))
	return planets, nil
}

// CreatePlanetsBatch creates planets and their properties rows in a single statement using JSON
func (r *Repository) CreatePlanetsBatch(ctx context.Context, planets []BatchInsertRequest, tx *database.Tx) ([]Planet, error) {
	if len(planets) == 0 {
		return []Planet{}, nil
	}

	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "planet_repository",
		"operation", "create_planets_batch",
		"count", len(planets),
	)
	logger.Debug("Creating planets in batch")

	planetsJSON, err := json.Marshal(planets)
	if err != nil {
		logger.Error("Failed to marshal planets to JSON", "error", err)
		return nil, fmt.Errorf("failed to marshal planets: %w", err)
	}

	query := `
		WITH data AS (
			SELECT value AS d, ordinality AS ord
			FROM json_array_elements($1::json) WITH ORDINALITY
		),
		inserted AS (
			INSERT INTO planets (star_system_id, name, type, x, y, z, orbital_distance, orbital_angle, orbital_inclination)
			SELECT
				(d->>'StarSystemID')::integer,
				d->>'Name',
				d->>'Type',
				(d->>'X')::double precision,
				(d->>'Y')::double precision,
				(d->>'Z')::double precision,
				(d->>'OrbitalDistance')::double precision,
				(d->>'OrbitalAngle')::double precision,
				(d->>'OrbitalInclination')::double precision
			FROM data
			ORDER BY ord
			RETURNING id, star_system_id, name, type, x, y, z, orbital_distance, orbital_angle, orbital_inclination, created_at, updated_at
		),
		numbered AS (
			SELECT inserted.*, row_number() OVER (ORDER BY id) AS ord FROM inserted
		),
		props AS (
			INSERT INTO planet_properties (planet_id, size, population, max_population)
			SELECT n.id, (data.d->>'Size')::integer, 0, (data.d->>'MaxPopulation')::bigint
			FROM numbered n
			JOIN data ON data.ord = n.ord
			RETURNING planet_id
		)
		SELECT n.id, n.star_system_id, n.name, n.type, n.x, n.y, n.z,
			n.orbital_distance, n.orbital_angle, n.orbital_inclination,
			props.planet_id IS NOT NULL, n.created_at, n.updated_at
		FROM numbered n
		LEFT JOIN props ON props.planet_id = n.id
		ORDER BY n.id`

	rows, err := exec.QueryContext(ctx, query, string(planetsJSON))
	if err != nil {
		logger.Error("Failed to batch create planets", "error", err)
		return nil, fmt.Errorf("failed to batch create planets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var createdPlanets []Planet
	for rows.Next() {
		var planet Planet
		if err := rows.Scan(
			&planet.ID,
			&planet.StarSystemID,
			&planet.Name,
			&planet.Type,
			&planet.X,
			&planet.Y,
			&planet.Z,
			&planet.OrbitalDistance,
			&planet.OrbitalAngle,
			&planet.OrbitalInclination,
			&planet.HasProperties,
			&planet.CreatedAt,
			&planet.UpdatedAt,
		); err != nil {
			logger.Error("Failed to scan planet row", "error", err)
			return nil, fmt.Errorf("failed to scan planet: %w", err)
		}
		createdPlanets = append(createdPlanets, planet)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating planets: %w", err)
	}

	logger.Info("Planets batch created successfully", "count", len(createdPlanets))
	return createdPlanets, nil
}

func (r *Repository) UpdatePosition(ctx context.Context, id int, pos spatial.Vec3, tx *database.Tx) error {
	query := `UPDATE planets SET x = $2, y = $3, z = $4, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, tx, "update_position", id, query, id, pos.X, pos.Y, pos.Z)
}

// AssignToSystem moves a planet into systemID with new orbital parameters and position.
func (r *Repository) AssignToSystem(ctx context.Context, id, systemID int, orbit spatial.Orbit, pos spatial.Vec3, tx *database.Tx) error {
	query := `
		UPDATE planets
		SET star_system_id = $2, orbital_distance = $3, orbital_angle = $4, orbital_inclination = $5,
			x = $6, y = $7, z = $8, updated_at = NOW()
		WHERE id = $1`
	return r.exec(ctx, tx, "assign_to_system", id, query,
		id, systemID, orbit.Distance, orbit.Angle, orbit.Inclination, pos.X, pos.Y, pos.Z)
}

func (r *Repository) UpdateType(ctx context.Context, id int, planetType PlanetType, tx *database.Tx) error {
	query := `UPDATE planets SET type = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, tx, "update_type", id, query, id, planetType)
}

func (r *Repository) exec(ctx context.Context, tx *database.Tx, operation string, id int, query string, args ...interface{}) error {
	logger := r.logger.With("component", "planet_repository", "operation", operation, "planet_id", id)

	result, err := r.getExecutor(tx).ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to update planet", "error", err)
		return fmt.Errorf("failed to %s for planet %d: %w", operation, id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		logger.Warn("Planet not found for update")
		return errors.NotFoundf("planet %d not found", id)
	}

	return nil
}
