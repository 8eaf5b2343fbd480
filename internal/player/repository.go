package player

import (
	"context"
	"fmt"
	"log/slog"

	"planets-universe/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing player repository")
	return &Repository{db: db, logger: logger}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

// ListHomePlanetRefs returns every player that has a home planet assigned, ordered by player ID.
func (r *Repository) ListHomePlanetRefs(ctx context.Context, tx *database.Tx) ([]HomePlanetRef, error) {
	logger := r.logger.With("component", "player_repository", "operation", "list_home_planet_refs")
	logger.Debug("Retrieving home planet references")

	query := `
		SELECT id, username, home_planet_id
		FROM players
		WHERE home_planet_id IS NOT NULL
		ORDER BY id
	`

	rows, err := r.getExecutor(tx).QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query players", "error", err)
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var refs []HomePlanetRef
	for rows.Next() {
		var ref HomePlanetRef
		if err := rows.Scan(&ref.PlayerID, &ref.Username, &ref.HomePlanetID); err != nil {
			logger.Error("Failed to scan player row", "error", err)
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	logger.Debug("Home planet references retrieved", "count", len(refs))
	return refs, nil
}
