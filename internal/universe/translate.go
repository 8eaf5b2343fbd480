package universe

import (
	"context"
	"log/slog"
	"sort"

	"planets-universe/internal/planet"
	"planets-universe/internal/shared/database"
	"planets-universe/internal/shared/throttle"
)

type TranslationResult struct {
	Scanned      int      `json:"scanned" yaml:"scanned"`
	Translated   int      `json:"translated" yaml:"translated"`
	AlreadyValid int      `json:"already_valid" yaml:"already_valid"`
	Unknown      int      `json:"unknown" yaml:"unknown"`
	UnknownTypes []string `json:"unknown_types,omitempty" yaml:"unknown_types,omitempty"`
}

// TypeTranslator rewrites legacy planet type labels to current values.
type TypeTranslator struct {
	store  Store
	table  map[string]planet.PlanetType
	pacer  *throttle.Pacer
	logger *slog.Logger
}

func NewTypeTranslator(store Store, table map[string]planet.PlanetType, pacer *throttle.Pacer, logger *slog.Logger) *TypeTranslator {
	return &TypeTranslator{
		store:  store,
		table:  table,
		pacer:  pacer,
		logger: logger.With("component", "type_translator"),
	}
}

// TranslatePlanetTypes updates every planet whose type is a known legacy
// label. With dryRun nothing is written.
func (t *TypeTranslator) TranslatePlanetTypes(ctx context.Context, dryRun bool) (*TranslationResult, error) {
	logger := t.logger.With("operation", "translate_planet_types", "dry_run", dryRun)
	result := &TranslationResult{}

	err := t.store.Tx.WithTx(ctx, func(tx *database.Tx) error {
		*result = TranslationResult{}
		unknown := make(map[string]bool)

		planets, err := t.store.Planets.ListPlanets(ctx, tx)
		if err != nil {
			return err
		}

		for _, p := range planets {
			result.Scanned++
			if p.Type.IsValid() {
				result.AlreadyValid++
				continue
			}

			translated, ok := planet.TranslateType(t.table, string(p.Type))
			if !ok {
				result.Unknown++
				unknown[string(p.Type)] = true
				continue
			}

			if !dryRun {
				if err := t.pacer.Wait(ctx); err != nil {
					return err
				}
				if err := t.store.Planets.UpdateType(ctx, p.ID, translated, tx); err != nil {
					return err
				}
			}
			result.Translated++
		}

		for label := range unknown {
			result.UnknownTypes = append(result.UnknownTypes, label)
		}
		sort.Strings(result.UnknownTypes)
		return nil
	})
	if err != nil {
		logger.Error("Planet type translation failed", "error", err)
		return nil, err
	}

	if result.Unknown > 0 {
		logger.Warn("Planets with unknown types left untouched", "count", result.Unknown, "types", result.UnknownTypes)
	}
	logger.Info("Planet types translated",
		"scanned", result.Scanned,
		"translated", result.Translated,
		"already_valid", result.AlreadyValid)

	return result, nil
}
