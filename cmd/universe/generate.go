package main

import (
	"fmt"

	"planets-universe/internal/universe"

	"github.com/spf13/cobra"
)

var generateOpts universe.GenerateOptions

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate undiscovered star systems",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := application

		repos, err := a.connect()
		if err != nil {
			return err
		}
		defer repos.db.Close()

		opts := generateOpts
		if opts.MinPlanets == 0 {
			opts.MinPlanets = a.cfg.Universe.MinPlanetsPerSystem
		}

		var result *universe.GenerationResult
		err = a.withLock(ctx, func() error {
			gen := universe.NewGenerator(repos.universeStore(), a.generatorConfig(), a.rng, a.pacer(), a.logger, a.metrics)
			var genErr error
			result, genErr = gen.GenerateUndiscovered(ctx, opts)
			return genErr
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Requested: %d\nGenerated: %d\nFailed: %d\nPlanets created: %d\n",
			result.Requested, result.Generated, result.Failed, result.PlanetsCreated)
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVarP(&generateOpts.Count, "count", "n", 10, "number of star systems to generate")
	generateCmd.Flags().BoolVar(&generateOpts.Expand, "expand", false, "double the sampling range to grow the universe outwards")
	generateCmd.Flags().IntVar(&generateOpts.MaxAttempts, "max-attempts", 0, "placement attempts per system, 0 for the configured default")
	generateCmd.Flags().IntVar(&generateOpts.MinPlanets, "min-planets", 0, "minimum planets per system, 0 for the configured default")
	generateCmd.Flags().IntVar(&generateOpts.MaxPlanets, "max-planets", 0, "maximum planets per system, 0 for the configured default")
}
