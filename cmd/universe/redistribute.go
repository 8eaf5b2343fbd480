package main

import (
	"fmt"

	"planets-universe/internal/spatial"
	"planets-universe/internal/universe"

	"github.com/spf13/cobra"
)

var redistributeOpts universe.RedistributeOptions

var redistributeCmd = &cobra.Command{
	Use:   "redistribute-home-planets",
	Short: "Give every home planet its own system and spread home systems out",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := application

		opts := redistributeOpts
		if opts.MinDistanceFromOrigin == 0 {
			opts.MinDistanceFromOrigin = a.cfg.Universe.HomeMinDistance
		}
		if opts.MinSpacing == 0 {
			opts.MinSpacing = a.cfg.Universe.HomeSpacing
		}

		repos, err := a.connect()
		if err != nil {
			return err
		}
		defer repos.db.Close()

		var result *universe.RedistributionResult
		err = a.withLock(ctx, func() error {
			planner := spatial.NewPlanner(a.cfg.Universe.RelaxationMaxIterations, a.logger)
			r := universe.NewRedistributor(repos.universeStore(), planner, a.orbitConfig(), a.placementConfig(), a.rng, a.pacer(), a.logger, a.metrics)
			var rErr error
			result, rErr = r.RedistributeHomePlanets(ctx, opts)
			return rErr
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Home planets: %d\nSystems created: %d\nSystems moved: %d\nPlanets updated: %d\nUnresolved: %d\nConverged: %t\n",
			result.HomePlanets, result.SystemsCreated, result.SystemsMoved, result.PlanetsUpdated, result.Unresolved, result.Converged)
		return nil
	},
}

func init() {
	redistributeCmd.Flags().Float64Var(&redistributeOpts.MinDistanceFromOrigin, "min-distance", 0, "minimum distance of home systems from the origin, 0 for the configured default")
	redistributeCmd.Flags().Float64Var(&redistributeOpts.MinSpacing, "spacing", 0, "minimum spacing between home systems, 0 for the configured default")
}
