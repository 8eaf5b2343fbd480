package main

import (
	"fmt"
	"strings"

	"planets-universe/internal/planet"
	"planets-universe/internal/universe"

	"github.com/spf13/cobra"
)

var translateDryRun bool

var translateCmd = &cobra.Command{
	Use:   "translate-planet-types",
	Short: "Rewrite legacy French planet types to their current values",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := application

		repos, err := a.connect()
		if err != nil {
			return err
		}
		defer repos.db.Close()

		translator := universe.NewTypeTranslator(repos.universeStore(), planet.LegacyTypeTranslations(), a.pacer(), a.logger)

		var result *universe.TranslationResult
		run := func() error {
			var tErr error
			result, tErr = translator.TranslatePlanetTypes(ctx, translateDryRun)
			return tErr
		}
		if translateDryRun {
			err = run()
		} else {
			err = a.withLock(ctx, run)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scanned: %d\nTranslated: %d\nAlready valid: %d\nUnknown: %d\n",
			result.Scanned, result.Translated, result.AlreadyValid, result.Unknown)
		if len(result.UnknownTypes) > 0 {
			fmt.Fprintf(out, "Unknown types: %s\n", strings.Join(result.UnknownTypes, ", "))
		}
		return nil
	},
}

func init() {
	translateCmd.Flags().BoolVar(&translateDryRun, "dry-run", false, "report translations without writing them")
}
