package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"planets-universe/internal/shared/errors"

	"github.com/spf13/cobra"
)

var (
	seed        int64
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "universe",
	Short: "Maintenance tools for the Planets! universe",
	Long: `Checks and repairs the spatial consistency of the universe, generates
undiscovered star systems and lays out home systems.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Name())
		if err != nil {
			return err
		}
		application = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed, 0 for a time based seed")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when the command ends")

	rootCmd.AddCommand(migrateCmd, checkCmd, generateCmd, redistributeCmd, translateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if application != nil {
		application.finish(err)
	}

	if err != nil {
		slog.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitCode(err))
	}
}
