package main

import (
	"context"

	"planets-universe/internal/consistency"
	"planets-universe/internal/shared/errors"

	"github.com/spf13/cobra"
)

var (
	checkFix    bool
	checkDryRun bool
	checkOnly   string
	checkOutput string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report consistency issues, and optionally repair them",
	Long: `Scans star systems, planets and home planets for invariant violations.

With --fix the selected repairs are applied and the universe is checked again.
With --dry-run the repairs run against an in-memory copy and nothing is written.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "repair the issues found")
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "with --fix, replay repairs on an in-memory copy")
	checkCmd.Flags().StringVar(&checkOnly, "only", "", "comma separated repairs to run: counts,orphans,too-close,coordinates")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "text", "report format: text, json or yaml")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := application

	format, err := consistency.ParseFormat(checkOutput)
	if err != nil {
		return err
	}
	categories, err := consistency.ParseCategories(checkOnly)
	if err != nil {
		return err
	}
	if checkDryRun && !checkFix {
		return errors.Validationf("--dry-run requires --fix")
	}

	repos, err := a.connect()
	if err != nil {
		return err
	}
	defer repos.db.Close()

	opts := checkOptions{fix: checkFix, dryRun: checkDryRun, categories: categories}

	var report *consistency.Report
	var runErr error
	run := func() error {
		report, runErr = a.checkAndRepair(ctx, repos.consistencyStore(), opts)
		if report == nil {
			return runErr
		}
		return nil
	}

	// A real repair scans and writes under one lock.
	if opts.fix && !opts.dryRun {
		err = a.withLock(ctx, run)
	} else {
		err = run()
	}
	if err != nil {
		return err
	}

	if err := consistency.Render(cmd.OutOrStdout(), format, report); err != nil {
		return err
	}
	return runErr
}

type checkOptions struct {
	fix        bool
	dryRun     bool
	categories []consistency.Category
}

// checkAndRepair scans store and, when asked to, repairs it and scans again.
// A dry run repairs an in-memory copy instead. The report is nil only when
// no scan completed; otherwise a returned error comes from the repairs.
func (a *app) checkAndRepair(ctx context.Context, store consistency.Store, opts checkOptions) (*consistency.Report, error) {
	issues, err := consistency.NewChecker(store, a.checkerConfig(), a.logger, a.metrics).Check(ctx)
	if err != nil {
		return nil, err
	}

	report := consistency.NewReport(a.runID, issues)
	if !opts.fix || issues.Empty() {
		return report, nil
	}

	target := store
	if opts.dryRun {
		ms, err := copyToMemory(ctx, store)
		if err != nil {
			return nil, err
		}
		target = memoryStore(ms)
	}

	repairs, repairErr := a.repair(ctx, target, issues, opts.categories)

	after, err := consistency.NewChecker(target, a.checkerConfig(), a.logger, a.metrics).Check(ctx)
	if err != nil {
		return nil, err
	}
	return report.WithRepairs(repairs, after, opts.dryRun), repairErr
}

func (a *app) repair(ctx context.Context, store consistency.Store, issues *consistency.IssueSet, categories []consistency.Category) (*consistency.RepairReport, error) {
	repairer := consistency.NewRepairer(store, a.repairConfig(), a.rng, a.pacer(), a.logger, a.metrics)
	return repairer.Repair(ctx, issues, categories)
}
