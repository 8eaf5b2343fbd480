package consistency

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"planets-universe/internal/shared/errors"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Validationf("unknown output format %q, expected text, json or yaml", raw)
	}
}

// Report is what the check command prints.
type Report struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	DryRun      bool          `json:"dry_run" yaml:"dry_run"`
	TotalIssues int           `json:"total_issues" yaml:"total_issues"`
	Issues      []Group       `json:"issues" yaml:"issues"`
	Repairs     *RepairReport `json:"repairs,omitempty" yaml:"repairs,omitempty"`
	Remaining   *int          `json:"remaining_issues,omitempty" yaml:"remaining_issues,omitempty"`
}

func NewReport(runID string, issues *IssueSet) *Report {
	return &Report{
		RunID:       runID,
		TotalIssues: issues.Count(),
		Issues:      issues.Groups(),
	}
}

// WithRepairs attaches repair results and the issue count of the re-check.
func (r *Report) WithRepairs(repairs *RepairReport, after *IssueSet, dryRun bool) *Report {
	r.Repairs = repairs
	r.DryRun = dryRun
	if after != nil {
		remaining := after.Count()
		r.Remaining = &remaining
	}
	return r
}

func Render(w io.Writer, format Format, report *Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	default:
		return renderText(w, report)
	}
}

func renderText(w io.Writer, report *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if report.TotalIssues == 0 {
		fmt.Fprintln(tw, "No consistency issues found.")
	} else {
		fmt.Fprintf(tw, "Found %d consistency issue(s)\n\n", report.TotalIssues)
		fmt.Fprintln(tw, "ENTITY\tISSUE\tCOUNT")
		for _, g := range report.Issues {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Entity, g.Code, g.Count)
		}

		for _, g := range report.Issues {
			fmt.Fprintf(tw, "\n[%s] %s\n", g.Entity, g.Code)
			for _, d := range g.Details {
				fmt.Fprintf(tw, "  %s\n", formatDetail(d))
			}
		}
	}

	if report.Repairs != nil {
		title := "Repairs"
		if report.DryRun {
			title = "Repairs (dry run, nothing written)"
		}
		fmt.Fprintf(tw, "\n%s\n", title)
		fmt.Fprintln(tw, "CATEGORY\tFOUND\tFIXED\tFAILED\tSKIPPED\tCONVERGED")
		for _, res := range report.Repairs.Results {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%t\n",
				res.Category, res.Found, res.Fixed, res.Failed, res.Skipped, res.Converged)
		}
	}

	if report.Remaining != nil {
		fmt.Fprintf(tw, "\nIssues remaining after repair: %d\n", *report.Remaining)
	}

	return tw.Flush()
}

func formatDetail(d Detail) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if pairs, ok := d[k].([]SystemPair); ok {
			for _, p := range pairs {
				parts = append(parts, fmt.Sprintf("\n    systems %d <-> %d distance=%.2f", p.SystemA, p.SystemB, p.Distance))
			}
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, d[k]))
	}
	return strings.Join(parts, " ")
}
