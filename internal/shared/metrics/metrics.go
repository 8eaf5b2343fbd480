// Package metrics collects Prometheus metrics for maintenance runs. Runs are
// short lived, so metrics are written to a node-exporter textfile instead of
// being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the checker, repair engine and generators report to.
type Recorder interface {
	RecordIssues(entity, code string, count int)
	RecordRepair(category string, fixed, failed int)
	RecordGeneration(generated, failed, planets int)
	RecordRelaxation(operation string, iterations int, converged bool)
	RecordDuration(command string, duration time.Duration)
}

type Collector struct {
	issues          *prometheus.GaugeVec
	repairedItems   *prometheus.CounterVec
	generated       *prometheus.CounterVec
	planetsCreated  prometheus.Counter
	relaxIterations *prometheus.GaugeVec
	relaxConverged  *prometheus.GaugeVec
	duration        *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "universe_consistency_issues",
			Help: "Consistency issues found by the last check, by entity type and issue code",
		}, []string{"entity", "code"}),
		repairedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "universe_repair_items_total",
			Help: "Items processed by the repair engine, by category and outcome",
		}, []string{"category", "outcome"}),
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "universe_generated_systems_total",
			Help: "Star systems requested from the generator, by outcome",
		}, []string{"outcome"}),
		planetsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "universe_generated_planets_total",
			Help: "Planets created by the generator",
		}),
		relaxIterations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "universe_relaxation_iterations",
			Help: "Iterations used by the last relaxation pass",
		}, []string{"operation"}),
		relaxConverged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "universe_relaxation_converged",
			Help: "1 when the last relaxation pass resolved every conflict",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "universe_command_duration_seconds",
			Help:    "Wall time of maintenance commands",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"command"}),
	}

	reg.MustRegister(
		c.issues,
		c.repairedItems,
		c.generated,
		c.planetsCreated,
		c.relaxIterations,
		c.relaxConverged,
		c.duration,
	)

	return c
}

func (c *Collector) RecordIssues(entity, code string, count int) {
	c.issues.WithLabelValues(entity, code).Set(float64(count))
}

func (c *Collector) RecordRepair(category string, fixed, failed int) {
	c.repairedItems.WithLabelValues(category, "fixed").Add(float64(fixed))
	c.repairedItems.WithLabelValues(category, "failed").Add(float64(failed))
}

func (c *Collector) RecordGeneration(generated, failed, planets int) {
	c.generated.WithLabelValues("generated").Add(float64(generated))
	c.generated.WithLabelValues("failed").Add(float64(failed))
	c.planetsCreated.Add(float64(planets))
}

func (c *Collector) RecordRelaxation(operation string, iterations int, converged bool) {
	c.relaxIterations.WithLabelValues(operation).Set(float64(iterations))

	value := 0.0
	if converged {
		value = 1
	}
	c.relaxConverged.WithLabelValues(operation).Set(value)
}

func (c *Collector) RecordDuration(command string, duration time.Duration) {
	c.duration.WithLabelValues(command).Observe(duration.Seconds())
}

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format. The file is replaced atomically.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordIssues(string, string, int)     {}
func (Noop) RecordRepair(string, int, int)        {}
func (Noop) RecordGeneration(int, int, int)       {}
func (Noop) RecordRelaxation(string, int, bool)   {}
func (Noop) RecordDuration(string, time.Duration) {}
