// Package report fans out the events of a reconciliation run to logs and
// metrics.
package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case StatusReport:
		l.Info().Msg(obj.Info)
	case CoordinateDrift:
		l.Info().
			Str("table", obj.Table).
			Int64("id", obj.ID).
			Float64("x", obj.Local.X).
			Float64("y", obj.Local.Y).
			Float64("registry_x", obj.Registry.X).
			Float64("registry_y", obj.Registry.Y).
			Float64("threshold", obj.Threshold).
			Msgf("coordinates drifted from the register")
	case CoordinatesMatch:
		l.Info().
			Str("table", obj.Table).
			Int64("id", obj.ID).
			Float64("x", obj.Coordinates.X).
			Float64("y", obj.Coordinates.Y).
			Msgf("coordinates are the same as the register; skipping update")
	case CommandIssued:
		ev := l.Info()
		msg := "anncsu command succeeded"
		switch {
		case obj.DryRun:
			msg = "dry run; anncsu command not issued"
		case obj.ExitStatus != 0:
			ev = l.Error()
			msg = "anncsu command failed"
		}
		ev.
			Str("table", obj.Table).
			Int64("id", obj.ID).
			Str("operation", obj.Operation).
			Strs("args", obj.Args).
			Int("exit_status", obj.ExitStatus).
			Str("output", obj.Output).
			Msg(msg)
	case EntryResult:
		ev := l.Debug()
		if !obj.Success {
			ev = l.Warn().Err(obj.Err)
		}
		if obj.ID != nil {
			ev = ev.Int64("id", *obj.ID)
		}
		ev.
			Int("entry", obj.Index).
			Str("table", obj.Table).
			Str("kind", obj.Kind).
			Str("reason", obj.Reason).
			Bool("success", obj.Success).
			Msgf("entry processed")
	case RunSummary:
		ev := l.Info()
		if obj.Failed > 0 {
			ev = l.Warn()
		}
		ev.Int("entries", obj.Entries).Int("failed", obj.Failed).Msgf("run complete")
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func (l LogReporter) Close() {
}

var (
	entriesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anncsu_update",
		Name:      "entries_total",
		Help:      "Number of geodiff entries processed, by kind and reason.",
	}, []string{"kind", "reason"})
	commandsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "anncsu_update",
		Name:      "commands_total",
		Help:      "Number of anncsu commands issued, by operation and result.",
	}, []string{"operation", "result"})
	coordinateDrift = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "anncsu_update",
		Name:      "coordinate_drift",
		Help:      "Largest per-axis distance between local and register coordinates.",
		Buckets:   prometheus.ExponentialBuckets(1e-7, 10, 10),
	})
)

// MetricsReporter exports run events as prometheus metrics.
type MetricsReporter struct{}

func (MetricsReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case EntryResult:
		entriesProcessed.WithLabelValues(obj.Kind, obj.Reason).Inc()
	case CommandIssued:
		result := "success"
		switch {
		case obj.DryRun:
			result = "dry_run"
		case obj.ExitStatus != 0:
			result = "failure"
		}
		commandsIssued.WithLabelValues(obj.Operation, result).Inc()
	case CoordinateDrift:
		dx := obj.Local.X - obj.Registry.X
		dy := obj.Local.Y - obj.Registry.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dy > dx {
			dx = dy
		}
		coordinateDrift.Observe(dx)
	}
}

func (MetricsReporter) Close() {
}

// Collector keeps every reported object in order.
type Collector struct {
	Objects []ReportableObject
	Closed  bool
}

func (c *Collector) Report(obj ReportableObject) {
	c.Objects = append(c.Objects, obj)
}

func (c *Collector) Close() {
	c.Closed = true
}

// EntryResults returns the EntryResult objects seen so far.
func (c *Collector) EntryResults() []EntryResult {
	var ret []EntryResult
	for _, obj := range c.Objects {
		if r, ok := obj.(EntryResult); ok {
			ret = append(ret, r)
		}
	}
	return ret
}
