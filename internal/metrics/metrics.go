// Package metrics defines the prometheus counters for derivation.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes.
const (
	StatusOK      = "ok"
	StatusDropped = "dropped"
	StatusFailed  = "failed"
)

// Derivation Prometheus metrics.
var (
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldcomp",
			Name:      "records_total",
			Help:      "Total number of records processed",
		},
		[]string{"status"}, // "ok" / "dropped" / "failed"
	)

	DerivedFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldcomp",
			Name:      "derived_fields_total",
			Help:      "Total derived field values produced",
		},
		[]string{"mode"}, // "virtual" / "composite"
	)

	MarkingConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fieldcomp",
			Name:      "marking_conflicts_total",
			Help:      "Total derivations aborted by incompatible markings",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{RecordsTotal, DerivedFieldsTotal, MarkingConflictsTotal}
}

// Register adds the derivation metrics to reg. Registering twice is a no-op.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}

// ObserveRecord counts one processed record and its derived values.
func ObserveRecord(status string, virtual, composite int) {
	RecordsTotal.WithLabelValues(status).Inc()
	DerivedFieldsTotal.WithLabelValues("virtual").Add(float64(virtual))
	DerivedFieldsTotal.WithLabelValues("composite").Add(float64(composite))
}

// ObserveConflict counts one marking conflict.
func ObserveConflict() {
	MarkingConflictsTotal.Inc()
}

// WriteTextfile writes every metric gathered by g to path in the node exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
