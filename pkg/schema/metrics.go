package schema

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 迁移指标
var (
	migrationStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetings_schema_migration_steps_total",
			Help: "Schema migration steps applied, by step and result",
		},
		[]string{"step", "result"},
	)

	schemaVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetings_schema_version",
			Help: "Last schema migration step recorded as clean",
		},
	)
)
