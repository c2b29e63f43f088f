package api

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type complianceMetricsCollector struct {
	db *sql.DB

	controlCountDesc    *prometheus.Desc
	systemCountDesc     *prometheus.Desc
	assignmentCountDesc *prometheus.Desc
}

func newComplianceMetricsCollector(db *sql.DB) prometheus.Collector {
	return &complianceMetricsCollector{
		db: db,
		controlCountDesc: prometheus.NewDesc(
			"atlas_catalog_controls_total",
			"Number of controls in the catalog by framework.",
			[]string{"framework"},
			nil,
		),
		systemCountDesc: prometheus.NewDesc(
			"atlas_systems_total",
			"Number of registered systems.",
			nil,
			nil,
		),
		assignmentCountDesc: prometheus.NewDesc(
			"atlas_assignments_total",
			"Number of system-control assignments by status.",
			[]string{"status"},
			nil,
		),
	}
}

func (c *complianceMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.controlCountDesc
	ch <- c.systemCountDesc
	ch <- c.assignmentCountDesc
}

func (c *complianceMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, `SELECT framework, COUNT(*) FROM controls GROUP BY framework`)
	if err == nil {
		for rows.Next() {
			var framework string
			var n float64
			if scanErr := rows.Scan(&framework, &n); scanErr == nil {
				ch <- prometheus.MustNewConstMetric(c.controlCountDesc, prometheus.GaugeValue, n, framework)
			}
		}
		_ = rows.Close()
	}

	var systems float64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM systems`).Scan(&systems); err == nil {
		ch <- prometheus.MustNewConstMetric(c.systemCountDesc, prometheus.GaugeValue, systems)
	}

	rows, err = c.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM system_controls GROUP BY status`)
	if err == nil {
		for rows.Next() {
			var status string
			var n float64
			if scanErr := rows.Scan(&status, &n); scanErr == nil {
				ch <- prometheus.MustNewConstMetric(c.assignmentCountDesc, prometheus.GaugeValue, n, status)
			}
		}
		_ = rows.Close()
	}
}
