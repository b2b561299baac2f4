// Package scheduler runs periodic maintenance over the stored containers
package scheduler

import (
	"context"
	"errors"
	"time"

	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/config"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/amirphl/widget-sidebar/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var inconsistentContainers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "widget_sidebar",
	Name:      "inconsistent_containers",
	Help:      "Containers with duplicate order indexes found by the last audit",
})

// AuditReport summarizes one audit pass
type AuditReport struct {
	Checked      int
	Inconsistent []uint
	Normalized   []uint
	PrunedTags   int64
	Failures     int
}

// OrderAuditor periodically looks for containers whose order indexes collide,
// which an interrupted move or insert can leave behind, and optionally
// renumbers them
type OrderAuditor struct {
	containers businessflow.ContainerManager
	engine     businessflow.ReorderEngine
	categories businessflow.CategoryTagFlow
	cfg        config.MaintenanceConfig
	log        *logger.Logger
}

func NewOrderAuditor(
	containers businessflow.ContainerManager,
	engine businessflow.ReorderEngine,
	categories businessflow.CategoryTagFlow,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *OrderAuditor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &OrderAuditor{
		containers: containers,
		engine:     engine,
		categories: categories,
		cfg:        cfg,
		log:        log.With("component", "OrderAuditor"),
	}
}

// Start launches the audit loop in a background goroutine and returns a stop function
func (a *OrderAuditor) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(a.cfg.Interval)
		defer ticker.Stop()

		a.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.RunOnce(ctx)
			}
		}
	}()

	return cancel
}

// RunOnce audits every container of both kinds
func (a *OrderAuditor) RunOnce(ctx context.Context) AuditReport {
	var report AuditReport
	start := time.Now()

	for _, kind := range []models.ContainerKind{models.ContainerKindArea, models.ContainerKindProject} {
		if ctx.Err() != nil {
			break
		}
		rows, err := a.containers.List(ctx, kind, false)
		if err != nil {
			a.log.Error("failed to list containers for audit", "kind", kind, "error", err)
			report.Failures++
			continue
		}
		for _, c := range rows {
			a.auditContainer(ctx, c, &report)
		}
	}

	if a.cfg.PruneCategoryTags && ctx.Err() == nil {
		removed, err := a.categories.DeleteUnused(ctx)
		if err != nil {
			a.log.Error("failed to prune category tags", "error", err)
			report.Failures++
		}
		report.PrunedTags = removed
	}

	inconsistentContainers.Set(float64(len(report.Inconsistent) - len(report.Normalized)))
	a.log.Info("order audit finished",
		"checked", report.Checked,
		"inconsistent", len(report.Inconsistent),
		"normalized", len(report.Normalized),
		"pruned_category_tags", report.PrunedTags,
		"failures", report.Failures,
		"duration", time.Since(start).String(),
	)
	return report
}

func (a *OrderAuditor) auditContainer(ctx context.Context, c *models.Container, report *AuditReport) {
	report.Checked++
	err := a.engine.CheckOrder(ctx, c.ID)
	if err == nil {
		return
	}

	var inconsistent *businessflow.InconsistentOrderError
	if !errors.As(err, &inconsistent) {
		a.log.Error("failed to check container order", "container_id", c.ID, "error", err)
		report.Failures++
		return
	}

	report.Inconsistent = append(report.Inconsistent, c.ID)
	a.log.Warn("container has duplicate order indexes", "container_id", c.ID, "name", c.Name, "duplicates", inconsistent.Duplicates)
	if !a.cfg.AutoNormalize {
		return
	}
	if _, err := a.engine.Normalize(ctx, c.ID); err != nil {
		a.log.Error("failed to normalize container order", "container_id", c.ID, "error", err)
		report.Failures++
		return
	}
	report.Normalized = append(report.Normalized, c.ID)
}
