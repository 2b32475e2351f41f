package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"feedcore/internal/blob"
	"feedcore/internal/config"
	"feedcore/internal/core"
	"feedcore/internal/refdata"
)

// app is the wired service plus everything that needs closing or flushing
// after a command.
type app struct {
	svc *core.Service

	closeCatalogs func() error
	flushMetrics  func()
}

func (c *cli) openApp(ctx context.Context, extra ...core.Option) (*app, error) {
	store, err := blob.Open(ctx, c.cfg.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open reference store: %w", err)
	}
	cache := refdata.New(store)
	catalogs, closeFn, err := core.OpenCatalogSource(ctx, c.cfg.Catalog, cache)
	if err != nil {
		return nil, fmt.Errorf("open catalog source: %w", err)
	}
	metrics, flush, err := c.metricsRecorder()
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	opts := append([]core.Option{
		core.WithLogger(c.logger.Named("core")),
		core.WithMetrics(metrics),
	}, extra...)
	svc := core.NewService(cache, catalogs, opts...)
	c.logger.Debug("service ready",
		zap.String("blob_driver", c.cfg.Blob.Driver),
		zap.String("catalog_driver", c.cfg.Catalog.Driver),
		zap.String("metrics_driver", c.cfg.Metrics.Driver),
	)
	return &app{svc: svc, closeCatalogs: closeFn, flushMetrics: flush}, nil
}

func (a *app) Close() error {
	a.flushMetrics()
	return a.closeCatalogs()
}

// metricsRecorder builds the configured recorder. The flush func logs what
// was recorded; a one-shot CLI has no scrape endpoint.
func (c *cli) metricsRecorder() (core.MetricsRecorder, func(), error) {
	switch c.cfg.Metrics.Driver {
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("register metrics: %w", err)
		}
		return rec, func() {
			families, err := reg.Gather()
			if err != nil {
				c.logger.Warn("gather metrics", zap.Error(err))
				return
			}
			for _, mf := range families {
				c.logger.Debug("metric family", zap.String("name", mf.GetName()), zap.Int("series", len(mf.GetMetric())))
			}
		}, nil
	case config.MetricsExpvar:
		rec := core.NewExpvarMetricsRecorder("")
		return rec, func() {
			c.logger.Debug("metrics snapshot", zap.String("name", rec.Name()), zap.Any("snapshot", rec.Snapshot()))
		}, nil
	default:
		return nil, func() {}, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
