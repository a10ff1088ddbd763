package lib

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* This file implements dev-ops telemetry for the tree in the form of prometheus metrics */

const metricsPattern = "/metrics"

// Metrics represents a server that exposes Prometheus metrics
// Each instance owns its registry so multiple trees in one process never collide
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // the registry the collectors below are bound to
	log      LoggerI              // the logger

	SMTMetrics // tree telemetry
}

// SMTMetrics represents the telemetry of a sparse merkle tree
type SMTMetrics struct {
	Operations    *prometheus.CounterVec   // how many operations were executed, by operation and result?
	OperationTime *prometheus.HistogramVec // how long does an operation take?
	StoredNodes   prometheus.Gauge         // how many node records are in the store?
}

// NewMetricsServer() creates a new telemetry server
func NewMetricsServer(config MetricsConfig, log LoggerI) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux},
		config:   config,
		registry: registry,
		log:      log,
		SMTMetrics: SMTMetrics{
			Operations: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "smt_operations_total",
				Help: "Total number of tree operations by operation and result",
			}, []string{"operation", "result"}),
			OperationTime: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "smt_operation_seconds",
				Help:    "Time to execute a tree operation in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000_01, 4, 10),
			}, []string{"operation"}),
			StoredNodes: factory.NewGauge(prometheus.GaugeOpts{
				Name: "smt_stored_nodes",
				Help: "Number of node records held in the node store",
			}),
		},
	}
}

// Registry() exposes the prometheus registry, used to gather metrics without the http server
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Start() starts the telemetry server
func (m *Metrics) Start() {
	// exit if empty
	if m == nil {
		return
	}
	if m.config.Enabled {
		go func() {
			m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
			if err := m.server.ListenAndServe(); err != nil {
				if err != http.ErrServerClosed {
					m.log.Errorf("Metrics server failed with err: %s", err.Error())
				}
			}
		}()
	}
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	// exit if empty
	if m == nil {
		return
	}
	if m.config.Enabled {
		if err := m.server.Shutdown(context.Background()); err != nil {
			m.log.Error(err.Error())
		}
	}
}

// UpdateSMTMetrics() records the outcome and duration of a tree operation
func (m *Metrics) UpdateSMTMetrics(operation string, err error, duration time.Duration) {
	// exit if empty
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateStoredNodes() is a setter for the node store size
func (m *Metrics) UpdateStoredNodes(count int) {
	// exit if empty
	if m == nil {
		return
	}
	m.StoredNodes.Set(float64(count))
}
