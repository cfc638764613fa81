package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromCollector adapts Metrics' lock-free atomic counters to the
// Prometheus collector interface, so the same counters the JSON
// /metrics endpoint reads also back a /metrics/prom scrape target.
// It is a Collect-time snapshot, not a parallel set of counters: there
// is exactly one source of truth (Metrics itself).
type PromCollector struct {
	m *Metrics

	ordersReceived  *prometheus.Desc
	ordersMatched   *prometheus.Desc
	ordersCancelled *prometheus.Desc
	ordersRejected  *prometheus.Desc
	ordersInBook    *prometheus.Desc
	tradesExecuted  *prometheus.Desc
	latencyAvgMs    *prometheus.Desc
}

// NewPromCollector wraps m for Prometheus registration.
func NewPromCollector(m *Metrics) *PromCollector {
	return &PromCollector{
		m:               m,
		ordersReceived:  prometheus.NewDesc("matching_orders_received_total", "Total orders submitted.", nil, nil),
		ordersMatched:   prometheus.NewDesc("matching_orders_matched_total", "Total orders that produced at least one trade.", nil, nil),
		ordersCancelled: prometheus.NewDesc("matching_orders_cancelled_total", "Total orders cancelled.", nil, nil),
		ordersRejected:  prometheus.NewDesc("matching_orders_rejected_total", "Total orders defensively rejected.", nil, nil),
		ordersInBook:    prometheus.NewDesc("matching_orders_resting", "Orders currently resting in a book.", nil, nil),
		tradesExecuted:  prometheus.NewDesc("matching_trades_executed_total", "Total trades executed.", nil, nil),
		latencyAvgMs:    prometheus.NewDesc("matching_submit_latency_avg_ms", "Average Submit latency in milliseconds.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PromCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ordersReceived
	ch <- c.ordersMatched
	ch <- c.ordersCancelled
	ch <- c.ordersRejected
	ch <- c.ordersInBook
	ch <- c.tradesExecuted
	ch <- c.latencyAvgMs
}

// Collect implements prometheus.Collector.
func (c *PromCollector) Collect(ch chan<- prometheus.Metric) {
	received := c.m.OrdersReceived.Load()
	avgLatencyMs := float64(0)
	if received > 0 {
		avgLatencyMs = float64(c.m.TotalLatency.Load()) / float64(received) / 1000.0
	}

	ch <- prometheus.MustNewConstMetric(c.ordersReceived, prometheus.CounterValue, float64(received))
	ch <- prometheus.MustNewConstMetric(c.ordersMatched, prometheus.CounterValue, float64(c.m.OrdersMatched.Load()))
	ch <- prometheus.MustNewConstMetric(c.ordersCancelled, prometheus.CounterValue, float64(c.m.OrdersCancelled.Load()))
	ch <- prometheus.MustNewConstMetric(c.ordersRejected, prometheus.CounterValue, float64(c.m.OrdersRejected.Load()))
	ch <- prometheus.MustNewConstMetric(c.ordersInBook, prometheus.GaugeValue, float64(c.m.OrdersInBook.Load()))
	ch <- prometheus.MustNewConstMetric(c.tradesExecuted, prometheus.CounterValue, float64(c.m.TradesExecuted.Load()))
	ch <- prometheus.MustNewConstMetric(c.latencyAvgMs, prometheus.GaugeValue, avgLatencyMs)
}
