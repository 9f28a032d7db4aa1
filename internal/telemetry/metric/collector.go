package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource reports registry state at scrape time.
type StatsSource interface {
	GetTokenCount(ctx context.Context) (uint64, error)
}

// Collector exports registry state read at scrape time.
type Collector struct {
	source      StatsSource
	subscribers func() int
	dropped     func() uint64
	timeout     time.Duration

	tokensDesc      *prometheus.Desc
	subscribersDesc *prometheus.Desc
	droppedDesc     *prometheus.Desc
	upDesc          *prometheus.Desc
}

// NewCollector creates a collector over source. subscribers and dropped
// report the event hub's state and may be nil.
func NewCollector(source StatsSource, subscribers func() int, dropped func() uint64) *Collector {
	return &Collector{
		source:      source,
		subscribers: subscribers,
		dropped:     dropped,
		timeout:     2 * time.Second,
		tokensDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "registry", "tokens_minted"),
			"Tokens minted so far (the token counter).", nil, nil),
		subscribersDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "events", "subscribers"),
			"Active event stream subscribers.", nil, nil),
		droppedDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "events", "dropped_total"),
			"Event deliveries skipped because a subscriber was full.", nil, nil),
		upDesc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "registry", "store_up"),
			"Whether the last store read succeeded.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tokensDesc
	ch <- c.upDesc
	if c.subscribers != nil {
		ch <- c.subscribersDesc
	}
	if c.dropped != nil {
		ch <- c.droppedDesc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	count, err := c.source.GetTokenCount(ctx)
	up := 1.0
	if err != nil {
		up = 0
	} else {
		ch <- prometheus.MustNewConstMetric(c.tokensDesc, prometheus.GaugeValue, float64(count))
	}
	ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, up)

	if c.subscribers != nil {
		ch <- prometheus.MustNewConstMetric(c.subscribersDesc, prometheus.GaugeValue, float64(c.subscribers()))
	}
	if c.dropped != nil {
		ch <- prometheus.MustNewConstMetric(c.droppedDesc, prometheus.CounterValue, float64(c.dropped()))
	}
}
