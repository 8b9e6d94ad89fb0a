package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 는 Metrics 카운터를 scrape 시점에 Prometheus 메트릭으로 변환한다.
// 카운터 자체는 atomic int64 그대로 두고, 등록만 Prometheus registry 에 한다.
type Collector struct {
	m     *Metrics
	descs map[string]*prometheus.Desc
}

func NewCollector(namespace string, m *Metrics) *Collector {
	c := &Collector{m: m, descs: make(map[string]*prometheus.Desc)}
	for _, s := range m.Snapshot() {
		c.descs[s.Name] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", s.Name),
			"logship "+s.Name,
			nil, nil,
		)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.m.Snapshot() {
		vt := prometheus.CounterValue
		if s.Kind == Gauge {
			vt = prometheus.GaugeValue
		}
		ch <- prometheus.MustNewConstMetric(c.descs[s.Name], vt, float64(s.Value))
	}
}
