package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Value is one sample produced by a collect function.
type Value struct {
	Value       float64
	LabelValues []string
}

// collector implements the prometheus.Collector interface
type collector struct {
	desc        *prometheus.Desc
	valueType   prometheus.ValueType
	collectFunc func() []Value
}

func newCollector(opts prometheus.Opts, valueType prometheus.ValueType, variableLabels []string, collectFunc func() []Value) *collector {
	fqname := prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name)
	return &collector{
		desc:        prometheus.NewDesc(fqname, opts.Help, variableLabels, opts.ConstLabels),
		valueType:   valueType,
		collectFunc: collectFunc,
	}
}

// NewGaugeCollector creates a collector with type Gauge
func NewGaugeCollector(opts prometheus.Opts, variableLabels []string, collectFunc func() []Value) prometheus.Collector {
	return newCollector(opts, prometheus.GaugeValue, variableLabels, collectFunc)
}

// Describe is implemented by DescribeByCollect
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements Collector. It creates a set of constant metrics with
// the values and labels as described by collectFunc.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	for _, value := range c.collectFunc() {
		ch <- prometheus.MustNewConstMetric(c.desc, c.valueType, value.Value, value.LabelValues...)
	}
}
