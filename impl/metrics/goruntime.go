// The code in this file is adapted from https://github.com/GilGil1/go-metrics-examples/tree/main based on
// an article here: https://medium.com/cyberark-engineering/golang-monitoring-made-easy-with-version-1-16-df06f7477d75.
// The GitHub LICENSE file is: https://github.com/GilGil1/go-metrics-examples/blob/main/LICENSE
package metrics

import (
	"fmt"
	"runtime/metrics"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// readRuntimeMetric reads one go runtime metric as a float
func readRuntimeMetric(name string) float64 {
	sample := []metrics.Sample{{Name: name}}
	metrics.Read(sample)
	return sampleValue(sample[0])
}

// addGoRuntimeMetrics registers a counter or gauge func with 'reg' for every go
// runtime metric that has a usable name. Metrics that prometheus rejects are
// logged and skipped.
func addGoRuntimeMetrics(reg prometheus.Registerer) {
	for _, desc := range metrics.All() {
		name := desc.Name
		opts, ok := runtimeMetricOpts(desc)
		if !ok {
			continue
		}
		var c prometheus.Collector
		if desc.Cumulative {
			c = prometheus.NewCounterFunc(prometheus.CounterOpts(opts), func() float64 {
				return readRuntimeMetric(name)
			})
		} else {
			c = prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts), func() float64 {
				return readRuntimeMetric(name)
			})
		}
		if err := reg.Register(c); err != nil {
			log.Warnf("unable to register runtime metric %s: %s", name, err)
		}
	}
}

// runtimeMetricOpts converts a runtime metric name like "/gc/heap/allocs:bytes"
// into prometheus namespace "gc", subsystem "heap" and name "allocs_bytes".
func runtimeMetricOpts(desc metrics.Description) (prometheus.Opts, bool) {
	tokens := strings.Split(desc.Name, "/")
	if len(tokens) < 3 {
		return prometheus.Opts{}, false
	}
	nameTokens := strings.SplitN(tokens[len(tokens)-1], ":", 2)
	if len(nameTokens) != 2 {
		return prometheus.Opts{}, false
	}
	subsystem := ""
	if len(tokens) > 3 {
		subsystem = promName(strings.Join(tokens[2:len(tokens)-1], "_"))
	}
	return prometheus.Opts{
		Namespace: promName(tokens[1]),
		Subsystem: subsystem,
		Name:      promName(strings.Join(nameTokens, "_")),
		Help:      fmt.Sprintf("Units:%s, %s", nameTokens[1], desc.Description),
	}, true
}

// promName replaces characters that are valid in runtime metric names but not
// in prometheus names
func promName(s string) string {
	return strings.NewReplacer("-", "_", "*", "x", ".", "_").Replace(strings.TrimSpace(s))
}

func sampleValue(sample metrics.Sample) float64 {
	switch sample.Value.Kind() {
	case metrics.KindUint64:
		return float64(sample.Value.Uint64())
	case metrics.KindFloat64:
		return sample.Value.Float64()
	case metrics.KindFloat64Histogram:
		return medianBucket(sample.Value.Float64Histogram())
	}
	return 0
}

// medianBucket reduces a runtime histogram to the lower bound of the bucket that
// holds the median observation.
func medianBucket(h *metrics.Float64Histogram) float64 {
	total := uint64(0)
	for _, count := range h.Counts {
		total += count
	}
	thresh := total / 2
	total = 0
	for i, count := range h.Counts {
		total += count
		if total >= thresh {
			return h.Buckets[i]
		}
	}
	return 0
}
