package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// InitMetrics initializes metrics. If the passed port is zero, no action is taken. Otherwise,
// the function registers the metrics with the default prometheus registry and starts an HTTP
// server that serves them on the passed port under the '/metrics' path.
func InitMetrics(port int) {
	if port == 0 {
		return
	}
	Register(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Errorf("metrics server on port %d stopped: %s", port, err)
		}
	}()
}

// Register creates the go runtime and importer metrics and registers them with 'reg'.
// From then on the exposed metrics functions update the registered metrics.
func Register(reg prometheus.Registerer) {
	addGoRuntimeMetrics(reg)
	addLayerimportMetrics(reg)
}
