package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These are the metrics functions exposed by the package. They are NOP functions
// until 'addLayerimportMetrics' replaces them, so there is no overhead when metrics
// are not enabled.

var IncLayersImported noLabel = func() {}
var IncLayersSkipped noLabel = func() {}
var AddLayerBytes delta = func(float64) {}
var IncTagUpdates noLabel = func() {}
var IncUploadsByRepo withLabel = func(string) {}
var IncUploadErrors noLabel = func() {}
var IncApiRequests noLabel = func() {}

type withLabel func(string)
type noLabel func()
type delta func(float64)

const (
	namespace             = "layerimport"
	layers_imported_total = "layers_imported_total"
	layers_skipped_total  = "layers_skipped_total"
	layer_bytes_total     = "layer_bytes_total"
	tag_updates_total     = "tag_updates_total"
	uploads_by_repo_total = "uploads_by_repo_total"
	upload_errors_total   = "upload_errors_total"
	api_requests_total    = "api_requests_total"
	repo_label            = "repo"
)

// Prometheus metrics objects

var layersImportedTotal prometheus.Counter
var layersSkippedTotal prometheus.Counter
var layerBytesTotal prometheus.Counter
var tagUpdatesTotal prometheus.Counter
var uploadsByRepoTotal *prometheus.CounterVec
var uploadErrorsTotal prometheus.Counter
var apiRequestsTotal prometheus.Counter

// addLayerimportMetrics creates the importer metrics, registers them with 'reg' and
// assigns the exposed functions implementations that update them.
func addLayerimportMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)

	layersImportedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name:      layers_imported_total,
			Namespace: namespace,
			Help:      "Total layers extracted from archives into storage",
		},
	)
	IncLayersImported = func() {
		layersImportedTotal.Inc()
	}

	layersSkippedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name:      layers_skipped_total,
			Namespace: namespace,
			Help:      "Total layers not extracted because they were already in storage",
		},
	)
	IncLayersSkipped = func() {
		layersSkippedTotal.Inc()
	}

	layerBytesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name:      layer_bytes_total,
			Namespace: namespace,
			Help:      "Total uncompressed layer bytes read from archives",
		},
	)
	AddLayerBytes = func(delta float64) {
		layerBytesTotal.Add(delta)
	}

	tagUpdatesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name:      tag_updates_total,
			Namespace: namespace,
			Help:      "Total repository scratchpad tag updates",
		},
	)
	IncTagUpdates = func() {
		tagUpdatesTotal.Inc()
	}

	uploadsByRepoTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name:      uploads_by_repo_total,
			Namespace: namespace,
			Help:      "Total archive uploads by repository",
		},
		[]string{repo_label},
	)
	IncUploadsByRepo = func(repo string) {
		uploadsByRepoTotal.With(prometheus.Labels{repo_label: repo}).Inc()
	}

	uploadErrorsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name:      upload_errors_total,
			Namespace: namespace,
			Help:      "Total archive uploads that failed",
		},
	)
	IncUploadErrors = func() {
		uploadErrorsTotal.Inc()
	}

	apiRequestsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name:      api_requests_total,
			Namespace: namespace,
			Help:      "Total calls to the query API",
		},
	)
	IncApiRequests = func() {
		apiRequestsTotal.Inc()
	}
}
