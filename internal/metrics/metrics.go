package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CyclesTotal    *prometheus.CounterVec
	FetchErrors    prometheus.Counter
	FetchSeconds   *prometheus.HistogramVec
	AnchorsPlaced  prometheus.Counter
	PipelineState  prometheus.Gauge
	SightsReturned prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CyclesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sights_ingestion_cycles_total",
			Help: "Total number of ingestion cycles by outcome.",
		}, []string{"outcome"}),
		FetchErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sights_provider_api_errors_total",
			Help: "Total number of errors received from the geosearch provider API.",
		}),
		FetchSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sights_provider_request_duration_seconds",
			Help:    "Duration of requests to the geosearch provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		AnchorsPlaced: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sights_anchors_placed_total",
			Help: "Total number of anchors registered with the session.",
		}),
		PipelineState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "sights_pipeline_state",
			Help: "Current state of the ingestion pipeline as its numeric code.",
		}),
		SightsReturned: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sights_provider_results",
			Help:    "Number of sights returned by a geosearch request.",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		}),
	}
}
