// Package api exposes the ingestion pipeline to the AR client over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/sightspotter/internal/geo"
	"github.com/UnknownOlympus/sightspotter/internal/host"
	"github.com/UnknownOlympus/sightspotter/internal/models"
	"github.com/UnknownOlympus/sightspotter/internal/placement"
	"github.com/UnknownOlympus/sightspotter/internal/repository"
	"github.com/UnknownOlympus/sightspotter/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline is the part of the ingestion service driven by the host.
type Pipeline interface {
	Start(ctx context.Context) error
	Authorize(ctx context.Context, granted bool) error
	LocationFix(ctx context.Context, location models.GeoPoint) error
	LocationFailed(ctx context.Context, cause error) error
	HeadingSample(ctx context.Context, heading float64) error
	Status(ctx context.Context) (service.Status, error)
	Label(ctx context.Context, id uuid.UUID) (string, error)
	Anchor(ctx context.Context, id uuid.UUID) (repository.Anchor, error)
	Anchors(ctx context.Context) ([]repository.Anchor, error)
}

// Host is the session state shared with the AR client.
type Host interface {
	UpdateCamera(transform placement.Transform)
	Requests() host.Requests
}

// Handler serves the host API.
type Handler struct {
	pipeline Pipeline
	host     Host
	bearing  geo.BearingFunc
	log      *slog.Logger
}

// NewRouter builds the router for the host API, the health check and the metrics endpoint.
// bearing must be the formula the pipeline places anchors with, so exported sights agree
// with the anchors' azimuths.
func NewRouter(
	log *slog.Logger,
	pipeline Pipeline,
	session Host,
	bearing geo.BearingFunc,
	gatherer prometheus.Gatherer,
) *mux.Router {
	h := &Handler{pipeline: pipeline, host: session, bearing: bearing, log: log}

	// Routes stay on the root router: a subrouter reports a method mismatch as 404.
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/v1/session", h.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/v1/session/start", h.StartSession).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/authorization", h.Authorize).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/location", h.ReportLocation).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/location/error", h.ReportLocationError).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/heading", h.ReportHeading).Methods(http.MethodPost)
	r.HandleFunc("/v1/session/camera", h.UpdateCamera).Methods(http.MethodPut)
	r.HandleFunc("/v1/anchors", h.ListAnchors).Methods(http.MethodGet)
	r.HandleFunc("/v1/anchors/{id}", h.GetAnchor).Methods(http.MethodGet)
	r.HandleFunc("/v1/anchors/{id}/label", h.GetLabel).Methods(http.MethodGet)
	r.HandleFunc("/v1/sights", h.Sights).Methods(http.MethodGet)

	return r
}
