package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/UnknownOlympus/sightspotter/internal/geo"
	"github.com/UnknownOlympus/sightspotter/internal/host"
	"github.com/UnknownOlympus/sightspotter/internal/models"
	"github.com/UnknownOlympus/sightspotter/internal/placement"
	"github.com/UnknownOlympus/sightspotter/internal/repository"
	"github.com/UnknownOlympus/sightspotter/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const maxBodyBytes = 1 << 16

var (
	errInvalidRequest   = errors.New("invalid request")
	errRouteNotFound    = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

type authorizationRequest struct {
	Granted *bool `json:"granted"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type locationErrorRequest struct {
	Message string `json:"message"`
}

type headingRequest struct {
	MagneticHeading *float64 `json:"magnetic_heading"`
}

// cameraRequest carries the camera pose column by column.
type cameraRequest struct {
	Transform []float64 `json:"transform"`
}

type sessionResponse struct {
	service.Status
	Host host.Requests `json:"host"`
}

type anchorResponse struct {
	repository.Anchor
	// Columns is the transform laid out column by column, as AR frameworks expect it.
	Columns [16]float64 `json:"columns"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports whether the pipeline is running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.log.DebugContext(r.Context(), "Performing health checks...")

	if _, err := h.pipeline.Status(r.Context()); err != nil {
		http.Error(w, "pipeline is not running", http.StatusServiceUnavailable)
		return
	}

	if _, err := w.Write([]byte("OK")); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

// GetSession returns the pipeline status and the pending host requests.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	status, err := h.pipeline.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, sessionResponse{Status: status, Host: h.host.Requests()})
}

// StartSession starts the session; the host should ask for location permission next.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	h.accepted(w, r, h.pipeline.Start(r.Context()))
}

// Authorize forwards the user's answer to the location permission prompt.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Granted == nil {
		h.writeError(w, r, fmt.Errorf("%w: granted is required", errInvalidRequest))
		return
	}

	h.accepted(w, r, h.pipeline.Authorize(r.Context(), *req.Granted))
}

// ReportLocation forwards a GPS fix.
func (h *Handler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	location, err := req.validate()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.accepted(w, r, h.pipeline.LocationFix(r.Context(), location))
}

// ReportLocationError forwards a failure of the host location subsystem.
func (h *Handler) ReportLocationError(w http.ResponseWriter, r *http.Request) {
	var req locationErrorRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Message == "" {
		req.Message = "unknown location error"
	}

	h.accepted(w, r, h.pipeline.LocationFailed(r.Context(), errors.New(req.Message)))
}

// ReportHeading forwards a compass sample.
func (h *Handler) ReportHeading(w http.ResponseWriter, r *http.Request) {
	const fullTurn = 360

	var req headingRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.MagneticHeading == nil {
		h.writeError(w, r, fmt.Errorf("%w: magnetic_heading is required", errInvalidRequest))
		return
	}

	heading := *req.MagneticHeading
	if math.IsNaN(heading) || heading < 0 || heading >= fullTurn {
		h.writeError(w, r, fmt.Errorf("%w: magnetic_heading must be in [0, 360)", errInvalidRequest))
		return
	}

	h.accepted(w, r, h.pipeline.HeadingSample(r.Context(), heading))
}

// UpdateCamera stores the camera pose of the host's current frame.
func (h *Handler) UpdateCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var columns [16]float64
	if len(req.Transform) != len(columns) {
		h.writeError(w, r, fmt.Errorf("%w: transform needs 16 values, got %d", errInvalidRequest, len(req.Transform)))
		return
	}
	copy(columns[:], req.Transform)

	transform := placement.FromColumns(columns)
	if !transform.IsFinite() {
		h.writeError(w, r, fmt.Errorf("%w: transform must be finite", errInvalidRequest))
		return
	}

	h.host.UpdateCamera(transform)
	w.WriteHeader(http.StatusNoContent)
}

// ListAnchors returns every anchor registered in the session.
func (h *Handler) ListAnchors(w http.ResponseWriter, r *http.Request) {
	anchors, err := h.pipeline.Anchors(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]anchorResponse, 0, len(anchors))
	for _, anchor := range anchors {
		resp = append(resp, newAnchorResponse(anchor))
	}

	h.writeJSON(w, r, http.StatusOK, resp)
}

// GetAnchor returns one anchor.
func (h *Handler) GetAnchor(w http.ResponseWriter, r *http.Request) {
	id, err := anchorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	anchor, err := h.pipeline.Anchor(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, newAnchorResponse(anchor))
}

// GetLabel returns the label the host renders for an anchor.
func (h *Handler) GetLabel(w http.ResponseWriter, r *http.Request) {
	id, err := anchorID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	label, err := h.pipeline.Label(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"id": id.String(), "label": label})
}

// Sights returns the sights of the current cycle as a GeoJSON feature collection.
func (h *Handler) Sights(w http.ResponseWriter, r *http.Request) {
	status, err := h.pipeline.Status(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, sight := range status.Sights {
		feature := geojson.NewFeature(orb.Point{sight.Location.Longitude, sight.Location.Latitude})
		feature.Properties["title"] = sight.Title
		feature.Properties["distance"] = geo.Distance(status.User.Location, sight.Location)
		feature.Properties["bearing"] = h.bearing(status.User.Location, sight.Location)
		if sight.PageID != 0 {
			feature.Properties["page_id"] = sight.PageID
		}
		if sight.Description != "" {
			feature.Properties["description"] = sight.Description
		}
		if sight.Thumbnail != "" {
			feature.Properties["thumbnail"] = sight.Thumbnail
		}
		fc.Append(feature)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	h.writeJSON(w, r, http.StatusOK, fc)
}

// NotFound answers requests for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, fmt.Errorf("%w: %s", errRouteNotFound, r.URL.Path))
}

// MethodNotAllowed answers requests for a known path with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, fmt.Errorf("%w: %s %s", errMethodNotAllowed, r.Method, r.URL.Path))
}

func (req locationRequest) validate() (models.GeoPoint, error) {
	const maxLat, maxLon = 90, 180

	if req.Latitude == nil || req.Longitude == nil {
		return models.GeoPoint{}, fmt.Errorf("%w: latitude and longitude are required", errInvalidRequest)
	}

	lat, lon := *req.Latitude, *req.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > maxLat || math.Abs(lon) > maxLon {
		return models.GeoPoint{}, fmt.Errorf("%w: coordinates out of range", errInvalidRequest)
	}

	return models.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

func newAnchorResponse(anchor repository.Anchor) anchorResponse {
	return anchorResponse{Anchor: anchor, Columns: anchor.Transform.Columns()}
}

func anchorID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed anchor id", errInvalidRequest)
	}

	return id, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	return nil
}

func (h *Handler) accepted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.ErrorContext(r.Context(), "failed to write reply", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrAnchorNotFound), errors.Is(err, errRouteNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errMethodNotAllowed):
		status = http.StatusMethodNotAllowed
	case errors.Is(err, service.ErrStopped):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}

	h.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}
