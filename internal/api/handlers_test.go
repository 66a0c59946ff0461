package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UnknownOlympus/sightspotter/internal/api"
	"github.com/UnknownOlympus/sightspotter/internal/geo"
	"github.com/UnknownOlympus/sightspotter/internal/host"
	"github.com/UnknownOlympus/sightspotter/internal/metrics"
	"github.com/UnknownOlympus/sightspotter/internal/models"
	"github.com/UnknownOlympus/sightspotter/internal/repository"
	"github.com/UnknownOlympus/sightspotter/internal/service"
	"github.com/UnknownOlympus/sightspotter/test/mocks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const identityColumns = `[1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1]`

type testServer struct {
	router   *mux.Router
	provider *mocks.Provider
	cancel   context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.Default()
	reg := prometheus.NewRegistry()
	provider := mocks.NewProvider(t)
	session := host.NewSession(logger)
	repo := repository.NewRepository(logger)
	svc := service.NewIngestionService(
		logger, provider, repo, session, session, metrics.NewMetrics(reg),
		service.Options{ProviderName: "test", BearingMode: geo.BearingLiteral},
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go svc.Run(ctx)

	return &testServer{
		router:   api.NewRouter(logger, svc, session, geo.BearingLiteral.Func(), reg),
		provider: provider,
		cancel:   cancel,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequestWithContext(t.Context(), method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec
}

type sessionBody struct {
	State     string           `json:"state"`
	Cycle     uint64           `json:"cycle"`
	Anchors   int              `json:"anchors"`
	LastError string           `json:"last_error"`
	User      models.UserState `json:"user"`
	Host      host.Requests    `json:"host"`
}

func (s *testServer) waitForState(t *testing.T, state string) sessionBody {
	t.Helper()

	var body sessionBody
	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/v1/session", "")
		if rec.Code != http.StatusOK {
			return false
		}
		body = sessionBody{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			return false
		}
		return body.State == state
	}, time.Second, 5*time.Millisecond)

	return body
}

func TestHostAPI_FullSession(t *testing.T) {
	srv := newTestServer(t)
	sight := models.SightRecord{
		PageID:      42,
		Title:       "Golden Gate",
		Description: "city gate",
		Location:    models.GeoPoint{Latitude: 50.4487, Longitude: 30.5133},
	}
	user := models.GeoPoint{Latitude: 50.4501, Longitude: 30.5234}
	srv.provider.On("NearbySights", mock.Anything, user).Return([]models.SightRecord{sight}, nil).Once()

	rec := srv.do(t, http.MethodPost, "/v1/session/start", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	srv.waitForState(t, "awaiting_location")

	rec = srv.do(t, http.MethodPost, "/v1/session/authorization", `{"granted": true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := srv.waitForState(t, "awaiting_first_fix")
	assert.Equal(t, 1, body.Host.LocationRequests)

	rec = srv.do(t, http.MethodPut, "/v1/session/camera", `{"transform": `+identityColumns+`}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodPost, "/v1/session/location", `{"latitude": 50.4501, "longitude": 30.5234}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body = srv.waitForState(t, "awaiting_heading")
	assert.True(t, body.Host.HeadingUpdates)

	for _, heading := range []string{"5", "10"} {
		rec = srv.do(t, http.MethodPost, "/v1/session/heading", `{"magnetic_heading": `+heading+`}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	body = srv.waitForState(t, "ready")
	assert.Equal(t, 1, body.Anchors)
	assert.InDelta(t, 10.0, body.User.Heading, 0)
	assert.Empty(t, body.LastError)

	rec = srv.do(t, http.MethodGet, "/v1/anchors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var anchors []struct {
		ID      uuid.UUID   `json:"id"`
		Title   string      `json:"title"`
		Azimuth float64     `json:"azimuth"`
		Columns [16]float64 `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anchors))
	require.Len(t, anchors, 1)
	assert.Equal(t, "Golden Gate", anchors[0].Title)
	assert.InDelta(t, 1.0, anchors[0].Columns[15], 1e-12)

	rec = srv.do(t, http.MethodGet, "/v1/anchors/"+anchors[0].ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Golden Gate"`)

	rec = srv.do(t, http.MethodGet, "/v1/anchors/"+anchors[0].ID.String()+"/label", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var label map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &label))
	assert.Equal(t, "Golden Gate", label["label"])

	rec = srv.do(t, http.MethodGet, "/v1/sights", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Golden Gate", fc.Features[0].Properties.MustString("title"))
	assert.Equal(t, "city gate", fc.Features[0].Properties.MustString("description"))
	assert.InDelta(t, 30.5133, fc.Features[0].Point().Lon(), 1e-9)
	assert.Greater(t, fc.Features[0].Properties.MustFloat64("distance"), 0.0)
	assert.InDelta(t, anchors[0].Azimuth, fc.Features[0].Properties.MustFloat64("bearing"), 1e-9)
	assert.InDelta(t, geo.Bearing(user, sight.Location), fc.Features[0].Properties.MustFloat64("bearing"), 1e-9)
}

func TestHostAPI_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"authorization without answer", http.MethodPost, "/v1/session/authorization", `{}`, http.StatusBadRequest},
		{"location missing longitude", http.MethodPost, "/v1/session/location", `{"latitude": 1}`, http.StatusBadRequest},
		{"location out of range", http.MethodPost, "/v1/session/location", `{"latitude": 95, "longitude": 0}`, http.StatusBadRequest},
		{"location unknown field", http.MethodPost, "/v1/session/location", `{"lat": 1, "lon": 2}`, http.StatusBadRequest},
		{"location malformed body", http.MethodPost, "/v1/session/location", `{`, http.StatusBadRequest},
		{"heading missing", http.MethodPost, "/v1/session/heading", `{}`, http.StatusBadRequest},
		{"heading invalid", http.MethodPost, "/v1/session/heading", `{"magnetic_heading": -1}`, http.StatusBadRequest},
		{"heading full turn", http.MethodPost, "/v1/session/heading", `{"magnetic_heading": 360}`, http.StatusBadRequest},
		{"camera too short", http.MethodPut, "/v1/session/camera", `{"transform": [1, 0, 0]}`, http.StatusBadRequest},
		{"anchor malformed id", http.MethodGet, "/v1/anchors/not-a-uuid", "", http.StatusBadRequest},
		{"anchor unknown", http.MethodGet, "/v1/anchors/" + uuid.NewString(), "", http.StatusNotFound},
		{"label unknown", http.MethodGet, "/v1/anchors/" + uuid.NewString() + "/label", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/v1/session/heading", "", http.StatusMethodNotAllowed},
		{"delete heading", http.MethodDelete, "/v1/session/heading", "", http.StatusMethodNotAllowed},
		{"post camera", http.MethodPost, "/v1/session/camera", identityColumns, http.StatusMethodNotAllowed},
		{"delete anchors", http.MethodDelete, "/v1/anchors", "", http.StatusMethodNotAllowed},
		{"unknown route", http.MethodGet, "/v1/nowhere", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHostAPI_LocationError(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/session/location/error", `{"message": "denied by user"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/v1/session", "")
		return strings.Contains(rec.Body.String(), "denied by user")
	}, time.Second, 5*time.Millisecond)
}

func TestHostAPI_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sights_pipeline_state")

	srv.cancel()
	require.Eventually(t, func() bool {
		return srv.do(t, http.MethodGet, "/healthz", "").Code == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	rec = srv.do(t, http.MethodPost, "/v1/session/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
