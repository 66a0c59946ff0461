package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/UnknownOlympus/sightspotter/internal/geo"
	"github.com/UnknownOlympus/sightspotter/internal/geosearch"
	"github.com/UnknownOlympus/sightspotter/internal/metrics"
	"github.com/UnknownOlympus/sightspotter/internal/models"
	"github.com/UnknownOlympus/sightspotter/internal/placement"
	"github.com/UnknownOlympus/sightspotter/internal/repository"
	"github.com/google/uuid"
)

// headingLatchSample is the heading sample used for placement. Earlier samples come
// from a compass that has not settled yet.
const headingLatchSample = 2

const eventBuffer = 64

// LocationService is the host's location subsystem.
type LocationService interface {
	// RequestLocation asks for a single GPS fix.
	RequestLocation(ctx context.Context) error
	// StartHeadingUpdates asks the host to start delivering compass headings.
	StartHeadingUpdates(ctx context.Context) error
}

// CameraSource provides the camera pose of the current AR frame.
type CameraSource interface {
	// CameraTransform returns false when no frame has been captured yet.
	CameraTransform(ctx context.Context) (placement.Transform, bool)
}

// Options configures an IngestionService.
type Options struct {
	ProviderName string          // Provider name for metrics labeling
	BearingMode  geo.BearingMode // Bearing formula used to compute azimuths
	FetchTimeout time.Duration   // Timeout of one geosearch request, none when zero
}

// event is a state transition executed on the Run goroutine.
type event func(ctx context.Context)

// IngestionService drives one sight ingestion cycle per location fix: fetch the sights
// around the user, wait for a stable heading, then register one anchor per sight.
//
// All state is owned by the Run goroutine. Callbacks from the host are queued as events,
// so a cycle is never processed concurrently with another.
type IngestionService struct {
	log          *slog.Logger         // Logger for logging service activities
	provider     geosearch.Provider   // Geosearch provider for nearby sights
	repo         repository.Interface // Anchor table of the AR session
	location     LocationService      // Host location subsystem
	camera       CameraSource         // Host camera pose
	metrics      *metrics.Metrics     // Metrics for tracking pipeline progress
	providerName string               // Name of the provider for metrics labeling
	bearing      geo.BearingFunc      // Azimuth formula
	fetchTimeout time.Duration        // Timeout for a single fetch

	events chan event
	done   chan struct{}

	state   State
	cycle   uint64
	user    models.UserState
	sights  []models.SightRecord
	anchors int
	lastErr error
}

// NewIngestionService creates a new instance of IngestionService. Run must be called
// exactly once to start processing events.
func NewIngestionService(
	log *slog.Logger,
	provider geosearch.Provider,
	repo repository.Interface,
	location LocationService,
	camera CameraSource,
	metrics *metrics.Metrics,
	opts Options,
) *IngestionService {
	return &IngestionService{
		log:          log,
		provider:     provider,
		repo:         repo,
		location:     location,
		camera:       camera,
		metrics:      metrics,
		providerName: opts.ProviderName,
		bearing:      opts.BearingMode.Func(),
		fetchTimeout: opts.FetchTimeout,
		events:       make(chan event, eventBuffer),
		done:         make(chan struct{}),
	}
}

// Run processes host events until the context is cancelled.
func (s *IngestionService) Run(ctx context.Context) {
	defer close(s.done)

	s.log.InfoContext(ctx, "Sight ingestion pipeline started...")

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "Sight ingestion pipeline stopped.")
			return
		case ev := <-s.events:
			ev(ctx)
		}
	}
}

// Start begins a session: the pipeline waits for the host's location permission.
func (s *IngestionService) Start(ctx context.Context) error {
	return s.send(ctx, func(ctx context.Context) {
		if s.state != StateIdle {
			s.log.DebugContext(ctx, "Session already started", "state", s.state)
			return
		}
		s.setState(StateAwaitingLocation)
	})
}

// Authorize reports the user's answer to the location permission request. A grant
// requests a single location fix.
func (s *IngestionService) Authorize(ctx context.Context, granted bool) error {
	return s.send(ctx, func(ctx context.Context) {
		if !granted {
			s.log.WarnContext(ctx, "Location permission denied")
			s.lastErr = ErrPermissionDenied
			return
		}

		if err := s.location.RequestLocation(ctx); err != nil {
			s.recordLocationError(ctx, err)
			return
		}
		s.lastErr = nil
		if s.state <= StateAwaitingLocation {
			s.setState(StateAwaitingFirstFix)
		}
	})
}

// LocationFix reports a GPS fix. It starts a new cycle and fetches the sights around
// the fix in the background; a fetch still running for an older fix is superseded.
// Fixes are ignored until location permission has been granted.
func (s *IngestionService) LocationFix(ctx context.Context, location models.GeoPoint) error {
	return s.send(ctx, func(ctx context.Context) {
		if s.state < StateAwaitingFirstFix {
			s.log.WarnContext(ctx, "Location fix ignored, permission not granted", "state", s.state)
			return
		}

		s.cycle++
		s.user = models.UserState{Location: location}
		s.sights = nil
		s.lastErr = nil
		s.setState(StateFetching)

		s.log.InfoContext(ctx, "Location fix received, fetching sights",
			"cycle", s.cycle, "lat", location.Latitude, "lon", location.Longitude)

		go s.fetch(ctx, s.cycle, location)
	})
}

// LocationFailed reports a failure of the host location subsystem.
func (s *IngestionService) LocationFailed(ctx context.Context, cause error) error {
	return s.send(ctx, func(ctx context.Context) {
		s.recordLocationError(ctx, cause)
	})
}

// HeadingSample reports a magnetic heading in degrees. Only the second sample of a
// cycle is used; it triggers placement.
func (s *IngestionService) HeadingSample(ctx context.Context, heading float64) error {
	return s.send(ctx, func(ctx context.Context) {
		if s.state != StateAwaitingHeading {
			s.log.DebugContext(ctx, "Heading sample ignored", "state", s.state, "heading", heading)
			return
		}

		s.user.HeadingSamples++
		if s.user.HeadingSamples < headingLatchSample {
			s.log.DebugContext(ctx, "Discarding unstable heading sample", "heading", heading)
			return
		}

		s.user.Heading = heading
		s.place(ctx)
	})
}

// Status returns a snapshot of the pipeline.
func (s *IngestionService) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if err := s.send(ctx, func(context.Context) { reply <- s.snapshot() }); err != nil {
		return Status{}, err
	}

	select {
	case status := <-reply:
		return status, nil
	case <-s.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Label returns the label the host renders for an anchor.
func (s *IngestionService) Label(ctx context.Context, id uuid.UUID) (string, error) {
	return s.repo.Label(ctx, id)
}

// Anchor returns one registered anchor.
func (s *IngestionService) Anchor(ctx context.Context, id uuid.UUID) (repository.Anchor, error) {
	return s.repo.Anchor(ctx, id)
}

// Anchors returns every anchor registered so far.
func (s *IngestionService) Anchors(ctx context.Context) ([]repository.Anchor, error) {
	return s.repo.ListAnchors(ctx)
}

func (s *IngestionService) send(ctx context.Context, ev event) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetch runs on its own goroutine and hands the result back to the Run goroutine.
func (s *IngestionService) fetch(ctx context.Context, cycle uint64, location models.GeoPoint) {
	fetchCtx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	startTime := time.Now()
	sights, err := s.provider.NearbySights(fetchCtx, location)
	s.metrics.FetchSeconds.WithLabelValues(s.providerName).Observe(time.Since(startTime).Seconds())

	if sendErr := s.send(ctx, func(ctx context.Context) { s.fetched(ctx, cycle, sights, err) }); sendErr != nil {
		s.log.DebugContext(ctx, "Dropping fetch result", "cycle", cycle, "error", sendErr)
	}
}

func (s *IngestionService) fetched(ctx context.Context, cycle uint64, sights []models.SightRecord, err error) {
	if cycle != s.cycle {
		s.log.DebugContext(ctx, "Discarding result of a superseded cycle", "cycle", cycle, "current", s.cycle)
		s.metrics.CyclesTotal.WithLabelValues("superseded").Inc()
		return
	}

	if err != nil {
		// The cycle stalls in Fetching until the next location fix.
		s.log.ErrorContext(ctx, "Failed to fetch sights", "cycle", cycle, "error", err)
		s.metrics.FetchErrors.Inc()
		s.metrics.CyclesTotal.WithLabelValues("fetch_failed").Inc()
		s.lastErr = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		return
	}

	s.sights = sights
	s.metrics.SightsReturned.Observe(float64(len(sights)))
	s.log.InfoContext(ctx, "Sights fetched, waiting for heading", "cycle", cycle, "sights", len(sights))

	if err = s.location.StartHeadingUpdates(ctx); err != nil {
		s.recordLocationError(ctx, err)
		return
	}
	s.setState(StateAwaitingHeading)
}

type placedSight struct {
	sight    models.SightRecord
	distance float64
}

func (s *IngestionService) place(ctx context.Context) {
	s.setState(StatePlacing)
	defer s.setState(StateReady)

	camera, ok := s.camera.CameraTransform(ctx)
	if !ok {
		s.log.WarnContext(ctx, "No camera frame, skipping placement", "cycle", s.cycle)
		s.metrics.CyclesTotal.WithLabelValues("no_camera").Inc()
		s.lastErr = ErrNoCameraFrame
		return
	}

	for _, placed := range s.nearestFirst() {
		azimuth := s.bearing(s.user.Location, placed.sight.Location)
		transform := placement.Compute(float32(placed.distance), azimuth, s.user.Heading, camera)

		title := placed.sight.Title
		if title == "" {
			title = models.UnknownTitle
		}

		anchor, err := s.repo.AddAnchor(ctx, repository.NewAnchor{
			Title:     title,
			Transform: transform,
			Distance:  placed.distance,
			Azimuth:   azimuth,
			Cycle:     s.cycle,
		})
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to register anchor", "title", title, "error", err)
			s.lastErr = fmt.Errorf("%w: %w", ErrAnchorFailed, err)
			continue
		}

		s.anchors++
		s.metrics.AnchorsPlaced.Inc()
		s.log.DebugContext(ctx, "Anchor placed",
			"id", anchor.ID, "title", title, "distance", placed.distance, "azimuth", azimuth)
	}

	s.metrics.CyclesTotal.WithLabelValues("placed").Inc()
	s.log.InfoContext(ctx, "Sights placed", "cycle", s.cycle, "sights", len(s.sights), "heading", s.user.Heading)
}

// nearestFirst orders the cycle's sights by distance from the user, then by title.
func (s *IngestionService) nearestFirst() []placedSight {
	placed := make([]placedSight, 0, len(s.sights))
	for _, sight := range s.sights {
		placed = append(placed, placedSight{sight: sight, distance: geo.Distance(s.user.Location, sight.Location)})
	}

	sort.SliceStable(placed, func(i, j int) bool {
		if placed[i].distance != placed[j].distance {
			return placed[i].distance < placed[j].distance
		}
		return placed[i].sight.Title < placed[j].sight.Title
	})

	return placed
}

func (s *IngestionService) recordLocationError(ctx context.Context, cause error) {
	s.log.ErrorContext(ctx, "Location subsystem failed", "state", s.state, "error", cause)
	s.lastErr = fmt.Errorf("%w: %w", ErrLocationFailed, cause)
}

func (s *IngestionService) setState(state State) {
	s.state = state
	s.metrics.PipelineState.Set(float64(state))
}

func (s *IngestionService) snapshot() Status {
	status := Status{
		State:   s.state,
		Cycle:   s.cycle,
		User:    s.user,
		Sights:  append([]models.SightRecord(nil), s.sights...),
		Anchors: s.anchors,
		Err:     s.lastErr,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}

	return status
}
