// Package host tracks what the AR client has reported and what the pipeline has asked
// of it. The client polls the requests and pushes its camera pose.
package host

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/sightspotter/internal/placement"
)

// Requests lists what the pipeline expects the host to do next.
type Requests struct {
	LocationRequests int       `json:"location_requests"` // Single fixes requested so far.
	HeadingUpdates   bool      `json:"heading_updates"`   // Whether compass updates should run.
	CameraUpdatedAt  time.Time `json:"camera_updated_at"` // Last camera pose push, zero if none.
}

// Session is the service-side view of the host AR client. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	requests Requests
	camera   placement.Transform
	hasFrame bool
	now      func() time.Time
	log      *slog.Logger
}

// NewSession creates a Session without a camera frame.
func NewSession(log *slog.Logger) *Session {
	return &Session{now: time.Now, log: log}
}

// RequestLocation records a request for a single location fix.
func (s *Session) RequestLocation(ctx context.Context) error {
	s.mu.Lock()
	s.requests.LocationRequests++
	s.mu.Unlock()

	s.log.DebugContext(ctx, "Location fix requested from host")

	return nil
}

// StartHeadingUpdates records that compass updates should be delivered.
func (s *Session) StartHeadingUpdates(ctx context.Context) error {
	s.mu.Lock()
	s.requests.HeadingUpdates = true
	s.mu.Unlock()

	s.log.DebugContext(ctx, "Heading updates requested from host")

	return nil
}

// UpdateCamera stores the pose of the host's current AR frame.
func (s *Session) UpdateCamera(transform placement.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.camera = transform
	s.hasFrame = true
	s.requests.CameraUpdatedAt = s.now()
}

// CameraTransform returns the last pushed camera pose, or false if none was pushed.
func (s *Session) CameraTransform(_ context.Context) (placement.Transform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.camera, s.hasFrame
}

// Requests returns the pending host requests.
func (s *Session) Requests() Requests {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.requests
}
