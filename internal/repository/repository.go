// Package repository keeps the anchors registered during an AR session together with
// the labels the host renders for them.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/sightspotter/internal/placement"
	"github.com/google/uuid"
)

// ErrAnchorNotFound is returned when no anchor has the requested identifier.
var ErrAnchorNotFound = errors.New("anchor not found")

// Anchor is a tracked point in camera space the host attaches a label to.
type Anchor struct {
	ID        uuid.UUID           `json:"id"`         // ID is generated when the anchor is added.
	Title     string              `json:"title"`      // Title is the label rendered by the host.
	Transform placement.Transform `json:"transform"`  // Transform places the anchor, row-major.
	Distance  float64             `json:"distance"`   // Distance to the sight in meters.
	Azimuth   float64             `json:"azimuth"`    // Azimuth from the user in degrees.
	Cycle     uint64              `json:"cycle"`      // Cycle is the ingestion cycle that placed it.
	CreatedAt time.Time           `json:"created_at"` // CreatedAt is when the anchor was added.
}

// NewAnchor describes an anchor to be added.
type NewAnchor struct {
	Title     string
	Transform placement.Transform
	Distance  float64
	Azimuth   float64
	Cycle     uint64
}

type Interface interface {
	AddAnchor(ctx context.Context, anchor NewAnchor) (Anchor, error)
	Anchor(ctx context.Context, id uuid.UUID) (Anchor, error)
	Label(ctx context.Context, id uuid.UUID) (string, error)
	ListAnchors(ctx context.Context) ([]Anchor, error)
}

// Repository is an in-memory anchor table. Anchors are never removed; they live as long
// as the session.
type Repository struct {
	mu      sync.RWMutex
	anchors map[uuid.UUID]Anchor
	order   []uuid.UUID
	now     func() time.Time
	log     *slog.Logger
}

// NewRepository creates a new, empty anchor Repository.
func NewRepository(log *slog.Logger) *Repository {
	return &Repository{
		anchors: make(map[uuid.UUID]Anchor),
		now:     time.Now,
		log:     log,
	}
}

// AddAnchor registers an anchor under a fresh identifier and records its label.
func (r *Repository) AddAnchor(ctx context.Context, anchor NewAnchor) (Anchor, error) {
	added := Anchor{
		ID:        uuid.New(),
		Title:     anchor.Title,
		Transform: anchor.Transform,
		Distance:  anchor.Distance,
		Azimuth:   anchor.Azimuth,
		Cycle:     anchor.Cycle,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.anchors[added.ID] = added
	r.order = append(r.order, added.ID)
	r.mu.Unlock()

	r.log.DebugContext(ctx, "Anchor added", "id", added.ID, "title", added.Title, "cycle", added.Cycle)

	return added, nil
}

// Anchor returns the anchor with the given identifier.
func (r *Repository) Anchor(_ context.Context, id uuid.UUID) (Anchor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	anchor, ok := r.anchors[id]
	if !ok {
		return Anchor{}, ErrAnchorNotFound
	}

	return anchor, nil
}

// Label returns the title rendered for the anchor with the given identifier.
func (r *Repository) Label(ctx context.Context, id uuid.UUID) (string, error) {
	anchor, err := r.Anchor(ctx, id)
	if err != nil {
		return "", err
	}

	return anchor.Title, nil
}

// ListAnchors returns all anchors in the order they were added.
func (r *Repository) ListAnchors(_ context.Context) ([]Anchor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	anchors := make([]Anchor, 0, len(r.order))
	for _, id := range r.order {
		anchors = append(anchors, r.anchors[id])
	}

	return anchors, nil
}
