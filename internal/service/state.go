package service

import (
	"errors"
	"fmt"

	"github.com/UnknownOlympus/sightspotter/internal/models"
)

// State is the step of the ingestion cycle the pipeline is waiting in.
type State int

const (
	StateIdle             State = iota // StateIdle is the state before the session starts.
	StateAwaitingLocation              // StateAwaitingLocation waits for location permission.
	StateAwaitingFirstFix              // StateAwaitingFirstFix waits for the requested GPS fix.
	StateFetching                      // StateFetching waits for the geosearch response.
	StateAwaitingHeading               // StateAwaitingHeading waits for a stable compass heading.
	StatePlacing                       // StatePlacing computes and registers anchors.
	StateReady                         // StateReady means the cycle finished.
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateAwaitingLocation: "awaiting_location",
	StateAwaitingFirstFix: "awaiting_first_fix",
	StateFetching:         "fetching",
	StateAwaitingHeading:  "awaiting_heading",
	StatePlacing:          "placing",
	StateReady:            "ready",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Errors surfaced through Status. None of them stop the pipeline.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrLocationFailed   = errors.New("location update failed")
	ErrFetchFailed      = errors.New("failed to fetch sights")
	ErrNoCameraFrame    = errors.New("no camera frame available")
	ErrAnchorFailed     = errors.New("failed to register anchor")
	ErrStopped          = errors.New("ingestion pipeline is not running")
)

// Status is a snapshot of the pipeline.
type Status struct {
	State     State                `json:"state"`
	Cycle     uint64               `json:"cycle"`
	User      models.UserState     `json:"user"`
	Sights    []models.SightRecord `json:"sights"`
	Anchors   int                  `json:"anchors"`
	Err       error                `json:"-"`
	LastError string               `json:"last_error,omitempty"`
}
