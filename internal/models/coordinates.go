package models

// GeoPoint represents a geographical point defined by its latitude and longitude in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`  // Latitude of the geographical point.
	Longitude float64 `json:"longitude"` // Longitude of the geographical point.
}

// UserState holds what the location collaborator has reported about the user during a cycle.
type UserState struct {
	Location       GeoPoint `json:"location"`        // Location is the last reported GPS fix.
	Heading        float64  `json:"heading"`         // Heading is the latched magnetic heading in degrees.
	HeadingSamples int      `json:"heading_samples"` // HeadingSamples counts samples seen in this cycle.
}
