package models

// UnknownTitle is used for sights the geosearch API returns without a title.
const UnknownTitle = "Unknown"

// SightRecord is a point of interest returned by a geosearch provider.
type SightRecord struct {
	PageID      int64    `json:"page_id,omitempty"`     // PageID is the provider's identifier, zero if absent.
	Title       string   `json:"title"`                 // Title is shown as the anchor label.
	Location    GeoPoint `json:"location"`              // Location of the sight.
	Description string   `json:"description,omitempty"` // Description is a short provider summary.
	Thumbnail   string   `json:"thumbnail,omitempty"`   // Thumbnail is an image URL.
}
