package model

import "time"

// SearchAttempt is one audit record for a rescue or hero-photo pass.
// Attempts are write-only diagnostics; nothing in the pipeline reads
// them back.
type SearchAttempt struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Vendor         string    `json:"vendor,omitempty"`
	IdentityKey    string    `json:"identity_key,omitempty"`
	Stage          string    `json:"stage"` // "rescue" or "hero_photo"
	PassNumber     int       `json:"pass_number"`
	Success        bool      `json:"success"`
	StatusCode     int       `json:"status_code,omitempty"`
	QueryUsed      string    `json:"query_used,omitempty"`
	ResultImageURL string    `json:"result_image_url,omitempty"`
	At             time.Time `json:"at"`
}
