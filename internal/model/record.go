package model

import (
	"strings"
	"time"
)

// Quality ranks how complete an extraction was. It is assigned by the
// producing stage and used only to pick among cached rows for the same
// identity key.
type Quality string

const (
	QualityFull    Quality = "full"
	QualityPartial Quality = "partial"
	QualityAIOnly  Quality = "ai_only"
	QualityFailed  Quality = "failed"
)

// Rank returns the ordinal rank used by the cache resolver. Unknown
// quality strings rank below failed so that rows written by newer code
// never lose to rows we cannot interpret.
func (q Quality) Rank() int {
	switch q {
	case QualityFull:
		return 3
	case QualityPartial:
		return 2
	case QualityAIOnly:
		return 1
	case QualityFailed:
		return 0
	default:
		return -1
	}
}

// DefaultPlantType is the sentinel plant type for records where no
// specific plant name could be resolved.
const DefaultPlantType = "Imported seed"

// GrowingSpecs holds cultivation details parsed from free text. All
// fields are optional; HarvestDays is derived from DaysToMaturity and is
// only set when it falls in (0, 365).
type GrowingSpecs struct {
	SowingDepth       string `json:"sowing_depth,omitempty"`
	Spacing           string `json:"spacing,omitempty"`
	Sun               string `json:"sun,omitempty"`
	DaysToGermination string `json:"days_to_germination,omitempty"`
	DaysToMaturity    string `json:"days_to_maturity,omitempty"`
	HarvestDays       int    `json:"harvest_days,omitempty"`
	Water             string `json:"water,omitempty"`
	Description       string `json:"description,omitempty"`
}

// ExtractedRecord is the canonical output unit of the pipeline: one
// deduplicated metadata record for a vendor seed/plant listing.
type ExtractedRecord struct {
	Vendor         string       `json:"vendor"`
	PlantType      string       `json:"plant_type"`
	Variety        string       `json:"variety"`
	ScientificName string       `json:"scientific_name,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Specs          GrowingSpecs `json:"growing_specs"`
	HeroImageURL   string       `json:"hero_image_url,omitempty"`
	SourceURL      string       `json:"source_url"`
	Quality        Quality      `json:"quality,omitempty"`
	Failed         bool         `json:"failed,omitempty"`
}

// AddTag appends a tag unless an equal tag (case-insensitive, trimmed)
// is already present.
func (r *ExtractedRecord) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	for _, t := range r.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return
		}
	}
	r.Tags = append(r.Tags, tag)
}

// HasImage reports whether the record carries a usable hero image URL.
// Anything without an absolute scheme is treated as absent.
func (r *ExtractedRecord) HasImage() bool {
	return IsAbsoluteURL(r.HeroImageURL)
}

// IsAbsoluteURL reports whether s starts with an absolute http(s) scheme.
func IsAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// CacheRow is a persisted extraction, keyed by source URL and identity
// key. Rows with an empty UserID belong to the shared global cache.
type CacheRow struct {
	ID          string          `json:"id"`
	SourceURL   string          `json:"source_url"`
	UserID      string          `json:"user_id,omitempty"`
	IdentityKey string          `json:"identity_key,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	Record      ExtractedRecord `json:"extract_data"`
	Quality     Quality         `json:"quality"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CacheTier identifies which lookup tier produced a cache hit.
type CacheTier string

const (
	TierGlobalURL CacheTier = "global_url"
	TierUserURL   CacheTier = "user_url"
	TierIdentity  CacheTier = "identity_vendor"
)

// Result is the public output of one pipeline invocation.
type Result struct {
	Record ExtractedRecord `json:"record"`

	// Failed mirrors Record.Failed for callers that only read the envelope.
	Failed bool `json:"failed"`

	// TriggerRescueHint signals that normalization classified the name as
	// generic/junk and manual review is advisable.
	TriggerRescueHint bool `json:"trigger_rescue_hint,omitempty"`

	// PageStatusCode is the raw product-page status for diagnostics:
	// 404/403/429/200, or 0 when the page was never reached.
	PageStatusCode int `json:"page_status_code,omitempty"`

	// FromCache and CacheTier are set when the cache resolver answered.
	FromCache bool      `json:"from_cache,omitempty"`
	CacheTier CacheTier `json:"cache_tier,omitempty"`
}
