// Package rules holds vendor-specific product configuration: hostname
// tables, host allow-lists, and text blocklists. The algorithms in
// normalize/extract take a *Rules so tests can substitute fixtures.
package rules

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the full vendor configuration set.
type Rules struct {
	// VendorHosts maps a normalized hostname to its canonical vendor name.
	// A hostname match always overrides an AI-guessed vendor.
	VendorHosts map[string]string `yaml:"vendor_hosts"`

	// TitlePriorityHosts lists hosts whose on-page title is more reliable
	// than AI output and replaces the variety outright.
	TitlePriorityHosts []string `yaml:"title_priority_hosts"`

	// BlockedVendors lists vendors known to block scrapers; rescue
	// extraction pins the variety to the URL-derived hint for these.
	BlockedVendors []string `yaml:"blocked_vendors"`

	// PathHintHosts lists hosts whose product URLs expose the plant name
	// in the path segment before the product slug.
	PathHintHosts []string `yaml:"path_hint_hosts"`

	// TagBlocklist removes noise tags (case/whitespace-insensitive).
	TagBlocklist []string `yaml:"tag_blocklist"`

	// TitleSuffixes are ordered regex fragments stripped from the end of
	// a document <title> (vendor name boilerplate).
	TitleSuffixes []string `yaml:"title_suffixes"`

	// ImageSelectors maps a hostname to ordered regex patterns whose
	// first capture group is the hero image URL. Tried before the
	// generic main/product image heuristics.
	ImageSelectors map[string][]string `yaml:"image_selectors"`
}

// Default returns the built-in vendor configuration.
func Default() *Rules {
	return &Rules{
		VendorHosts: map[string]string{
			"burpee.com":                "Burpee",
			"johnnyseeds.com":           "Johnny's Selected Seeds",
			"rareseeds.com":             "Baker Creek Heirloom Seeds",
			"edenbrothers.com":          "Eden Brothers",
			"botanicalinterests.com":    "Botanical Interests",
			"territorialseed.com":       "Territorial Seed Company",
			"superseeds.com":            "Pinetree Garden Seeds",
			"seedsavers.org":            "Seed Savers Exchange",
			"swallowtailgardenseeds.com": "Swallowtail Garden Seeds",
			"victoryseeds.com":          "Victory Seed Company",
			"marysheirloomseeds.com":    "Mary's Heirloom Seeds",
			"hudsonvalleyseed.com":      "Hudson Valley Seed Company",
		},
		TitlePriorityHosts: []string{
			"rareseeds.com",
			"botanicalinterests.com",
			"superseeds.com",
		},
		BlockedVendors: []string{
			"Burpee",
			"Territorial Seed Company",
		},
		PathHintHosts: []string{
			"edenbrothers.com",
			"swallowtailgardenseeds.com",
			"johnnyseeds.com",
		},
		TagBlocklist: []string{
			"seeds",
			"seed",
			"new",
			"sale",
			"bestseller",
			"best seller",
			"shop all",
			"gift ideas",
		},
		TitleSuffixes: []string{
			`\s*[|–—-]\s*Baker Creek Heirloom Seeds.*$`,
			`\s*[|–—-]\s*Pinetree Garden Seeds.*$`,
			`\s*[|–—-]\s*(Seeds?|Seed Company|Garden Seeds|Heirloom Seeds)\s*$`,
			`\s*[|–—-]\s*Buy [A-Za-z ]+ Online\s*$`,
		},
		ImageSelectors: map[string][]string{
			"superseeds.com": {
				`<img[^>]+class="[^"]*product-single__photo[^"]*"[^>]+src="([^"]+)"`,
				`<img[^>]+data-zoom="([^"]+)"`,
			},
		},
	}
}

// Load reads a YAML rules file and merges it over the defaults. Lists
// replace their default wholesale; map entries are merged per key.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrap(err, "rules: parse")
	}

	r := Default()
	for host, vendor := range override.VendorHosts {
		r.VendorHosts[NormalizeHost(host)] = vendor
	}
	for host, sels := range override.ImageSelectors {
		r.ImageSelectors[NormalizeHost(host)] = sels
	}
	if len(override.TitlePriorityHosts) > 0 {
		r.TitlePriorityHosts = override.TitlePriorityHosts
	}
	if len(override.BlockedVendors) > 0 {
		r.BlockedVendors = override.BlockedVendors
	}
	if len(override.PathHintHosts) > 0 {
		r.PathHintHosts = override.PathHintHosts
	}
	if len(override.TagBlocklist) > 0 {
		r.TagBlocklist = override.TagBlocklist
	}
	if len(override.TitleSuffixes) > 0 {
		r.TitleSuffixes = override.TitleSuffixes
	}
	return r, nil
}

// NormalizeHost lowercases a hostname and strips a leading "www.".
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// VendorForHost returns the canonical vendor name for a hostname, or ""
// when the host is unknown.
func (r *Rules) VendorForHost(host string) string {
	return r.VendorHosts[NormalizeHost(host)]
}

// IsTitlePriorityHost reports whether the host's page title overrides
// the AI-derived variety.
func (r *Rules) IsTitlePriorityHost(host string) bool {
	return containsHost(r.TitlePriorityHosts, host)
}

// IsPathHintHost reports whether the host encodes the plant name in its
// product URL path.
func (r *Rules) IsPathHintHost(host string) bool {
	return containsHost(r.PathHintHosts, host)
}

// IsBlockedVendor reports whether the vendor is known to block live
// scraping.
func (r *Rules) IsBlockedVendor(vendor string) bool {
	vendor = strings.TrimSpace(vendor)
	for _, b := range r.BlockedVendors {
		if strings.EqualFold(b, vendor) {
			return true
		}
	}
	return false
}

// SelectorsForHost returns host-specific hero image selector patterns.
func (r *Rules) SelectorsForHost(host string) []string {
	return r.ImageSelectors[NormalizeHost(host)]
}

// BlockedTag reports whether a tag is on the blocklist
// (case/whitespace-insensitive exact match).
func (r *Rules) BlockedTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, b := range r.TagBlocklist {
		if strings.EqualFold(strings.TrimSpace(b), tag) {
			return true
		}
	}
	return false
}

func containsHost(hosts []string, host string) bool {
	host = NormalizeHost(host)
	for _, h := range hosts {
		if NormalizeHost(h) == host {
			return true
		}
	}
	return false
}
