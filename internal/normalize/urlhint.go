package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sproutbook/seedscan/internal/rules"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// skipSegments are path segments that never carry product information.
var skipSegments = map[string]struct{}{
	"products":    {},
	"product":     {},
	"collections": {},
	"collection":  {},
	"shop":        {},
	"store":       {},
	"p":           {},
	"item":        {},
	"items":       {},
	"catalog":     {},
	"en":          {},
	"en-us":       {},
}

// genericSegments are category/color words that may sit between the
// product slug and a real plant name in vendor URLs.
var genericSegments = map[string]struct{}{
	"vegetables": {}, "vegetable": {},
	"flowers": {}, "flower": {},
	"herbs": {}, "herb": {},
	"fruits": {}, "fruit": {},
	"seeds": {}, "seed": {},
	"organic": {}, "heirloom": {},
	"annual": {}, "annuals": {},
	"perennial": {}, "perennials": {},
	"red": {}, "blue": {}, "white": {}, "pink": {}, "purple": {},
	"yellow": {}, "orange": {}, "green": {}, "black": {}, "mixed": {},
}

// Host returns the normalized hostname of a URL, or "".
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return rules.NormalizeHost(u.Hostname())
}

// VendorFromURL derives a vendor name from the URL alone: the hostname
// table when the host is known, otherwise the title-cased first label of
// the hostname ("vendor.example" -> "Vendor").
func VendorFromURL(rawURL string, r *rules.Rules) string {
	host := Host(rawURL)
	if host == "" {
		return ""
	}
	if v := r.VendorForHost(host); v != "" {
		return v
	}
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(label, "-", " "))
}

// pathSegments returns the non-empty path segments of a URL with any
// file extension stripped from the last one.
func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	parts := strings.Split(u.Path, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segs = append(segs, strings.ToLower(p))
		}
	}
	if n := len(segs); n > 0 {
		if idx := strings.LastIndex(segs[n-1], "."); idx > 0 {
			segs[n-1] = segs[n-1][:idx]
		}
	}
	return segs
}

// ProductSlug returns the last meaningful path segment of a product URL,
// skipping structural segments and bare numeric ids.
func ProductSlug(rawURL string) string {
	segs := pathSegments(rawURL)
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if _, skip := skipSegments[s]; skip {
			continue
		}
		if !strings.ContainsFunc(s, isAlpha) {
			continue
		}
		return s
	}
	return ""
}

var catalogNumRe = regexp.MustCompile(`\s*#?\d{3,4}\s*$`)

// VarietyFromSlug turns the product slug into a title-cased variety
// guess ("clemson-spineless-okra" -> "Clemson Spineless Okra").
func VarietyFromSlug(rawURL string) string {
	slug := ProductSlug(rawURL)
	if slug == "" {
		return ""
	}
	name := strings.ReplaceAll(slug, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	name = catalogNumRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(spaceRe.ReplaceAllString(name, " "))
	if name == "" {
		return ""
	}
	return titleCaser.String(name)
}

// PlantHintFromPath infers a plant name from URL structure for vendors
// that expose it in the segment immediately before the product slug.
// When that segment is a generic category/color word, the first
// hyphen-delimited token of the slug itself is used instead.
func PlantHintFromPath(rawURL string) string {
	segs := pathSegments(rawURL)
	slug := ProductSlug(rawURL)
	if slug == "" {
		return ""
	}

	// Locate the slug, then walk back past structural segments.
	idx := -1
	for i, s := range segs {
		if s == slug {
			idx = i
		}
	}
	for i := idx - 1; i >= 0; i-- {
		s := segs[i]
		if _, skip := skipSegments[s]; skip {
			continue
		}
		if _, generic := genericSegments[s]; generic {
			break
		}
		if !strings.ContainsFunc(s, isAlpha) {
			continue
		}
		return titleCaser.String(strings.ReplaceAll(s, "-", " "))
	}

	// Generic or absent parent segment: first token of the slug.
	token, _, _ := strings.Cut(slug, "-")
	if token == "" || !strings.ContainsFunc(token, isAlpha) {
		return ""
	}
	if _, generic := genericSegments[token]; generic {
		return ""
	}
	return titleCaser.String(token)
}
