package normalize

import (
	"regexp"
	"strings"
)

// genericTraps are category/breadcrumb/navigation labels that sometimes
// leak into scraped or AI-guessed names. A name matching this vocabulary
// must never be treated as a real plant or variety and must never become
// an identity key.
var genericTraps = map[string]struct{}{
	"vegetable":       {},
	"vegetables":      {},
	"vegetable seeds": {},
	"flower":          {},
	"flowers":         {},
	"flower seeds":    {},
	"herb":            {},
	"herbs":           {},
	"herb seeds":      {},
	"fruit":           {},
	"fruits":          {},
	"seed":            {},
	"seeds":           {},
	"organic seeds":   {},
	"heirloom seeds":  {},
	"shop":            {},
	"shop all":        {},
	"all products":    {},
	"products":        {},
	"product":         {},
	"collections":     {},
	"collection":      {},
	"catalog":         {},
	"catalogue":       {},
	"new arrivals":    {},
	"new":             {},
	"sale":            {},
	"home":            {},
	"garden":          {},
	"gardening":       {},
	"grow guide":      {},
	"gifts":           {},
	"gift ideas":      {},
	"supplies":        {},
	"accessories":     {},
	"bulbs":           {},
	"annuals":         {},
	"perennials":      {},
	"cool season":     {},
	"warm season":     {},
	"view all":        {},
}

var trapPrefixRe = regexp.MustCompile(`(?i)^(view all|shop by|browse|back to)\b`)

// IsGenericTrap reports whether s is a category or breadcrumb label
// rather than a real product name.
func IsGenericTrap(s string) bool {
	s = foldSpace(s)
	if s == "" {
		return false
	}
	if _, ok := genericTraps[s]; ok {
		return true
	}
	return trapPrefixRe.MatchString(s)
}

var junkMarkers = []string{
	"404",
	"not found",
	"access denied",
	"just a moment",
	"page unavailable",
	"error",
}

// Usable display names and titles must fall in this length window.
const (
	minNameLen = 2
	maxNameLen = 200
)

// IsJunkTitle reports whether s is unusable as a variety name: too
// short, a pure category label, a navigation string, or an error-page
// title.
func IsJunkTitle(s string) bool {
	s = foldSpace(s)
	if len(s) < minNameLen || len(s) > maxNameLen {
		return true
	}
	if IsGenericTrap(s) {
		return true
	}
	if !strings.ContainsFunc(s, isAlpha) {
		return true
	}
	for _, m := range junkMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

var spaceRe = regexp.MustCompile(`\s+`)

// foldSpace lowercases and collapses all whitespace runs to one space.
func foldSpace(s string) string {
	return strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")))
}
