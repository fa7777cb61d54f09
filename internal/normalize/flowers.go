package normalize

import (
	"regexp"
	"strings"
)

// flowerGenera are common flower genus/common names checked when a
// listing only says "Flower Seeds" and the real plant name is buried in
// the variety text. Matched on word boundaries, longest names first.
var flowerGenera = []string{
	"bachelor button",
	"morning glory",
	"sweet william",
	"sweet pea",
	"four o'clock",
	"strawflower",
	"plectranthus",
	"snapdragon",
	"delphinium",
	"nasturtium",
	"calendula",
	"echinacea",
	"coreopsis",
	"gaillardia",
	"rudbeckia",
	"impatiens",
	"hollyhock",
	"sunflower",
	"marigold",
	"larkspur",
	"moonflower",
	"portulaca",
	"wallflower",
	"dianthus",
	"geranium",
	"scabiosa",
	"amaranth",
	"ageratum",
	"foxglove",
	"begonia",
	"celosia",
	"alyssum",
	"nigella",
	"statice",
	"verbena",
	"petunia",
	"lupine",
	"zinnia",
	"cosmos",
	"dahlia",
	"salvia",
	"stock",
	"poppy",
	"pansy",
	"viola",
	"phlox",
	"aster",
	"yarrow",
}

var genericFlowerRe = regexp.MustCompile(`(?i)^flowers?(\s+seeds?)?$`)

// isGenericFlowerBucket reports whether a plant type is a catch-all
// flower category rather than a specific plant.
func isGenericFlowerBucket(plantType string) bool {
	s := foldSpace(plantType)
	if genericFlowerRe.MatchString(s) {
		return true
	}
	return strings.HasPrefix(s, "flower") && len(s) <= 15
}

// inferFlowerType recovers a specific plant name from variety text when
// the type is a generic flower bucket: a curated genus match first, the
// first alphabetic word of the variety as a fallback.
func inferFlowerType(variety string) string {
	lower := foldSpace(variety)
	if lower == "" {
		return ""
	}
	for _, genus := range flowerGenera {
		if matchWord(lower, genus) {
			return titleCaser.String(genus)
		}
	}
	for _, w := range strings.Fields(lower) {
		if strings.ContainsFunc(w, isAlpha) {
			w = strings.TrimFunc(w, func(r rune) bool { return !isAlpha(r) })
			if w != "" {
				return titleCaser.String(w)
			}
		}
	}
	return ""
}

// matchWord reports whether needle occurs in haystack on word boundaries.
func matchWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		leftOK := start == 0 || !isAlpha(rune(haystack[start-1]))
		rightOK := end == len(haystack) || !isAlpha(rune(haystack[end]))
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
	}
}
