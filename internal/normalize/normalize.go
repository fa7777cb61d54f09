// Package normalize implements the deterministic text-cleanup rules
// that turn raw scrape/AI output into a canonical, deduplicated record.
// Every function here is pure: no I/O, no clocks, no globals beyond
// immutable vocabulary tables. The full Apply sequence is idempotent —
// running it on its own output is a no-op.
package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/sproutbook/seedscan/internal/model"
	"github.com/sproutbook/seedscan/internal/rules"
)

// Input is the raw tuple handed to the normalizer.
type Input struct {
	SourceURL string
	Vendor    string
	PlantType string
	Variety   string
	Tags      []string

	// PageTitle is the page-derived title candidate, when a scrape
	// produced one. Only consulted for title-priority hosts.
	PageTitle string
}

// Result is the normalized tuple plus classification flags.
type Result struct {
	Vendor    string
	PlantType string
	Variety   string
	Tags      []string

	// Generic is the terminal signal: the name resolved to a category/
	// breadcrumb string (or a junk title on a title-priority host) and
	// needs manual naming. The plant type may still be usable.
	Generic bool
}

// Normalizer applies the ordered cleanup sequence. The order is load
// bearing: later steps assume earlier steps' invariants hold.
type Normalizer struct {
	rules *rules.Rules
}

// New creates a Normalizer with the given vendor rules.
func New(r *rules.Rules) *Normalizer {
	if r == nil {
		r = rules.Default()
	}
	return &Normalizer{rules: r}
}

// Apply runs the full normalization sequence.
func (n *Normalizer) Apply(in Input) Result {
	host := Host(in.SourceURL)

	// 1. Entity decoding.
	vendor := cleanText(in.Vendor)
	plantType := cleanText(in.PlantType)
	variety := cleanText(in.Variety)

	// 2. Hostname beats any AI-guessed vendor; an absent vendor falls
	// back to the title-cased hostname so no record ships without one.
	if v := n.rules.VendorForHost(host); v != "" {
		vendor = v
	} else if vendor == "" {
		vendor = VendorFromURL(in.SourceURL, n.rules)
	}

	// 3. Tag blocklist.
	tags := n.filterTags(in.Tags)

	// 4. Generic flower bucket: pull the real plant from the variety.
	if isGenericFlowerBucket(plantType) {
		if inferred := inferFlowerType(variety); inferred != "" {
			plantType = inferred
		}
	}

	// 5–6. URL path hint for hosts that encode the plant in the path.
	if n.rules.IsPathHintHost(host) && (plantType == "" || isGenericFlowerBucket(plantType) || IsGenericTrap(plantType)) {
		if hint := PlantHintFromPath(in.SourceURL); hint != "" {
			plantType = hint
		}
	}
	if isGenericFlowerBucket(plantType) {
		if inferred := inferFlowerType(variety); inferred != "" {
			plantType = inferred
		}
	}

	// 7. Scrub the plant name and catalog numbers out of the variety.
	variety = stripPlantFromVariety(variety, plantType)

	// 8. Title-priority hosts: the on-page title replaces the variety,
	// and a junk on-page title is a terminal signal, not a pass-through.
	if n.rules.IsTitlePriorityHost(host) && in.PageTitle != "" {
		title := cleanText(in.PageTitle)
		if IsJunkTitle(title) || IsGenericTrap(title) {
			return Result{Vendor: vendor, PlantType: orDefault(plantType), Variety: variety, Tags: tags, Generic: true}
		}
		variety = title
		// 9. The override can reintroduce a leading/trailing plant name.
		variety = stripPlantFromVariety(variety, plantType)
	}

	// 10. Display cleanup: boilerplate tokens out, marker tags in.
	variety, tags = finalCleanup(variety, tags)

	// 11. Classify what is left.
	if IsGenericTrap(variety) {
		return Result{Vendor: vendor, PlantType: orDefault(plantType), Variety: variety, Tags: tags, Generic: true}
	}
	if IsJunkTitle(variety) && variety != "" {
		// 12. Junk but not a hard trap: one recovery attempt from the slug.
		if slug := VarietyFromSlug(in.SourceURL); slug != "" && !IsJunkTitle(slug) {
			recovered := stripPlantFromVariety(slug, plantType)
			recovered, tags = finalCleanup(recovered, tags)
			if recovered != "" && !IsJunkTitle(recovered) {
				return Result{Vendor: vendor, PlantType: orDefault(plantType), Variety: recovered, Tags: tags}
			}
		}
		return Result{Vendor: vendor, PlantType: orDefault(plantType), Variety: variety, Tags: tags, Generic: true}
	}

	return Result{Vendor: vendor, PlantType: orDefault(plantType), Variety: variety, Tags: tags}
}

// cleanText decodes HTML entities and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func orDefault(plantType string) string {
	if plantType == "" {
		return model.DefaultPlantType
	}
	return plantType
}

func (n *Normalizer) filterTags(tags []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, t := range tags {
		t = cleanText(t)
		if t == "" || n.rules.BlockedTag(t) {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// stripPlantFromVariety removes the plant type from the start and end of
// the variety on whole-word boundaries ("Tomato Roma Tomato" -> "Roma")
// and drops trailing 3–4 digit catalog numbers. Runs to a fixed point so
// re-application is a no-op.
func stripPlantFromVariety(variety, plantType string) string {
	variety = strings.TrimSpace(variety)
	if variety == "" {
		return variety
	}

	var leadRe, trailRe *regexp.Regexp
	if plantType != "" && !IsGenericTrap(plantType) {
		word := regexp.QuoteMeta(plantType)
		leadRe = regexp.MustCompile(`(?i)^` + word + `(?:es|s)?\b[\s:,–-]*`)
		trailRe = regexp.MustCompile(`(?i)[\s:,–-]*\b` + word + `(?:es|s)?$`)
	}

	// Catalog numbers and plant-name affixes can mask each other
	// ("Clemson Spineless Okra 2024"), so strip to a fixed point.
	for {
		next := catalogNumRe.ReplaceAllString(variety, "")
		if leadRe != nil {
			next = trailRe.ReplaceAllString(leadRe.ReplaceAllString(next, ""), "")
		}
		next = strings.TrimSpace(next)
		if next == variety {
			break
		}
		variety = next
	}
	return variety
}

var (
	f1Re       = regexp.MustCompile(`(?i)\(?\bf1\b\)?(\s+hybrid)?`)
	packSizeRe = regexp.MustCompile(`(?i)[\s,(-]*\b\d+([.,]\d+)?\s*(seeds?|ct|count|pack|pk|pkt|grams?|g|oz|mg)\b\.?\)?`)
	seedsEndRe = regexp.MustCompile(`(?i)[\s,–-]*\bseeds?\b$`)
	edgeJunkRe = regexp.MustCompile(`^[\s|,–—:-]+|[\s|,–—:-]+$`)
)

// finalCleanup removes residual boilerplate from the variety, moving
// marker tokens (F1) into the tag set instead of the display text.
func finalCleanup(variety string, tags []string) (string, []string) {
	if f1Re.MatchString(variety) {
		variety = f1Re.ReplaceAllString(variety, "")
		tags = appendTag(tags, "F1")
	}
	variety = packSizeRe.ReplaceAllString(variety, "")
	variety = seedsEndRe.ReplaceAllString(variety, "")
	variety = spaceRe.ReplaceAllString(variety, " ")
	variety = edgeJunkRe.ReplaceAllString(variety, "")
	return variety, tags
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags
		}
	}
	return append(tags, tag)
}
