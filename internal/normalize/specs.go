package normalize

import (
	"regexp"
	"strconv"

	"github.com/sproutbook/seedscan/internal/model"
)

var firstIntRe = regexp.MustCompile(`\d+`)

// HarvestDays extracts a days-to-harvest count from free text such as
// "70-80 days to maturity". The first integer wins; anything outside
// (0, 365) is treated as absent and returns 0.
func HarvestDays(freeText string) int {
	m := firstIntRe.FindString(freeText)
	if m == "" {
		return 0
	}
	d, err := strconv.Atoi(m)
	if err != nil || d <= 0 || d >= 365 {
		return 0
	}
	return d
}

// CoerceSpecs backfills derived numeric fields so callers receive a
// uniform shape regardless of which cache tier or extraction pass
// produced the record.
func CoerceSpecs(rec *model.ExtractedRecord) {
	if rec.Specs.HarvestDays <= 0 || rec.Specs.HarvestDays >= 365 {
		rec.Specs.HarvestDays = HarvestDays(rec.Specs.DaysToMaturity)
	}
	if !model.IsAbsoluteURL(rec.HeroImageURL) {
		rec.HeroImageURL = ""
	}
	if rec.PlantType == "" {
		rec.PlantType = model.DefaultPlantType
	}
}
