package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sproutbook/seedscan/internal/rules"
)

func TestExtractTitle_OGTitle(t *testing.T) {
	doc := `<html><head>
<meta property="og:title" content="Clemson Spineless Okra" />
<title>Okra | Vendor</title>
</head><body><h1>Shop</h1></body></html>`
	assert.Equal(t, "Clemson Spineless Okra", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_H1OutsideNav(t *testing.T) {
	doc := `<html><body>
<nav class="main-nav"><h1>Vegetables</h1></nav>
<div class="product"><h1>Lemon Cucumber</h1></div>
</body></html>`
	assert.Equal(t, "Lemon Cucumber", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_BreadcrumbH1Skipped(t *testing.T) {
	doc := `<html><body>
<div class="breadcrumbs"><h1>Seeds</h1></div>
<h1>Detroit Dark Red Beet</h1>
</body></html>`
	assert.Equal(t, "Detroit Dark Red Beet", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_ClosedNavDoesNotTaint(t *testing.T) {
	doc := `<html><body>
<nav>menu</nav>
<h1>Roma Tomato</h1>
</body></html>`
	assert.Equal(t, "Roma Tomato", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_DocTitleTruncated(t *testing.T) {
	doc := `<html><head><title>Sugar Snap Pea | Vendor Seed Company</title></head><body></body></html>`
	assert.Equal(t, "Sugar Snap Pea", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_DocTitleSuffixStripped(t *testing.T) {
	doc := `<html><head><title>Lemon Cucumber - Heirloom Seeds</title></head><body></body></html>`
	assert.Equal(t, "Lemon Cucumber", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_ShortNameAtWindowFloor(t *testing.T) {
	// Two characters is the floor of the shared name window; the junk
	// check must not veto what the length check admits.
	doc := `<html><head><meta property="og:title" content="Bo" /></head></html>`
	assert.Equal(t, "Bo", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_NothingUsable(t *testing.T) {
	doc := `<html><head><title>404 Not Found</title></head><body><h1>Shop</h1></body></html>`
	assert.Equal(t, "", ExtractTitle(doc, rules.Default()))
}

func TestExtractTitle_EntityDecoded(t *testing.T) {
	doc := `<meta property="og:title" content="Beans &amp; Peas Mix">`
	assert.Equal(t, "Beans & Peas Mix", ExtractTitle(doc, rules.Default()))
}
