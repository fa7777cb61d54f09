package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sproutbook/seedscan/internal/rules"
)

func TestVendorFromURL(t *testing.T) {
	r := rules.Default()
	assert.Equal(t, "Burpee", VendorFromURL("https://www.burpee.com/products/x", r))
	assert.Equal(t, "Vendor", VendorFromURL("https://vendor.example/products/x", r))
	assert.Equal(t, "Green Acres", VendorFromURL("https://green-acres.example/shop/y", r))
	assert.Equal(t, "", VendorFromURL("::not a url::", r))
}

func TestProductSlug(t *testing.T) {
	assert.Equal(t, "clemson-spineless-okra",
		ProductSlug("https://vendor.example/products/clemson-spineless-okra"))
	assert.Equal(t, "lemon-cucumber",
		ProductSlug("https://vendor.example/collections/vegetables/products/lemon-cucumber.html"))
	// Numeric ids are skipped.
	assert.Equal(t, "roma-tomato",
		ProductSlug("https://vendor.example/p/roma-tomato/12345"))
	assert.Equal(t, "", ProductSlug("https://vendor.example/"))
}

func TestVarietyFromSlug(t *testing.T) {
	assert.Equal(t, "Clemson Spineless Okra",
		VarietyFromSlug("https://vendor.example/products/clemson-spineless-okra"))
	assert.Equal(t, "Detroit Dark Red",
		VarietyFromSlug("https://vendor.example/products/detroit-dark-red-2041"))
	assert.Equal(t, "", VarietyFromSlug("https://vendor.example/"))
}

func TestPlantHintFromPath(t *testing.T) {
	assert.Equal(t, "Okra",
		PlantHintFromPath("https://vendor.example/okra/clemson-spineless"))
	// Generic parent segment falls back to the slug's first token.
	assert.Equal(t, "Okra",
		PlantHintFromPath("https://vendor.example/vegetables/okra-clemson-spineless"))
	// Structural segments are skipped when walking backward.
	assert.Equal(t, "Tomato",
		PlantHintFromPath("https://vendor.example/tomato/products/roma"))
	assert.Equal(t, "", PlantHintFromPath("https://vendor.example/"))
}
