package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityRank(t *testing.T) {
	assert.Equal(t, 3, QualityFull.Rank())
	assert.Equal(t, 2, QualityPartial.Rank())
	assert.Equal(t, 1, QualityAIOnly.Rank())
	assert.Equal(t, 0, QualityFailed.Rank())
	assert.Equal(t, -1, Quality("mystery").Rank())
}

func TestAddTag_Dedup(t *testing.T) {
	r := ExtractedRecord{}
	r.AddTag("Heirloom")
	r.AddTag(" heirloom ")
	r.AddTag("F1")
	r.AddTag("")
	assert.Equal(t, []string{"Heirloom", "F1"}, r.Tags)
}

func TestHasImage(t *testing.T) {
	r := ExtractedRecord{HeroImageURL: "https://img.example/okra.jpg"}
	assert.True(t, r.HasImage())

	r.HeroImageURL = "//img.example/okra.jpg"
	assert.False(t, r.HasImage())

	r.HeroImageURL = "/images/okra.jpg"
	assert.False(t, r.HasImage())

	r.HeroImageURL = ""
	assert.False(t, r.HasImage())
}
