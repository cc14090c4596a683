package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSingleCleanPage(t *testing.T) {
	html := `<html><body><h1>Hello World</h1></body></html>`
	rec := ExtractSingle(html, "https://example.com", "abc123", map[string]string{"title": "h1"})

	require.Contains(t, rec.Fields, "title")
	assert.Equal(t, "Hello World", rec.Fields["title"].Value)
	assert.Equal(t, 1.0, rec.Fields["title"].Confidence)
	assert.Equal(t, 1.0, rec.CompletenessScore)
	assert.False(t, rec.IsPartial)
}

func TestExtractSingleMissingField(t *testing.T) {
	html := `<html><body><h1>Hello World</h1></body></html>`
	rec := ExtractSingle(html, "https://example.com", "abc123", map[string]string{
		"title": "h1",
		"price": ".price",
	})

	assert.Equal(t, 0.5, rec.CompletenessScore)
	assert.True(t, rec.IsPartial)
	assert.Nil(t, rec.Fields["price"].Value)
	assert.Equal(t, 0.0, rec.Fields["price"].Confidence)
}

func TestExtractListSkipsEmptyContainers(t *testing.T) {
	doc := `<html><body>
		<div class="product"><h2 class="name">Widget</h2><span class="price">$9</span></div>
		<div class="product"></div>
		<div class="product"><h2 class="name">Gadget</h2><span class="price">$19</span></div>
	</body></html>`

	records := ExtractList(doc, "https://example.com", "hash1", "div.product",
		map[string]string{"name": "h2.name", "price": "span.price"})

	require.Len(t, records, 2)
	assert.Equal(t, "Widget", records[0].Fields["name"].Value)
	assert.Equal(t, "Gadget", records[1].Fields["name"].Value)
}

func TestMatchesIDAndClassAndAttr(t *testing.T) {
	doc := `<html><body><div id="cookie-consent" class="banner" data-role="consent">x</div></body></html>`
	rec := ExtractSingle(doc, "u", "h", map[string]string{
		"byID":    "#cookie-consent",
		"byClass": ".banner",
		"byAttr":  "[data-role=consent]",
	})
	assert.Equal(t, "x", rec.Fields["byID"].Value)
	assert.Equal(t, "x", rec.Fields["byClass"].Value)
	assert.Equal(t, "x", rec.Fields["byAttr"].Value)
}
