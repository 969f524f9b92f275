package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleListingsPageRendersCardsInOrder(t *testing.T) {
	renderer := newListingPageRenderer("")
	listings := []Listing{
		{ID: "2", Title: "Alpha"},
		{ID: "1", Title: "Beta"},
	}

	page, err := renderer.Assemble(listings)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Equal(t, 2, strings.Count(page, `<article class="card">`))
	assert.Less(t, strings.Index(page, "Alpha"), strings.Index(page, "Beta"))
}

func TestAssembleListingsPageEmpty(t *testing.T) {
	page, err := newListingPageRenderer("").Assemble(nil)
	require.NoError(t, err)

	assert.Contains(t, page, "<h1>Freizeitangebote (Listing view)</h1>")
	assert.NotContains(t, page, `class="card"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(page), "</html>"))
}

func TestAssembleListingsPageEscapesPlainValues(t *testing.T) {
	listing := Listing{
		ID:           "7",
		Title:        `<script>alert("x")</script>`,
		Description:  "<p><strong>fett</strong></p>",
		Address:      "Weg & Steg",
		Tags:         []string{"<b>"},
		CTAURL:       `https://x.example/?a=1&b="2"`,
		ContactEmail: "a'b@example.org",
		ContactPhone: "<tel>",
		LastUpdated:  "2025-01-01T00:00:00.000Z",
	}

	page, err := newListingPageRenderer("").Assemble([]Listing{listing})
	require.NoError(t, err)

	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;")
	assert.Contains(t, page, `<div class="desc"><span class="field-label">description:</span> <p><strong>fett</strong></p></div>`)
	assert.Contains(t, page, "Weg &amp; Steg")
	assert.Contains(t, page, `<span class="tag">&lt;b&gt;</span>`)
	assert.Contains(t, page, `href="https://x.example/?a=1&amp;b=&quot;2&quot;"`)
	assert.Contains(t, page, "a&#39;b@example.org")
	assert.Contains(t, page, "&lt;tel&gt;")
}

func TestAssembleListingsPageOmitsAbsentOptionalFields(t *testing.T) {
	page, err := newListingPageRenderer("").Assemble([]Listing{{ID: "1", Title: "Sparse"}})
	require.NoError(t, err)

	for _, label := range []string{
		"description:", "address:", "coordinates:", "tags:", "images:", "thumbnails:",
		"cta_url:", "contact_email:", "contact_phone:", "contact_website:",
	} {
		assert.NotContains(t, page, label)
	}
	assert.NotContains(t, page, `class="main"`)
	assert.Contains(t, page, "enabled:</span> false")
	assert.Contains(t, page, "last_updated:")
}

func TestAssembleListingsPageMainImageAndCoordinates(t *testing.T) {
	listing := Listing{
		ID:          "1",
		Title:       "Bad",
		Images:      []string{"/m1.jpg", "/m2.jpg"},
		Thumbnails:  []string{"/t1.jpg"},
		Coordinates: &Coordinates{Lat: 48.123456789, Lng: 12.5},
		Enabled:     true,
	}

	page, err := newListingPageRenderer("").Assemble([]Listing{listing})
	require.NoError(t, err)

	assert.Contains(t, page, `<img class="main" src="/m1.jpg" alt="Bad" />`)
	assert.Contains(t, page, "coordinates:</span> 48.12346, 12.50000")
	assert.Contains(t, page, `<img src="/m2.jpg" alt="" />`)
	assert.Contains(t, page, `<img src="/t1.jpg" alt="" />`)
	assert.Contains(t, page, "enabled:</span> true")
}

func TestAssembleListingsPageIsDeterministic(t *testing.T) {
	renderer := newListingPageRenderer("")
	listings := []Listing{{ID: "1", Title: "A", Tags: []string{"x", "y"}}}

	first, err := renderer.Assemble(listings)
	require.NoError(t, err)
	second, err := renderer.Assemble(listings)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListingPageRendererTemplatesDirOverride(t *testing.T) {
	dir := t.TempDir()
	tmpl := `{{range .Cards}}[{{esc .Title}}]{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, listingsTemplate), []byte(tmpl), 0o644))

	page, err := newListingPageRenderer(dir).Assemble([]Listing{{Title: "a&b"}})
	require.NoError(t, err)
	assert.Equal(t, "[a&amp;b]", page)
}
