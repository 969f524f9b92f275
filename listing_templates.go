package main

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	"familienfreizeit/libs/richtext"
)

const listingsTemplate = "listings.html.tmpl"

//go:embed templates/*.tmpl
var pageTemplatesFS embed.FS

// Pages are assembled with text/template; every plain value goes through esc
// so the output escaping matches the rich-text renderer.
var pageTemplateFuncs = template.FuncMap{
	"esc": richtext.EscapeHTML,
}

type listingPageRenderer struct {
	// templatesDir overrides the embedded templates when set.
	templatesDir string
}

type listingCardView struct {
	Listing
	MainImage       string
	CoordinatesText string
}

type listingsPageData struct {
	Cards []listingCardView
}

func newListingPageRenderer(templatesDir string) *listingPageRenderer {
	return &listingPageRenderer{templatesDir: templatesDir}
}

func (r *listingPageRenderer) templates() (*template.Template, error) {
	var sourceFS fs.FS
	if r != nil && r.templatesDir != "" {
		sourceFS = os.DirFS(r.templatesDir)
	} else {
		sub, err := fs.Sub(pageTemplatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("page templates fs: %w", err)
		}
		sourceFS = sub
	}

	tmpl, err := template.New(listingsTemplate).Funcs(pageTemplateFuncs).ParseFS(sourceFS, listingsTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return tmpl, nil
}

// Assemble renders the complete listings page, one card per listing in the
// given order.
func (r *listingPageRenderer) Assemble(listings []Listing) (string, error) {
	tmpl, err := r.templates()
	if err != nil {
		return "", err
	}

	data := listingsPageData{Cards: make([]listingCardView, 0, len(listings))}
	for _, listing := range listings {
		data.Cards = append(data.Cards, toListingCardView(listing))
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, listingsTemplate, data); err != nil {
		return "", fmt.Errorf("render listings page: %w", err)
	}
	return buf.String(), nil
}

func toListingCardView(listing Listing) listingCardView {
	card := listingCardView{Listing: listing}
	if len(listing.Images) > 0 {
		card.MainImage = listing.Images[0]
	}
	if listing.Coordinates != nil {
		card.CoordinatesText = fmt.Sprintf("%.5f, %.5f", listing.Coordinates.Lat, listing.Coordinates.Lng)
	}
	return card
}
