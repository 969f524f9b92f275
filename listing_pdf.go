package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type listingDetail struct {
	Label string
	Value string
}

// listingDetails lists the present optional fields of a listing in display
// order.
func listingDetails(listing Listing) []listingDetail {
	details := make([]listingDetail, 0, 9)
	add := func(label, value string) {
		if value != "" {
			details = append(details, listingDetail{Label: label, Value: value})
		}
	}

	add("Adresse", listing.Address)
	if listing.Coordinates != nil {
		add("Koordinaten", fmt.Sprintf("%.5f, %.5f", listing.Coordinates.Lat, listing.Coordinates.Lng))
	}
	if listing.Enabled {
		add("Status", "aktiv")
	} else {
		add("Status", "inaktiv")
	}
	add("Tags", strings.Join(listing.Tags, ", "))
	add("Website", listing.CTAURL)
	add("E-Mail", listing.ContactEmail)
	add("Telefon", listing.ContactPhone)
	add("Kontakt-Website", listing.ContactWebsite)
	add("Zuletzt aktualisiert", listing.LastUpdated)
	return details
}

func buildListingsPDF(listings []Listing) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Freizeitangebote", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, "Freizeitangebote")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Anzahl: %d", len(listings)))
	pdf.Ln(10)

	for _, listing := range listings {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 6, tr(listing.Title), "", "L", false)

		pdf.SetFont("Helvetica", "", 10)
		if text := htmlToPlainText(listing.Description); text != "" {
			pdf.MultiCell(0, 5, tr(text), "", "L", false)
		}
		for _, detail := range listingDetails(listing) {
			pdf.MultiCell(0, 5, tr(detail.Label+": "+detail.Value), "", "L", false)
		}
		pdf.Ln(4)
	}

	buffer := &bytes.Buffer{}
	if err := pdf.Output(buffer); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buffer.Bytes(), nil
}

// htmlToPlainText flattens rendered description HTML into lines of text.
func htmlToPlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, n := range nodes {
		writePlainText(n, &b)
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func writePlainText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			b.WriteString("\n")
			return
		case atom.Img:
			return
		case atom.Li:
			b.WriteString("- ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writePlainText(c, b)
	}

	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Li, atom.Blockquote, atom.Pre, atom.Ul, atom.Ol,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			b.WriteString("\n")
		}
	}
}
