package main

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// buildListingMarkdown renders a single listing as a markdown document with
// the description converted from its rendered HTML.
func buildListingMarkdown(listing Listing) (string, error) {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(listing.Title))
	b.WriteString("\n\n")

	if strings.TrimSpace(listing.Description) != "" {
		description, err := htmltomarkdown.ConvertString(listing.Description)
		if err != nil {
			return "", fmt.Errorf("convert description: %w", err)
		}
		if description = strings.TrimSpace(description); description != "" {
			b.WriteString(description)
			b.WriteString("\n\n")
		}
	}

	for _, detail := range listingDetails(listing) {
		fmt.Fprintf(&b, "- **%s:** %s\n", detail.Label, detail.Value)
	}

	if len(listing.Images) > 0 {
		b.WriteString("\n")
		for _, url := range listing.Images {
			fmt.Fprintf(&b, "![%s](%s)\n", listing.Title, url)
		}
	}

	return b.String(), nil
}
