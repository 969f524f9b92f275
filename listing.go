package main

import (
	"encoding/json"
	"strconv"

	"familienfreizeit/libs/richtext"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Listing is the flattened view of an entry used by the HTML, JSON, PDF and
// markdown outputs. Empty optional strings mean the field is absent.
type Listing struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Images         []string     `json:"images"`
	Thumbnails     []string     `json:"thumbnails"`
	Address        string       `json:"address,omitempty"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
	Enabled        bool         `json:"enabled"`
	Tags           []string     `json:"tags"`
	CTAURL         string       `json:"cta_url,omitempty"`
	ContactEmail   string       `json:"contact_email,omitempty"`
	ContactPhone   string       `json:"contact_phone,omitempty"`
	ContactWebsite string       `json:"contact_website,omitempty"`
	LastUpdated    string       `json:"last_updated"`
}

func mapEntryToListing(entry RawEntry) Listing {
	listing := Listing{
		ID:             strconv.FormatInt(entry.ID, 10),
		Title:          entry.Titel,
		Description:    renderDescription(entry.Beschreibung),
		Images:         imageURLs(entry.Bild, "medium", "small"),
		Thumbnails:     imageURLs(entry.Bild, "thumbnail", "small"),
		Address:        derefString(entry.Adresse),
		Coordinates:    parseCoordinates(entry.Ort),
		Tags:           tagNames(entry.Tags),
		CTAURL:         derefString(entry.Website),
		ContactEmail:   derefString(entry.Email),
		ContactPhone:   derefString(entry.Telefonnummer),
		ContactWebsite: derefString(entry.KontaktWebsite),
		LastUpdated:    formatTimestamp(entry.UpdatedAt),
	}
	if entry.Aktiv != nil {
		listing.Enabled = *entry.Aktiv
	}
	return listing
}

func mapEntriesToListings(entries []RawEntry) []Listing {
	listings := make([]Listing, 0, len(entries))
	for _, entry := range entries {
		listings = append(listings, mapEntryToListing(entry))
	}
	return listings
}

// imageURLs resolves one URL per media item, trying the named formats in
// order before the original. Items without any URL are dropped.
func imageURLs(media []RawMedia, formats ...string) []string {
	urls := make([]string, 0, len(media))
	for _, item := range media {
		candidates := make([]string, 0, len(formats)+1)
		for _, name := range formats {
			if format, ok := item.Formats[name]; ok {
				candidates = append(candidates, format.URL)
			}
		}
		candidates = append(candidates, item.URL)

		if url := richtext.FirstNonEmpty(candidates...); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

func tagNames(tags []RawTag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Tagname == nil || *tag.Tagname == "" {
			continue
		}
		names = append(names, *tag.Tagname)
	}
	return names
}

// parseCoordinates accepts {"lat": n, "lng": n} with both values numeric.
func parseCoordinates(raw json.RawMessage) *Coordinates {
	if len(raw) == 0 {
		return nil
	}
	var ort map[string]any
	if err := json.Unmarshal(raw, &ort); err != nil {
		return nil
	}
	lat, latOK := ort["lat"].(float64)
	lng, lngOK := ort["lng"].(float64)
	if !latOK || !lngOK {
		return nil
	}
	return &Coordinates{Lat: lat, Lng: lng}
}
