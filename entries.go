package main

import (
	"bytes"
	"encoding/json"
	"time"

	"familienfreizeit/libs/richtext"
)

// RawTag is a tag relation as stored; Tagname may be missing.
type RawTag struct {
	ID      int64   `json:"id,omitempty"`
	Tagname *string `json:"Tagname"`
}

type MediaFormat struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Mime   string `json:"mime,omitempty"`
}

// RawMedia is one uploaded media item attached to an entry.
type RawMedia struct {
	ID              int64                  `json:"id,omitempty"`
	Name            string                 `json:"name,omitempty"`
	AlternativeText *string                `json:"alternativeText,omitempty"`
	Caption         *string                `json:"caption,omitempty"`
	Width           int                    `json:"width,omitempty"`
	Height          int                    `json:"height,omitempty"`
	Mime            string                 `json:"mime,omitempty"`
	URL             string                 `json:"url"`
	Formats         map[string]MediaFormat `json:"formats,omitempty"`
}

// RawEntry is a Freizeitangebot as persisted. Beschreibung and Ort keep
// their stored JSON untouched.
type RawEntry struct {
	ID             int64
	DocumentID     string
	Titel          string
	Beschreibung   json.RawMessage
	Ort            json.RawMessage
	Adresse        *string
	Aktiv          *bool
	Website        *string
	Email          *string
	Telefonnummer  *string
	KontaktWebsite *string
	Tags           []RawTag
	Bild           []RawMedia
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PublishedAt    *time.Time
}

// EntryInput is the write payload. Nil fields are left untouched on update;
// a JSON null in a RawMessage field clears it.
type EntryInput struct {
	Titel          *string         `json:"Titel"`
	Beschreibung   json.RawMessage `json:"Beschreibung"`
	Ort            json.RawMessage `json:"Ort"`
	Adresse        *string         `json:"Adresse"`
	Aktiv          *bool           `json:"Aktiv"`
	Tags           *[]string       `json:"Tags"`
	Bild           json.RawMessage `json:"Bild"`
	Website        *string         `json:"Website"`
	Email          *string         `json:"Email"`
	Telefonnummer  *string         `json:"Telefonnummer"`
	KontaktWebsite *string         `json:"Kontakt_Website"`
}

type EntryView struct {
	ID             int64           `json:"id"`
	DocumentID     string          `json:"documentId"`
	Titel          string          `json:"Titel"`
	Beschreibung   string          `json:"Beschreibung"`
	Ort            json.RawMessage `json:"Ort"`
	Adresse        *string         `json:"Adresse"`
	Aktiv          *bool           `json:"Aktiv"`
	Website        *string         `json:"Website"`
	Email          *string         `json:"Email"`
	Telefonnummer  *string         `json:"Telefonnummer"`
	KontaktWebsite *string         `json:"Kontakt_Website"`
	Tags           []RawTag        `json:"Tags"`
	Bild           []RawMedia      `json:"Bild"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
	PublishedAt    *string         `json:"publishedAt"`
}

func toEntryView(entry RawEntry) EntryView {
	view := EntryView{
		ID:             entry.ID,
		DocumentID:     entry.DocumentID,
		Titel:          entry.Titel,
		Beschreibung:   renderDescription(entry.Beschreibung),
		Ort:            entry.Ort,
		Adresse:        entry.Adresse,
		Aktiv:          entry.Aktiv,
		Website:        entry.Website,
		Email:          entry.Email,
		Telefonnummer:  entry.Telefonnummer,
		KontaktWebsite: entry.KontaktWebsite,
		Tags:           entry.Tags,
		Bild:           entry.Bild,
		CreatedAt:      formatTimestamp(entry.CreatedAt),
		UpdatedAt:      formatTimestamp(entry.UpdatedAt),
	}
	if view.Tags == nil {
		view.Tags = []RawTag{}
	}
	if view.Bild == nil {
		view.Bild = []RawMedia{}
	}
	if entry.PublishedAt != nil {
		published := formatTimestamp(*entry.PublishedAt)
		view.PublishedAt = &published
	}
	return view
}

func toEntryViews(entries []RawEntry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, toEntryView(entry))
	}
	return views
}

// renderDescription turns a stored description into HTML. Block documents are
// rendered, plain strings are used verbatim and anything else yields "".
func renderDescription(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '[':
		return richtext.RenderJSON(trimmed)
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return ""
		}
		return text
	default:
		return ""
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
