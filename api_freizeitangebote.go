package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

type entryPayload struct {
	Data *EntryInput `json:"data"`
}

func validationError(message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "ValidationError", Message: message}
}

func (a *App) listEntriesHandler(c *gin.Context) {
	query := parseEntryQuery(c)
	page, err := a.listEntries(c.Request.Context(), query)
	if err != nil {
		a.writeStoreError(c, err, "list entries failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": toEntryViews(page.Entries),
		"meta": gin.H{"pagination": buildPaginationMeta(page.Total, query.Page, query.PageSize)},
	})
}

func (a *App) getEntryHandler(c *gin.Context) {
	id, err := parseEntryID(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}

	entry, err := a.getEntry(c.Request.Context(), id)
	if err != nil {
		a.writeStoreError(c, err, "get entry failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toEntryView(*entry), "meta": gin.H{}})
}

func (a *App) createEntryHandler(c *gin.Context) {
	input, err := readEntryPayload(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if err := validateEntryInput(&input, true); err != nil {
		writeAPIError(c, err)
		return
	}
	a.fillCoordinates(c.Request.Context(), &input)

	entry, err := a.createEntry(c.Request.Context(), input)
	if err != nil {
		a.writeStoreError(c, err, "create entry failed")
		return
	}
	a.log.Info("entry created", "id", entry.ID, "token", c.GetString(apiTokenContextKey))
	c.JSON(http.StatusCreated, gin.H{"data": toEntryView(*entry), "meta": gin.H{}})
}

func (a *App) updateEntryHandler(c *gin.Context) {
	id, err := parseEntryID(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}
	input, err := readEntryPayload(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	if err := validateEntryInput(&input, false); err != nil {
		writeAPIError(c, err)
		return
	}
	a.fillCoordinates(c.Request.Context(), &input)

	entry, err := a.updateEntry(c.Request.Context(), id, input)
	if err != nil {
		a.writeStoreError(c, err, "update entry failed")
		return
	}
	a.log.Info("entry updated", "id", entry.ID, "token", c.GetString(apiTokenContextKey))
	c.JSON(http.StatusOK, gin.H{"data": toEntryView(*entry), "meta": gin.H{}})
}

func (a *App) deleteEntryHandler(c *gin.Context) {
	id, err := parseEntryID(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}

	if err := a.deleteEntry(c.Request.Context(), id); err != nil {
		a.writeStoreError(c, err, "delete entry failed")
		return
	}
	a.log.Info("entry deleted", "id", id, "token", c.GetString(apiTokenContextKey))
	c.Status(http.StatusNoContent)
}

func (a *App) listingsHTMLHandler(c *gin.Context) {
	page, err := a.listEntries(c.Request.Context(), EntryQuery{Sort: sortByTitle})
	if err != nil {
		a.writeStoreError(c, err, "list entries for html failed")
		return
	}

	body, err := a.pages.Assemble(mapEntriesToListings(page.Entries))
	if err != nil {
		a.log.Error("assemble listings page failed", "error", err)
		writeAPIError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

func (a *App) listingsJSONHandler(c *gin.Context) {
	query := parseEntryQuery(c)
	if len(query.Sort) == 0 {
		query.Sort = sortByTitle
	}
	page, err := a.listEntries(c.Request.Context(), query)
	if err != nil {
		a.writeStoreError(c, err, "list listings failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": mapEntriesToListings(page.Entries),
		"meta": gin.H{"pagination": buildPaginationMeta(page.Total, query.Page, query.PageSize)},
	})
}

func (a *App) listingsPDFHandler(c *gin.Context) {
	page, err := a.listEntries(c.Request.Context(), EntryQuery{Sort: sortByTitle})
	if err != nil {
		a.writeStoreError(c, err, "list entries for pdf failed")
		return
	}

	pdfBytes, err := buildListingsPDF(mapEntriesToListings(page.Entries))
	if err != nil {
		a.log.Error("build listings pdf failed", "error", err)
		writeAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="freizeitangebote.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (a *App) entryMarkdownHandler(c *gin.Context) {
	id, err := parseEntryID(c.Param("id"))
	if err != nil {
		writeAPIError(c, err)
		return
	}

	entry, err := a.getEntry(c.Request.Context(), id)
	if err != nil {
		a.writeStoreError(c, err, "get entry for markdown failed")
		return
	}

	markdown, err := buildListingMarkdown(mapEntryToListing(*entry))
	if err != nil {
		a.log.Error("build markdown failed", "id", id, "error", err)
		writeAPIError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(markdown))
}

func (a *App) writeStoreError(c *gin.Context, err error, message string) {
	if errors.Is(err, errEntryNotFound) {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "NotFoundError", Message: "Not Found"})
		return
	}
	a.log.Error(message, "error", err)
	writeAPIError(c, err)
}

// fillCoordinates geocodes the address when no usable coordinates were sent.
// Lookup failures never block the write.
func (a *App) fillCoordinates(ctx context.Context, input *EntryInput) {
	if a.geocoder == nil || input.Adresse == nil || *input.Adresse == "" {
		return
	}
	if parseCoordinates(input.Ort) != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, geocoderTimeout)
	defer cancel()

	result, err := a.geocoder.Geocode(ctx, *input.Adresse)
	if err != nil {
		a.log.Warn("geocoding failed", "address", *input.Adresse, "error", err)
		return
	}
	if result == nil {
		a.log.Info("geocoding found no match", "address", *input.Adresse)
		return
	}

	ort, err := json.Marshal(Coordinates{Lat: result.Lat, Lng: result.Lng})
	if err != nil {
		return
	}
	input.Ort = ort
}

func parseEntryID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, validationError("Invalid id")
	}
	return id, nil
}

func readEntryPayload(c *gin.Context) (EntryInput, error) {
	var payload entryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		return EntryInput{}, validationError("Invalid JSON body")
	}
	if payload.Data == nil {
		return EntryInput{}, validationError(`Missing "data" payload in the request body`)
	}
	return *payload.Data, nil
}

// validateEntryInput checks and normalizes a write payload in place.
func validateEntryInput(input *EntryInput, creating bool) error {
	if input.Titel != nil {
		title := strings.TrimSpace(*input.Titel)
		input.Titel = &title
	}
	if creating && (input.Titel == nil || *input.Titel == "") {
		return validationError("Titel is required")
	}
	if input.Titel != nil {
		if *input.Titel == "" {
			return validationError("Titel must not be empty")
		}
		if utf8.RuneCountInString(*input.Titel) > maxTitleLength {
			return validationError("Titel must be at most 255 characters")
		}
	}

	if input.Beschreibung != nil && !jsonKindIn(input.Beschreibung, '[', '"', 'n') {
		return validationError("Beschreibung must be a rich-text document, a string or null")
	}
	if input.Ort != nil && !jsonKindIn(input.Ort, '{', 'n') {
		return validationError("Ort must be an object or null")
	}
	if input.Bild != nil {
		if !jsonKindIn(input.Bild, '[', 'n') {
			return validationError("Bild must be a list of media or null")
		}
		var media []RawMedia
		if err := json.Unmarshal(input.Bild, &media); err != nil {
			return validationError("Bild contains invalid media")
		}
	}

	for _, field := range []**string{&input.Adresse, &input.Website, &input.Email, &input.Telefonnummer, &input.KontaktWebsite} {
		if *field != nil {
			trimmed := strings.TrimSpace(**field)
			*field = &trimmed
		}
	}
	if input.Email != nil && *input.Email != "" {
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			return validationError("Email is invalid")
		}
	}

	if input.Tags != nil {
		tags := normalizeTagNames(*input.Tags)
		if len(tags) > maxTagCount {
			return validationError("At most 20 tags are allowed")
		}
		for _, tag := range tags {
			if utf8.RuneCountInString(tag) > maxTagLength {
				return validationError("Tags must be at most 64 characters")
			}
		}
		input.Tags = &tags
	}

	return nil
}

// jsonKindIn reports whether the JSON value starts with one of the given
// bytes ('n' matches null).
func jsonKindIn(raw json.RawMessage, kinds ...byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == 'n' && !bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	for _, kind := range kinds {
		if trimmed[0] == kind {
			return true
		}
	}
	return false
}
