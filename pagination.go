package main

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultPage = 1

// sortColumns maps public sort field names onto SQL columns.
var sortColumns = map[string]string{
	"id":        "f.id",
	"Titel":     "f.titel",
	"createdAt": "f.created_at",
	"updatedAt": "f.updated_at",
}

type SortField struct {
	Column string
	Desc   bool
}

// EntryQuery selects a page of entries. PageSize <= 0 means no limit.
type EntryQuery struct {
	Page          int
	PageSize      int
	Sort          []SortField
	Aktiv         *bool
	TitleContains string
}

type PaginationMeta struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

var sortByTitle = []SortField{{Column: sortColumns["Titel"]}}

func parseEntryQuery(c *gin.Context) EntryQuery {
	query := EntryQuery{
		Page:     parsePage(c.Query("pagination[page]")),
		PageSize: parsePageSize(c.Query("pagination[pageSize]")),
		Sort:     parseSort(c.Query("sort")),
	}

	if raw := strings.TrimSpace(c.Query("filters[Aktiv][$eq]")); raw != "" {
		if aktiv, err := strconv.ParseBool(raw); err == nil {
			query.Aktiv = &aktiv
		}
	}
	query.TitleContains = strings.TrimSpace(c.Query("filters[Titel][$containsi]"))

	return query
}

func parsePage(rawPage string) int {
	page, err := strconv.Atoi(strings.TrimSpace(rawPage))
	if err != nil || page < defaultPage {
		return defaultPage
	}
	return page
}

func parsePageSize(rawPageSize string) int {
	size, err := strconv.Atoi(strings.TrimSpace(rawPageSize))
	if err != nil || size < 1 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// parseSort reads "field:dir" pairs separated by commas. Unknown fields are
// ignored.
func parseSort(raw string) []SortField {
	var fields []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir, _ := strings.Cut(part, ":")
		column, ok := sortColumns[strings.TrimSpace(name)]
		if !ok {
			continue
		}
		fields = append(fields, SortField{
			Column: column,
			Desc:   strings.EqualFold(strings.TrimSpace(dir), "desc"),
		})
	}
	return fields
}

func buildPaginationMeta(total, page, pageSize int) PaginationMeta {
	if page < defaultPage {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	pageCount := 0
	if total > 0 {
		pageCount = (total + pageSize - 1) / pageSize
	}

	return PaginationMeta{
		Page:      page,
		PageSize:  pageSize,
		PageCount: pageCount,
		Total:     total,
	}
}
