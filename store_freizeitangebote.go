package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var errEntryNotFound = errors.New("entry not found")

type EntryPage struct {
	Entries []RawEntry
	Total   int
}

const entryColumns = `
		f.id, f.document_id::text, f.titel, f.beschreibung, f.ort, f.adresse, f.aktiv,
		f.website, f.email, f.telefonnummer, f.kontakt_website, f.bild,
		COALESCE((
			SELECT json_agg(json_build_object('id', t.id, 'Tagname', t.tagname) ORDER BY ft.position)
			FROM freizeitangebot_tags ft
			JOIN tags t ON t.id = ft.tag_id
			WHERE ft.freizeitangebot_id = f.id
		), '[]'::json),
		f.created_at, f.updated_at, f.published_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads the entryColumns projection; extra receives any trailing
// columns of the row.
func scanEntry(row rowScanner, extra ...any) (RawEntry, error) {
	var e RawEntry
	var beschreibung, ort, bild, tags []byte

	dest := []any{
		&e.ID, &e.DocumentID, &e.Titel, &beschreibung, &ort, &e.Adresse, &e.Aktiv,
		&e.Website, &e.Email, &e.Telefonnummer, &e.KontaktWebsite, &bild,
		&tags,
		&e.CreatedAt, &e.UpdatedAt, &e.PublishedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return RawEntry{}, err
	}

	if len(beschreibung) > 0 {
		e.Beschreibung = json.RawMessage(beschreibung)
	}
	if len(ort) > 0 {
		e.Ort = json.RawMessage(ort)
	}
	if len(bild) > 0 {
		_ = json.Unmarshal(bild, &e.Bild)
	}
	if len(tags) > 0 {
		_ = json.Unmarshal(tags, &e.Tags)
	}
	return e, nil
}

func buildEntryFilters(q EntryQuery) (string, []any) {
	whereClause := ""
	args := make([]any, 0)
	argIndex := 1

	if q.Aktiv != nil {
		if *q.Aktiv {
			whereClause += fmt.Sprintf(" AND f.aktiv = $%d", argIndex)
		} else {
			whereClause += fmt.Sprintf(" AND COALESCE(f.aktiv, FALSE) = $%d", argIndex)
		}
		args = append(args, *q.Aktiv)
		argIndex++
	}
	if q.TitleContains != "" {
		whereClause += fmt.Sprintf(" AND f.titel ILIKE $%d", argIndex)
		args = append(args, "%"+escapeLikePattern(q.TitleContains)+"%")
	}

	return whereClause, args
}

func buildListEntriesQuery(q EntryQuery) (string, []any) {
	query := `
		SELECT` + entryColumns + `,
		COUNT(*) OVER() AS total_count
		FROM freizeitangebote f
		WHERE 1=1`
	whereClause, args := buildEntryFilters(q)
	query += whereClause

	orderBy := make([]string, 0, len(q.Sort)+1)
	hasID := false
	for _, field := range q.Sort {
		dir := "ASC"
		if field.Desc {
			dir = "DESC"
		}
		orderBy = append(orderBy, field.Column+" "+dir)
		if field.Column == "f.id" {
			hasID = true
		}
	}
	if !hasID {
		orderBy = append(orderBy, "f.id ASC")
	}
	query += " ORDER BY " + strings.Join(orderBy, ", ")

	if q.PageSize > 0 {
		page := q.Page
		if page < defaultPage {
			page = defaultPage
		}
		argIndex := len(args) + 1
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, q.PageSize, (page-1)*q.PageSize)
	}

	return query, args
}

func buildCountEntriesQuery(q EntryQuery) (string, []any) {
	whereClause, args := buildEntryFilters(q)
	return `SELECT COUNT(*) FROM freizeitangebote f WHERE 1=1` + whereClause, args
}

func buildUpdateEntryQuery(id int64, input EntryInput) (string, []any) {
	sets := make([]string, 0, 12)
	args := make([]any, 0, 12)
	set := func(expr string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if input.Titel != nil {
		set("titel = $%d", *input.Titel)
	}
	if input.Beschreibung != nil {
		set("beschreibung = $%d::jsonb", nullableJSON(input.Beschreibung))
	}
	if input.Ort != nil {
		set("ort = $%d::jsonb", nullableJSON(input.Ort))
	}
	if input.Adresse != nil {
		set("adresse = $%d", *input.Adresse)
	}
	if input.Aktiv != nil {
		set("aktiv = $%d", *input.Aktiv)
	}
	if input.Website != nil {
		set("website = $%d", *input.Website)
	}
	if input.Email != nil {
		set("email = $%d", *input.Email)
	}
	if input.Telefonnummer != nil {
		set("telefonnummer = $%d", *input.Telefonnummer)
	}
	if input.KontaktWebsite != nil {
		set("kontakt_website = $%d", *input.KontaktWebsite)
	}
	if input.Bild != nil {
		set("bild = COALESCE($%d::jsonb, '[]'::jsonb)", nullableJSON(input.Bild))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE freizeitangebote SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args
}

func (a *App) storeListEntries(ctx context.Context, q EntryQuery) (*EntryPage, error) {
	query, args := buildListEntriesQuery(q)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []RawEntry{}
	total := 0
	for rows.Next() {
		entry, err := scanEntry(rows, &total)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// the window count is unavailable past the last page
	if len(entries) == 0 && q.Page > defaultPage {
		countQuery, countArgs := buildCountEntriesQuery(q)
		if err := a.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, err
		}
	}

	return &EntryPage{Entries: entries, Total: total}, nil
}

func (a *App) storeGetEntry(ctx context.Context, id int64) (*RawEntry, error) {
	row := a.db.QueryRowContext(ctx, `SELECT`+entryColumns+`
		FROM freizeitangebote f
		WHERE f.id = $1`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (a *App) storeCreateEntry(ctx context.Context, input EntryInput) (*RawEntry, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO freizeitangebote (
			document_id, titel, beschreibung, ort, adresse, aktiv,
			website, email, telefonnummer, kontakt_website, bild, published_at
		)
		VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7, $8, $9, $10, COALESCE($11::jsonb, '[]'::jsonb), NOW())
		RETURNING id
	`,
		uuid.NewString(), derefString(input.Titel), nullableJSON(input.Beschreibung), nullableJSON(input.Ort),
		input.Adresse, input.Aktiv, input.Website, input.Email, input.Telefonnummer, input.KontaktWebsite,
		nullableJSON(input.Bild),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	if input.Tags != nil {
		if err := replaceEntryTagsTx(ctx, tx, id, *input.Tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a.storeGetEntry(ctx, id)
}

func (a *App) storeUpdateEntry(ctx context.Context, id int64, input EntryInput) (*RawEntry, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	query, args := buildUpdateEntryQuery(id, input)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errEntryNotFound
	}

	if input.Tags != nil {
		if err := replaceEntryTagsTx(ctx, tx, id, *input.Tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a.storeGetEntry(ctx, id)
}

func (a *App) storeDeleteEntry(ctx context.Context, id int64) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM freizeitangebote WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errEntryNotFound
	}
	return nil
}

// replaceEntryTagsTx links the entry to exactly the given tags, creating
// missing tags by name and keeping the given order.
func replaceEntryTagsTx(ctx context.Context, tx *sql.Tx, entryID int64, names []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM freizeitangebot_tags WHERE freizeitangebot_id = $1`, entryID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}

	for position, name := range normalizeTagNames(names) {
		var tagID int64
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (tagname) VALUES ($1)
			ON CONFLICT (tagname) DO UPDATE SET tagname = EXCLUDED.tagname
			RETURNING id
		`, name).Scan(&tagID); err != nil {
			return fmt.Errorf("upsert tag %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO freizeitangebot_tags (freizeitangebot_id, tag_id, position)
			VALUES ($1, $2, $3)
		`, entryID, tagID, position); err != nil {
			return fmt.Errorf("link tag %q: %w", name, err)
		}
	}
	return nil
}

func normalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// nullableJSON returns nil for missing or null documents so the column is
// stored as SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return string(trimmed)
}

func escapeLikePattern(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
