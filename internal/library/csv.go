package library

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"titletrack/pkg/models"
)

var csvHeader = []string{"id", "title", "type", "status", "progress", "total", "score", "image_url", "source_url", "is_secret"}

// ExportCSV writes every title the user owns, secret ones included.
func (r *Repo) ExportCSV(ctx context.Context, userID string, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, err
	}

	n := 0
	for offset := 0; ; offset += 100 {
		items, _, err := r.List(ctx, userID, ListFilter{IncludeSecret: true, Limit: 100, Offset: offset})
		if err != nil {
			return n, err
		}
		for _, it := range items {
			if err := w.Write([]string{
				it.ID,
				it.Title,
				string(it.Type),
				it.Status,
				strconv.Itoa(it.Progress),
				strconv.Itoa(it.Total),
				strconv.Itoa(it.Score),
				it.ImageURL,
				it.SourceURL,
				strconv.FormatBool(it.IsSecret),
			}); err != nil {
				return n, err
			}
			n++
		}
		if len(items) < 100 {
			break
		}
	}

	w.Flush()
	return n, w.Error()
}

// ImportCSV adds one title per row. Rows with an id the user already has
// are updated in place; rows without a title or with an unknown type are
// skipped.
func (r *Repo) ImportCSV(ctx context.Context, userID string, in io.Reader) (imported, skipped int, err error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return 0, 0, err
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, skipped, err
		}
		if len(row) == 0 {
			continue
		}

		var existing *models.TitleRecord
		if id := valueAt(header, row, "id"); id != "" {
			if existing, err = r.Get(ctx, userID, id); err != nil {
				return imported, skipped, err
			}
		}

		rec, ok, err := recordFromRow(header, row, existing)
		if err != nil {
			return imported, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			skipped++
			continue
		}
		rec.UserID = userID

		if existing != nil {
			_, err = r.Update(ctx, rec)
		} else {
			err = r.Create(ctx, rec)
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}
	return imported, skipped, nil
}

// recordFromRow builds the record for one row. When base is set, columns
// missing from the file keep base's values.
func recordFromRow(header map[string]int, row []string, base *models.TitleRecord) (*models.TitleRecord, bool, error) {
	rec := &models.TitleRecord{Status: StatusPlanned}
	if base != nil {
		cp := *base
		rec = &cp
	}

	if has(header, "title") {
		rec.Title = valueAt(header, row, "title")
	}
	if has(header, "type") {
		typ, ok := models.ParseMediaType(valueAt(header, row, "type"))
		if !ok {
			return nil, false, nil
		}
		rec.Type = typ
	}
	if rec.Title == "" || rec.Type == "" {
		return nil, false, nil
	}

	if s := normalizeStatus(valueAt(header, row, "status")); s != "" {
		rec.Status = s
	}
	if has(header, "image_url") {
		rec.ImageURL = valueAt(header, row, "image_url")
	}
	if has(header, "source_url") {
		rec.SourceURL = valueAt(header, row, "source_url")
	}

	for _, f := range []struct {
		col string
		dst *int
	}{
		{"progress", &rec.Progress},
		{"total", &rec.Total},
		{"score", &rec.Score},
	} {
		if !has(header, f.col) {
			continue
		}
		n, err := parseCount(valueAt(header, row, f.col))
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = n
	}
	if rec.Score > 10 {
		rec.Score = 10
	}
	if s := valueAt(header, row, "is_secret"); s != "" {
		rec.IsSecret, _ = strconv.ParseBool(s)
	}
	applyImageDefaults(rec, base == nil)
	return rec, true, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for i, col := range row {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := header["title"]; !ok {
		return nil, errors.New("missing title column")
	}
	return header, nil
}

func has(header map[string]int, key string) bool {
	_, ok := header[key]
	return ok
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
