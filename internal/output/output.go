// Package output serializes host records to JSON, CSV, XLSX or SQLite.
package output

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shii9/SurfaceNio/internal/model"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// Columns is the flattened record layout shared by the tabular formats.
var Columns = []string{
	"domain_input",
	"subdomain",
	"a",
	"aaaa",
	"http_alive",
	"http_status",
	"https_alive",
	"https_status",
	"final_url",
	"title",
	"server",
	"tls_days_to_expire",
	"tags",
	"timestamp",
}

type Writer interface {
	Write(path string, records []model.HostRecord) error
}

// ParseFormat accepts a format name, case-insensitively. "db" is an alias for
// sqlite.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX, FormatSQLite:
		return f, nil
	case "db":
		return FormatSQLite, nil
	}
	return "", errors.Errorf("unknown output format %q", s)
}

// InferFormat picks a format from the file extension, defaulting to JSON.
func InferFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	}
	return FormatJSON
}

func NewWriter(f Format) (Writer, error) {
	switch f {
	case FormatJSON:
		return JSONWriter{}, nil
	case FormatCSV:
		return CSVWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{}, nil
	case FormatSQLite:
		return SQLiteWriter{RunID: time.Now().UTC().Format(time.RFC3339Nano)}, nil
	}
	return nil, errors.Errorf("unknown output format %q", f)
}

// Write serializes records to path in format f. An empty record set still
// produces a file.
func Write(path string, f Format, records []model.HostRecord) error {
	w, err := NewWriter(f)
	if err != nil {
		return err
	}
	return errors.Wrapf(w.Write(path, records), "write %s output", f)
}

// Flatten renders rec in Columns order. Absent values are empty strings.
func Flatten(rec model.HostRecord) []string {
	h := rec.HTTP
	tls := ""
	if days, ok := h.TLSDaysToExpire(); ok {
		tls = strconv.Itoa(days)
	}
	return []string{
		rec.DomainInput,
		rec.Subdomain,
		strings.Join(rec.DNS.IPv4, ";"),
		strings.Join(rec.DNS.IPv6, ";"),
		strconv.FormatBool(h.HTTP.Alive),
		optInt(h.HTTP.Status),
		strconv.FormatBool(h.HTTPS.Alive),
		optInt(h.HTTPS.Status),
		h.PreferredFinalURL(),
		h.PreferredTitle(),
		h.Server(),
		tls,
		strings.Join(rec.Tags, ","),
		formatTime(rec.Timestamp),
	}
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
