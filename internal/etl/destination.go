package etl

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"consultetl/internal/domain"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes one country table into a target system.
// For now, the only destination is a directory of CSV files.

// Destination writes a country table to a target system.
type Destination interface {
	Write(ctx context.Context, table domain.CountryTable) error
}

// DefaultExtension is the file extension of written tables.
const DefaultExtension = ".csv"

// ErrUnsafeTableName is returned for a table name that is not a plain file
// name, such as one built from a country value containing a path separator.
var ErrUnsafeTableName = errors.New("table name is not a plain file name")

// ── CSV Table Destination ──────────────────────────────────

// CSVTableWriter implements Destination by writing <Dir>/<table name><Extension>.
// Existing files are overwritten.
type CSVTableWriter struct {
	Dir       string
	Extension string
}

// Path returns the file a table is written to.
func (w *CSVTableWriter) Path(tableName string) string {
	ext := w.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return filepath.Join(w.Dir, tableName+ext)
}

func (w *CSVTableWriter) Write(ctx context.Context, table domain.CountryTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !safeFileName(table.Name) {
		return errors.Wrapf(ErrUnsafeTableName, "%q", table.Name)
	}
	if w.Dir != "" {
		if err := os.MkdirAll(w.Dir, 0o755); err != nil {
			return errors.Wrap(err, "create output dir")
		}
	}

	path := w.Path(table.Name)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := WriteTableCSV(f, table); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

func safeFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// WriteTableCSV writes a header row followed by one row per record, in
// StagedSchema column order.
func WriteTableCSV(w io.Writer, table domain.CountryTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StagedSchema.FieldNames()); err != nil {
		return err
	}
	for _, r := range table.Records {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
