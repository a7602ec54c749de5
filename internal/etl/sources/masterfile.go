package sources

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"consultetl/internal/domain"
	"consultetl/internal/etl"
)

// ── Master File Source ──────────────────────────────────────
// Reads consultation records from a pipe-delimited master data file.
//
//	|H|Customer_Name|Customer_Id|Open_Date|...
//	|D|Alex|123457|20101012|20121013|MVD|Paul|SA|USA|06031987|A
//
// Only detail lines (marker D after the leading delimiter) produce records.

const (
	// DefaultDelimiter separates fields of a master file line.
	DefaultDelimiter = "|"
	// DefaultDetailMarker tags a detail line.
	DefaultDetailMarker = "D"

	consultDateLayout = "20060102" // YYYYMMDD
	birthDateLayout   = "02012006" // DDMMYYYY

	// detail lines carry at least tokens 0..11
	minDetailFields = 12

	maxLineSize = 1 << 20
)

// LineError reports a detail line that cannot be mapped onto a record.
type LineError struct {
	Line  int
	Field string
	Err   error
}

func (e *LineError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// ParseOptions controls how a master file is split into records.
type ParseOptions struct {
	Delimiter    string
	DetailMarker string
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.DetailMarker == "" {
		o.DetailMarker = DefaultDetailMarker
	}
	return o
}

// ParseResult is the outcome of parsing a master file.
type ParseResult struct {
	Records []domain.RawRecord
	// Skipped counts non-detail lines.
	Skipped int
}

type masterFileSource struct{}

func init() { etl.RegisterSource(&masterFileSource{}) }

func (s *masterFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "master_file",
		Label: "Master Data File",
		ConfigFields: []etl.ConfigField{
			{Key: "filePath", Label: "File Path", Required: true, Help: "Path to the pipe-delimited master data file"},
			{Key: "delimiter", Label: "Delimiter", Required: false, Default: DefaultDelimiter, Help: "Field delimiter (default: pipe)"},
			{Key: "detailMarker", Label: "Detail Marker", Required: false, Default: DefaultDetailMarker, Help: "Leading token of detail lines"},
		},
	}
}

func (s *masterFileSource) Extract(ctx context.Context, cfg etl.SourceConfig) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath, _ := cfg["filePath"].(string)
	if filePath == "" {
		return nil, fmt.Errorf("filePath is required")
	}
	opts := ParseOptions{}
	opts.Delimiter, _ = cfg["delimiter"].(string)
	opts.DetailMarker, _ = cfg["detailMarker"].(string)

	res, err := ParseMasterFile(filePath, opts)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ParseMasterFile reads the whole file at path and parses its detail lines.
// The file is closed before parsing starts.
func ParseMasterFile(path string, opts ParseOptions) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read master file")
	}
	return ParseMaster(bytes.NewReader(data), opts)
}

// ParseMaster parses master file content line by line. Each trimmed line
// is split on the delimiter as is; quotes carry no meaning. Blank and
// non-detail lines are skipped; any malformed detail line fails the whole
// parse.
func ParseMaster(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	opts = opts.withDefaults()
	if err := ValidateDelimiter(opts.Delimiter); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	res := &ParseResult{}
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, opts.Delimiter)
		if !isDetail(fields, opts.DetailMarker) {
			res.Skipped++
			continue
		}
		rec, err := parseDetail(fields, line)
		if err != nil {
			return nil, err
		}
		res.Records = append(res.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "parse master file after line %d", line)
	}
	return res, nil
}

// ValidateDelimiter rejects delimiters a line cannot be split on: anything
// other than a single non-space character.
func ValidateDelimiter(delim string) error {
	r := []rune(delim)
	if len(r) != 1 || unicode.IsSpace(r[0]) {
		return errors.Errorf("delimiter must be a single non-space character, got %q", delim)
	}
	return nil
}

// isDetail reports whether a line starts with the delimiter followed by marker.
func isDetail(fields []string, marker string) bool {
	return len(fields) > 1 && fields[0] == "" && fields[1] == marker
}

func parseDetail(fields []string, line int) (domain.RawRecord, error) {
	if len(fields) < minDetailFields {
		return domain.RawRecord{}, errors.WithStack(&LineError{
			Line: line,
			Err:  fmt.Errorf("got %d fields, want at least %d", len(fields), minDetailFields),
		})
	}

	openDate, err := parseDate(fields[4], consultDateLayout, "open_date", line)
	if err != nil {
		return domain.RawRecord{}, err
	}
	consulted, err := parseDate(fields[5], consultDateLayout, "last_consulted_date", line)
	if err != nil {
		return domain.RawRecord{}, err
	}
	dob, err := parseDate(fields[10], birthDateLayout, "date_of_birth", line)
	if err != nil {
		return domain.RawRecord{}, err
	}

	return domain.RawRecord{
		CustomerName:      fields[2],
		CustomerID:        fields[3],
		OpenDate:          openDate,
		LastConsultedDate: consulted,
		VaccinationID:     fields[6],
		DoctorName:        fields[7],
		State:             fields[8],
		Country:           fields[9],
		DateOfBirth:       dob,
		IsActive:          fields[11],
	}, nil
}

func parseDate(value, layout, field string, line int) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, errors.WithStack(&LineError{Line: line, Field: field, Err: err})
	}
	return t, nil
}
