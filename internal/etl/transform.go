package etl

import (
	"cmp"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"consultetl/internal/domain"
)

// ── Transform ──────────────────────────────────────────────
// Raw records become staged records, are reduced to the latest
// consultation per (country, customer) and partitioned per country.

// TableSuffix is appended to a country value to form its table name.
const TableSuffix = "_table"

// ErrIncompleteRecord is returned when a raw record is missing a date
// the transform depends on.
var ErrIncompleteRecord = errors.New("incomplete record")

// TableName returns the output table name for a country.
func TableName(country string) string {
	return country + TableSuffix
}

// TransformRecords runs the full transform over raw records using now as
// the reference time for derived fields.
func TransformRecords(raw []domain.RawRecord, now time.Time) (map[string]domain.CountryTable, error) {
	staged := make([]domain.StagedRecord, 0, len(raw))
	for i, r := range raw {
		s, err := StageRecord(r, now)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		staged = append(staged, s)
	}

	SortByConsultation(staged)
	return PartitionByCountry(LatestPerCustomer(staged)), nil
}

// StageRecord maps a raw record onto the output columns and computes its
// derived fields.
func StageRecord(r domain.RawRecord, now time.Time) (domain.StagedRecord, error) {
	switch {
	case r.OpenDate.IsZero():
		return domain.StagedRecord{}, errors.Wrapf(ErrIncompleteRecord, "customer %q: open date", r.CustomerID)
	case r.LastConsultedDate.IsZero():
		return domain.StagedRecord{}, errors.Wrapf(ErrIncompleteRecord, "customer %q: last consulted date", r.CustomerID)
	case r.DateOfBirth.IsZero():
		return domain.StagedRecord{}, errors.Wrapf(ErrIncompleteRecord, "customer %q: date of birth", r.CustomerID)
	}

	return domain.StagedRecord{
		Name:            r.CustomerName,
		CustID:          r.CustomerID,
		OpenDt:          r.OpenDate,
		ConsulDt:        r.LastConsultedDate,
		DaysSinceConsul: DaysSince(r.LastConsultedDate, now),
		VacID:           r.VaccinationID,
		DRName:          r.DoctorName,
		State:           r.State,
		Country:         r.Country,
		DOB:             r.DateOfBirth,
		Age:             Age(r.DateOfBirth, now),
		Flag:            r.IsActive,
	}, nil
}

// SortByConsultation orders records by consultation date ascending.
// Records with equal dates keep their relative order.
func SortByConsultation(records []domain.StagedRecord) {
	slices.SortStableFunc(records, func(a, b domain.StagedRecord) int {
		return a.ConsulDt.Compare(b.ConsulDt)
	})
}

type customerKey struct {
	country    string
	customerID string
}

// LatestPerCustomer keeps, for every (country, customer ID), the last record
// seen in the given order. Applied after SortByConsultation this is the most
// recent consultation, ties going to the later input record.
//
// Output order follows the first appearance of each key.
func LatestPerCustomer(sorted []domain.StagedRecord) []domain.StagedRecord {
	index := make(map[customerKey]int)
	var out []domain.StagedRecord
	for _, r := range sorted {
		k := customerKey{country: r.Country, customerID: r.CustID}
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// PartitionByCountry groups records into one table per country value.
// Rows inside a table are ordered by customer ID.
func PartitionByCountry(records []domain.StagedRecord) map[string]domain.CountryTable {
	groups := lo.GroupBy(records, func(r domain.StagedRecord) string { return r.Country })

	tables := make(map[string]domain.CountryTable, len(groups))
	for country, rows := range groups {
		slices.SortStableFunc(rows, func(a, b domain.StagedRecord) int {
			return cmp.Compare(a.CustID, b.CustID)
		})
		name := TableName(country)
		tables[name] = domain.CountryTable{Name: name, Country: country, Records: rows}
	}
	return tables
}

// TableNames returns the table names of a transform result in sorted order.
func TableNames(tables map[string]domain.CountryTable) []string {
	names := lo.Keys(tables)
	slices.Sort(names)
	return names
}
