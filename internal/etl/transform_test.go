package etl_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"consultetl/internal/domain"
	"consultetl/internal/etl"
)

func raw(id, country string, consulted time.Time) domain.RawRecord {
	return domain.RawRecord{
		CustomerName:      "name-" + id,
		CustomerID:        id,
		OpenDate:          date(2010, time.October, 12),
		LastConsultedDate: consulted,
		VaccinationID:     "MVD",
		DoctorName:        "Paul",
		State:             "SA",
		Country:           country,
		DateOfBirth:       date(1987, time.March, 6),
		IsActive:          "A",
	}
}

func TestStageRecord(t *testing.T) {
	r := raw("C1", "USA", date(2024, time.June, 5))

	got, err := etl.StageRecord(r, refNow)
	require.NoError(t, err)
	require.Equal(t, domain.StagedRecord{
		Name:            "name-C1",
		CustID:          "C1",
		OpenDt:          r.OpenDate,
		ConsulDt:        r.LastConsultedDate,
		DaysSinceConsul: 10,
		VacID:           "MVD",
		DRName:          "Paul",
		State:           "SA",
		Country:         "USA",
		DOB:             r.DateOfBirth,
		Age:             37,
		Flag:            "A",
	}, got)
}

func TestStageRecord_IncompleteRecord(t *testing.T) {
	r := raw("C1", "USA", time.Time{})

	_, err := etl.StageRecord(r, refNow)
	require.Error(t, err)
	require.True(t, errors.Is(err, etl.ErrIncompleteRecord))
}

func TestTransformRecords_KeepsLatestConsultation(t *testing.T) {
	in := []domain.RawRecord{
		raw("C1", "US", date(2023, time.June, 1)),
		raw("C1", "US", date(2023, time.January, 1)),
	}

	tables, err := etl.TransformRecords(in, refNow)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	us := tables["US_table"]
	require.Equal(t, "US", us.Country)
	require.Len(t, us.Records, 1)
	require.Equal(t, date(2023, time.June, 1), us.Records[0].ConsulDt)
}

func TestTransformRecords_TieKeepsLaterInput(t *testing.T) {
	first := raw("C1", "US", date(2023, time.March, 3))
	first.DoctorName = "first"
	second := raw("C1", "US", date(2023, time.March, 3))
	second.DoctorName = "second"
	older := raw("C1", "US", date(2022, time.March, 3))
	older.DoctorName = "older"

	tables, err := etl.TransformRecords([]domain.RawRecord{first, second, older}, refNow)
	require.NoError(t, err)

	rows := tables["US_table"].Records
	require.Len(t, rows, 1)
	require.Equal(t, "second", rows[0].DRName)
}

func TestTransformRecords_PartitionsByCountry(t *testing.T) {
	in := []domain.RawRecord{
		raw("C2", "US", date(2023, time.May, 1)),
		raw("C1", "IN", date(2023, time.May, 2)),
		raw("C1", "US", date(2023, time.May, 3)),
		raw("C3", "IN", date(2023, time.May, 4)),
	}

	tables, err := etl.TransformRecords(in, refNow)
	require.NoError(t, err)
	require.Equal(t, []string{"IN_table", "US_table"}, etl.TableNames(tables))

	for name, table := range tables {
		require.Equal(t, etl.TableName(table.Country), name)
		for _, r := range table.Records {
			require.Equal(t, table.Country, r.Country)
		}
	}
	require.Equal(t, []string{"C1", "C3"}, custIDs(tables["IN_table"]))
	require.Equal(t, []string{"C1", "C2"}, custIDs(tables["US_table"]))
}

func TestTransformRecords_SameCustomerInTwoCountries(t *testing.T) {
	in := []domain.RawRecord{
		raw("C1", "US", date(2023, time.May, 1)),
		raw("C1", "IN", date(2023, time.May, 2)),
	}

	tables, err := etl.TransformRecords(in, refNow)
	require.NoError(t, err)
	require.Len(t, tables["US_table"].Records, 1)
	require.Len(t, tables["IN_table"].Records, 1)
}

func TestTransformRecords_NoDuplicateCustomers(t *testing.T) {
	var in []domain.RawRecord
	countries := []string{"US", "IN", "UK"}
	for i := 0; i < 60; i++ {
		id := []string{"A", "B", "C", "D", "E"}[i%5]
		in = append(in, raw(id, countries[i%3], date(2023, time.January, 1).AddDate(0, 0, (i*7)%40)))
	}

	tables, err := etl.TransformRecords(in, refNow)
	require.NoError(t, err)

	for name, table := range tables {
		seen := map[string]bool{}
		for _, r := range table.Records {
			require.False(t, seen[r.CustID], "duplicate %s in %s", r.CustID, name)
			seen[r.CustID] = true
		}
	}
}

func TestTransformRecords_Empty(t *testing.T) {
	tables, err := etl.TransformRecords(nil, refNow)
	require.NoError(t, err)
	require.Empty(t, tables)
}

func TestTransformRecords_IncompleteRecordFails(t *testing.T) {
	bad := raw("C9", "US", date(2023, time.May, 1))
	bad.DateOfBirth = time.Time{}

	tables, err := etl.TransformRecords([]domain.RawRecord{raw("C1", "US", date(2023, time.May, 1)), bad}, refNow)
	require.Error(t, err)
	require.Nil(t, tables)
}

func TestSortByConsultation_Stable(t *testing.T) {
	recs := []domain.StagedRecord{
		{CustID: "a", ConsulDt: date(2023, time.May, 2)},
		{CustID: "b", ConsulDt: date(2023, time.May, 1)},
		{CustID: "c", ConsulDt: date(2023, time.May, 2)},
		{CustID: "d", ConsulDt: date(2023, time.May, 1)},
	}

	etl.SortByConsultation(recs)

	var order []string
	for _, r := range recs {
		order = append(order, r.CustID)
	}
	require.Equal(t, []string{"b", "d", "a", "c"}, order)
}

func TestLatestPerCustomer(t *testing.T) {
	recs := []domain.StagedRecord{
		{CustID: "1", Country: "US", Flag: "old"},
		{CustID: "2", Country: "US", Flag: "only"},
		{CustID: "1", Country: "US", Flag: "new"},
	}

	got := etl.LatestPerCustomer(recs)
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].Flag)
	require.Equal(t, "only", got[1].Flag)
}

func custIDs(t domain.CountryTable) []string {
	ids := make([]string, 0, len(t.Records))
	for _, r := range t.Records {
		ids = append(ids, r.CustID)
	}
	return ids
}
