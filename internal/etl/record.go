package etl

import (
	"strconv"

	"consultetl/internal/domain"
)

// ── Record Schema ──────────────────────────────────────────
// Column layout of a staged record as it leaves the pipeline.
// Destinations write columns in exactly this order.

// DateLayout is the format used for date columns in output tables.
const DateLayout = "2006-01-02"

// Field describes a single column in a country table.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "text" | "number" | "date"
}

// Schema describes the shape of the rows written by a destination.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// StagedSchema is the fixed output schema of a country table.
var StagedSchema = Schema{Fields: []Field{
	{Name: "Name", Type: "text"},
	{Name: "Cust_ID", Type: "text"},
	{Name: "Open_Dt", Type: "date"},
	{Name: "Consul_Dt", Type: "date"},
	{Name: "Days_Since_Consul", Type: "number"},
	{Name: "VAC_ID", Type: "text"},
	{Name: "DR_Name", Type: "text"},
	{Name: "State", Type: "text"},
	{Name: "Country", Type: "text"},
	{Name: "DOB", Type: "date"},
	{Name: "Age", Type: "number"},
	{Name: "FLAG", Type: "text"},
}}

// Row renders a staged record in StagedSchema column order.
func Row(r domain.StagedRecord) []string {
	return []string{
		r.Name,
		r.CustID,
		r.OpenDt.Format(DateLayout),
		r.ConsulDt.Format(DateLayout),
		strconv.Itoa(r.DaysSinceConsul),
		r.VacID,
		r.DRName,
		r.State,
		r.Country,
		r.DOB.Format(DateLayout),
		strconv.Itoa(r.Age),
		r.Flag,
	}
}
