package domain

import "time"

// RawRecord is one detail line of the master data file.
type RawRecord struct {
	CustomerName      string    `json:"customerName"`
	CustomerID        string    `json:"customerId"`
	OpenDate          time.Time `json:"openDate"`
	LastConsultedDate time.Time `json:"lastConsultedDate"`
	VaccinationID     string    `json:"vaccinationId"`
	DoctorName        string    `json:"doctorName"`
	State             string    `json:"state"`
	Country           string    `json:"country"`
	DateOfBirth       time.Time `json:"dateOfBirth"`
	IsActive          string    `json:"isActive"`
}

// StagedRecord is a RawRecord renamed to the output columns and enriched
// with the derived Age and DaysSinceConsul fields.
type StagedRecord struct {
	Name            string    `json:"Name"`
	CustID          string    `json:"Cust_ID"`
	OpenDt          time.Time `json:"Open_Dt"`
	ConsulDt        time.Time `json:"Consul_Dt"`
	DaysSinceConsul int       `json:"Days_Since_Consul"`
	VacID           string    `json:"VAC_ID"`
	DRName          string    `json:"DR_Name"`
	State           string    `json:"State"`
	Country         string    `json:"Country"`
	DOB             time.Time `json:"DOB"`
	Age             int       `json:"Age"`
	Flag            string    `json:"FLAG"`
}

// CountryTable holds the latest consultation of every customer of one country.
// A customer ID appears at most once in Records.
type CountryTable struct {
	Name    string         `json:"name"` // "<Country>_table"
	Country string         `json:"country"`
	Records []StagedRecord `json:"records"`
}
