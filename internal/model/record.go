// Package model defines the records, rows and outcomes that flow through the
// postal enrichment pipeline.
package model

import (
	"strings"
)

// Status is the outcome tag written to the STATUS column.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// InputColumns is the positional schema of the input sheet. CITY and DIST are
// ignored on input and recomputed from the ZIP.
var InputColumns = []string{"FIRST_NAME", "LAST_NAME", "STREET", "CITY", "DIST", "ZIP"}

// OutputColumns is the fixed schema of the output table.
var OutputColumns = []string{"FIRST_NAME", "LAST_NAME", "STREET", "CITY", "DIST", "ZIP", "EMAIL", "STATUS"}

// InputRecord is one row of the input sheet.
type InputRecord struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `json:"street"`
	ZIP       string `json:"zip"`
}

// FullName joins the first and last name as given.
func (r InputRecord) FullName() string {
	return joinNonEmpty(r.FirstName, r.LastName)
}

// ReducedName keeps only the first token of the first name, dropping middle
// names and initials.
func (r InputRecord) ReducedName() string {
	first := ""
	if fields := strings.Fields(r.FirstName); len(fields) > 0 {
		first = fields[0]
	}
	return joinNonEmpty(first, r.LastName)
}

func (r InputRecord) String() string {
	return r.FullName() + ", " + r.Street + ", " + r.ZIP
}

// CityCandidate is one "City District" label returned by ZIP resolution.
type CityCandidate struct {
	City     string `json:"city"`
	District string `json:"district"`
}

// ParseCityCandidate splits a label on whitespace: the last token is the
// district, everything before it is the city name.
func ParseCityCandidate(label string) CityCandidate {
	fields := strings.Fields(label)
	switch len(fields) {
	case 0:
		return CityCandidate{}
	case 1:
		return CityCandidate{District: fields[0]}
	}
	return CityCandidate{
		City:     strings.Join(fields[:len(fields)-1], " "),
		District: fields[len(fields)-1],
	}
}

// Address synthesizes the "City District ZIP" string used for searching and
// for address verification.
func (c CityCandidate) Address(zip string) string {
	return joinNonEmpty(c.City, c.District, zip)
}

// OutputRow is the result for one city candidate of one input record, before
// the email list is exploded into one table row per email.
type OutputRow struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Street    string   `json:"street"`
	City      string   `json:"city"`
	District  string   `json:"district"`
	ZIP       string   `json:"zip"`
	Emails    []string `json:"emails"`
	Status    Status   `json:"status"`
}

// NewOutputRow starts a row carrying the identity of rec.
func NewOutputRow(rec InputRecord, city CityCandidate, status Status) OutputRow {
	return OutputRow{
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Street:    rec.Street,
		City:      city.City,
		District:  city.District,
		ZIP:       rec.ZIP,
		Status:    status,
	}
}

// TableRow is one persisted row of the output table, with at most one email.
type TableRow struct {
	FirstName string
	LastName  string
	Street    string
	City      string
	District  string
	ZIP       string
	Email     string
	Status    Status
}

// Cells returns the row in OutputColumns order.
func (r TableRow) Cells() []string {
	return []string{r.FirstName, r.LastName, r.Street, r.City, r.District, r.ZIP, r.Email, string(r.Status)}
}

// TableRowFromCells builds a row from OutputColumns-ordered cells. Missing
// trailing cells are treated as empty.
func TableRowFromCells(cells []string) TableRow {
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	return TableRow{
		FirstName: get(0),
		LastName:  get(1),
		Street:    get(2),
		City:      get(3),
		District:  get(4),
		ZIP:       get(5),
		Email:     get(6),
		Status:    Status(get(7)),
	}
}

// IdentityKey is the duplicate-group key: every column except EMAIL.
type IdentityKey struct {
	FirstName, LastName, Street, City, District, ZIP string
	Status                                           Status
}

// Identity returns the duplicate-group key of the row.
func (r TableRow) Identity() IdentityKey {
	return IdentityKey{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Street:    r.Street,
		City:      r.City,
		District:  r.District,
		ZIP:       r.ZIP,
		Status:    r.Status,
	}
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
