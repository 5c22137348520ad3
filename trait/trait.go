// Package trait reads tab-separated trait tables. The first line is a
// header (taxon column followed by one column per trait), every other
// line holds the observations for a single taxon. A '?' or an empty
// cell is a missing observation.
package trait

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/evolab/anceps/evoerr"
)

// Missing is the missing observation marker.
const Missing = "?"

// Table is a parsed trait table.
type Table struct {
	columns []string
	taxa    []string
	// cells[taxon][column] is the raw observation.
	cells map[string]map[string]string
}

// ReadTable parses a tab-separated trait table. Lines starting with
// '#' are skipped.
func ReadTable(rd io.Reader) (*Table, error) {
	r := csv.NewReader(rd)
	r.Comma = '\t'
	r.Comment = '#'
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, evoerr.NewDataError("reading trait table: %v", err)
	}
	if len(records) < 1 {
		return nil, evoerr.NewDataError("trait table is empty")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, evoerr.NewDataError("trait table needs a taxon column and at least one trait column")
	}

	table := &Table{
		columns: make([]string, 0, len(header)-1),
		cells:   make(map[string]map[string]string, len(records)-1),
	}
	for _, c := range header[1:] {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, evoerr.NewDataError("empty trait name in the header")
		}
		table.columns = append(table.columns, c)
	}

	for _, rec := range records[1:] {
		taxon := strings.TrimSpace(rec[0])
		if taxon == "" {
			return nil, evoerr.NewDataError("empty taxon label")
		}
		if _, ok := table.cells[taxon]; ok {
			return nil, evoerr.NewDataError("duplicate taxon <%s>", taxon)
		}
		obs := make(map[string]string, len(table.columns))
		for i, c := range table.columns {
			obs[c] = strings.TrimSpace(rec[i+1])
		}
		table.cells[taxon] = obs
		table.taxa = append(table.taxa, taxon)
	}

	return table, nil
}

// Columns returns the trait names in header order.
func (t *Table) Columns() []string {
	return t.columns
}

// Taxa returns the taxon labels in input order.
func (t *Table) Taxa() []string {
	return t.taxa
}

// HasColumn returns true if the trait is present in the table.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// missing returns true for a missing observation cell.
func missing(v string) bool {
	return v == "" || v == Missing
}

// Continuous returns a taxon to value map for a continuous trait.
// Missing observations are skipped; a non-numeric cell is a DataError.
func (t *Table) Continuous(name string) (map[string]float64, error) {
	if !t.HasColumn(name) {
		return nil, evoerr.NewDataError("no trait <%s> in the table", name)
	}
	vals := make(map[string]float64, len(t.taxa))
	for _, taxon := range t.taxa {
		v := t.cells[taxon][name]
		if missing(v) {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, evoerr.NewDataError("trait <%s>, taxon <%s>: not a number: %q",
				name, taxon, v)
		}
		vals[taxon] = x
	}
	return vals, nil
}

// Discrete returns a taxon to state map for a discrete trait.
// Missing observations are represented by the Missing marker.
func (t *Table) Discrete(name string) (map[string]string, error) {
	if !t.HasColumn(name) {
		return nil, evoerr.NewDataError("no trait <%s> in the table", name)
	}
	vals := make(map[string]string, len(t.taxa))
	for _, taxon := range t.taxa {
		v := t.cells[taxon][name]
		if missing(v) {
			vals[taxon] = Missing
			continue
		}
		vals[taxon] = v
	}
	return vals, nil
}

// States returns the sorted state alphabet of a discrete trait,
// missing observations excluded.
func (t *Table) States(name string) []string {
	seen := make(map[string]bool)
	for _, taxon := range t.taxa {
		v := t.cells[taxon][name]
		if missing(v) {
			continue
		}
		seen[v] = true
	}
	states := make([]string, 0, len(seen))
	for s := range seen {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}
