package domain

// RosterRecord is one row of the personnel export, reduced to the
// configured column subset. Values are keyed by column name; a column
// missing from the source appears with an empty value.
type RosterRecord struct {
	Values map[string]string
}

// Get returns the value for a column, or "" when absent.
func (r RosterRecord) Get(column string) string {
	return r.Values[column]
}

// ReducedRoster is the projected export for one run: the retained
// column order, the records, and the same data serialized back to raw
// CSV text for archival.
type ReducedRoster struct {
	Columns []string
	Records []RosterRecord
	RawCSV  string
}

// Len returns the number of records in the reduced roster.
func (r *ReducedRoster) Len() int { return len(r.Records) }
