package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Entry is one completed import run.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Statement string
	Format    string
	Converted int
	Skipped   int
	FirstID   string
	LastID    string
}

// Header is the CSV header of an import log.
const Header = "timestamp,run_id,statement,format,converted,skipped,first_id,last_id"

const (
	numFields    = 8
	colTimestamp = 0
	colRunID     = 1
	colStatement = 2
	colFormat    = 3
	colConverted = 4
	colSkipped   = 5
	colFirstID   = 6
	colLastID    = 7
)

// PathFor returns the default import log path for a ledger file.
func PathFor(database string) string {
	return database + ".imports.csv"
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colStatement] = e.Statement
	row[colFormat] = e.Format
	row[colConverted] = strconv.Itoa(e.Converted)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colFirstID] = e.FirstID
	row[colLastID] = e.LastID
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	converted, err := strconv.Atoi(record[colConverted])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing converted %q: %w", record[colConverted], err)
	}
	skipped, err := strconv.Atoi(record[colSkipped])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing skipped %q: %w", record[colSkipped], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Statement: record[colStatement],
		Format:    record[colFormat],
		Converted: converted,
		Skipped:   skipped,
		FirstID:   record[colFirstID],
		LastID:    record[colLastID],
	}, nil
}

// Append writes entries to the log at path, creating the file and header if needed.
func Append(path string, entries ...Entry) error {
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return writeEntries(f, needsHeader, entries)
}

// Write writes entries with a header row to w.
func Write(w io.Writer, entries []Entry) error {
	return writeEntries(w, true, entries)
}

func writeEntries(w io.Writer, header bool, entries []Entry) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries in the log at path.
// Returns an empty slice if the file does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
