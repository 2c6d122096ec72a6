// Package importer reads word lists from spreadsheets.
//
// Columns, in order: word, translation, word type, gender, plural, example,
// example translation. Only the first two are required. A leading header
// row is recognized and skipped.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"flashcards/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")

const (
	colWord = iota
	colTranslation
	colType
	colGender
	colPlural
	colExample
	colExampleTranslation
)

var headerWords = map[string]bool{
	"word": true, "german": true, "deutsch": true, "wort": true,
}

// RowError describes a row that could not be imported
type RowError struct {
	Row int // 1-based, as shown by spreadsheet apps
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Entry is a parsed word together with the sheet row it came from
type Entry struct {
	Row  int
	Word domain.WordData
}

// sheetRow is a record with its 1-based row number in the source file
type sheetRow struct {
	line  int
	cells []string
}

// SkippedRows is returned alongside the parsed words when some rows were skipped
type SkippedRows []RowError

func (s SkippedRows) Error() string {
	msgs := make([]string, 0, len(s))
	for _, e := range s {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d rows skipped: %s", len(s), strings.Join(msgs, "; "))
}

// ParseSheet reads words from r. The format is chosen by the extension of name.
// When some rows are invalid the valid words are still returned together with
// a SkippedRows error.
func ParseSheet(r io.Reader, name string) ([]Entry, error) {
	var rows []sheetRow
	var err error

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		rows, err = readExcel(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	return parseRows(rows)
}

func readExcel(r io.Reader) ([]sheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	// GetRows keeps empty rows, so the index is the sheet row
	out := make([]sheetRow, len(rows))
	for i, cells := range rows {
		out[i] = sheetRow{line: i + 1, cells: cells}
	}
	return out, nil
}

func readCSV(r io.Reader) ([]sheetRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	// The reader drops blank lines; FieldPos keeps the line of each record
	var rows []sheetRow
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, sheetRow{line: line, cells: cells})
	}
}

func parseRows(rows []sheetRow) ([]Entry, error) {
	var entries []Entry
	var skipped SkippedRows

	for i, row := range rows {
		if isBlank(row.cells) {
			continue
		}
		if i == 0 && headerWords[strings.ToLower(cell(row.cells, colWord))] {
			continue
		}

		w, err := parseRow(row.cells)
		if err != nil {
			skipped = append(skipped, RowError{Row: row.line, Err: err})
			continue
		}
		entries = append(entries, Entry{Row: row.line, Word: w})
	}

	if len(skipped) > 0 {
		return entries, skipped
	}
	return entries, nil
}

func parseRow(row []string) (domain.WordData, error) {
	w := domain.WordData{
		German:         cell(row, colWord),
		Spanish:        cell(row, colTranslation),
		ExampleGerman:  cell(row, colExample),
		ExampleSpanish: cell(row, colExampleTranslation),
	}
	if w.German == "" {
		return w, fmt.Errorf("word cannot be empty")
	}
	if w.Spanish == "" {
		return w, fmt.Errorf("translation cannot be empty")
	}

	if t := strings.ToLower(cell(row, colType)); t != "" {
		switch wt := domain.WordType(t); wt {
		case domain.WordTypeNoun, domain.WordTypeVerb, domain.WordTypeAdjective, domain.WordTypeAdverb, domain.WordTypeOther:
			w.WordType = wt
		default:
			return w, fmt.Errorf("unknown word type %q", t)
		}
	}

	if g := strings.ToLower(cell(row, colGender)); g != "" {
		if g != "der" && g != "die" && g != "das" {
			return w, fmt.Errorf("gender must be der, die or das, got %q", g)
		}
		w.Gender = &g
	}

	if p := cell(row, colPlural); p != "" {
		w.Plural = &p
	}

	return w, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
