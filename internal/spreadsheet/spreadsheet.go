// Package spreadsheet reads the first sheet of an uploaded workbook and
// yields recipient rows.
package spreadsheet

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"sms-gateway/internal/apperr"

	"github.com/xuri/excelize/v2"
)

// Extensions accepted as pending spreadsheet files.
var Extensions = []string{".xlsx", ".xls"}

// IsSpreadsheet reports whether name carries a recognised spreadsheet extension.
func IsSpreadsheet(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Row is one spreadsheet row; index 0 holds column A.
type Row []string

// Cell returns the text of the cell at a column reference, or "" when absent.
func (r Row) Cell(column string) string {
	n, err := excelize.ColumnNameToNumber(column)
	if err != nil || n > len(r) {
		return ""
	}
	return r[n-1]
}

// Sheet holds the rows of the first worksheet, up to the last populated row.
type Sheet struct {
	Name string
	rows []Row
}

// Entry is a row that carries a usable recipient.
type Entry struct {
	Row       int
	Recipient string
	Cells     Row
}

// Stats counts what Each saw. Skipped + Yielded == Total.
type Stats struct {
	Total   int
	Skipped int
	Yielded int
}

// Open parses workbook bytes and loads its first sheet.
func Open(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.E(apperr.ErrNotFound, "workbook has no sheet")
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	rows := make([]Row, len(raw))
	for i, cells := range raw {
		rows[i] = Row(cells)
	}
	return &Sheet{Name: sheets[0], rows: rows}, nil
}

// Len is the number of rows up to the last populated one.
func (s *Sheet) Len() int { return len(s.rows) }

// Each calls fn for every row whose recipient column holds non-blank text,
// in ascending row order. Row numbers are 1-based spreadsheet rows; row 1 is data.
func (s *Sheet) Each(recipientColumn string, fn func(Entry)) Stats {
	var st Stats
	for i, row := range s.rows {
		st.Total++
		recipient := strings.TrimSpace(row.Cell(recipientColumn))
		if recipient == "" {
			st.Skipped++
			continue
		}
		st.Yielded++
		fn(Entry{Row: i + 1, Recipient: recipient, Cells: row})
	}
	return st
}

// Column returns the trimmed, non-blank values of one column.
func (s *Sheet) Column(column string) []string {
	var out []string
	s.Each(column, func(e Entry) {
		out = append(out, e.Recipient)
	})
	return out
}
