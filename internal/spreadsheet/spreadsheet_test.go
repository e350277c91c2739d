package spreadsheet

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"sms-gateway/internal/apperr"

	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory xlsx from cell assignments like {"A1": "X"}.
func workbook(t *testing.T, cells map[string]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for ref, v := range cells {
		if err := f.SetCellValue("Sheet1", ref, v); err != nil {
			t.Fatalf("set %s: %v", ref, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestEachSkipsBlankRecipients(t *testing.T) {
	buf := workbook(t, map[string]string{
		"A1": "X", "C1": "111",
		"C2": "   ",
		"A3": "Y", "C3": "222",
		"A5": "Z", "C5": " 333 ",
	})
	sheet, err := Open(buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var got []Entry
	st := sheet.Each("C", func(e Entry) { got = append(got, e) })

	if st.Total != 5 || st.Yielded != 3 || st.Skipped != 2 {
		t.Fatalf("stats = %+v", st)
	}
	if st.Skipped+st.Yielded != st.Total {
		t.Fatalf("stats do not add up: %+v", st)
	}
	wantRows := []int{1, 3, 5}
	wantRecipients := []string{"111", "222", "333"}
	for i, e := range got {
		if e.Row != wantRows[i] || e.Recipient != wantRecipients[i] {
			t.Fatalf("entry %d = row %d recipient %q", i, e.Row, e.Recipient)
		}
	}
	if got[1].Cells.Cell("A") != "Y" {
		t.Fatalf("cells not carried with entry: %v", got[1].Cells)
	}
}

func TestRowCell(t *testing.T) {
	r := Row{"a", "b", "c"}
	cases := map[string]string{"A": "a", "C": "c", "D": "", "AA": "", "1": ""}
	for col, want := range cases {
		if got := r.Cell(col); got != want {
			t.Errorf("Cell(%q) = %q, want %q", col, got, want)
		}
	}
}

func TestColumn(t *testing.T) {
	buf := workbook(t, map[string]string{"A1": "998901", "A2": "", "A3": "998903"})
	sheet, err := Open(buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got, want := sheet.Column("A"), []string{"998901", "998903"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Column = %v, want %v", got, want)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open(strings.NewReader("not a workbook"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestIsSpreadsheet(t *testing.T) {
	for name, want := range map[string]bool{
		"jan.xlsx": true, "OLD.XLS": true, "notes.txt": false, "sent": false, "xlsx": false,
	} {
		if got := IsSpreadsheet(name); got != want {
			t.Errorf("IsSpreadsheet(%q) = %v", name, got)
		}
	}
}
