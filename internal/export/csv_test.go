package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nidipo/portal/internal/intake"
)

func testRow() Row {
	form := intake.Bag{
		intake.SerialNumberField: intake.String("NDP-001"),
		intake.AgeField:          intake.Number(54),
		intake.SexField:          intake.String("F"),
		"occupation":             intake.String("Trader"),
		"therapy":                intake.List("Metformin", "Insulin"),
		"notes":                  intake.String(`said "better", less thirst`),
	}
	return Row{
		PatientID:  "NDP-001",
		Age:        54,
		Sex:        "F",
		CenterID:   2,
		CenterName: "Lagos General",
		DateAdded:  time.Date(2026, 8, 12, 15, 30, 0, 0, time.UTC),
		Form:       form,
	}
}

func TestFieldOrderExpandsGrid(t *testing.T) {
	order := FieldOrder(intake.DefaultSections())

	// The monitoring table contributes its 42 cell keys, in place.
	count := 0
	for _, id := range order {
		if strings.HasPrefix(id, "glucose_day") {
			count++
		}
	}
	if count != 42 {
		t.Errorf("grid columns = %d, want 42", count)
	}
	for _, id := range order {
		if id == "glucoseMonitoring" {
			t.Error("raw monitoring-table id leaked into the column order")
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	order := FieldOrder(intake.DefaultSections())
	if err := WriteCSV(&buf, order, []Row{testRow()}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	// Rows are newline-separated; the file has no trailing newline.
	if strings.HasSuffix(buf.String(), "\n") {
		t.Error("output ends with a newline")
	}
	lines := strings.Split(buf.String(), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Patient ID,Age,Sex,Center,Date Added,serialNumber,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "NDP-001,54,F,Lagos General,2026-08-12,") {
		t.Errorf("row = %q", lines[1])
	}
	// Lists are joined with "; ".
	if !strings.Contains(lines[1], "Metformin; Insulin") {
		t.Errorf("row lacks joined list: %q", lines[1])
	}
	// A field containing a quote and comma is quoted with doubled quotes.
	if !strings.Contains(lines[1], `"said ""better"", less thirst"`) {
		t.Errorf("row lacks escaped notes: %q", lines[1])
	}
}

func TestWriteCSVCoreFallbacks(t *testing.T) {
	row := testRow()
	// Strip the core fields from the bag; the record columns must backfill.
	delete(row.Form, intake.SerialNumberField)
	delete(row.Form, intake.AgeField)
	delete(row.Form, intake.SexField)
	row.CenterName = ""

	var buf bytes.Buffer
	order := []string{intake.SerialNumberField, intake.AgeField, intake.SexField, intake.CenterField, "missing"}
	if err := WriteCSV(&buf, order, []Row{row}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	// Unknown center renders as N/A; absent non-core fields as empty.
	want := "NDP-001,54,F,N/A,2026-08-12,NDP-001,54,F,2,"
	if lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestEscapeField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"with space", "with space"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
		{`hello, "world"`, `"hello, ""world"""`},
	}
	for _, tt := range tests {
		if got := escapeField(tt.in); got != tt.want {
			t.Errorf("escapeField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteCSVDeterministic(t *testing.T) {
	order := FieldOrder(intake.DefaultSections())
	rows := []Row{testRow(), testRow()}

	var a, b bytes.Buffer
	if err := WriteCSV(&a, order, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if err := WriteCSV(&b, order, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("identical inputs produced different bytes")
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if got := Filename("patients_export", at); got != "patients_export_2026-08-29.csv" {
		t.Errorf("Filename = %q", got)
	}
}
