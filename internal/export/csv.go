// Package export flattens patient records into the study's CSV exchange
// format. Output is byte-deterministic: identical inputs always produce
// identical files.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nidipo/portal/internal/intake"
)

// Row is one patient record to export: the immutable core fields plus the
// dynamic form value bag.
type Row struct {
	PatientID  string
	Age        int
	Sex        string
	CenterID   int64
	CenterName string
	DateAdded  time.Time
	Form       intake.Bag
}

// coreHeaders are the fixed leading columns.
var coreHeaders = []string{"Patient ID", "Age", "Sex", "Center", "Date Added"}

// FieldOrder flattens the section configuration into the export column order,
// expanding the monitoring table into its 42 glucose keys in the fixed
// day/slot order.
func FieldOrder(sections []intake.Section) []string {
	var order []string
	for _, sec := range sections {
		for _, f := range sec.Fields {
			if f.Type == intake.FieldMonitoringTable {
				order = append(order, intake.GridKeys()...)
				continue
			}
			order = append(order, f.ID)
		}
	}
	return order
}

// WriteCSV writes the header row and one data row per record. List values
// are joined with "; " and absent values become empty strings. The core
// identity fields back-fill their form-field columns when the bag lacks them.
// Rows are newline-separated with no trailing newline, matching the files
// the study has collected so far.
func WriteCSV(w io.Writer, fieldOrder []string, rows []Row) error {
	headers := append(append([]string{}, coreHeaders...), fieldOrder...)
	if err := writeRecord(w, headers); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		record := []string{
			row.PatientID,
			strconv.Itoa(row.Age),
			row.Sex,
			centerName(row),
			row.DateAdded.Format("2006-01-02"),
		}
		for _, fieldID := range fieldOrder {
			record = append(record, resolveField(row, fieldID))
		}
		if err := writeRecord(w, record); err != nil {
			return err
		}
	}
	return nil
}

func centerName(row Row) string {
	if row.CenterName == "" {
		return "N/A"
	}
	return row.CenterName
}

func resolveField(row Row, fieldID string) string {
	if v, ok := row.Form[fieldID]; ok {
		return v.Text()
	}
	switch fieldID {
	case intake.SerialNumberField:
		return row.PatientID
	case intake.AgeField:
		return strconv.Itoa(row.Age)
	case intake.SexField:
		return row.Sex
	case intake.CenterField:
		return strconv.FormatInt(row.CenterID, 10)
	}
	return ""
}

func writeRecord(w io.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, escapeField(f)); err != nil {
			return err
		}
	}
	return nil
}

// escapeField wraps a value in double quotes, doubling internal quotes, when
// it contains a comma, quote, or newline. Values are otherwise passed through
// untouched so the output stays stable across exports.
func escapeField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// Filename returns the download name for an export produced at t, e.g.
// "patients_export_2026-08-29.csv".
func Filename(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, t.Format("2006-01-02"))
}
