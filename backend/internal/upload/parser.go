// ============================================================================
// backend/internal/upload/parser.go
// Tabular parser: spreadsheet/CSV -> ordered rows with one-time coercion
// ============================================================================

package upload

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Required upload columns. Header matching is case-insensitive; cell values
// are taken literally.
const (
	ColumnLRN   = "LRN"
	ColumnGrade = "Grade"

	// Optional echo-back column: the resolved display name, when the
	// template pre-filled it. Ignored by validation.
	ColumnName = "Name"
)

// RequiredColumns lists the columns every upload file must carry.
var RequiredColumns = []string{ColumnLRN, ColumnGrade}

// Row is one parsed upload row. All type coercion happens here, exactly once:
// the LRN is trimmed, the grade cell is parsed to an integer or left nil, and
// the raw cell text is preserved for reporting. Downstream stages never
// re-coerce.
type Row struct {
	LRN      string
	Name     string
	Grade    *int   // nil when the cell is blank, non-numeric, or non-integral
	RawGrade string // cell text as authored, used in failure details
}

// MissingColumnsError is fatal to the whole upload: it names every absent
// required column and no rows are returned alongside it.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("the uploaded file is missing the following required columns: %s",
		strings.Join(e.Columns, ", "))
}

// ParseFile parses an uploaded tabular file by extension. Supported formats
// are .xlsx workbooks and .csv files. Legacy binary .xls is not accepted:
// excelize only reads the OOXML format.
func ParseFile(r io.Reader, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseWorkbook(r)
	case ".csv":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file type: %s (expected .xlsx or .csv)", filename)
	}
}

// ParseWorkbook parses the first sheet of an Excel workbook.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return buildRows(records)
}

// ParseCSV parses a comma-separated upload file.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows tolerated; cells resolved by header index
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return buildRows(records)
}

// buildRows converts raw records into parsed rows. The first record is the
// header; required columns are verified before any data row is touched, and
// a missing column aborts with zero rows.
func buildRows(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, &MissingColumnsError{Columns: RequiredColumns}
	}

	index := make(map[string]int, len(records[0]))
	for i, header := range records[0] {
		key := strings.ToLower(strings.TrimSpace(header))
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	lrnIdx := index[strings.ToLower(ColumnLRN)]
	gradeIdx := index[strings.ToLower(ColumnGrade)]
	nameIdx, hasName := index[strings.ToLower(ColumnName)]

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue // trailing empty spreadsheet rows
		}

		raw := strings.TrimSpace(cellAt(record, gradeIdx))
		row := Row{
			LRN:      strings.TrimSpace(cellAt(record, lrnIdx)),
			Grade:    parseGradeCell(raw),
			RawGrade: raw,
		}
		if hasName {
			row.Name = strings.TrimSpace(cellAt(record, nameIdx))
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseGradeCell coerces a grade cell to an integer. Integral floats such as
// "95.0" (a common spreadsheet artifact) are accepted; anything non-numeric
// or fractional yields nil. Range checking belongs to the validator.
func parseGradeCell(raw string) *int {
	if raw == "" {
		return nil
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return &n
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.Trunc(f) != f {
		return nil
	}
	n := int(f)
	return &n
}

func cellAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
