package excel

// RawRowData represents a row of raw cell text keyed by header
type RawRowData map[string]string

// ExcelData represents the complete sheet before typing
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
