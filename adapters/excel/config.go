package excel

// ExcelConfig holds configuration for a tabular data source
type ExcelConfig struct {
	FilePath  string `json:"file_path"`
	SheetName string `json:"sheet_name"` // xlsx only; empty means the first sheet
	Delimiter rune   `json:"delimiter"`  // csv only
}

// DefaultExcelConfig returns sensible defaults for survey files
func DefaultExcelConfig(path string) ExcelConfig {
	return ExcelConfig{
		FilePath:  path,
		Delimiter: ',',
	}
}
