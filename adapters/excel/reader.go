package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dopastat/domain/core"
	"dopastat/domain/dataset"
	"dopastat/internal"
	"dopastat/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	config   ExcelConfig
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ExcelConfig, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{config: config, fileType: fileType, logger: logger.With("loader")}
}

// Load reads the file and types every column
func (r *DataReader) Load(ctx context.Context) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	table, err := BuildTable(data)
	if err != nil {
		return nil, err
	}
	r.logger.Info("dataset dimensions: %d rows x %d columns", table.RowCount(), table.ColumnCount())
	return table, nil
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.config.FilePath)

	if _, err := os.Stat(r.config.FilePath); err != nil {
		return nil, errors.IOError(fmt.Sprintf("opening %s", r.config.FilePath), err)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported file type: %s", r.fileType))
	}
}

// readExcelData reads the configured sheet, or the first one
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.config.FilePath)
	if err != nil {
		return nil, errors.IOError("opening Excel file", err)
	}
	defer f.Close()

	sheet := r.config.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.IOError(fmt.Sprintf("reading sheet %s", sheet), err)
	}
	r.logger.Debug("sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput("Excel file must have at least a header row and one data row")
	}

	return processRows(rows), nil
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, errors.IOError("opening CSV file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = r.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	startTime := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IOError("reading CSV file", err)
	}
	r.logger.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput("CSV file must have at least a header row and one data row")
	}

	return processRows(rows), nil
}

// processRows converts raw string rows into ExcelData format
func processRows(rows [][]string) *ExcelData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		// strip a UTF-8 BOM left by spreadsheet exports
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}
}

// BuildTable types every column: numeric if each non-empty cell parses as a
// float (empty cells become NaN), categorical otherwise
func BuildTable(data *ExcelData) (*dataset.Table, error) {
	if len(data.Rows) == 0 {
		return nil, errors.InvalidInput("no data rows found")
	}

	table := dataset.NewTable(len(data.Rows))
	for _, header := range data.Headers {
		if header == "" {
			continue
		}
		key := core.ColumnKey(header)
		if table.Has(key) {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate column header %q", header))
		}

		labels := make([]string, len(data.Rows))
		for i, row := range data.Rows {
			labels[i] = row[header]
		}

		if values, ok := parseNumeric(labels); ok {
			if err := table.AddNumeric(key, values, false); err != nil {
				return nil, err
			}
			continue
		}
		if err := table.AddCategorical(key, labels, false); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func parseNumeric(labels []string) ([]float64, bool) {
	values := make([]float64, len(labels))
	seen := false
	for i, l := range labels {
		if l == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
		seen = true
	}
	return values, seen
}
