package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// Loader reads planning datasets from JSON, a directory of CSV files or an
// XLSX workbook. The CSV files and workbook sheets share the same tables.
type Loader struct{}

// NewLoader creates a new dataset loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadJSON reads a dataset from a JSON file
func (l *Loader) LoadJSON(filename string) (*entities.Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file %s: %w", filename, err)
	}
	defer file.Close()
	return l.DecodeJSON(file)
}

// DecodeJSON reads a dataset from a JSON stream, rejecting unknown fields
func (l *Loader) DecodeJSON(r io.Reader) (*entities.Dataset, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	var ds entities.Dataset
	if err := decoder.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset JSON: %w", err)
	}
	return &ds, nil
}

// LoadCSVDir reads horizon.csv, products.csv, suppliers.csv, offers.csv and
// the optional demand.csv from dir.
func (l *Loader) LoadCSVDir(dir string) (*entities.Dataset, error) {
	tables := make(map[string][][]string, len(headers))
	for name := range headers {
		filename := filepath.Join(dir, name+".csv")
		records, err := readCSV(filename)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tables[name] = records
	}

	ds, err := buildDataset(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to load CSV dataset from %s: %w", dir, err)
	}
	return ds, nil
}

func readCSV(filename string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return records, nil
}

// LoadWorkbook reads a dataset from an XLSX file with one sheet per table
func (l *Loader) LoadWorkbook(filename string) (*entities.Dataset, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", filename, err)
	}
	return l.DecodeWorkbook(bytes.NewReader(data))
}

// DecodeWorkbook reads a dataset from an XLSX stream
func (l *Loader) DecodeWorkbook(r io.Reader) (*entities.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()

	tables := make(map[string][][]string, len(headers))
	for _, sheet := range f.GetSheetList() {
		expected, ok := headers[sheet]
		if !ok {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		tables[sheet] = padRows(rows, len(expected))
	}

	ds, err := buildDataset(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to load workbook dataset: %w", err)
	}
	return ds, nil
}

// padRows restores the trailing empty cells excelize drops and skips blank rows
func padRows(rows [][]string, width int) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		for len(row) < width {
			row = append(row, "")
		}
		out = append(out, row)
	}
	return out
}
