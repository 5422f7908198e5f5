package tabular

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datalyst/domain/dataset"
	"datalyst/internal"
)

// Options control how raw files become datasets.
type Options struct {
	// AbsentMarkers lists cell texts that map to absent cells, compared
	// case-insensitively after trimming. Any other text is a present value,
	// including "0" and strings of spaces around real content.
	AbsentMarkers []string
}

// DefaultOptions returns the marker set used by common CSV exports
func DefaultOptions() Options {
	return Options{
		AbsentMarkers: []string{"", "na", "n/a", "nan", "null", "none"},
	}
}

// DataReader loads CSV and Excel files into datasets. Absence is decided
// here, once, against the configured marker set; everything downstream
// trusts Cell.Present.
type DataReader struct {
	opts    Options
	markers map[string]bool
	logger  *internal.Logger
}

// NewDataReader creates a data reader that handles both CSV and Excel files
func NewDataReader(opts Options, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	markers := make(map[string]bool, len(opts.AbsentMarkers))
	for _, m := range opts.AbsentMarkers {
		markers[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &DataReader{
		opts:    opts,
		markers: markers,
		logger:  logger.WithComponent("DataReader"),
	}
}

// Read loads one file, dispatching on its extension. The dataset takes its
// name from the file name without the extension.
func (r *DataReader) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var rows [][]string
	var err error
	switch ext {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	ds, err := r.buildDataset(datasetName(path), rows)
	if err != nil {
		return nil, err
	}

	r.logger.Info("%s processed (%d columns, %d rows)", filepath.Base(path), ds.ColumnCount(), ds.RowCount())
	return ds, nil
}

// buildDataset turns raw string rows into a validated dataset. Row 0 is the
// header; short rows are padded with absent cells and cells beyond the header
// width are dropped, so every row carries exactly the declared column set.
func (r *DataReader) buildDataset(name string, raw [][]string) (*dataset.Dataset, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	columns := make([]string, len(raw[0]))
	for j, header := range raw[0] {
		columns[j] = strings.TrimSpace(header)
	}

	rows := make([][]dataset.Cell, 0, len(raw)-1)
	for _, record := range raw[1:] {
		cells := make([]dataset.Cell, len(columns))
		for j := range columns {
			if j >= len(record) {
				cells[j] = dataset.Absent()
				continue
			}
			cells[j] = r.toCell(record[j])
		}
		rows = append(rows, cells)
	}

	return dataset.New(name, columns, rows)
}

// toCell maps one raw cell text to a present or absent cell
func (r *DataReader) toCell(text string) dataset.Cell {
	trimmed := strings.TrimSpace(text)
	if r.markers[strings.ToLower(trimmed)] {
		return dataset.Absent()
	}
	return dataset.Value(trimmed)
}

// datasetName derives the dataset name from the file name
func datasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
