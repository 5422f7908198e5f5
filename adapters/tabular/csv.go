package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV parses a CSV file into raw string rows. Rows may vary in width;
// the dataset builder normalizes them against the header.
func readCSV(path string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(decodeText(b)))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	return rows, nil
}

// decodeText returns UTF-8 text for raw file bytes, trying UTF-8 first, then
// Windows-1252 (the usual spreadsheet-export encoding), then Latin-1 as the
// terminal fallback that accepts any byte sequence. A leading BOM is dropped.
func decodeText(b []byte) []byte {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return b
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(b); err == nil {
		return decoded
	}
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return decoded
}
