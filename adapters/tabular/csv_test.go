package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDataReader_CSV(t *testing.T) {
	path := writeTempFile(t, "movies.csv", []byte(
		"title,rating,votes\n"+
			"Alpha,4.5,120\n"+
			"Beta,NA,85\n"+
			"Gamma,3.0,\n"))

	reader := NewDataReader(DefaultOptions(), nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if ds.Name != "movies" {
		t.Errorf("expected dataset name movies, got %s", ds.Name)
	}
	if ds.RowCount() != 3 || ds.ColumnCount() != 3 {
		t.Fatalf("expected 3x3, got %dx%d", ds.RowCount(), ds.ColumnCount())
	}

	if !ds.Rows[0][1].Present || ds.Rows[0][1].Raw != "4.5" {
		t.Errorf("expected present 4.5, got %+v", ds.Rows[0][1])
	}
	if ds.Rows[1][1].Present {
		t.Errorf("NA must map to an absent cell, got %+v", ds.Rows[1][1])
	}
	if ds.Rows[2][2].Present {
		t.Errorf("empty trailing cell must be absent, got %+v", ds.Rows[2][2])
	}
}

func TestDataReader_BOMAndRaggedRows(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte(
		"a,b,c\n"+
			"1,2\n"+
			"4,5,6,7\n")...)
	path := writeTempFile(t, "ragged.csv", content)

	reader := NewDataReader(DefaultOptions(), nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if ds.Columns[0] != "a" {
		t.Errorf("BOM must not leak into the first header, got %q", ds.Columns[0])
	}
	// Short rows pad with absent cells; extra cells are dropped.
	if ds.Rows[0][2].Present {
		t.Errorf("missing trailing cell must be absent, got %+v", ds.Rows[0][2])
	}
	if ds.Rows[1][2].Raw != "6" {
		t.Errorf("expected cell 6, got %+v", ds.Rows[1][2])
	}
	if len(ds.Rows[1]) != 3 {
		t.Errorf("expected exactly 3 cells per row, got %d", len(ds.Rows[1]))
	}
}

func TestDataReader_Windows1252Fallback(t *testing.T) {
	// 0xE9 is é in Windows-1252 and invalid as a standalone UTF-8 byte.
	content := []byte("name,score\ncaf\xe9,3\n")
	path := writeTempFile(t, "latin.csv", content)

	reader := NewDataReader(DefaultOptions(), nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if ds.Rows[0][0].Raw != "café" {
		t.Errorf("expected café after decoding, got %q", ds.Rows[0][0].Raw)
	}
}

func TestDataReader_AbsentMarkers(t *testing.T) {
	path := writeTempFile(t, "markers.csv", []byte(
		"x\nNULL\nNaN\nnone\nN/A\n 0 \n"))

	reader := NewDataReader(DefaultOptions(), nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	for i := 0; i < 4; i++ {
		if ds.Rows[i][0].Present {
			t.Errorf("row %d: marker cell must be absent, got %+v", i, ds.Rows[i][0])
		}
	}
	// Zero is data, never absence.
	if !ds.Rows[4][0].Present || ds.Rows[4][0].Raw != "0" {
		t.Errorf("expected present trimmed 0, got %+v", ds.Rows[4][0])
	}
}

func TestDataReader_CustomMarkers(t *testing.T) {
	path := writeTempFile(t, "custom.csv", []byte("x\n-\nNA\n"))

	reader := NewDataReader(Options{AbsentMarkers: []string{"", "-"}}, nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if ds.Rows[0][0].Present {
		t.Errorf("configured marker must be absent, got %+v", ds.Rows[0][0])
	}
	// NA is not in the custom set, so it stays a present categorical value.
	if !ds.Rows[1][0].Present {
		t.Errorf("NA must stay present under custom markers, got %+v", ds.Rows[1][0])
	}
}

func TestDataReader_HeaderOnly(t *testing.T) {
	path := writeTempFile(t, "header.csv", []byte("a,b\n"))

	reader := NewDataReader(DefaultOptions(), nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if ds.RowCount() != 0 || ds.ColumnCount() != 2 {
		t.Errorf("expected 0x2 dataset, got %dx%d", ds.RowCount(), ds.ColumnCount())
	}
}

func TestDataReader_Errors(t *testing.T) {
	reader := NewDataReader(DefaultOptions(), nil)

	if _, err := reader.Read(context.Background(), filepath.Join(t.TempDir(), "gone.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := writeTempFile(t, "notes.txt", []byte("hello"))
	if _, err := reader.Read(context.Background(), path); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}

// Marker cells become missing counts downstream, not categorical values.
func TestDataReader_MarkersCountAsMissing(t *testing.T) {
	path := writeTempFile(t, "mix.csv", []byte("v\n1\nna\n2\n"))

	reader := NewDataReader(DefaultOptions(), nil)
	ds, err := reader.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	present := 0
	for i := 0; i < ds.RowCount(); i++ {
		if ds.Rows[i][0].Present {
			present++
		}
	}
	if present != 2 {
		t.Errorf("expected 2 present cells, got %d", present)
	}
}
