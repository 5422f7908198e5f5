package dataset

import (
	"errors"
	"testing"

	"datalyst/domain/core"
)

// TestNewValidDataset tests construction with a well-formed shape
func TestNewValidDataset(t *testing.T) {
	ds, err := New("orders", []string{"id", "amount"}, [][]Cell{
		{Value("1"), Value("10.5")},
		{Value("2"), Absent()},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ds.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", ds.RowCount())
	}
	if ds.ColumnCount() != 2 {
		t.Errorf("Expected 2 columns, got %d", ds.ColumnCount())
	}
}

// TestNewRejectsRaggedRows tests that rows missing cells are rejected
func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New("bad", []string{"a", "b"}, [][]Cell{
		{Value("1"), Value("2")},
		{Value("3")},
	})
	if err == nil {
		t.Fatal("Expected error for ragged row, got none")
	}
	if !errors.Is(err, core.ErrDatasetInvalid) {
		t.Errorf("Expected ErrDatasetInvalid, got %v", err)
	}
}

// TestNewRejectsDuplicateColumns tests duplicate column name rejection
func TestNewRejectsDuplicateColumns(t *testing.T) {
	_, err := New("bad", []string{"a", "a"}, nil)
	if err == nil {
		t.Fatal("Expected error for duplicate column names, got none")
	}
	if !errors.Is(err, core.ErrDatasetInvalid) {
		t.Errorf("Expected ErrDatasetInvalid, got %v", err)
	}
}

// TestNewRejectsBlankColumns tests blank column name rejection
func TestNewRejectsBlankColumns(t *testing.T) {
	_, err := New("bad", []string{"a", "  "}, nil)
	if err == nil {
		t.Fatal("Expected error for blank column name, got none")
	}
}

// TestAbsentDistinctFromEmptyString tests that absence is not the empty string
func TestAbsentDistinctFromEmptyString(t *testing.T) {
	empty := Value("")
	absent := Absent()

	if !empty.Present {
		t.Error("Expected empty-string cell to be present")
	}
	if absent.Present {
		t.Error("Expected absent cell to not be present")
	}
	if empty == absent {
		t.Error("Expected empty-string cell and absent cell to differ")
	}

	zero := Value("0")
	if !zero.Present || zero.Raw != "0" {
		t.Error("Expected zero-valued cell to be present with raw text preserved")
	}
}

// TestColumnExtraction tests column access in row order
func TestColumnExtraction(t *testing.T) {
	ds, err := New("t", []string{"x", "y"}, [][]Cell{
		{Value("1"), Value("a")},
		{Absent(), Value("b")},
		{Value("3"), Absent()},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	col := ds.Column(0)
	if len(col) != 3 {
		t.Fatalf("Expected 3 cells, got %d", len(col))
	}
	if col[0].Raw != "1" || col[1].Present || col[2].Raw != "3" {
		t.Errorf("Column 0 extracted out of order: %+v", col)
	}

	idx, ok := ds.ColumnIndex("y")
	if !ok || idx != 1 {
		t.Errorf("Expected column y at index 1, got %d (found=%v)", idx, ok)
	}
	if _, ok := ds.ColumnIndex("missing"); ok {
		t.Error("Expected lookup of unknown column to fail")
	}
}
