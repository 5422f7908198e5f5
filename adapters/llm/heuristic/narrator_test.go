package heuristic

import (
	"context"
	"strings"
	"testing"

	"datalyst/domain/profile"
	"datalyst/domain/run"
)

func fptr(v float64) *float64 { return &v }

func testProfile() *profile.DatasetProfile {
	return &profile.DatasetProfile{
		DatasetName: "sensors",
		RowCount:    10,
		ColumnCount: 2,
		Columns: []profile.ColumnProfile{
			{Name: "temp", Kind: profile.KindNumeric, PresentCount: 10,
				Summary: &profile.SummaryStats{Mean: 21.5, StdDev: 1.2, Min: 19, Max: 30}},
			{Name: "site", Kind: profile.KindCategorical, PresentCount: 9, MissingCount: 1, MissingFraction: 0.1},
		},
		Correlations: profile.CorrelationMatrix{
			Columns: []string{"temp"},
			Cells: [][]profile.PairwiseCorrelation{
				{{R: fptr(1), N: 10, Defined: true}},
			},
		},
		Outliers: profile.OutlierReport{
			Columns: map[string]profile.ColumnOutliers{
				"temp": {Column: "temp", Sufficient: true, PresentCount: 10,
					Count: 1, Fraction: 0.1, Values: []float64{30}},
			},
		},
		Warnings: []profile.Warning{
			{Code: profile.WarningLowVariance, Column: "temp"},
		},
	}
}

func TestNarrator_Synthesize(t *testing.T) {
	narrator := NewNarrator()

	syn, err := narrator.Synthesize(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if syn.Source != run.NarrativeFallback {
		t.Errorf("Expected fallback source, got %s", syn.Source)
	}
	if !strings.HasPrefix(syn.Markdown, "# Dataset Analysis for sensors") {
		t.Errorf("Unexpected opening: %q", syn.Markdown[:40])
	}
	for _, section := range []string{"## Columns", "## Outliers", "## Warnings"} {
		if !strings.Contains(syn.Markdown, section) {
			t.Errorf("Expected section %s", section)
		}
	}
	if !strings.Contains(syn.Markdown, "temp: 1 outlier(s)") {
		t.Errorf("Expected outlier line, got:\n%s", syn.Markdown)
	}
	if syn.ResponseHash.IsEmpty() {
		t.Error("Expected response hash to be set")
	}
}

func TestNarrator_Deterministic(t *testing.T) {
	narrator := NewNarrator()

	first, err := narrator.Synthesize(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, err := narrator.Synthesize(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if first.Markdown != second.Markdown {
		t.Error("Expected identical narratives for identical profiles")
	}
	if !first.ResponseHash.Equals(second.ResponseHash) {
		t.Error("Expected identical response hashes")
	}
}

func TestNarrator_NoCorrelationSection(t *testing.T) {
	narrator := NewNarrator()
	p := testProfile()
	p.Correlations = profile.CorrelationMatrix{Columns: []string{"temp"}}

	syn, err := narrator.Synthesize(context.Background(), p)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	// A single numeric column has no pairs to report.
	if strings.Contains(syn.Markdown, "## Correlations") {
		t.Error("Expected no correlation section for a single numeric column")
	}
}
