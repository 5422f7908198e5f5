package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
	"datalyst/ports"
)

func fptr(v float64) *float64 { return &v }

func sampleProfile() *profile.DatasetProfile {
	return &profile.DatasetProfile{
		DatasetName: "movies",
		RowCount:    8,
		ColumnCount: 3,
		Columns: []profile.ColumnProfile{
			{Name: "rating", Kind: profile.KindNumeric, PresentCount: 8,
				Summary: &profile.SummaryStats{Mean: 4.1, StdDev: 0.5, Min: 3.0, Max: 5.0}},
			{Name: "votes", Kind: profile.KindNumeric, PresentCount: 7, MissingCount: 1, MissingFraction: 0.125,
				Summary: &profile.SummaryStats{Mean: 120, StdDev: 40, Min: 60, Max: 200}},
			{Name: "title", Kind: profile.KindCategorical, PresentCount: 8},
		},
		Correlations: profile.CorrelationMatrix{
			Columns: []string{"rating", "votes"},
			Cells: [][]profile.PairwiseCorrelation{
				{
					{R: fptr(1), PValue: nil, N: 8, Defined: true},
					{R: fptr(0.82), PValue: fptr(0.012), N: 7, Defined: true},
				},
				{
					{R: fptr(0.82), PValue: fptr(0.012), N: 7, Defined: true},
					{R: fptr(1), PValue: nil, N: 7, Defined: true},
				},
			},
		},
		Outliers: profile.OutlierReport{
			Columns: map[string]profile.ColumnOutliers{
				"rating": {Column: "rating", Sufficient: true, PresentCount: 8},
				"votes": {Column: "votes", Sufficient: true, PresentCount: 7,
					Count: 1, Fraction: 1.0 / 7.0, Values: []float64{200}},
			},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	adapter := NewNarratorAdapterWithClient(Config{Model: "gpt-4o-mini"}, &MockLLMClient{}, nil, nil)

	prompt, err := adapter.BuildPrompt(sampleProfile())
	if err != nil {
		t.Fatalf("BuildPrompt failed: %v", err)
	}

	for _, want := range []string{"movies", "rating", "votes", "README.md", "data storyteller"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	// Raw outlier values stay out of the prompt payload.
	if strings.Contains(prompt, "200") && strings.Contains(prompt, `"values"`) {
		t.Error("Prompt must not carry raw outlier values")
	}
}

func TestSynthesize_LLMSuccess(t *testing.T) {
	mockClient := &MockLLMClient{
		Response: "# Movies Report\n\n## Insights\n\nRatings and votes track each other closely.\n",
	}
	adapter := NewNarratorAdapterWithClient(Config{Model: "gpt-4o-mini", MaxTokens: 1000}, mockClient, nil, nil)

	syn, err := adapter.Synthesize(context.Background(), sampleProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if syn.Source != run.NarrativeLLM {
		t.Errorf("Expected source llm, got %s", syn.Source)
	}
	if syn.Model != "gpt-4o-mini" {
		t.Errorf("Expected model recorded, got %q", syn.Model)
	}
	if syn.PromptHash.IsEmpty() || syn.ResponseHash.IsEmpty() {
		t.Error("Expected audit hashes to be set")
	}
	if mockClient.Calls != 1 {
		t.Errorf("Expected 1 LLM call, got %d", mockClient.Calls)
	}
	if !strings.HasPrefix(syn.Markdown, "# Movies Report") {
		t.Errorf("Unexpected narrative: %q", syn.Markdown)
	}
}

func TestSynthesize_StripsFences(t *testing.T) {
	mockClient := &MockLLMClient{
		Response: "```markdown\n# Fenced Report\n\nBody text.\n```",
	}
	adapter := NewNarratorAdapterWithClient(Config{Model: "gpt-4o-mini"}, mockClient, nil, nil)

	syn, err := adapter.Synthesize(context.Background(), sampleProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if strings.Contains(syn.Markdown, "```") {
		t.Errorf("Expected fences stripped, got %q", syn.Markdown)
	}
	if !strings.HasPrefix(syn.Markdown, "# Fenced Report") {
		t.Errorf("Unexpected narrative: %q", syn.Markdown)
	}
}

func TestSynthesize_Fallback(t *testing.T) {
	mockClient := &MockLLMClient{Error: context.DeadlineExceeded}
	fallback := &stubNarrator{
		synthesis: &ports.Synthesis{Markdown: "# Stub\n", Source: run.NarrativeFallback},
	}
	adapter := NewNarratorAdapterWithClient(Config{Model: "gpt-4o-mini", FallbackEnabled: true}, mockClient, fallback, nil)

	syn, err := adapter.Synthesize(context.Background(), sampleProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if syn.Source != run.NarrativeFallback {
		t.Errorf("Expected fallback source, got %s", syn.Source)
	}
	if fallback.calls != 1 {
		t.Errorf("Expected 1 fallback call, got %d", fallback.calls)
	}
}

func TestSynthesize_NoFallback(t *testing.T) {
	mockClient := &MockLLMClient{Error: context.DeadlineExceeded}
	adapter := NewNarratorAdapterWithClient(Config{Model: "gpt-4o-mini", FallbackEnabled: false}, mockClient, nil, nil)

	_, err := adapter.Synthesize(context.Background(), sampleProfile())
	if !errors.Is(err, core.ErrSynthesisUnavailable) {
		t.Errorf("Expected ErrSynthesisUnavailable, got %v", err)
	}
}

func TestSynthesize_RejectsHeadingless(t *testing.T) {
	mockClient := &MockLLMClient{
		Response: "The dataset looks fine overall, nothing to report.",
	}
	adapter := NewNarratorAdapterWithClient(Config{Model: "gpt-4o-mini"}, mockClient, nil, nil)

	_, err := adapter.Synthesize(context.Background(), sampleProfile())
	if !errors.Is(err, core.ErrSynthesisUnavailable) {
		t.Errorf("Expected ErrSynthesisUnavailable for headingless prose, got %v", err)
	}
}

func TestRankCorrelations(t *testing.T) {
	p := sampleProfile()
	p.Correlations = profile.CorrelationMatrix{
		Columns: []string{"a", "b", "c"},
		Cells: [][]profile.PairwiseCorrelation{
			{
				{R: fptr(1), N: 5, Defined: true},
				{R: fptr(0.3), PValue: fptr(0.4), N: 5, Defined: true},
				{R: fptr(-0.9), PValue: fptr(0.01), N: 5, Defined: true},
			},
			{
				{R: fptr(0.3), PValue: fptr(0.4), N: 5, Defined: true},
				{R: fptr(1), N: 5, Defined: true},
				{Defined: false, Reason: profile.WarningLowVariance, N: 5},
			},
			{
				{R: fptr(-0.9), PValue: fptr(0.01), N: 5, Defined: true},
				{Defined: false, Reason: profile.WarningLowVariance, N: 5},
				{R: fptr(1), N: 5, Defined: true},
			},
		},
	}

	ranked, undefined := rankCorrelations(p, 10)
	if len(ranked) != 2 {
		t.Fatalf("Expected 2 defined pairs, got %d", len(ranked))
	}
	if undefined != 1 {
		t.Errorf("Expected 1 undefined pair, got %d", undefined)
	}
	// Strongest first, by absolute value.
	if ranked[0].ColumnA != "a" || ranked[0].ColumnB != "c" {
		t.Errorf("Expected a/c first, got %s/%s", ranked[0].ColumnA, ranked[0].ColumnB)
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"# Plain\n", "# Plain"},
		{"```markdown\n# Doc\n```", "# Doc"},
		{"```\n# Doc\nbody\n```", "# Doc\nbody"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// stubNarrator implements ports.Narrator for testing
type stubNarrator struct {
	synthesis *ports.Synthesis
	err       error
	calls     int
}

func (s *stubNarrator) Synthesize(ctx context.Context, p *profile.DatasetProfile) (*ports.Synthesis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.synthesis, nil
}
