package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
	"datalyst/internal"
	"datalyst/ports"
)

// maxPromptCorrelations bounds how many correlation pairs the prompt carries.
// Wide datasets produce O(k²) pairs; the model only needs the strongest ones.
const maxPromptCorrelations = 10

// Config holds LLM adapter configuration
type Config struct {
	Model           string        // e.g., "gpt-4o-mini"
	APIKey          string        // Bearer token for the completions endpoint
	BaseURL         string        // Optional override (default: https://api.openai.com/v1)
	Temperature     float64       // 0.0-2.0, lower = more deterministic
	MaxTokens       int           // Max tokens in response
	Timeout         time.Duration // Request timeout
	FallbackEnabled bool          // Hand off to the deterministic narrator on failure
}

// NarratorAdapter implements ports.Narrator using an LLM
type NarratorAdapter struct {
	config    Config
	llmClient ports.LLMClient
	fallback  ports.Narrator
	logger    *internal.Logger
}

// NewNarratorAdapter creates a new LLM narrator adapter
func NewNarratorAdapter(config Config, fallback ports.Narrator, logger *internal.Logger) (*NarratorAdapter, error) {
	client, err := newLLMClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return newNarratorAdapter(config, client, fallback, logger), nil
}

// NewNarratorAdapterWithClient wires an explicit client (used in tests)
func NewNarratorAdapterWithClient(config Config, client ports.LLMClient, fallback ports.Narrator, logger *internal.Logger) *NarratorAdapter {
	return newNarratorAdapter(config, client, fallback, logger)
}

func newNarratorAdapter(config Config, client ports.LLMClient, fallback ports.Narrator, logger *internal.Logger) *NarratorAdapter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &NarratorAdapter{
		config:    config,
		llmClient: client,
		fallback:  fallback,
		logger:    logger.WithComponent("Narrator"),
	}
}

// Synthesize asks the model for a README-style narrative of the profile. On
// any LLM failure it hands off to the deterministic fallback when enabled,
// and otherwise reports core.ErrSynthesisUnavailable.
func (n *NarratorAdapter) Synthesize(ctx context.Context, p *profile.DatasetProfile) (*ports.Synthesis, error) {
	prompt, err := n.BuildPrompt(p)
	if err != nil {
		return nil, fmt.Errorf("build narrative prompt: %w", err)
	}

	markdown, llmErr := n.complete(ctx, prompt)
	if llmErr == nil {
		return &ports.Synthesis{
			Markdown:     markdown,
			Source:       run.NarrativeLLM,
			Model:        n.config.Model,
			PromptHash:   core.NewHash([]byte(prompt)),
			ResponseHash: core.NewHash([]byte(markdown)),
		}, nil
	}

	if n.config.FallbackEnabled && n.fallback != nil {
		n.logger.Warn("LLM synthesis failed, using fallback narrative: %v", llmErr)
		return n.fallback.Synthesize(ctx, p)
	}
	return nil, fmt.Errorf("%w: %v", core.ErrSynthesisUnavailable, llmErr)
}

// complete runs one chat completion and normalizes the response
func (n *NarratorAdapter) complete(ctx context.Context, prompt string) (string, error) {
	raw, err := n.llmClient.ChatCompletion(ctx, n.config.Model, prompt, n.config.MaxTokens)
	if err != nil {
		return "", err
	}
	markdown := stripFences(raw)
	if err := validateNarrative(markdown); err != nil {
		return "", err
	}
	return markdown, nil
}

// promptPayload trims the profile to what the model needs: column shapes, the
// strongest correlations and outlier counts. Raw cell values never leave the
// process.
type promptPayload struct {
	DatasetName     string                 `json:"dataset_name"`
	RowCount        int                    `json:"row_count"`
	ColumnCount     int                    `json:"column_count"`
	Columns         []columnForPrompt      `json:"columns"`
	TopCorrelations []correlationForPrompt `json:"top_correlations,omitempty"`
	UndefinedCells  int                    `json:"undefined_correlation_cells,omitempty"`
	Outliers        []outlierForPrompt     `json:"outliers,omitempty"`
	Warnings        []profile.Warning      `json:"warnings,omitempty"`
}

type columnForPrompt struct {
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	MissingCount    int      `json:"missing_count"`
	MissingFraction float64  `json:"missing_fraction"`
	Mean            *float64 `json:"mean,omitempty"`
	StdDev          *float64 `json:"std_dev,omitempty"`
	Min             *float64 `json:"min,omitempty"`
	Max             *float64 `json:"max,omitempty"`
}

type correlationForPrompt struct {
	ColumnA string  `json:"column_a"`
	ColumnB string  `json:"column_b"`
	R       float64 `json:"r"`
	PValue  float64 `json:"p_value"`
	N       int     `json:"n"`
}

type outlierForPrompt struct {
	Column   string  `json:"column"`
	Count    int     `json:"outlier_count"`
	Fraction float64 `json:"outlier_fraction"`
}

// BuildPrompt creates the LLM prompt from a dataset profile
func (n *NarratorAdapter) BuildPrompt(p *profile.DatasetProfile) (string, error) {
	payload := promptPayload{
		DatasetName: p.DatasetName,
		RowCount:    p.RowCount,
		ColumnCount: p.ColumnCount,
		Columns:     make([]columnForPrompt, 0, len(p.Columns)),
		Warnings:    p.Warnings,
	}

	for _, col := range p.Columns {
		c := columnForPrompt{
			Name:            col.Name,
			Kind:            string(col.Kind),
			MissingCount:    col.MissingCount,
			MissingFraction: col.MissingFraction,
		}
		if col.Summary != nil {
			mean, stdDev := col.Summary.Mean, col.Summary.StdDev
			min, max := col.Summary.Min, col.Summary.Max
			c.Mean, c.StdDev, c.Min, c.Max = &mean, &stdDev, &min, &max
		}
		payload.Columns = append(payload.Columns, c)
	}

	payload.TopCorrelations, payload.UndefinedCells = rankCorrelations(p, maxPromptCorrelations)

	for _, name := range p.NumericColumns() {
		o, ok := p.Outliers.For(name)
		if !ok || o.Count == 0 {
			continue
		}
		payload.Outliers = append(payload.Outliers, outlierForPrompt{
			Column:   o.Column,
			Count:    o.Count,
			Fraction: o.Fraction,
		})
	}

	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal prompt data: %w", err)
	}

	prompt := fmt.Sprintf(`You are a data storyteller. Write a compelling narrative about the dataset named '%s'.

Dataset Profile:
%s

Please write a README.md in Markdown that includes:
- A brief description of the data
- Key insights from the analysis (missingness, correlations, outliers)
- Potential implications or recommendations
- A storytelling approach that makes the data engaging

Start with a level-1 heading. Output ONLY the Markdown document, no surrounding commentary or code fences.`,
		p.DatasetName,
		string(jsonData))

	return prompt, nil
}

// rankCorrelations returns the strongest defined cells of the upper triangle
// ordered by |r|, plus the count of undefined cells.
func rankCorrelations(p *profile.DatasetProfile, max int) ([]correlationForPrompt, int) {
	cols := p.Correlations.Columns
	var ranked []correlationForPrompt
	undefined := 0

	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			cell := p.Correlations.At(i, j)
			if !cell.Defined || cell.R == nil {
				undefined++
				continue
			}
			c := correlationForPrompt{ColumnA: cols[i], ColumnB: cols[j], R: *cell.R, N: cell.N}
			if cell.PValue != nil {
				c.PValue = *cell.PValue
			}
			ranked = append(ranked, c)
		}
	}

	sort.Slice(ranked, func(a, b int) bool {
		ra, rb := math.Abs(ranked[a].R), math.Abs(ranked[b].R)
		if ra != rb {
			return ra > rb
		}
		if ranked[a].ColumnA != ranked[b].ColumnA {
			return ranked[a].ColumnA < ranked[b].ColumnA
		}
		return ranked[a].ColumnB < ranked[b].ColumnB
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked, undefined
}

// stripFences unwraps a response the model wrapped in a Markdown code fence
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	idx := strings.Index(trimmed, "\n")
	if idx < 0 {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	trimmed = trimmed[idx+1:]
	if end := strings.LastIndex(trimmed, "```"); end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.TrimSpace(trimmed)
}

// validateNarrative rejects empty responses and responses without a single
// heading, which usually means the model answered in prose instead of
// producing a document.
func validateNarrative(markdown string) error {
	if strings.TrimSpace(markdown) == "" {
		return fmt.Errorf("empty narrative")
	}

	doc := parser.New().Parse([]byte(markdown))
	found := false
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if _, ok := node.(*ast.Heading); ok && entering {
			found = true
			return ast.Terminate
		}
		return ast.GoToNext
	})
	if !found {
		return fmt.Errorf("narrative has no headings")
	}
	return nil
}
