package heuristic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
	"datalyst/ports"
)

// maxNarrativeCorrelations bounds how many pairs the report calls out
const maxNarrativeCorrelations = 5

// Narrator renders a deterministic README from a profile, with no model in
// the loop. The same profile always produces the same document.
type Narrator struct{}

// NewNarrator creates a new deterministic narrator
func NewNarrator() *Narrator {
	return &Narrator{}
}

// Synthesize builds the report section by section in profile order
func (n *Narrator) Synthesize(ctx context.Context, p *profile.DatasetProfile) (*ports.Synthesis, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Dataset Analysis for %s\n\n", p.DatasetName)
	fmt.Fprintf(&b, "Total Rows: %d\n", p.RowCount)
	fmt.Fprintf(&b, "Total Columns: %d\n\n", p.ColumnCount)

	n.writeColumns(&b, p)
	n.writeCorrelations(&b, p)
	n.writeOutliers(&b, p)
	n.writeWarnings(&b, p)

	markdown := b.String()
	return &ports.Synthesis{
		Markdown:     markdown,
		Source:       run.NarrativeFallback,
		ResponseHash: core.NewHash([]byte(markdown)),
	}, nil
}

func (n *Narrator) writeColumns(b *strings.Builder, p *profile.DatasetProfile) {
	b.WriteString("## Columns\n\n")
	for _, col := range p.Columns {
		fmt.Fprintf(b, "- **%s** (%s): %d missing (%.1f%%)", col.Name, col.Kind, col.MissingCount, col.MissingFraction*100)
		if col.Summary != nil {
			fmt.Fprintf(b, "; mean %.4g, std %.4g, range [%.4g, %.4g]",
				col.Summary.Mean, col.Summary.StdDev, col.Summary.Min, col.Summary.Max)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (n *Narrator) writeCorrelations(b *strings.Builder, p *profile.DatasetProfile) {
	cols := p.Correlations.Columns
	if len(cols) < 2 {
		return
	}

	type pair struct {
		a, b string
		r    float64
		num  int
	}
	var defined []pair
	undefined := 0
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			cell := p.Correlations.At(i, j)
			if !cell.Defined || cell.R == nil {
				undefined++
				continue
			}
			defined = append(defined, pair{a: cols[i], b: cols[j], r: *cell.R, num: cell.N})
		}
	}

	b.WriteString("## Correlations\n\n")
	if len(defined) == 0 {
		b.WriteString("No defined pairwise correlations.\n\n")
		return
	}

	sort.Slice(defined, func(i, j int) bool {
		ri, rj := math.Abs(defined[i].r), math.Abs(defined[j].r)
		if ri != rj {
			return ri > rj
		}
		if defined[i].a != defined[j].a {
			return defined[i].a < defined[j].a
		}
		return defined[i].b < defined[j].b
	})
	if len(defined) > maxNarrativeCorrelations {
		defined = defined[:maxNarrativeCorrelations]
	}

	b.WriteString("Strongest pairwise relationships:\n\n")
	for _, pr := range defined {
		fmt.Fprintf(b, "- %s and %s: r = %.3f over %d rows\n", pr.a, pr.b, pr.r, pr.num)
	}
	if undefined > 0 {
		fmt.Fprintf(b, "\n%d pair(s) had no defined correlation.\n", undefined)
	}
	b.WriteString("\n")
}

func (n *Narrator) writeOutliers(b *strings.Builder, p *profile.DatasetProfile) {
	numeric := p.NumericColumns()
	if len(numeric) == 0 {
		return
	}

	var lines []string
	for _, name := range numeric {
		o, ok := p.Outliers.For(name)
		if !ok || o.Count == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %d outlier(s) (%.1f%% of present values)",
			o.Column, o.Count, o.Fraction*100))
	}

	b.WriteString("## Outliers\n\n")
	if len(lines) == 0 {
		b.WriteString("No outliers detected by the 1.5 IQR rule.\n\n")
		return
	}
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func (n *Narrator) writeWarnings(b *strings.Builder, p *profile.DatasetProfile) {
	if len(p.Warnings) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")
	for _, w := range p.Warnings {
		if w.Column != "" {
			fmt.Fprintf(b, "- %s (%s)", w.Code, w.Column)
		} else {
			fmt.Fprintf(b, "- %s", w.Code)
		}
		if w.Detail != "" {
			fmt.Fprintf(b, ": %s", w.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
