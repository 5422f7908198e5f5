package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"datalyst/adapters/llm"
	"datalyst/adapters/llm/heuristic"
	"datalyst/adapters/postgres"
	"datalyst/adapters/stats/engine"
	"datalyst/adapters/tabular"
	"datalyst/app"
	"datalyst/domain/profile"
	"datalyst/internal"
	"datalyst/internal/config"
	"datalyst/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "datalyst",
		Short: "Datalyst CLI for profiling tabular datasets",
	}

	rootCmd.AddCommand(
		newProfileCmd(),
		newInspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newProfileCmd() *cobra.Command {
	var (
		outDir            string
		narrativeMode     string
		maxConcurrent     int
		identifierColumns []string
		useStore          bool
	)

	cmd := &cobra.Command{
		Use:   "profile [files...]",
		Short: "Profile tabular files and write reports",
		Long: `Profile one or more CSV/XLSX files: column kinds, missingness,
pairwise correlations and IQR outliers. Each dataset gets a directory under
the output root holding profile.json, manifest.json and README.md.

Narrative selection is controlled by --narrative:
- llm       model synthesis via an OpenAI-compatible endpoint (LLM_API_KEY)
- fallback  deterministic narrative, no network
- off       skip narratives entirely

Example: datalyst profile movies.csv ratings.xlsx --narrative fallback --identifier-columns id`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), args, outDir, narrativeMode, maxConcurrent, identifierColumns, useStore)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: OUT_DIR or ./out)")
	cmd.Flags().StringVar(&narrativeMode, "narrative", "llm", "Narrative mode: llm|fallback|off")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Max files profiled in parallel (default: MAX_CONCURRENT or 4)")
	cmd.Flags().StringSliceVar(&identifierColumns, "identifier-columns", nil, "Numeric columns to exclude from outlier scanning")
	cmd.Flags().BoolVar(&useStore, "store", false, "Persist runs to Postgres (requires DATABASE_URL)")

	return cmd
}

func newInspectCmd() *cobra.Command {
	var identifierColumns []string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Profile a single file and print the results, writing nothing",
		Long: `Inspect profiles one CSV/XLSX file and prints column kinds, summary
statistics, correlations and outliers to stdout. No files are written and no
narrative is synthesized.

Example: datalyst inspect movies.csv --identifier-columns id`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), args[0], identifierColumns)
		},
	}

	cmd.Flags().StringSliceVar(&identifierColumns, "identifier-columns", nil, "Numeric columns to exclude from outlier scanning")

	return cmd
}

func runProfile(ctx context.Context, paths []string, outDir, narrativeMode string, maxConcurrent int, identifierColumns []string, useStore bool) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := internal.NewDefaultLogger()

	if outDir == "" {
		outDir = cfg.Runner.OutDir
	}
	if maxConcurrent <= 0 {
		maxConcurrent = cfg.Runner.MaxConcurrent
	}

	mode := app.NarrativeMode(strings.ToLower(strings.TrimSpace(narrativeMode)))
	narrator, mode, err := buildNarrator(mode, cfg, logger)
	if err != nil {
		return err
	}

	var store ports.ProfileStore
	if useStore {
		if cfg.Database.URL == "" {
			return fmt.Errorf("--store requires DATABASE_URL to be set")
		}
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := postgres.Bootstrap(ctx, db); err != nil {
			return err
		}
		store = postgres.NewProfileStore(db)
	}

	svc := app.NewProfileService(
		tabular.NewDataReader(tabular.DefaultOptions(), logger),
		engine.NewEngine(),
		narrator,
		store,
		logger,
		app.ServiceConfig{
			OutDir:        outDir,
			NarrativeMode: mode,
			MaxConcurrent: maxConcurrent,
			Options:       profile.Options{IdentifierColumns: identifierColumns},
		},
	)

	fmt.Printf("🚀 Profiling %d file(s)...\n", len(paths))
	batch, err := svc.ProfileBatch(ctx, paths)
	if err != nil {
		return err
	}

	for _, result := range batch.Results {
		m := result.Manifest
		fmt.Printf("✅ %s: %d rows x %d columns in %dms (run %s)\n",
			m.DatasetName, m.RowCount, m.ColumnCount, m.DurationMs, m.RunID)
		if len(result.Profile.Warnings) > 0 {
			for _, w := range result.Profile.Warnings {
				if w.Column != "" {
					fmt.Printf("   ⚠️  %s (%s)\n", w.Code, w.Column)
				} else {
					fmt.Printf("   ⚠️  %s\n", w.Code)
				}
			}
		}
	}
	for path, ferr := range batch.Failures {
		fmt.Printf("❌ %s: %v\n", path, ferr)
	}

	if len(batch.Results) > 0 {
		fmt.Printf("\n💾 Outputs saved under %s/\n", outDir)
	}
	if len(batch.Failures) > 0 {
		return fmt.Errorf("%d of %d file(s) failed", len(batch.Failures), len(paths))
	}
	return nil
}

// buildNarrator wires the narrator for the requested mode. An LLM narrator
// that cannot initialize degrades to the deterministic one rather than
// aborting the run.
func buildNarrator(mode app.NarrativeMode, cfg *config.Config, logger *internal.Logger) (ports.Narrator, app.NarrativeMode, error) {
	switch mode {
	case app.NarrativeModeLLM:
		fallback := heuristic.NewNarrator()
		llmNarrator, err := llm.NewNarratorAdapter(llm.Config{
			Model:           cfg.LLM.Model,
			APIKey:          cfg.LLM.APIKey,
			BaseURL:         cfg.LLM.BaseURL,
			Temperature:     cfg.LLM.Temperature,
			MaxTokens:       cfg.LLM.MaxTokens,
			Timeout:         cfg.LLM.Timeout,
			FallbackEnabled: cfg.LLM.FallbackEnabled,
		}, fallback, logger)
		if err != nil {
			fmt.Printf("LLM narrator init failed (%v); falling back to deterministic narrative\n", err)
			return fallback, app.NarrativeModeFallback, nil
		}
		return llmNarrator, mode, nil
	case app.NarrativeModeFallback:
		return heuristic.NewNarrator(), mode, nil
	case app.NarrativeModeOff:
		return nil, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid narrative mode: %s (expected llm|fallback|off)", mode)
	}
}

func runInspect(ctx context.Context, path string, identifierColumns []string) error {
	_ = godotenv.Load()
	logger := internal.NewDefaultLogger()

	reader := tabular.NewDataReader(tabular.DefaultOptions(), logger)
	ds, err := reader.Read(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	p, err := engine.NewEngine().Profile(ds, profile.Options{IdentifierColumns: identifierColumns})
	if err != nil {
		return fmt.Errorf("profiling failed: %w", err)
	}

	fmt.Printf("📊 %s: %d rows x %d columns\n", p.DatasetName, p.RowCount, p.ColumnCount)

	fmt.Printf("\n=== COLUMNS ===\n")
	for _, col := range p.Columns {
		fmt.Printf("%-24s %-16s missing %d (%.1f%%)", col.Name, col.Kind, col.MissingCount, col.MissingFraction*100)
		if col.Summary != nil {
			fmt.Printf(" | mean %.4g std %.4g min %.4g max %.4g", col.Summary.Mean, col.Summary.StdDev, col.Summary.Min, col.Summary.Max)
		}
		fmt.Println()
	}

	numeric := p.Correlations.Columns
	if len(numeric) >= 2 {
		fmt.Printf("\n=== CORRELATIONS ===\n")
		for i := 0; i < len(numeric); i++ {
			for j := i + 1; j < len(numeric); j++ {
				cell := p.Correlations.At(i, j)
				if !cell.Defined {
					fmt.Printf("%s ↔ %s: undefined (%s, n=%d)\n", numeric[i], numeric[j], cell.Reason, cell.N)
					continue
				}
				pStr := "N/A"
				if cell.PValue != nil {
					pStr = fmt.Sprintf("%.4f", *cell.PValue)
				}
				fmt.Printf("%s ↔ %s: r=%.3f p=%s n=%d\n", numeric[i], numeric[j], *cell.R, pStr, cell.N)
			}
		}
	}

	if len(numeric) > 0 {
		fmt.Printf("\n=== OUTLIERS (1.5 IQR) ===\n")
		for _, name := range numeric {
			o, ok := p.Outliers.For(name)
			if !ok {
				continue
			}
			switch {
			case o.Skipped:
				fmt.Printf("%s: skipped (identifier column)\n", name)
			case !o.Sufficient:
				fmt.Printf("%s: insufficient data (%d present values)\n", name, o.PresentCount)
			case o.Count == 0:
				fmt.Printf("%s: none\n", name)
			default:
				fmt.Printf("%s: %d outlier(s) (%.1f%%), fences [%.4g, %.4g]\n",
					name, o.Count, o.Fraction*100, *o.LowerFence, *o.UpperFence)
			}
		}
	}

	if len(p.Warnings) > 0 {
		fmt.Printf("\n=== WARNINGS ===\n")
		for _, w := range p.Warnings {
			if w.Column != "" {
				fmt.Printf("⚠️  %s (%s)", w.Code, w.Column)
			} else {
				fmt.Printf("⚠️  %s", w.Code)
			}
			if w.Detail != "" {
				fmt.Printf(": %s", w.Detail)
			}
			fmt.Println()
		}
	}

	return nil
}
