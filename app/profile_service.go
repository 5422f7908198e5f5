package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
	"datalyst/internal"
	"datalyst/ports"
)

// NarrativeMode selects how run narratives are produced
type NarrativeMode string

const (
	NarrativeModeLLM      NarrativeMode = "llm"      // model synthesis, with optional fallback
	NarrativeModeFallback NarrativeMode = "fallback" // deterministic narrative only
	NarrativeModeOff      NarrativeMode = "off"      // skip narratives entirely
)

// ServiceConfig holds profiling run configuration
type ServiceConfig struct {
	OutDir        string
	NarrativeMode NarrativeMode
	MaxConcurrent int
	Options       profile.Options
}

// ProfileService orchestrates one profiling run end to end: read the source,
// compute the profile, synthesize the narrative, write outputs, and persist
// when a store is configured.
type ProfileService struct {
	reader   ports.DatasetReader
	profiler ports.Profiler
	narrator ports.Narrator
	store    ports.ProfileStore
	logger   *internal.Logger
	config   ServiceConfig
}

// NewProfileService creates a profile service. The narrator may be nil when
// narration is off, and the store may be nil when persistence is not
// configured.
func NewProfileService(reader ports.DatasetReader, profiler ports.Profiler, narrator ports.Narrator, store ports.ProfileStore, logger *internal.Logger, config ServiceConfig) *ProfileService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	if config.OutDir == "" {
		config.OutDir = "out"
	}
	return &ProfileService{
		reader:   reader,
		profiler: profiler,
		narrator: narrator,
		store:    store,
		logger:   logger.WithComponent("ProfileService"),
		config:   config,
	}
}

// RunResult bundles everything produced by one profiling run
type RunResult struct {
	Manifest     *run.RunManifest
	Profile      *profile.DatasetProfile
	Narrative    string
	ProfilePath  string
	ManifestPath string
	ReadmePath   string
}

// BatchResult collects per-file outcomes of a batch run
type BatchResult struct {
	Results  []*RunResult
	Failures map[string]error
}

// ProfileFile runs the full pipeline for a single source file
func (s *ProfileService) ProfileFile(ctx context.Context, path string) (*RunResult, error) {
	startedAt := core.Now()

	ds, err := s.reader.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s.logger.Info("Loaded %s: %d rows x %d columns", ds.Name, ds.RowCount(), ds.ColumnCount())

	p, err := s.profiler.Profile(ds, s.config.Options)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", ds.Name, err)
	}

	narrative, source := s.narrate(ctx, p)

	manifest, err := run.NewRunManifest(path, p, s.config.Options, startedAt)
	if err != nil {
		return nil, fmt.Errorf("manifest for %s: %w", ds.Name, err)
	}
	manifest.NarrativeSource = source

	result := &RunResult{Manifest: manifest, Profile: p, Narrative: narrative}
	if err := s.writeOutputs(result); err != nil {
		return nil, err
	}

	if s.store != nil {
		rec := ports.StoredRun{Manifest: *manifest, Profile: p, Narrative: narrative}
		if err := s.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("store run %s: %w", manifest.RunID, err)
		}
	}

	s.logger.Info("Completed run %s for %s in %dms", manifest.RunID, ds.Name, manifest.DurationMs)
	return result, nil
}

// ProfileBatch profiles many files with at most MaxConcurrent in flight.
// One file failing does not stop the rest; results keep input order.
func (s *ProfileService) ProfileBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	sem := semaphore.NewWeighted(int64(s.config.MaxConcurrent))
	results := make([]*RunResult, len(paths))
	batch := &BatchResult{Failures: make(map[string]error)}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: remaining acquires fail fast, record and move on.
			mu.Lock()
			batch.Failures[path] = err
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer sem.Release(1)

			result, err := s.ProfileFile(ctx, path)
			if err != nil {
				s.logger.Error("Run failed for %s: %v", path, err)
				mu.Lock()
				batch.Failures[path] = err
				mu.Unlock()
				return
			}
			results[i] = result
		}(i, path)
	}
	wg.Wait()

	for _, r := range results {
		if r != nil {
			batch.Results = append(batch.Results, r)
		}
	}
	return batch, nil
}

// narrate produces the run narrative per the configured mode. Synthesis
// failure is not fatal: the run keeps its profile and the manifest records
// that the narrative is missing.
func (s *ProfileService) narrate(ctx context.Context, p *profile.DatasetProfile) (string, run.NarrativeSource) {
	if s.config.NarrativeMode == NarrativeModeOff || s.narrator == nil {
		return "", run.NarrativeDisabled
	}

	syn, err := s.narrator.Synthesize(ctx, p)
	if err != nil {
		s.logger.Warn("Narrative synthesis failed for %s: %v", p.DatasetName, err)
		return "", run.NarrativeFailed
	}
	return syn.Markdown, syn.Source
}

// writeOutputs writes profile.json, manifest.json and README.md into a
// per-dataset directory under OutDir.
func (s *ProfileService) writeOutputs(result *RunResult) error {
	dir := filepath.Join(s.config.OutDir, result.Profile.DatasetName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	profileJSON, err := json.MarshalIndent(result.Profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	result.ProfilePath = filepath.Join(dir, "profile.json")
	if err := os.WriteFile(result.ProfilePath, profileJSON, 0644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	manifestJSON, err := json.MarshalIndent(result.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	result.ManifestPath = filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(result.ManifestPath, manifestJSON, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if result.Narrative != "" {
		result.ReadmePath = filepath.Join(dir, "README.md")
		if err := os.WriteFile(result.ReadmePath, []byte(result.Narrative), 0644); err != nil {
			return fmt.Errorf("write readme: %w", err)
		}
	}
	return nil
}
