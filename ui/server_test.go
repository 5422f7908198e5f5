package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
	"datalyst/ports"
)

// memStore is an in-memory ProfileStore for handler tests
type memStore struct {
	runs map[core.RunID]ports.StoredRun
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[core.RunID]ports.StoredRun)}
}

func (m *memStore) Save(ctx context.Context, rec ports.StoredRun) error {
	m.runs[rec.Manifest.RunID] = rec
	return nil
}

func (m *memStore) Get(ctx context.Context, id core.RunID) (*ports.StoredRun, error) {
	rec, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	return &rec, nil
}

func (m *memStore) List(ctx context.Context, limit, offset int) ([]run.RunManifest, error) {
	var out []run.RunManifest
	for _, rec := range m.runs {
		out = append(out, rec.Manifest)
	}
	return out, nil
}

func storedRun(narrative string) ports.StoredRun {
	return ports.StoredRun{
		Manifest: run.RunManifest{
			RunID:           core.NewRunID(),
			DatasetName:     "readings",
			SourcePath:      "data/readings.csv",
			RowCount:        5,
			ColumnCount:     2,
			Fingerprint:     core.NewFingerprint([]byte("readings")),
			NarrativeSource: run.NarrativeLLM,
			StartedAt:       core.Now(),
			CompletedAt:     core.Now(),
		},
		Profile: &profile.DatasetProfile{
			DatasetName: "readings",
			RowCount:    5,
			ColumnCount: 2,
			Columns: []profile.ColumnProfile{
				{Name: "temp", Kind: profile.KindNumeric, PresentCount: 5},
				{Name: "site", Kind: profile.KindCategorical, PresentCount: 5},
			},
			Outliers: profile.OutlierReport{Columns: map[string]profile.ColumnOutliers{}},
		},
		Narrative: narrative,
	}
}

func TestServer_Health(t *testing.T) {
	srv := httptest.NewServer(NewServer(newMemStore(), nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
	if body["store_configured"] != true {
		t.Errorf("expected store_configured true, got %v", body["store_configured"])
	}
}

func TestServer_NoStore(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil, nil).Router())
	defer srv.Close()

	// Health stays green without a store.
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for health, got %d", resp.StatusCode)
	}

	// Profile endpoints report missing persistence.
	resp, err = http.Get(srv.URL + "/api/profiles")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a store, got %d", resp.StatusCode)
	}
}

func TestServer_ListProfiles(t *testing.T) {
	store := newMemStore()
	store.Save(context.Background(), storedRun("# Readings\n"))

	srv := httptest.NewServer(NewServer(store, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/profiles?limit=10")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Runs  []run.RunManifest `json:"runs"`
		Count int               `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if body.Count != 1 || len(body.Runs) != 1 {
		t.Fatalf("expected 1 run, got count=%d len=%d", body.Count, len(body.Runs))
	}
	if body.Runs[0].DatasetName != "readings" {
		t.Errorf("unexpected manifest: %+v", body.Runs[0])
	}
}

func TestServer_GetProfile(t *testing.T) {
	store := newMemStore()
	rec := storedRun("# Readings\n")
	store.Save(context.Background(), rec)

	srv := httptest.NewServer(NewServer(store, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/profiles/" + rec.Manifest.RunID.String())
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got ports.StoredRun
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if got.Profile == nil || got.Profile.DatasetName != "readings" {
		t.Errorf("unexpected profile payload: %+v", got.Profile)
	}
}

func TestServer_GetProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(NewServer(newMemStore(), nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/profiles/" + core.NewRunID().String())
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_Readme(t *testing.T) {
	store := newMemStore()
	rec := storedRun("# Readings Report\n\nBody.\n")
	store.Save(context.Background(), rec)

	srv := httptest.NewServer(NewServer(store, nil).Router())
	defer srv.Close()

	base := srv.URL + "/api/profiles/" + rec.Manifest.RunID.String() + "/readme"

	resp, err := http.Get(base)
	if err != nil {
		t.Fatalf("readme request: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(string(raw), "# Readings Report") {
		t.Errorf("unexpected markdown body: %q", string(raw))
	}

	// HTML rendering via ?format=html
	resp, err = http.Get(base + "?format=html")
	if err != nil {
		t.Fatalf("readme html request: %v", err)
	}
	raw, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	html := string(raw)
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("expected html content type, got %s", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(html, "<h1") {
		t.Errorf("expected rendered heading, got %q", html)
	}
}

func TestServer_ReadmeMissingNarrative(t *testing.T) {
	store := newMemStore()
	rec := storedRun("")
	store.Save(context.Background(), rec)

	srv := httptest.NewServer(NewServer(store, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/profiles/" + rec.Manifest.RunID.String() + "/readme")
	if err != nil {
		t.Fatalf("readme request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing narrative, got %d", resp.StatusCode)
	}
}
