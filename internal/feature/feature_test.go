package feature

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
)

func TestEmbedNativeResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Texts) != 2 {
			t.Errorf("got %d texts, want 2", len(req.Texts))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer srv.Close()

	client := NewEmbedClient(srv.URL+"/embed", 0)
	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 0.3 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedOpenAIResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Input) != 2 || len(req.Texts) != 0 {
			t.Errorf("expected input field for /v1/embeddings, got %+v", req)
		}
		// Out of order on purpose; the client must sort by index.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0.9}},
				{"index": 0, "embedding": []float64{0.1}},
			},
		})
	}))
	defer srv.Close()

	client := NewEmbedClient(srv.URL+"/v1/embeddings", 0)
	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.9 {
		t.Fatalf("vectors not reordered by index: %v", vectors)
	}
}

func TestEmbedServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewEmbedClient(srv.URL, 0)
	if _, err := client.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float64{{0.1}}})
	}))
	defer srv.Close()

	client := NewEmbedClient(srv.URL, 0)
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error on count mismatch")
	}
}

func testArtifacts() *Artifacts {
	// 2-dim embeddings projected to 1 component, identity-ish scaler.
	featureDim := 1 + 1 + len(article.Categories())
	mean := make([]float64, featureDim)
	scale := make([]float64, featureDim)
	for i := range scale {
		scale[i] = 1
	}
	return &Artifacts{
		components:  mat.NewDense(1, 2, []float64{1, 0}),
		pcaMean:     mat.NewVecDense(2, []float64{1, 1}),
		scalerMean:  mean,
		scalerScale: scale,
		embedDim:    2,
		pcaDim:      1,
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	a := testArtifacts()
	got, err := a.project([]float64{3, 7})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	// (3-1, 7-1) dotted with (1, 0) is 2.
	if len(got) != 1 || math.Abs(got[0]-2) > 1e-12 {
		t.Fatalf("projection = %v, want [2]", got)
	}

	if _, err := a.project([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestFeatureVectorLayout(t *testing.T) {
	t.Parallel()

	a := testArtifacts()
	features := a.featureVector([]float64{2}, 6, article.CategoryDistribution)
	want := 1 + 1 + len(article.Categories())
	if len(features) != want {
		t.Fatalf("feature vector has %d entries, want %d", len(features), want)
	}
	if features[0] != 2 || features[1] != 6 {
		t.Fatalf("prefix = %v, want [2 6 ...]", features[:2])
	}
	hot := 0
	for _, v := range features[2:] {
		if v == 1 {
			hot++
		}
	}
	if hot != 1 || features[2] != 1 {
		t.Fatalf("one-hot block wrong: %v", features[2:])
	}
}

func TestScaleHandlesZeroVariance(t *testing.T) {
	t.Parallel()

	a := testArtifacts()
	a.scalerMean = []float64{1, 0}
	a.scalerScale = []float64{2, 0}
	features := []float64{5, 9}
	a.scale(features)
	if features[0] != 2 {
		t.Fatalf("scaled[0] = %v, want 2", features[0])
	}
	if features[1] != 0 {
		t.Fatalf("zero-variance feature must scale to 0, got %v", features[1])
	}
}

func TestLoadArtifactsMissingDir(t *testing.T) {
	t.Parallel()

	if _, err := LoadArtifacts(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadArtifactsScalerMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, pcaFileName), pcaFile{
		Components: [][]float64{{1, 0}},
		Mean:       []float64{0, 0},
	})
	writeJSON(t, filepath.Join(dir, scalerFileName), scalerFile{
		Mean:  []float64{0, 0},
		Scale: []float64{1, 1},
	})
	_, err := LoadArtifacts(dir)
	if err == nil || !strings.Contains(err.Error(), "scaler") {
		t.Fatalf("expected scaler dimension error, got %v", err)
	}
}

func TestNilExtractorScoresNothing(t *testing.T) {
	t.Parallel()

	var e *Extractor
	arts := []*article.Article{{Title: "x"}}
	if err := e.Score(context.Background(), arts); err != nil {
		t.Fatalf("nil extractor: %v", err)
	}
	if arts[0].EmbeddingScore != nil {
		t.Fatal("nil extractor must not assign scores")
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
}
