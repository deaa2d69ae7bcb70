// Package feature computes the learned relevance probability for an
// article: a sentence embedding from an HTTP sidecar is reduced with a
// frozen PCA projection, combined with the category prior, standardized,
// and scored by a frozen gradient-boosted tree model. All three artifacts
// are loaded from a model directory at startup and never retrained in
// process.
package feature

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitryikh/leaves"
	"gonum.org/v1/gonum/mat"

	"github.com/Lilyleeyaa/zp-market-monitoring-v3-share/internal/article"
)

const (
	pcaFileName    = "pca.json"
	scalerFileName = "scaler.json"
	modelFileName  = "lgbm_model.txt"
)

type pcaFile struct {
	Components [][]float64 `json:"components"`
	Mean       []float64   `json:"mean"`
}

type scalerFile struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Artifacts holds the frozen scoring pipeline. Immutable after load and
// safe for concurrent use.
type Artifacts struct {
	components  *mat.Dense
	pcaMean     *mat.VecDense
	scalerMean  []float64
	scalerScale []float64
	model       *leaves.Ensemble

	embedDim int
	pcaDim   int
}

// LoadArtifacts reads the PCA projection, the feature scaler and the
// tree model from dir and cross-checks their dimensions. Any mismatch is
// an error: scoring with misaligned artifacts produces silently wrong
// probabilities.
func LoadArtifacts(dir string) (*Artifacts, error) {
	var pca pcaFile
	if err := readJSON(filepath.Join(dir, pcaFileName), &pca); err != nil {
		return nil, err
	}
	if len(pca.Components) == 0 || len(pca.Mean) == 0 {
		return nil, fmt.Errorf("artifacts: %s has no components or mean", pcaFileName)
	}
	embedDim := len(pca.Mean)
	pcaDim := len(pca.Components)
	flat := make([]float64, 0, pcaDim*embedDim)
	for i, row := range pca.Components {
		if len(row) != embedDim {
			return nil, fmt.Errorf("artifacts: pca component %d has %d values, want %d", i, len(row), embedDim)
		}
		flat = append(flat, row...)
	}

	var scaler scalerFile
	if err := readJSON(filepath.Join(dir, scalerFileName), &scaler); err != nil {
		return nil, err
	}
	featureDim := pcaDim + 1 + len(article.Categories())
	if len(scaler.Mean) != featureDim || len(scaler.Scale) != featureDim {
		return nil, fmt.Errorf("artifacts: scaler covers %d/%d features, want %d",
			len(scaler.Mean), len(scaler.Scale), featureDim)
	}

	model, err := leaves.LGEnsembleFromFile(filepath.Join(dir, modelFileName), true)
	if err != nil {
		return nil, fmt.Errorf("artifacts: load %s: %w", modelFileName, err)
	}
	if model.NFeatures() != featureDim {
		return nil, fmt.Errorf("artifacts: model expects %d features, pipeline produces %d",
			model.NFeatures(), featureDim)
	}

	return &Artifacts{
		components:  mat.NewDense(pcaDim, embedDim, flat),
		pcaMean:     mat.NewVecDense(embedDim, pca.Mean),
		scalerMean:  scaler.Mean,
		scalerScale: scaler.Scale,
		model:       model,
		embedDim:    embedDim,
		pcaDim:      pcaDim,
	}, nil
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("artifacts: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("artifacts: parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// EmbeddingDim is the vector size the PCA projection was fitted on.
func (a *Artifacts) EmbeddingDim() int { return a.embedDim }

// Probability runs the full frozen pipeline for one article.
func (a *Artifacts) Probability(embedding []float64, domainScore int, cat article.Category) (float64, error) {
	projected, err := a.project(embedding)
	if err != nil {
		return 0, err
	}
	features := a.featureVector(projected, domainScore, cat)
	a.scale(features)
	return a.model.PredictSingle(features, 0), nil
}

// project centers the embedding on the fitted mean and applies the
// component matrix.
func (a *Artifacts) project(embedding []float64) ([]float64, error) {
	if len(embedding) != a.embedDim {
		return nil, fmt.Errorf("artifacts: embedding has %d dims, projection fitted on %d", len(embedding), a.embedDim)
	}
	centered := mat.NewVecDense(a.embedDim, nil)
	centered.SubVec(mat.NewVecDense(a.embedDim, embedding), a.pcaMean)

	out := mat.NewVecDense(a.pcaDim, nil)
	out.MulVec(a.components, centered)
	return out.RawVector().Data, nil
}

// featureVector lays out [pca..., domainScore, oneHot(category)...]. The
// category order is the fixed enumeration order; changing it invalidates
// the frozen scaler and model.
func (a *Artifacts) featureVector(projected []float64, domainScore int, cat article.Category) []float64 {
	features := make([]float64, 0, a.pcaDim+1+len(article.Categories()))
	features = append(features, projected...)
	features = append(features, float64(domainScore))
	for _, c := range article.Categories() {
		if c == cat {
			features = append(features, 1)
		} else {
			features = append(features, 0)
		}
	}
	return features
}

func (a *Artifacts) scale(features []float64) {
	for i := range features {
		if a.scalerScale[i] == 0 {
			features[i] = 0
			continue
		}
		features[i] = (features[i] - a.scalerMean[i]) / a.scalerScale[i]
	}
}
