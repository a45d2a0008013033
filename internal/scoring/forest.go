package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"driftgate/internal/schema"
)

// node is one forest node in the flat array layout the training job
// exports: internal nodes carry a split, leaves carry class probabilities.
type node struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Proba     []float64 `json:"proba,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

type forestArtifact struct {
	Features []string `json:"features"`
	Classes  []int    `json:"classes"`
	Trees    []tree   `json:"trees"`
}

// Forest scores a feature vector with an exported random forest: each tree
// votes with its leaf class probabilities, votes are averaged, and the
// highest-probability class wins. Immutable after load; safe for
// concurrent use.
type Forest struct {
	schema   *schema.Schema
	artifact forestArtifact
}

// LoadForest reads and validates the model artifact. The artifact's feature
// list must match the serving schema exactly, in order: the store, the
// training job and the scorer all share one vectorization order.
func LoadForest(path string, s *schema.Schema) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	var art forestArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	if err := validateArtifact(art, s); err != nil {
		return nil, err
	}
	return &Forest{schema: s, artifact: art}, nil
}

func validateArtifact(art forestArtifact, s *schema.Schema) error {
	names := s.Names()
	if len(art.Features) != len(names) {
		return fmt.Errorf("%w: model has %d features, schema declares %d",
			ErrConfig, len(art.Features), len(names))
	}
	for i, name := range art.Features {
		if name != names[i] {
			return fmt.Errorf("%w: model feature %d is %q, schema declares %q",
				ErrConfig, i, name, names[i])
		}
	}
	if len(art.Classes) == 0 {
		return fmt.Errorf("%w: no classes", ErrConfig)
	}
	if len(art.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrConfig)
	}
	for ti, tr := range art.Trees {
		if len(tr.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrConfig, ti)
		}
		for ni, n := range tr.Nodes {
			if n.Leaf {
				if len(n.Proba) != len(art.Classes) {
					return fmt.Errorf("%w: tree %d node %d has %d probabilities, want %d",
						ErrConfig, ti, ni, len(n.Proba), len(art.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(art.Features) {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d", ErrConfig, ti, ni, n.Feature)
			}
			if n.Left < 0 || n.Left >= len(tr.Nodes) || n.Right < 0 || n.Right >= len(tr.Nodes) {
				return fmt.Errorf("%w: tree %d node %d has child out of range", ErrConfig, ti, ni)
			}
		}
	}
	return nil
}

// Features returns the model's feature order.
func (f *Forest) Features() []string {
	return append([]string(nil), f.artifact.Features...)
}

// Infer implements Scorer. The vector is checked against the schema before
// any traversal; a mismatch fails with ErrSchemaMismatch.
func (f *Forest) Infer(ctx context.Context, vec schema.FeatureVector) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	x, err := f.schema.Vectorize(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	avg := make([]float64, len(f.artifact.Classes))
	for ti := range f.artifact.Trees {
		proba, err := f.artifact.Trees[ti].traverse(x)
		if err != nil {
			return Prediction{}, fmt.Errorf("%w: tree %d: %v", ErrInference, ti, err)
		}
		for i, p := range proba {
			avg[i] += p
		}
	}
	best := 0
	for i := range avg {
		avg[i] /= float64(len(f.artifact.Trees))
		if avg[i] > avg[best] {
			best = i
		}
	}
	return Prediction{Label: f.artifact.Classes[best], Score: avg[best]}, nil
}

// traverse walks one tree: x[feature] <= threshold goes left. Depth is
// bounded by the node count to stop on a malformed cyclic artifact.
func (t *tree) traverse(x []float64) ([]float64, error) {
	idx := 0
	for range len(t.Nodes) + 1 {
		n := t.Nodes[idx]
		if n.Leaf {
			return n.Proba, nil
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return nil, fmt.Errorf("no leaf reached after %d steps", len(t.Nodes)+1)
}
