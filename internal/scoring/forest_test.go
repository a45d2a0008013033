package scoring_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"driftgate/internal/schema"
	"driftgate/internal/scoring"
)

const testArtifact = `{
  "features": ["age", "fare"],
  "classes": [0, 1],
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 18, "left": 1, "right": 2},
      {"leaf": true, "proba": [0.2, 0.8]},
      {"leaf": true, "proba": [0.9, 0.1]}
    ]},
    {"nodes": [
      {"feature": 1, "threshold": 50, "left": 1, "right": 2},
      {"leaf": true, "proba": [0.7, 0.3]},
      {"leaf": true, "proba": [0.4, 0.6]}
    ]}
  ]
}`

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func forestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New([]schema.Field{
		{Name: "age", Kind: schema.KindNumeric},
		{Name: "fare", Kind: schema.KindNumeric},
	})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return s
}

func TestForest_Infer(t *testing.T) {
	f, err := scoring.LoadForest(writeArtifact(t, testArtifact), forestSchema(t))
	if err != nil {
		t.Fatalf("LoadForest: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		vec       schema.FeatureVector
		wantLabel int
		wantScore float64
	}{
		{"young cheap fare", schema.FeatureVector{"age": 10, "fare": 10}, 1, 0.55},
		{"adult cheap fare", schema.FeatureVector{"age": 40, "fare": 10}, 0, 0.80},
		{"adult expensive fare", schema.FeatureVector{"age": 40, "fare": 90}, 0, 0.65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Infer(ctx, tt.vec)
			if err != nil {
				t.Fatalf("Infer: %v", err)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %d, want %d", got.Label, tt.wantLabel)
			}
			if math.Abs(got.Score-tt.wantScore) > 1e-9 {
				t.Errorf("Score = %v, want %v", got.Score, tt.wantScore)
			}
		})
	}
}

func TestForest_Infer_SchemaMismatch(t *testing.T) {
	f, err := scoring.LoadForest(writeArtifact(t, testArtifact), forestSchema(t))
	if err != nil {
		t.Fatalf("LoadForest: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name string
		vec  schema.FeatureVector
	}{
		{"missing feature", schema.FeatureVector{"age": 10}},
		{"extra feature", schema.FeatureVector{"age": 10, "fare": 10, "deck": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.Infer(ctx, tt.vec); !errors.Is(err, scoring.ErrSchemaMismatch) {
				t.Errorf("Infer = %v, want ErrSchemaMismatch", err)
			}
		})
	}
}

func TestLoadForest_Errors(t *testing.T) {
	s := forestSchema(t)
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `forest`},
		{"wrong feature order", `{"features":["fare","age"],"classes":[0,1],"trees":[{"nodes":[{"leaf":true,"proba":[1,0]}]}]}`},
		{"wrong cardinality", `{"features":["age"],"classes":[0,1],"trees":[{"nodes":[{"leaf":true,"proba":[1,0]}]}]}`},
		{"no trees", `{"features":["age","fare"],"classes":[0,1],"trees":[]}`},
		{"leaf proba mismatch", `{"features":["age","fare"],"classes":[0,1],"trees":[{"nodes":[{"leaf":true,"proba":[1]}]}]}`},
		{"child out of range", `{"features":["age","fare"],"classes":[0,1],"trees":[{"nodes":[{"feature":0,"threshold":1,"left":5,"right":0}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := scoring.LoadForest(writeArtifact(t, tt.content), s); !errors.Is(err, scoring.ErrConfig) {
				t.Errorf("LoadForest = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoadForest_MissingFile(t *testing.T) {
	_, err := scoring.LoadForest(filepath.Join(t.TempDir(), "none.json"), forestSchema(t))
	if !errors.Is(err, scoring.ErrConfig) {
		t.Errorf("LoadForest = %v, want ErrConfig", err)
	}
}
