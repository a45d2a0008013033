// Package scoring wraps the externally trained classifier behind one
// inference call. The model artifact is a JSON export of a random forest
// produced by the training pipeline; this package only traverses it.
package scoring

import (
	"context"
	"errors"

	"driftgate/internal/schema"
)

var (
	// ErrSchemaMismatch reports input that does not match the model's
	// declared feature schema. Checked before traversal: feeding a model
	// misordered features would produce garbage, not an error.
	ErrSchemaMismatch = errors.New("input does not match model schema")
	// ErrConfig reports a missing or corrupt model artifact.
	ErrConfig = errors.New("invalid model artifact")
	// ErrInference reports a failure while scoring a valid input.
	ErrInference = errors.New("inference failed")
)

// Prediction is one classifier output: the predicted class label and the
// model's probability for it.
type Prediction struct {
	Label int     `json:"label"`
	Score float64 `json:"score"`
}

// Scorer is the opaque inference contract consumed by the serving loop.
type Scorer interface {
	Infer(ctx context.Context, vec schema.FeatureVector) (Prediction, error)
}
