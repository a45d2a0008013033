package drift_test

import (
	"errors"
	"testing"

	"driftgate/internal/drift"
	"driftgate/internal/reference"
	"driftgate/internal/schema"

	"github.com/google/go-cmp/cmp"
)

// fareSample spreads 1000 observations evenly across [0, 100].
func fareSample() []float64 {
	out := make([]float64, 1000)
	for i := range out {
		out[i] = float64(i) / 10
	}
	return out
}

func fareDetector(t *testing.T) *drift.Detector {
	t.Helper()
	ref, err := reference.Load(map[string][]float64{"fare": fareSample()}, 0)
	if err != nil {
		t.Fatalf("reference.Load: %v", err)
	}
	return drift.New(ref, 0)
}

func TestEvaluate_InRangeObservation_NoDrift(t *testing.T) {
	d := fareDetector(t)
	verdict, err := d.Evaluate(schema.FeatureVector{"fare": 30})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if verdict.Drift {
		t.Errorf("fare=30 inside reference support flagged as drift: %+v", verdict.Features["fare"])
	}
}

func TestEvaluate_DisjointSupport_Drifts(t *testing.T) {
	d := fareDetector(t)
	verdict, err := d.Evaluate(schema.FeatureVector{"fare": -500})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !verdict.Drift {
		t.Fatalf("fare=-500 outside reference support not flagged: %+v", verdict.Features["fare"])
	}
	if diff := cmp.Diff([]string{"fare"}, verdict.Flagged()); diff != "" {
		t.Errorf("Flagged mismatch:\n%s", diff)
	}
	r := verdict.Features["fare"]
	if r.Statistic != 1 {
		t.Errorf("statistic = %v, want 1 for disjoint support", r.Statistic)
	}
}

func TestEvaluateSample_IdenticalToReference_NoDrift(t *testing.T) {
	d := fareDetector(t)
	verdict, err := d.EvaluateSample(map[string][]float64{"fare": fareSample()})
	if err != nil {
		t.Fatalf("EvaluateSample: %v", err)
	}
	r := verdict.Features["fare"]
	if verdict.Drift || r.Statistic != 0 || r.PValue != 1 {
		t.Errorf("identical samples: drift=%v statistic=%v p=%v, want false/0/1",
			verdict.Drift, r.Statistic, r.PValue)
	}
}

func TestEvaluateSample_ShiftedBatch_Drifts(t *testing.T) {
	d := fareDetector(t)
	live := make([]float64, 50)
	for i := range live {
		live[i] = 500 + float64(i) // far outside [0, 100]
	}
	verdict, err := d.EvaluateSample(map[string][]float64{"fare": live})
	if err != nil {
		t.Fatalf("EvaluateSample: %v", err)
	}
	if !verdict.Drift {
		t.Errorf("shifted batch not flagged: %+v", verdict.Features["fare"])
	}
}

func TestEvaluate_UnknownFeature_FailsWholeEvaluation(t *testing.T) {
	d := fareDetector(t)
	_, err := d.Evaluate(schema.FeatureVector{"fare": 30, "cabin": 1})
	if !errors.Is(err, reference.ErrUnknownFeature) {
		t.Errorf("Evaluate = %v, want ErrUnknownFeature", err)
	}
}

// A zero-variance reference is a point mass; the test stays well defined.
func TestEvaluate_PointMassReference(t *testing.T) {
	constant := make([]float64, 30)
	for i := range constant {
		constant[i] = 5
	}
	ref, err := reference.Load(map[string][]float64{"flag": constant}, 0)
	if err != nil {
		t.Fatalf("reference.Load: %v", err)
	}
	d := drift.New(ref, 0)

	same, err := d.Evaluate(schema.FeatureVector{"flag": 5})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if same.Drift {
		t.Errorf("observation equal to point mass flagged: %+v", same.Features["flag"])
	}

	off, err := d.Evaluate(schema.FeatureVector{"flag": 9})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !off.Drift {
		t.Errorf("observation off the point mass not flagged: %+v", off.Features["flag"])
	}
}

func TestNew_DefaultAlpha(t *testing.T) {
	d := fareDetector(t)
	if d.Alpha() != drift.DefaultAlpha {
		t.Errorf("Alpha = %v, want %v", d.Alpha(), drift.DefaultAlpha)
	}
}

func TestEvaluateSample_EmptyLiveSample(t *testing.T) {
	d := fareDetector(t)
	if _, err := d.EvaluateSample(map[string][]float64{"fare": nil}); err == nil {
		t.Error("empty live sample should fail")
	}
}
