// Package drift detects distributional divergence between live input and
// the training-time reference samples. Each monitored feature gets a
// two-sample Kolmogorov-Smirnov test; the request-level verdict is the OR
// over features, so any single feature's shift trips the alarm.
package drift

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"driftgate/internal/reference"
	"driftgate/internal/schema"
)

// DefaultAlpha is the default significance level for flagging a feature.
const DefaultAlpha = 0.05

// FeatureResult is the test outcome for one feature.
type FeatureResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Drift     bool    `json:"drift"`
}

// Verdict is the per-request drift outcome.
type Verdict struct {
	Drift    bool                     `json:"drift"`
	Features map[string]FeatureResult `json:"features"`
}

// Flagged returns the names of drifting features, sorted.
func (v Verdict) Flagged() []string {
	var out []string
	for name, r := range v.Features {
		if r.Drift {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Detector compares live observations against the reference samples.
// Stateless beyond its immutable configuration; safe for concurrent use.
type Detector struct {
	ref   *reference.Manager
	alpha float64
}

// New returns a detector flagging features whose p-value falls below alpha
// (DefaultAlpha when alpha <= 0).
func New(ref *reference.Manager, alpha float64) *Detector {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &Detector{ref: ref, alpha: alpha}
}

// Alpha returns the configured significance level.
func (d *Detector) Alpha() float64 { return d.alpha }

// Features returns the monitored feature names, sorted.
func (d *Detector) Features() []string { return d.ref.Features() }

// Evaluate runs the test for a single observation per feature. A single
// observation is a degenerate but well-defined live sample; see pValue for
// how its p-value is computed.
func (d *Detector) Evaluate(vec schema.FeatureVector) (Verdict, error) {
	live := make(map[string][]float64, len(vec))
	for name, v := range vec {
		live[name] = []float64{v}
	}
	return d.EvaluateSample(live)
}

// EvaluateSample runs the test for a batch of live observations per
// feature. Any live feature without a reference sample fails the whole
// evaluation with reference.ErrUnknownFeature: silently skipping it would
// mask unmonitored drift.
func (d *Detector) EvaluateSample(live map[string][]float64) (Verdict, error) {
	verdict := Verdict{Features: make(map[string]FeatureResult, len(live))}
	for name, values := range live {
		ref, err := d.ref.Sample(name)
		if err != nil {
			return Verdict{}, err
		}
		if len(values) == 0 {
			return Verdict{}, fmt.Errorf("feature %q: empty live sample", name)
		}
		observed := append([]float64(nil), values...)
		sort.Float64s(observed)

		statistic := stat.KolmogorovSmirnov(ref, nil, observed, nil)
		p := pValue(statistic, len(ref), len(observed))
		r := FeatureResult{Statistic: statistic, PValue: p, Drift: p < d.alpha}
		verdict.Features[name] = r
		verdict.Drift = verdict.Drift || r.Drift
	}
	return verdict, nil
}

// pValue converts a KS statistic into a two-sided p-value.
//
// For a one-observation live sample the statistic is
// max(F(x-), 1-F(x)) against the reference ECDF, and the exact null
// probability of exceeding it is 2(1-d). The asymptotic Kolmogorov series
// cannot reject at any reasonable alpha when one sample has a single
// observation, so the exact form is used whenever min(n1, n2) == 1.
//
// Otherwise the standard asymptotic approximation applies:
// Q(lambda) = 2 * sum_{k>=1} (-1)^(k-1) * exp(-2 k^2 lambda^2) with the
// small-sample correction lambda = (sqrt(en) + 0.12 + 0.11/sqrt(en)) * d.
// A zero-variance reference is a point mass; its ECDF is a single step and
// both branches remain well defined.
func pValue(d float64, n1, n2 int) float64 {
	if d <= 0 {
		return 1
	}
	if min(n1, n2) == 1 {
		return clamp01(2 * (1 - d))
	}
	en := float64(n1) * float64(n2) / float64(n1+n2)
	lambda := (math.Sqrt(en) + 0.12 + 0.11/math.Sqrt(en)) * d

	sum := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
		sign = -sign
	}
	return clamp01(2 * sum)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
