// Package serving composes store lookup, inference, drift evaluation and
// metric emission into one request/response cycle.
package serving

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"driftgate/adapters/store"
	"driftgate/internal/drift"
	"driftgate/internal/metrics"
	"driftgate/internal/schema"
	"driftgate/internal/scoring"
)

// Request is the single serving request type: either raw feature fields or
// an entity id referencing a precomputed vector in the feature store. When
// both are present the raw features win.
type Request struct {
	EntityID string             `json:"entity_id,omitempty"`
	Features map[string]float64 `json:"features,omitempty"`
}

// Response is a complete prediction. Drift is present when drift
// evaluation succeeded; its absence means the monitor errored, not that
// the input was clean.
type Response struct {
	EntityID string         `json:"entity_id,omitempty"`
	Label    int            `json:"label"`
	Score    float64        `json:"score"`
	Drift    *drift.Verdict `json:"drift,omitempty"`
}

// Pipeline runs the per-request stages. All collaborators are immutable or
// internally synchronized, so one Pipeline serves concurrent requests.
type Pipeline struct {
	schema   *schema.Schema
	store    store.Store // nil: requests must carry raw features
	scorer   scoring.Scorer
	detector *drift.Detector // nil: drift monitoring disabled
	sink     *metrics.Sink
	log      *slog.Logger
}

// NewPipeline wires the serving collaborators. Store and detector may be
// nil; scorer, schema and sink are required.
func NewPipeline(s *schema.Schema, st store.Store, sc scoring.Scorer, det *drift.Detector, sink *metrics.Sink, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{schema: s, store: st, scorer: sc, detector: det, sink: sink, log: log}
}

// Predict runs one request through the five stages: validate, resolve
// features, infer, evaluate drift, emit metrics. Stages are strictly
// sequential with fail-fast abort, except drift evaluation, which is
// best-effort observability: its failure is logged and the prediction is
// still returned. Metrics reflect work done and are never rolled back.
func (p *Pipeline) Predict(ctx context.Context, req Request) (*Response, error) {
	started := time.Now()

	vec, err := p.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	pred, err := p.scorer.Infer(ctx, vec)
	if err != nil {
		p.log.Error("inference failed", "entity_id", req.EntityID, "stage", "infer", "err", err)
		return nil, failf(KindInference, "infer: %v", err)
	}

	var verdict *drift.Verdict
	if p.detector != nil {
		v, err := p.detector.Evaluate(vec)
		if err != nil {
			p.log.Warn("drift evaluation failed, serving prediction without verdict",
				"entity_id", req.EntityID, "stage", "drift", "err", err)
		} else {
			verdict = &v
		}
	}

	p.sink.Prediction()
	if verdict != nil && verdict.Drift {
		p.sink.Drift()
		p.log.Info("drift detected", "entity_id", req.EntityID,
			"features", verdict.Flagged(), "elapsed", time.Since(started))
	}

	return &Response{
		EntityID: req.EntityID,
		Label:    pred.Label,
		Score:    pred.Score,
		Drift:    verdict,
	}, nil
}

// resolve produces the feature vector: raw features validated against the
// schema, or a store lookup by entity id. Neither present is the caller's
// fault.
func (p *Pipeline) resolve(ctx context.Context, req Request) (schema.FeatureVector, error) {
	if req.Features != nil {
		if err := p.schema.Validate(req.Features); err != nil {
			return nil, failf(KindInput, "validate: %v", err)
		}
		return req.Features, nil
	}
	if req.EntityID == "" {
		return nil, failf(KindInput, "request carries neither features nor entity_id")
	}
	if p.store == nil {
		return nil, failf(KindInput, "entity lookup not available: no feature store configured")
	}
	vec, err := p.store.Get(ctx, req.EntityID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, failf(KindInput, "entity %q: %v", req.EntityID, err)
	}
	if err != nil {
		p.log.Error("feature lookup failed", "entity_id", req.EntityID, "stage", "resolve", "err", err)
		return nil, failf(KindStore, "resolve %q: %v", req.EntityID, err)
	}
	return vec, nil
}
