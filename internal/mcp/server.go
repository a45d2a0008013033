// Package mcp exposes the serving pipeline over the Model Context
// Protocol, so an agent can request predictions and probe drift without
// going through the HTTP surface.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"driftgate/adapters/store"
	"driftgate/internal/drift"
	"driftgate/internal/logging"
	"driftgate/internal/serving"
)

// Server wraps the MCP SDK server around the prediction pipeline.
type Server struct {
	MCPServer *sdkmcp.Server

	pipeline *serving.Pipeline
	detector *drift.Detector // nil disables drift_check
	store    store.Store     // nil disables store_stats
}

// NewServer creates an MCP server with prediction and drift tools.
func NewServer(p *serving.Pipeline, det *drift.Detector, st store.Store, version string) *Server {
	s := &Server{pipeline: p, detector: det, store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "driftgate", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "predict",
		Description: "Score one entity. Pass raw feature values, or an entity_id stored in the feature store.",
	}, s.handlePredict)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "drift_check",
		Description: "Run the two-sample drift test for one feature against its training-time reference sample.",
	}, s.handleDriftCheck)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "store_stats",
		Description: "Report feature-store health and the number of stored entities.",
	}, s.handleStoreStats)
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	logging.New("mcp").Info("starting driftgate MCP server over stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// --- Tool input/output types ---

type predictInput struct {
	EntityID string             `json:"entity_id,omitempty" jsonschema:"entity id of a stored feature vector"`
	Features map[string]float64 `json:"features,omitempty" jsonschema:"raw feature values keyed by feature name"`
}

type predictOutput struct {
	Label   int      `json:"label"`
	Score   float64  `json:"score"`
	Drift   bool     `json:"drift"`
	Flagged []string `json:"flagged,omitempty"`
}

type driftCheckInput struct {
	Feature string    `json:"feature" jsonschema:"feature name with a loaded reference sample"`
	Values  []float64 `json:"values" jsonschema:"live observations to test against the reference"`
}

type driftCheckOutput struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Drift     bool    `json:"drift"`
}

type storeStatsInput struct{}

type storeStatsOutput struct {
	Entities int  `json:"entities"`
	StoreOK  bool `json:"store_ok"`
}

// --- Handlers ---

func (s *Server) handlePredict(ctx context.Context, _ *sdkmcp.CallToolRequest, input predictInput) (*sdkmcp.CallToolResult, predictOutput, error) {
	resp, err := s.pipeline.Predict(ctx, serving.Request{
		EntityID: input.EntityID,
		Features: input.Features,
	})
	if err != nil {
		return nil, predictOutput{}, fmt.Errorf("predict: %w", err)
	}
	out := predictOutput{Label: resp.Label, Score: resp.Score}
	if resp.Drift != nil {
		out.Drift = resp.Drift.Drift
		out.Flagged = resp.Drift.Flagged()
	}
	return nil, out, nil
}

func (s *Server) handleDriftCheck(_ context.Context, _ *sdkmcp.CallToolRequest, input driftCheckInput) (*sdkmcp.CallToolResult, driftCheckOutput, error) {
	if s.detector == nil {
		return nil, driftCheckOutput{}, fmt.Errorf("drift detection is not configured")
	}
	if input.Feature == "" || len(input.Values) == 0 {
		return nil, driftCheckOutput{}, fmt.Errorf("feature and values are required")
	}
	verdict, err := s.detector.EvaluateSample(map[string][]float64{input.Feature: input.Values})
	if err != nil {
		return nil, driftCheckOutput{}, fmt.Errorf("drift check: %w", err)
	}
	r := verdict.Features[input.Feature]
	return nil, driftCheckOutput{Statistic: r.Statistic, PValue: r.PValue, Drift: r.Drift}, nil
}

func (s *Server) handleStoreStats(ctx context.Context, _ *sdkmcp.CallToolRequest, _ storeStatsInput) (*sdkmcp.CallToolResult, storeStatsOutput, error) {
	if s.store == nil {
		return nil, storeStatsOutput{}, fmt.Errorf("no feature store configured")
	}
	out := storeStatsOutput{StoreOK: s.store.Ping(ctx) == nil}
	if out.StoreOK {
		ids, err := s.store.EntityIDs(ctx)
		if err != nil {
			return nil, storeStatsOutput{}, fmt.Errorf("list entities: %w", err)
		}
		out.Entities = len(ids)
	}
	return nil, out, nil
}
