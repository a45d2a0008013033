package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"driftgate/adapters/store"
	"driftgate/internal/config"
	"driftgate/internal/drift"
	"driftgate/internal/logging"
	"driftgate/internal/metrics"
	"driftgate/internal/reference"
	"driftgate/internal/schema"
	"driftgate/internal/scoring"
	"driftgate/internal/serving"
)

// app holds the wired serving components shared by serve and mcp.
type app struct {
	cfg      *config.Config
	schema   *schema.Schema
	store    store.Store
	detector *drift.Detector
	pipeline *serving.Pipeline
	registry *prometheus.Registry
}

// buildApp loads artifacts and wires the pipeline. Any artifact problem is
// fatal here, before the service starts taking traffic. With useMemStore
// the Redis backend is replaced by an in-process store, for local runs
// without a cache.
func buildApp(cfgPath string, useMemStore bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	sch := schema.Default()
	if cfg.Artifacts.Schema != "" {
		if sch, err = schema.LoadFile(cfg.Artifacts.Schema); err != nil {
			return nil, err
		}
	}

	forest, err := scoring.LoadForest(cfg.Artifacts.Model, sch)
	if err != nil {
		return nil, err
	}

	var detector *drift.Detector
	if cfg.Artifacts.Reference != "" {
		ref, err := reference.LoadFile(cfg.Artifacts.Reference, cfg.Drift.MinSamples)
		if err != nil {
			return nil, err
		}
		detector = drift.New(ref, cfg.Drift.Alpha)
	}

	st := buildStore(cfg, useMemStore, sch)
	registry := prometheus.NewRegistry()
	sink := metrics.NewSink(registry)

	return &app{
		cfg:      cfg,
		schema:   sch,
		store:    st,
		detector: detector,
		registry: registry,
		pipeline: serving.NewPipeline(sch, st, forest, detector, sink, logging.New("serving")),
	}, nil
}

func buildStore(cfg *config.Config, useMemStore bool, sch *schema.Schema) store.Store {
	if useMemStore {
		return store.NewMemStore(sch)
	}
	return store.NewRedisStore(store.RedisOptions{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		Timeout:      cfg.Store.Timeout.Std(),
		RetryBackoff: cfg.Store.RetryBackoff.Std(),
	}, sch)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logging.New("store").Warn("close store", "err", err)
	}
}
