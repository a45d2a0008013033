package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"driftgate/adapters/store"
	"driftgate/internal/logging"
)

var loadFlags struct {
	config  string
	file    string
	chunk   int
	workers int
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load a features artifact into the feature store",
	Long: `Reads a JSON artifact mapping entity ids to feature vectors (the output
of the feature-engineering job) and writes it to the store in batches.
A batch that fails is reported and aborts the load; batches already
written stay in place.`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadFlags.config, "config", "", "path to config YAML")
	loadCmd.Flags().StringVar(&loadFlags.file, "file", "", "features JSON artifact (required)")
	loadCmd.Flags().IntVar(&loadFlags.chunk, "chunk", 200, "entities per batch write")
	loadCmd.Flags().IntVar(&loadFlags.workers, "workers", 4, "concurrent batch writes")
	_ = loadCmd.MarkFlagRequired("file")
}

func runLoad(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(loadFlags.config, false)
	if err != nil {
		return err
	}
	defer a.close()
	log := logging.New("load")

	entries, err := readFeaturesFile(loadFlags.file)
	if err != nil {
		return err
	}
	log.Info("loading features", "entities", len(entries), "chunk", loadFlags.chunk)

	var written atomic.Int64
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(loadFlags.workers, 1))
	for _, batch := range chunkEntries(entries, loadFlags.chunk) {
		g.Go(func() error {
			n, err := a.store.BatchSet(ctx, batch)
			written.Add(int64(n))
			if err != nil {
				return fmt.Errorf("batch starting at %q: %w", batch[0].ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("load aborted", "written", written.Load(), "err", err)
		return err
	}
	log.Info("load complete", "written", written.Load())
	return nil
}

// readFeaturesFile parses the artifact: {"<entity_id>": {"<feature>": value}}.
// Entries are returned in id order so failures report a stable position.
func readFeaturesFile(path string) ([]store.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read features file: %w", err)
	}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse features file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("features file %s contains no entities", path)
	}
	entries := make([]store.Entry, 0, len(raw))
	for id, features := range raw {
		entries = append(entries, store.Entry{ID: id, Features: features})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// chunkEntries splits entries into batches of at most size.
func chunkEntries(entries []store.Entry, size int) [][]store.Entry {
	if size <= 0 {
		size = 1
	}
	var out [][]store.Entry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		out = append(out, entries[start:end])
	}
	return out
}
