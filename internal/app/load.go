package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/tempogrid/internal/arrowio"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/graphio"
	"github.com/specialistvlad/tempogrid/internal/node"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentReads bounds how many input files are decoded at once.
const maxConcurrentReads = 4

// LoadGraph reads a graph file or directory against the app's operators.
func (a *App) LoadGraph(ctx context.Context, path string) (*graphio.Graph, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph...", "graph_path", path)

	g, err := graphio.LoadPath(ctx, path, a.registry.Operators)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	logger.Info("Graph loaded successfully.", "inputs", len(g.Inputs), "outputs", len(g.Outputs))
	return g, nil
}

// LoadInputs reads one data file per graph input, concurrently. Every graph
// input needs a file and every file must name a graph input.
func (a *App) LoadInputs(ctx context.Context, g *graphio.Graph, paths map[string]string) (map[*node.Node]*eventset.EventSet, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	for _, name := range sortedKeys(paths) {
		if _, ok := g.Inputs[name]; !ok {
			return nil, fmt.Errorf("data given for unknown input %q (graph inputs: %v)", name, g.InputNames())
		}
	}
	for _, name := range g.InputNames() {
		if _, ok := paths[name]; !ok {
			return nil, fmt.Errorf("no data given for input %q", name)
		}
	}

	var mu sync.Mutex
	bindings := make(map[*node.Node]*eventset.EventSet, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentReads)
	for _, name := range g.InputNames() {
		leaf, path := g.Inputs[name], paths[name]
		eg.Go(func() error {
			es, err := arrowio.ReadFile(egCtx, path, leaf.Schema())
			if err != nil {
				return fmt.Errorf("input %q: %w", name, err)
			}
			mu.Lock()
			bindings[leaf] = es
			mu.Unlock()
			logger.Debug("Input loaded.", "input", name, "path", path, "events", es.NumEvents())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return bindings, nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
