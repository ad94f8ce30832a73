package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/tempogrid/internal/arrowio"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"golang.org/x/sync/errgroup"
)

// RunRequest names a graph, the data for its inputs and where results go.
type RunRequest struct {
	GraphPath string
	// Inputs maps graph input names to Arrow IPC or Parquet files.
	Inputs map[string]string
	OutDir string
	// Format of the written outputs. Defaults to arrowio.FormatIPC.
	Format arrowio.Format
}

// Run loads a graph and its input data, evaluates every graph output and
// writes each one to OutDir as <output name>.<format>. It returns the
// written file paths keyed by output name.
func (a *App) Run(ctx context.Context, req RunRequest) (paths map[string]string, err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.startMetricsServer(); err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, a.closeMetricsServer())
	}()

	g, err := a.LoadGraph(ctx, req.GraphPath)
	if err != nil {
		return nil, err
	}
	if len(g.Outputs) == 0 {
		a.logger.Warn("Graph declares no outputs, evaluation not required.")
		return map[string]string{}, nil
	}
	bindings, err := a.LoadInputs(ctx, g, req.Inputs)
	if err != nil {
		return nil, err
	}

	a.logger.Info("🚀 Starting evaluation...", "backend", a.engine.Backend())
	results, err := a.engine.Evaluate(ctx, g.OutputNodes(), bindings)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("🏁 Evaluation finished.")

	named := make(map[string]*eventset.EventSet, len(results))
	for i, name := range g.OutputNames() {
		named[name] = results[i]
	}
	paths, err = a.WriteOutputs(ctx, req.OutDir, req.Format, named)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("App.Run method finished.")
	return paths, nil
}

// WriteOutputs writes every event set to dir, concurrently.
func (a *App) WriteOutputs(ctx context.Context, dir string, format arrowio.Format, outputs map[string]*eventset.EventSet) (map[string]string, error) {
	if format == "" {
		format = arrowio.FormatIPC
	}
	if format != arrowio.FormatIPC && format != arrowio.FormatParquet {
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	paths := make(map[string]string, len(outputs))
	for name := range outputs {
		paths[name] = filepath.Join(dir, name+"."+string(format))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for name, es := range outputs {
		path := paths[name]
		eg.Go(func() error {
			if err := arrowio.WriteFile(egCtx, path, es); err != nil {
				return fmt.Errorf("output %q: %w", name, err)
			}
			a.logger.Info("Output written.", "output", name, "path", path, "events", es.NumEvents())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
