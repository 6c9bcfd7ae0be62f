// Package review drives the annotation pipeline over a multi-file diff:
// split, format, prepare, invoke the supplied model function, process. The
// package never calls a model itself; callers inject a ModelFunc.
package review

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/diffreview/internal/artifacts"
	"github.com/diffreview/internal/config"
	"github.com/diffreview/internal/diff"
	"github.com/diffreview/internal/strategy"
	"github.com/diffreview/pkg/models"
)

// ModelFunc produces the raw model response for a prompt. The pipeline is
// model-agnostic; tests and the CLI inject replay functions here.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

// FileResult is the outcome of one file's pipeline run. A per-file failure
// is recorded here rather than aborting sibling files.
type FileResult struct {
	FilePath    string               `json:"filePath"`
	Strategy    string               `json:"strategy"`
	Prompt      string               `json:"-"`
	RawResponse string               `json:"-"`
	Annotations []models.Annotation  `json:"annotations"`
	Artifacts   []models.ArtifactRef `json:"artifacts,omitempty"`
	Err         error                `json:"-"`
	Error       string               `json:"error,omitempty"`
}

// Runner wires the splitter, formatter, registry, and artifact stores
// together for one configured run.
type Runner struct {
	opts      *config.Options
	registry  *strategy.Registry
	store     *artifacts.Store
	workspace *artifacts.Store
	log       zerolog.Logger
}

// NewRunner builds a runner for the given options.
func NewRunner(opts *config.Options, logger zerolog.Logger) *Runner {
	return &Runner{
		opts:      opts,
		registry:  strategy.NewRegistry(),
		store:     artifacts.NewStore(opts.ArtifactsDir),
		workspace: artifacts.NewStore(opts.WorkspaceDir),
		log:       logger,
	}
}

// ReviewDiff runs the active strategy over every file of a multi-file diff,
// fanning the per-file pipelines out concurrently and joining on all of them.
// Strategies are stateless, so one instance serves all in-flight files.
func (r *Runner) ReviewDiff(ctx context.Context, fullDiff string, model ModelFunc) ([]FileResult, error) {
	active, err := r.registry.Resolve(r.opts.Strategy)
	if err != nil {
		return nil, err
	}

	files := diff.Split(fullDiff)
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]FileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = r.reviewFile(ctx, active, file, model)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// reviewFile runs prepare → model → process for one file.
func (r *Runner) reviewFile(ctx context.Context, active strategy.Strategy, file models.FileDiff, model ModelFunc) FileResult {
	result := FileResult{FilePath: file.FilePath, Strategy: active.Name()}

	formatted := diff.Format(file.DiffText, diff.FormatOptions{
		ShowLineNumbers:           r.opts.ShowDiffLineNumbers,
		IncludeContextLineNumbers: r.opts.ShowContextLineNumbers,
	})

	logger := r.log.With().Str("file", file.FilePath).Str("strategy", active.Name()).Logger()

	prepared, err := active.Prepare(ctx, strategy.PrepareInput{
		FilePath:      file.FilePath,
		Diff:          file.DiffText,
		FormattedDiff: formatted,
		Options:       r.opts,
		Store:         r.store,
		Workspace:     r.workspace,
		Log:           logger,
	})
	if err != nil {
		return result.failed(fmt.Errorf("prepare failed: %w", err))
	}
	result.Prompt = prepared.Prompt

	response, err := model(ctx, prepared.Prompt)
	if err != nil {
		return result.failed(fmt.Errorf("model invocation failed: %w", err))
	}

	processed, err := active.Process(ctx, strategy.ProcessInput{
		FilePath:     file.FilePath,
		ResponseText: response,
		Metadata:     prepared.Metadata,
		Options:      r.opts,
		Store:        r.store,
		Workspace:    r.workspace,
		Log:          logger,
	})
	if err != nil {
		return result.failed(fmt.Errorf("process failed: %w", err))
	}

	result.RawResponse = processed.RawResponse
	result.Annotations = processed.Annotations
	result.Artifacts = processed.Artifacts

	logger.Info().Int("annotations", len(result.Annotations)).Msg("file reviewed")
	return result
}

func (f FileResult) failed(err error) FileResult {
	f.Err = err
	f.Error = err.Error()
	return f
}

// Compare runs every registered strategy against the same diff, persisting
// each strategy's prompt and response under <strategy>/ for side-by-side
// evaluation of the wire formats.
func (r *Runner) Compare(ctx context.Context, fullDiff string, model ModelFunc) (map[string][]FileResult, error) {
	files := diff.Split(fullDiff)
	if len(files) == 0 {
		return nil, nil
	}

	out := make(map[string][]FileResult)
	for _, s := range r.registry.All() {
		results := make([]FileResult, len(files))

		g, gctx := errgroup.WithContext(ctx)
		for i, file := range files {
			i, file := i, file
			g.Go(func() error {
				result := r.reviewFile(gctx, s, file, model)
				r.persistComparison(s.Name(), file, &result)
				results[i] = result
				return nil
			})
		}
		_ = g.Wait()

		out[s.Name()] = results
	}

	return out, nil
}

// persistComparison writes the harness artifacts for one (strategy, file)
// pair. Failures are logged, not fatal: the comparison is best-effort audit
// output.
func (r *Runner) persistComparison(strategyName string, file models.FileDiff, result *FileResult) {
	base := artifacts.SanitizeName(filepath.Base(file.FilePath))

	if result.Prompt != "" {
		relPath := filepath.Join(strategyName, base+".prompt.txt")
		if written, err := r.store.Persist(relPath, result.Prompt, false); err == nil {
			result.Artifacts = append(result.Artifacts, models.ArtifactRef{Label: "prompt", RelativePath: written})
		} else {
			r.log.Warn().Err(err).Str("artifact", relPath).Msg("failed to persist comparison prompt")
		}
	}

	if result.RawResponse != "" {
		relPath := filepath.Join(strategyName, base+".response.txt")
		if written, err := r.store.Persist(relPath, result.RawResponse, false); err == nil {
			result.Artifacts = append(result.Artifacts, models.ArtifactRef{Label: "response", RelativePath: written})
		} else {
			r.log.Warn().Err(err).Str("artifact", relPath).Msg("failed to persist comparison response")
		}
	}
}
