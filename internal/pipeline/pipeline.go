package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	"github.com/couchcryptid/ezie-mag-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Expander unzips a kit's archives and optionally gathers the hourly files.
type Expander interface {
	Expand(ctx context.Context, kit, baseDir string, merge bool) (domain.Expansion, error)
}

// Merger parses and concatenates the hourly files of one directory.
type Merger interface {
	Merge(ctx context.Context, dir string) (domain.MergeResult, error)
}

// Loader persists the merged table.
type Loader interface {
	Load(ctx context.Context, t *domain.Table) error
}

// Options selects which stages run and on which paths.
type Options struct {
	Kit        string
	ArchiveDir string // empty skips the expand stage
	Merge      bool
	HourlyDir  string // overrides the expander's merged directory
}

// Summary reports what a run did. Fields for stages that did not run stay zero.
type Summary struct {
	Expansion *domain.Expansion
	HourlyDir string
	Merged    *domain.MergeResult
	Exported  bool
	Duration  time.Duration
}

// Pipeline orchestrates the expand-merge-load sequence.
type Pipeline struct {
	expander Expander
	merger   Merger
	loader   Loader
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
}

// New creates a Pipeline. A nil loader skips the export stage; a nil clock uses real time.
func New(e Expander, m Merger, l Loader, opts Options, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		expander: e,
		merger:   m,
		loader:   l,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
	}
}

// Run executes each configured stage once. The first failing stage aborts the
// run; file-system changes made by earlier stages are kept.
func (p *Pipeline) Run(ctx context.Context) (sum Summary, err error) {
	start := p.clock.Now()
	p.logger.Info("pipeline started", "kit", p.opts.Kit)
	p.metrics.PipelineRunning.Set(1)
	defer func() {
		p.metrics.PipelineRunning.Set(0)
		p.metrics.LastRunTimestamp.Set(float64(p.clock.Now().Unix()))
		sum.Duration = p.clock.Since(start)
		if err != nil {
			p.metrics.LastRunSuccess.Set(0)
			return
		}
		p.metrics.LastRunSuccess.Set(1)
		p.logger.Info("pipeline finished", "duration", sum.Duration)
	}()

	hourlyDir := p.opts.HourlyDir
	if p.opts.ArchiveDir != "" {
		exp, err := p.expand(ctx)
		sum.Expansion = &exp
		if err != nil {
			return sum, err
		}
		if hourlyDir == "" {
			hourlyDir = exp.MergedDir
		}
	}

	if hourlyDir == "" {
		p.logger.Info("no hourly directory to merge, stopping after expand")
		return sum, nil
	}
	sum.HourlyDir = hourlyDir

	merged, err := p.merge(ctx, hourlyDir)
	sum.Merged = &merged
	if err != nil {
		return sum, err
	}

	if p.loader == nil {
		return sum, nil
	}
	if err := p.load(ctx, merged.Table); err != nil {
		return sum, err
	}
	sum.Exported = true
	return sum, nil
}

func (p *Pipeline) expand(ctx context.Context) (domain.Expansion, error) {
	defer p.observeStage("expand", p.clock.Now())

	exp, err := p.expander.Expand(ctx, p.opts.Kit, p.opts.ArchiveDir, p.opts.Merge)
	p.metrics.ArchivesExtracted.Add(float64(len(exp.OutputDirs)))
	p.metrics.HourlyFilesCopied.Add(float64(exp.Copied))
	p.metrics.HourlyFilesSkipped.Add(float64(exp.Skipped))
	if err != nil {
		p.logger.Error("expand failed", "error", err, "archive_dir", p.opts.ArchiveDir,
			"extracted", len(exp.OutputDirs))
		return exp, err
	}
	p.logger.Info("archives expanded",
		"archives", len(exp.OutputDirs),
		"merged_dir", exp.MergedDir,
		"copied", exp.Copied,
		"skipped", exp.Skipped,
	)
	return exp, nil
}

func (p *Pipeline) merge(ctx context.Context, dir string) (domain.MergeResult, error) {
	defer p.observeStage("merge", p.clock.Now())

	res, err := p.merger.Merge(ctx, dir)
	p.metrics.FilesRejected.Add(float64(len(res.Failed)))
	if err != nil {
		p.logger.Error("merge failed", "error", err, "dir", dir, "rejected", len(res.Failed))
		return res, err
	}
	p.metrics.FilesMerged.Add(float64(len(res.Files) - len(res.Failed)))
	p.metrics.RecordsMerged.Add(float64(res.Table.Len()))
	for _, f := range res.Failed {
		p.logger.Warn("hourly file skipped", "file", f.Path, "error", f.Err)
	}
	p.logger.Info("hourly files merged",
		"files", len(res.Files),
		"rejected", len(res.Failed),
		"rows", res.Table.Len(),
	)
	return res, nil
}

func (p *Pipeline) load(ctx context.Context, t *domain.Table) error {
	defer p.observeStage("export", p.clock.Now())

	if err := p.loader.Load(ctx, t); err != nil {
		p.logger.Error("export failed", "error", err)
		return err
	}
	p.logger.Info("table exported", "rows", t.Len())
	return nil
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(p.clock.Since(start).Seconds())
}
