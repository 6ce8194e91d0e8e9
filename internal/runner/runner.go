// Package runner owns the analysis worker pool. Uploads are queued as jobs
// and drained by a fixed number of workers; each job runs the pipeline and
// persists the outcome, so the HTTP layer never blocks on an analysis.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/pipeline"
)

// ErrQueueFull is returned when the job queue cannot accept another upload.
var ErrQueueFull = errors.New("analysis queue is full")

// Job is one queued analysis: the row to process and the uploaded export.
// The file lives only in the queue; it is never persisted.
type Job struct {
	AnalysisID     string
	Data           []byte
	ExcludeSenders []string
}

// Runner drains the analysis queue with a pool of workers.
type Runner struct {
	log      *slog.Logger
	store    database.Store
	analyzer *pipeline.Analyzer
	reporter analysis.Reporter
	loc      *time.Location
	workers  int
	jobs     chan Job
}

func New(log *slog.Logger, store database.Store, analyzer *pipeline.Analyzer, reporter analysis.Reporter, loc *time.Location, workers, queueSize int) *Runner {
	return &Runner{
		log:      log.With("component", "runner"),
		store:    store,
		analyzer: analyzer,
		reporter: reporter,
		loc:      loc,
		workers:  workers,
		jobs:     make(chan Job, queueSize),
	}
}

// Enqueue adds a job without blocking. ErrQueueFull means the caller
// should tell the client to retry later.
func (r *Runner) Enqueue(job Job) error {
	select {
	case r.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("Starting analysis workers", "workers", r.workers)
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job := <-r.jobs:
					r.process(ctx, job)
				}
			}
		})
	}
	return group.Wait()
}

func (r *Runner) process(ctx context.Context, job Job) {
	log := r.log.With("id", job.AnalysisID)
	startTime := time.Now()

	row, err := r.store.GetAnalysis(ctx, job.AnalysisID)
	if err != nil {
		log.Error("Failed to load queued analysis", "error", err)
		return
	}
	if err := r.store.MarkProcessing(ctx, row.ID); err != nil {
		log.Error("Failed to mark analysis processing", "error", err)
		return
	}
	defer r.reporter.Clear(row.ID)

	// Identity verification only applies when the row re-runs an earlier
	// analysis; a fresh analysis of a different chat must not be checked.
	prior := ""
	if row.UpdateOf != "" {
		priorRow, err := r.store.GetAnalysis(ctx, row.UpdateOf)
		if err != nil {
			log.Warn("Failed to load prior analysis", "update_of", row.UpdateOf, "error", err)
		} else {
			prior = priorRow.ChatIdentity
		}
	}

	outcome, err := r.analyzer.Run(ctx, pipeline.Request{
		Data:           job.Data,
		Platform:       analysis.Platform(row.Platform),
		ExcludeSenders: job.ExcludeSenders,
		Language:       analysis.Language(row.Language),
		PriorIdentity:  prior,
		ProgressToken:  row.ID,
		Location:       r.loc,
	})
	if err != nil {
		code := analysis.Code(err)
		display := analysis.Display(err)
		log.Warn("Analysis failed", "code", code, "error", err)
		if saveErr := r.store.SaveFailure(ctx, row.ID, code, display); saveErr != nil {
			log.Error("Failed to persist analysis failure", "error", saveErr)
		}
		return
	}

	result := &database.AnalysisResult{
		Platform:     string(outcome.Platform),
		ChatName:     outcome.ChatName,
		ChatIdentity: outcome.Identity,
		MessageCount: outcome.MessageCount,
		Wordcloud:    outcome.CloudPNG,
	}
	if outcome.StatsErr != nil {
		result.StatsError = analysis.Display(outcome.StatsErr)
	} else if encoded, encErr := json.Marshal(outcome.Stats); encErr != nil {
		result.StatsError = analysis.Display(analysis.NewInternalAnalysisError(
			"Something went wrong while computing statistics.",
			fmt.Errorf("encode statistics: %w", encErr)))
	} else {
		result.ResultsJSON = string(encoded)
	}
	if outcome.CloudErr != nil {
		result.CloudError = analysis.Display(outcome.CloudErr)
	}

	if err := r.store.SaveResults(ctx, row.ID, result); err != nil {
		log.Error("Failed to persist analysis results", "error", err)
		return
	}
	log.Info("Analysis persisted",
		"platform", result.Platform,
		"messages", result.MessageCount,
		"duration", time.Since(startTime))
}
