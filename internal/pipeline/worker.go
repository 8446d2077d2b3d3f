package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pzc163/ragflow-dev/internal/chunker"
	"github.com/pzc163/ragflow-dev/internal/structure"
)

// Worker processes a single document job.
type Worker struct {
	fallback *FallbackOrchestrator
	log      *slog.Logger
}

func NewWorker(fallback *FallbackOrchestrator, log *slog.Logger) *Worker {
	return &Worker{fallback: fallback, log: log}
}

// Process runs the full parse-and-chunk pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	cfg := job.Config()

	// Phase 1: Parse through the tier chain.
	job.SetStatus(StatusParsing, "parsing")
	text, tables, attempts, err := w.fallback.Parse(ctx, job.FileData(), job.Filename, cfg, job.SetProgress)
	job.AddAttempts(attempts)
	if err != nil {
		log.Error("parse failed", "error", err, "attempts", len(attempts))
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetContentHash(ContentHashHex([]byte(text)))

	// Phase 2: Pull tables out of the text, then chunk the remainder.
	job.SetStatus(StatusChunking, "chunking")
	remainder, mdTables := chunker.ExtractTables(text)
	for i := range mdTables {
		mdTables[i].PositionHint = len(tables) + i
	}
	tables = append(tables, mdTables...)

	elems := structure.Analyze(remainder)
	sctx := structure.BuildContext(elems)
	chunks, err := chunker.Chunk(elems, sctx, chunker.Options{
		TokenBudget: cfg.ChunkTokenNum,
		Delimiters:  cfg.Delimiter,
		SlackPct:    cfg.CohesionSlackPct,
	})
	if err != nil {
		log.Error("chunking failed", "error", err)
		job.AddError(fmt.Sprintf("chunk: %s", err))
		job.SetStatus(StatusFailed, "chunking")
		return
	}
	if len(chunks) == 0 && len(tables) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	job.SetResults(chunks, tables)
	job.SetProgress(1.0, fmt.Sprintf("done: %d chunks, %d tables", len(chunks), len(tables)))
	job.SetStatus(StatusCompleted, "done")
	log.Info("job complete", "chunks", len(chunks), "tables", len(tables))
}
