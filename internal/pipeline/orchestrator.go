package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/mineru"
)

// Orchestrator manages the parse pipeline: three priority lanes drained by
// a fixed worker pool, plus TTL eviction of finished jobs.
type Orchestrator struct {
	jobs     *JobStore
	queues   map[Priority]chan *Job
	fallback *FallbackOrchestrator
	prober   *mineru.HealthProber
	stats    *TierStats
	log      *slog.Logger
	cfg      config.Defaults

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start before submitting jobs.
func NewOrchestrator(cfg config.Defaults, fallback *FallbackOrchestrator, prober *mineru.HealthProber, stats *TierStats, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs: NewJobStore(cfg.JobTTL),
		queues: map[Priority]chan *Job{
			PriorityHigh:   make(chan *Job, cfg.MaxQueueSize),
			PriorityNormal: make(chan *Job, cfg.MaxQueueSize),
			PriorityLow:    make(chan *Job, cfg.MaxQueueSize),
		},
		fallback: fallback,
		prober:   prober,
		stats:    stats,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.fallback, o.log)
			for {
				job := o.next(workerCtx)
				if job == nil {
					return
				}
				w.Process(workerCtx, job)
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// next returns the next job, preferring higher lanes. It returns nil when
// the context is cancelled.
func (o *Orchestrator) next(ctx context.Context) *Job {
	for {
		// Drain in lane order before blocking.
		for _, p := range []Priority{PriorityHigh, PriorityNormal, PriorityLow} {
			select {
			case job := <-o.queues[p]:
				return job
			default:
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case job := <-o.queues[PriorityHigh]:
			return job
		case job := <-o.queues[PriorityNormal]:
			return job
		case job := <-o.queues[PriorityLow]:
			return job
		}
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit assigns a priority lane and queues the job.
func (o *Orchestrator) Submit(ctx context.Context, job *Job) error {
	priority := PriorityFor(job.Size, o.prober.Healthy(ctx))
	job.SetPriority(priority)
	o.jobs.Put(job)
	select {
	case o.queues[priority] <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current depth across all lanes.
func (o *Orchestrator) QueueDepth() int {
	total := 0
	for _, q := range o.queues {
		total += len(q)
	}
	return total
}

// TierSnapshots returns rolling tier attempt stats.
func (o *Orchestrator) TierSnapshots() map[Tier]TierSnapshot {
	return o.stats.Snapshot()
}

// ServiceStatus refreshes and reports the conversion service probe state.
func (o *Orchestrator) ServiceStatus(ctx context.Context) mineru.StatusSnapshot {
	o.prober.Healthy(ctx)
	return o.prober.Snapshot()
}
