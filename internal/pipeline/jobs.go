package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
)

// JobStatus represents the state of a parse job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusChunking  JobStatus = "chunking"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single document parse.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Filename string    `json:"filename"`
	Size     int64     `json:"size_bytes"`
	Priority Priority  `json:"priority"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	cfg      config.Resolved
	fileData []byte
	chunks   []element.Chunk
	tables   []element.TableRecord
	errors   []string
}

// Progress tracks processing progress and the tier attempt history.
type Progress struct {
	Fraction   float64        `json:"fraction"`
	Message    string         `json:"message"`
	ChunkCount int            `json:"chunk_count"`
	TableCount int            `json:"table_count"`
	Attempts   []ParseAttempt `json:"attempts"`
	Errors     []string       `json:"errors"`
}

func NewJob(filename string, data []byte, cfg config.Resolved) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Filename:  filename,
		Size:      int64(len(data)),
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		cfg:       cfg,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.lastUpdate()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// Config returns the per-job resolved configuration.
func (j *Job) Config() config.Resolved {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cfg
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetProgress records a progress update. A negative fraction keeps the
// current fraction and updates the message only.
func (j *Job) SetProgress(fraction float64, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if fraction >= 0 {
		j.Progress.Fraction = fraction
	}
	j.Progress.Message = message
	j.UpdatedAt = time.Now()
}

// AddAttempts appends tier attempt records.
func (j *Job) AddAttempts(attempts []ParseAttempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Attempts = append(j.Progress.Attempts, attempts...)
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPriority records the assigned queue lane.
func (j *Job) SetPriority(p Priority) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Priority = p
}

// SetContentHash records the hash of the parsed text.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.UpdatedAt = time.Now()
}

// SetResults stores the chunking output and releases the raw file bytes.
func (j *Job) SetResults(chunks []element.Chunk, tables []element.TableRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunks = chunks
	j.tables = tables
	j.Progress.ChunkCount = len(chunks)
	j.Progress.TableCount = len(tables)
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Results returns the chunking output. ok is false until the job completes.
func (j *Job) Results() (chunks []element.Chunk, tables []element.TableRecord, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusCompleted {
		return nil, nil, false
	}
	return j.chunks, j.tables, true
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size_bytes"`
	Priority    Priority  `json:"priority"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	attempts := make([]ParseAttempt, len(j.Progress.Attempts))
	copy(attempts, j.Progress.Attempts)
	return JobSnapshot{
		ID:          j.ID,
		Filename:    j.Filename,
		Size:        j.Size,
		Priority:    j.Priority,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		Progress: Progress{
			Fraction:   j.Progress.Fraction,
			Message:    j.Progress.Message,
			ChunkCount: j.Progress.ChunkCount,
			TableCount: j.Progress.TableCount,
			Attempts:   attempts,
			Errors:     errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
