package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/route"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusConverting JobStatus = "converting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks a single batch item: either textual input of a known kind or
// an uploaded file dispatched by extension.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	BatchID string `json:"batch_id"`
	Index   int    `json:"index"`

	Kind     convert.Kind `json:"type,omitempty"`
	Name     string       `json:"name,omitempty"`
	Filename string       `json:"filename,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	input    string
	fileData []byte
	result   *convert.Result
	errors   []string
	canceled bool
}

// NewTextJob creates a queued job for textual input.
func NewTextJob(batchID string, kind convert.Kind, input, name string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		BatchID:   batchID,
		Kind:      kind,
		Name:      name,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		input:     input,
	}
}

// NewFileJob creates a queued job for an uploaded file.
func NewFileJob(batchID, filename string, data []byte, name string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		BatchID:   batchID,
		Name:      name,
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
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

// Delete removes a job and reports whether it existed.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	return ok
}

// Batch returns the jobs of a batch ordered by creation.
func (s *JobStore) Batch(batchID string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Job
	for _, job := range s.jobs {
		if job.BatchID == batchID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetContentHash records the hash of the job input.
func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// Complete stores the conversion result and marks the job completed.
func (j *Job) Complete(res *convert.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
	j.fileData = nil
}

func (j *Job) cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.canceled = true
	j.fileData = nil
}

// Canceled reports whether the job was deleted before it ran.
func (j *Job) Canceled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.canceled
}

// Result returns the conversion result, or nil until the job completes.
func (j *Job) Result() *convert.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Input returns the textual input.
func (j *Job) Input() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.input
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string         `json:"job_id"`
	BatchID     string         `json:"batch_id"`
	Index       int            `json:"index"`
	Kind        convert.Kind   `json:"type,omitempty"`
	Name        string         `json:"name,omitempty"`
	Filename    string         `json:"filename,omitempty"`
	Status      JobStatus      `json:"status"`
	Phase       string         `json:"phase"`
	ContentHash string         `json:"content_hash,omitempty"`
	Cached      bool           `json:"cached"`
	Summary     *route.Summary `json:"summary,omitempty"`
	Errors      []string       `json:"errors"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	snap := JobSnapshot{
		ID:          j.ID,
		BatchID:     j.BatchID,
		Index:       j.Index,
		Kind:        j.Kind,
		Name:        j.Name,
		Filename:    j.Filename,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Errors:      errs,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.result != nil {
		summary := j.result.Summary
		snap.Summary = &summary
		snap.Cached = j.result.Cached
	}
	return snap
}
