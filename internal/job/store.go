package job

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is a volatile, concurrency-safe map of jobs. Only the runner that
// owns a job id mutates it; polling clients read copies. Records are never
// pruned for the lifetime of the process.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create registers a new queued job and returns a snapshot of it.
func (s *Store) Create() Job {
	newJob := &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.jobs[newJob.ID] = newJob
	s.mu.Unlock()
	return *newJob
}

// Get returns a snapshot of the job, so callers never observe a transition
// mid-write.
func (s *Store) Get(jobID string) (Job, bool) {
	s.mu.RLock()
	foundJob, ok := s.jobs[jobID]
	if !ok {
		s.mu.RUnlock()
		return Job{}, false
	}
	snapshot := *foundJob
	s.mu.RUnlock()
	return snapshot, true
}

// MarkProcessing moves a queued job into processing.
func (s *Store) MarkProcessing(jobID string) error {
	return s.transition(jobID, func(j *Job) {
		j.Status = StatusProcessing
	})
}

// Complete marks the job done and records the produced artifact filename.
func (s *Store) Complete(jobID, outputFilename string) error {
	return s.transition(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.OutputFilename = outputFilename
	})
}

// Fail terminally marks the job failed with a human-readable reason.
func (s *Store) Fail(jobID, reason string) error {
	return s.transition(jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Error = reason
	})
}

func (s *Store) transition(jobID string, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	currentJob, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if currentJob.Status.Terminal() {
		return ErrTerminal
	}
	apply(currentJob)
	return nil
}
