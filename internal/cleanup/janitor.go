// Package cleanup performs time-deferred deletion of filesystem subtrees.
// Concatenation sources stay on disk for a retention window before being
// reclaimed, so a client can retry or inspect them.
package cleanup

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Janitor owns a registry of pending one-shot deletions. Timers never hold
// the process alive on their own; Stop cancels whatever is still pending at
// shutdown. Overlapping schedules on the same path are not deduplicated.
type Janitor struct {
	mu        sync.Mutex
	timers    map[uint64]*time.Timer
	nextID    uint64
	stopped   bool
	removeAll func(string) error
}

func NewJanitor() *Janitor {
	return &Janitor{
		timers:    make(map[uint64]*time.Timer),
		removeAll: os.RemoveAll,
	}
}

// Schedule registers deletion of path after delay. Deletion errors are
// logged and swallowed; the rest of the service does not depend on them.
func (j *Janitor) Schedule(path string, delay time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return
	}
	id := j.nextID
	j.nextID++
	j.timers[id] = time.AfterFunc(delay, func() {
		j.fire(id, path)
	})
	log.Info().Str("path", path).Dur("delay", delay).Msg("scheduled deferred deletion")
}

// Pending reports how many deletions are still registered.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.timers)
}

// Stop cancels all pending deletions. Scheduled paths are left on disk.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stopped = true
	for id, timer := range j.timers {
		timer.Stop()
		delete(j.timers, id)
	}
}

func (j *Janitor) fire(id uint64, path string) {
	j.mu.Lock()
	delete(j.timers, id)
	j.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}
	if err := j.removeAll(path); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("deferred deletion failed")
		return
	}
	log.Info().Str("path", path).Msg("deferred deletion done")
}
