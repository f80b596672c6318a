// Package jobmgr runs named, cancellable jobs: either right away on their own
// goroutine or after a delay.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	jm.Schedule("reconnect:1234", 5*time.Second, func(ctx context.Context) error {
//	    // runs once after 5s unless cancelled or replaced
//	    return nil
//	})
//
//	// later...
//	jm.Cancel("reconnect:1234")
//
// At most one job exists per name. Scheduling a name that is already pending
// or running cancels the previous job first. Jobs are removed automatically
// when they finish.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Job is a pending or running unit of work.
type Job struct {
	Name   string
	Due    time.Time
	cancel context.CancelFunc
	timer  *time.Timer
	seq    uint64
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	scheduled:reconnect:1234
//	running:reconnect:1234
//	error:reconnect:1234:dial tcp: i/o timeout
//	done:reconnect:1234
//	cancelled:reconnect:1234
type StatusReporter func(string)

// Manager tracks jobs by name. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	seq      uint64
	closed   bool
	Reporter StatusReporter
}

// NewManager creates a new Manager. The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartAsync runs runner on a new goroutine right away.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	return m.Schedule(name, 0, runner)
}

// Schedule runs runner once after delay. A job already registered under the
// same name is cancelled and replaced. The runner's context is cancelled when
// the job is cancelled or the manager is closed.
func (m *Manager) Schedule(name string, delay time.Duration, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("job manager is closed, cannot schedule '%s'", name)
	}

	if old, ok := m.jobs[name]; ok {
		m.stopLocked(old)
		delete(m.jobs, name)
		m.report("cancelled:" + name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.seq++
	job := &Job{
		Name:   name,
		Due:    time.Now().Add(delay),
		cancel: cancel,
		seq:    m.seq,
	}
	m.jobs[name] = job
	m.report("scheduled:" + name)

	job.timer = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		m.run(ctx, job, runner)
	})
	return nil
}

func (m *Manager) run(ctx context.Context, job *Job, runner func(ctx context.Context) error) {
	m.report("running:" + job.Name)

	err := runner(ctx)
	if err != nil {
		m.report("error:" + job.Name + ":" + err.Error())
	} else {
		m.report("done:" + job.Name)
	}

	m.mu.Lock()
	// the name may have been rescheduled while we ran
	if cur, ok := m.jobs[job.Name]; ok && cur.seq == job.seq {
		delete(m.jobs, job.Name)
	}
	m.mu.Unlock()
	job.cancel()
}

// Cancel stops a pending job or cancels the context of a running one.
// It reports whether a job with that name existed.
func (m *Manager) Cancel(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return false
	}
	m.stopLocked(job)
	delete(m.jobs, name)
	m.report("cancelled:" + name)
	return true
}

// Pending reports whether a job with that name is scheduled or running.
func (m *Manager) Pending(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}

// List returns the names of active jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close cancels every job and rejects further scheduling.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for name, job := range m.jobs {
		m.stopLocked(job)
		delete(m.jobs, name)
	}
}

func (m *Manager) stopLocked(job *Job) {
	if job.timer != nil {
		job.timer.Stop()
	}
	job.cancel()
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
