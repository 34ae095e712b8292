package proc

import (
	"sort"
	"sync"
)

// Job is a background process tracked by a Reaper.
type Job struct {
	ID   int
	Pid  int
	Name string
	Code int   // exit code, valid once the job is done
	Err  error // set if waiting failed
}

// Reaper waits for background processes so they never linger as zombies,
// and remembers which ones finished until Collect is called.
type Reaper struct {
	mu      sync.Mutex
	nextID  int
	running map[int]Job
	done    []Job
	wg      sync.WaitGroup
}

// NewReaper creates an empty reaper.
func NewReaper() *Reaper {
	return &Reaper{nextID: 1, running: make(map[int]Job)}
}

// Track takes ownership of p and waits for it on a new goroutine. It returns
// the job id assigned to the process.
func (r *Reaper) Track(p *Process, name string) int {
	r.mu.Lock()
	job := Job{ID: r.nextID, Pid: p.Pid(), Name: name}
	r.nextID++
	r.running[job.ID] = job
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		code, err := p.Wait()

		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.running, job.ID)
		job.Code = code
		job.Err = err
		r.done = append(r.done, job)
	}()
	return job.ID
}

// Collect returns the jobs that finished since the last call, oldest id first.
func (r *Reaper) Collect() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	done := r.done
	r.done = nil
	sort.Slice(done, func(i, j int) bool { return done[i].ID < done[j].ID })
	return done
}

// Running returns the number of jobs still running.
func (r *Reaper) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Wait blocks until every tracked job has exited.
func (r *Reaper) Wait() {
	r.wg.Wait()
}
