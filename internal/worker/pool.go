package worker

import (
	"sync"

	"github.com/fobos-app/ledger/internal/metrics"
)

type task func()

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
	once sync.Once
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				job()
			}
		}()
	}
	return p
}

// Submit blocks while the queue is full. Submitting after Stop panics.
func (p *Pool) Submit(f func()) {
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

// Stop drains queued tasks and waits for the workers to exit.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
