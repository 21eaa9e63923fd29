package plagiarism

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog/log"
)

type Job interface {
	Execute(ctx context.Context) error
}

type WorkerPool struct {
	workers   int
	jobQueue  chan Job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// creates a new worker pool; size <= 0 means one worker per CPU
func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	log.Debug().
		Int("totalCPU", runtime.NumCPU()).
		Int("workers", size).
		Msg("Worker pool initialized")
	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  size,
		jobQueue: make(chan Job, size*2), // Buffer 2x the worker count
		ctx:      poolCtx,
		cancel:   cancel,
	}

	pool.start()

	return pool
}

// starts all worker goroutines
func (p *WorkerPool) start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker goroutine that processes jobs until the queue is drained or the pool is cancelled
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return // Channel closed
			}
			if err := job.Execute(p.ctx); err != nil {
				log.Debug().Err(err).Int("worker", id).Msg("Worker job ended with error")
			}
		}
	}
}

// submits a job to the pool, blocking while the queue is full
func (p *WorkerPool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		return nil
	}
}

// Close stops accepting jobs and waits for queued jobs to finish.
// Must not be called concurrently with Submit.
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
		p.wg.Wait()
		p.cancel()
	})
}

// Abort cancels in-flight work and waits for the workers to exit.
func (p *WorkerPool) Abort() {
	p.cancel()
	p.wg.Wait()
}

// returns the number of workers
func (p *WorkerPool) Size() int {
	return p.workers
}
