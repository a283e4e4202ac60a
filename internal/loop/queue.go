package loop

import "sync"

// Queue is an unbounded FIFO of jobs that is safe to Post to from any
// goroutine. Jobs run on whichever goroutine calls Drain.
type Queue struct {
	mu     sync.Mutex
	jobs   []func()
	ready  chan struct{}
	closed bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Post appends job to the queue and wakes the loop. Jobs posted after Close
// are dropped.
func (q *Queue) Post(job func()) {
	if job == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready delivers a value whenever jobs may be pending. Several Posts can
// collapse into a single wake-up, so receivers should Drain fully.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Drain runs queued jobs in order until the queue is empty, including jobs
// posted by the jobs themselves. It returns the number of jobs run.
func (q *Queue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return ran
		}
		batch := q.jobs
		q.jobs = nil
		q.mu.Unlock()

		for _, job := range batch {
			job()
			ran++
		}
	}
}

// Len returns the number of queued jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close discards pending jobs and rejects future Posts.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.jobs = nil
	q.mu.Unlock()
}
