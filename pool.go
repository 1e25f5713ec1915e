package notibus

import (
	"sync"
	"sync/atomic"
)

type poolState int

const (
	poolUninitialized poolState = iota
	poolRunning
	poolStopping
	poolStopped
)

// poolTask is one queued unit of work. done is closed after run returns, or
// when the task is discarded by an abrupt stop; abort, when set, runs instead
// of run on the discard path so schedulers can unwind their bookkeeping.
type poolTask struct {
	run   func(worker int)
	abort func()
	done  chan struct{}
}

// poolWorker is the control block for one worker goroutine. stop makes the
// worker exit after its current task even if the queue is non-empty; exit is
// closed when the goroutine returns.
type poolWorker struct {
	stop atomic.Bool
	exit chan struct{}
}

// workerPool is a resizable pool of goroutines consuming a shared task queue.
// Its queue and worker-count state are guarded by their own mutex/cond pair,
// independent of the bus registry lock, so enqueuing never contends with
// observer bookkeeping.
type workerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*poolTask
	workers []*poolWorker
	waiting int
	state   poolState
	drain   bool // let queued tasks finish, then exit
	halt    bool // discard queued tasks and exit
}

func newWorkerPool() *workerPool {
	p := &workerPool{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// push enqueues a task and wakes one idle worker. The returned channel is
// closed once the task has run, or immediately if the pool is no longer
// accepting work. Safe to call from any goroutine, workers included.
func (p *workerPool) push(run func(worker int), abort func()) <-chan struct{} {
	t := &poolTask{run: run, abort: abort, done: make(chan struct{})}
	p.mu.Lock()
	if p.state == poolStopping || p.state == poolStopped {
		p.mu.Unlock()
		if abort != nil {
			abort()
		}
		close(t.done)
		return t.done
	}
	p.queue = append(p.queue, t)
	p.cond.Signal()
	p.mu.Unlock()
	return t.done
}

// resize grows the pool by spawning workers or shrinks it by flagging the
// excess workers to exit after their current task. Shrunk workers are
// detached: resize does not wait for them to finish.
func (p *workerPool) resize(n int) {
	if n < 0 {
		n = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == poolStopping || p.state == poolStopped {
		return
	}
	p.state = poolRunning

	cur := len(p.workers)
	if n >= cur {
		for i := cur; i < n; i++ {
			w := &poolWorker{exit: make(chan struct{})}
			p.workers = append(p.workers, w)
			go p.work(i, w)
		}
		return
	}

	for i := cur - 1; i >= n; i-- {
		p.workers[i].stop.Store(true)
	}
	p.workers = p.workers[:n]
	p.cond.Broadcast()
}

// stop shuts the pool down and joins its workers. With wait true, queued
// tasks drain first; with wait false, queued tasks are discarded (aborting
// their bookkeeping) and workers exit after their current task. The pool is
// terminal afterwards.
func (p *workerPool) stop(wait bool) {
	p.mu.Lock()
	if p.state == poolStopping || p.state == poolStopped {
		p.mu.Unlock()
		return
	}
	p.state = poolStopping
	if wait {
		p.drain = true
	} else {
		p.halt = true
		for _, w := range p.workers {
			w.stop.Store(true)
		}
		p.discardQueueLocked()
	}
	workers := p.workers
	p.workers = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, w := range workers {
		<-w.exit
	}

	// Tasks queued while no worker existed are never picked up; discard them
	// so their waiters unblock.
	p.mu.Lock()
	p.discardQueueLocked()
	p.state = poolStopped
	p.mu.Unlock()
}

func (p *workerPool) discardQueueLocked() {
	for _, t := range p.queue {
		if t.abort != nil {
			t.abort()
		}
		close(t.done)
	}
	p.queue = nil
}

// work is the worker loop: pop a task if available, otherwise block until one
// arrives or a stop condition is set. A per-worker stop flag ends the loop
// after the current task even if the queue is non-empty; that is how shrink
// retires workers.
func (p *workerPool) work(idx int, w *poolWorker) {
	defer close(w.exit)
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.drain && !p.halt && !w.stop.Load() {
			p.waiting++
			p.cond.Wait()
			p.waiting--
		}
		if p.halt || len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		t.run(idx)
		close(t.done)

		if w.stop.Load() {
			return
		}
	}
}

func (p *workerPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *workerPool) idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiting
}

func (p *workerPool) queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
