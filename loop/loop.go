// Package loop is a single threaded task loop, the host side of the bridge.
// Tasks posted from any goroutine run one by one on the goroutine calling Run or Drain.
package loop

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/go-errors/errors"
	"github.com/yaoapp/kun/log"
)

// Loop the task loop
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
	running bool
}

// New create a task loop
func New() *Loop {
	return &Loop{
		tasks: []func(){},
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

// Post queue a task, never blocks. Tasks posted after Stop are dropped.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		log.Trace("[loop] Post: the loop is stopped, the task is dropped")
		return
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending the number of the queued tasks
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Run execute the tasks until the context is done or the loop is stopped
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.Errorf("the loop is running")
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			l.Drain()
			return nil
		case <-l.wake:
		}
	}
}

// Drain execute the queued tasks (including the tasks posted by them) on the
// calling goroutine, returns the number of the executed tasks
func (l *Loop) Drain() int {
	count := 0
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = []func(){}
		l.mu.Unlock()

		if len(tasks) == 0 {
			return count
		}

		for _, task := range tasks {
			exec(task)
			count++
		}
	}
}

// Stop stop the loop, the queued tasks are executed before Run returns
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.stop)
}

func exec(task func()) {
	defer func() {
		if err := recover(); err != nil {
			log.Error("[loop] task panic: %v\n%s", err, debug.Stack())
		}
	}()
	task()
}
