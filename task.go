package replay

import (
	"context"
	"net/http"
	"sync"
)

// Task is a resolution running in the background. Its completion runs
// exactly once, unless the task is cancelled first, in which case it never
// runs.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	finished  bool
}

// Start resolves req on a new goroutine and passes the result to completion.
func (r *RoundTripper) Start(req *http.Request, completion func(*Resolution, error)) *Task {
	ctx, cancel := context.WithCancel(req.Context())
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer cancel()
		res, err := r.Resolve(req.WithContext(ctx))

		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			if res != nil && res.Response != nil {
				res.Response.Body.Close()
			}
			return
		}
		t.finished = true
		t.mu.Unlock()
		completion(res, err)
	}()
	return t
}

// Cancel abandons the task. An in-flight fallback request is cancelled
// through its context and the completion is suppressed. Cancel has no effect
// once the completion has started.
func (t *Task) Cancel() {
	t.mu.Lock()
	if !t.finished {
		t.cancelled = true
	}
	t.mu.Unlock()
	t.cancel()
}

// Wait blocks until the task has finished, including its completion.
func (t *Task) Wait() {
	<-t.done
}
