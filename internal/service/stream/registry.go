package stream

import (
	"context"
	"sync"

	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"golang.org/x/sync/singleflight"
)

// Registry maps camera ids to live workers. Concurrent Ensure calls for the same
// camera share one start; different cameras start independently.
type Registry struct {
	opener Opener
	opts   WorkerOptions
	logger *logger.Logger

	mu      sync.Mutex
	workers map[string]*Worker
	group   singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry(opener Opener, opts WorkerOptions, log *logger.Logger) *Registry {
	return &Registry{
		opener:  opener,
		opts:    opts,
		logger:  log,
		workers: make(map[string]*Worker),
	}
}

// Ensure returns the running worker for camera, creating and starting one when
// none is live. ctx bounds only the caller's wait; a start in progress keeps
// going for other callers.
func (r *Registry) Ensure(ctx context.Context, camera model.Camera) (*Worker, error) {
	if w := r.live(camera.ID); w != nil {
		return w, nil
	}

	ch := r.group.DoChan(camera.ID, func() (interface{}, error) {
		if w := r.live(camera.ID); w != nil {
			return w, nil
		}

		w := NewWorker(camera, r.opener, r.opts, r.logger)
		r.mu.Lock()
		r.workers[camera.ID] = w
		r.mu.Unlock()

		if err := w.Start(); err != nil {
			r.remove(camera.ID, w)
			return nil, err
		}
		return w, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Worker), nil
	}
}

// live returns the running worker for id and forgets workers that died.
func (r *Registry) live(id string) *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.workers[id]
	if !ok {
		return nil
	}
	switch w.State() {
	case StateRunning:
		return w
	case StateStopping, StateStopped:
		delete(r.workers, id)
	}
	return nil
}

func (r *Registry) remove(id string, w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers[id] == w {
		delete(r.workers, id)
	}
}

// Get returns the worker registered for id, if any.
func (r *Registry) Get(id string) (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	return w, ok
}

// Running reports whether camera id has a running worker.
func (r *Registry) Running(id string) bool {
	w, ok := r.Get(id)
	return ok && w.Running()
}

// Len is the number of registered workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Stop removes and stops the worker for id. It reports whether one existed.
// A worker still opening its source is aborted.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	w, ok := r.workers[id]
	delete(r.workers, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	w.Stop()
	return true
}

// StopWorker is Stop without the result, for use as a catalog delete hook.
func (r *Registry) StopWorker(id string) {
	r.Stop(id)
}

// StopAll stops every registered worker.
func (r *Registry) StopAll() {
	r.mu.Lock()
	workers := make([]*Worker, 0, len(r.workers))
	for id, w := range r.workers {
		workers = append(workers, w)
		delete(r.workers, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
	r.logger.Info("Stopped %d camera workers", len(workers))
}
