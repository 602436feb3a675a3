package manager

import "sync"

// registry tracks which job ids currently have a running execution, giving
// at-most-one-concurrent-execution-per-job. It is owned by one Manager
// instance, never process-global.
type registry struct {
	mu      sync.Mutex
	running map[string]struct{}
}

func newRegistry() *registry {
	return &registry{running: make(map[string]struct{})}
}

// acquire registers id and reports whether the caller won the registration.
func (r *registry) acquire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.running[id]; ok {
		return false
	}
	r.running[id] = struct{}{}
	return true
}

// release removes the registration so the job could be started again later.
func (r *registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}
