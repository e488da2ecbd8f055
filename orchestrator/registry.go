package orchestrator

import (
	"sync"

	"go.uber.org/zap"

	"github.com/printforge/printflow/types"
)

// Registry is the concurrency-safe store of all known workflows. It
// keeps both a map for lookup and the insertion order so List returns
// workflows oldest-created first.
type Registry struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	order     []*Workflow
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		workflows: make(map[string]*Workflow),
		logger:    logger.With(zap.String("component", "registry")),
	}
}

// Insert stores a new workflow. Duplicate ids are rejected; the id space
// is uuid so a collision indicates a bug, not caller error.
func (r *Registry) Insert(w *Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[w.ID]; exists {
		return types.NewError(types.ErrInternalError, "duplicate workflow id "+w.ID)
	}
	r.workflows[w.ID] = w
	r.order = append(r.order, w)

	r.logger.Debug("workflow registered", zap.String("workflow_id", w.ID))
	return nil
}

// Get returns the workflow with the given id.
func (r *Registry) Get(id string) (*Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workflows[id]
	return w, ok
}

// List returns every tracked workflow, oldest-created first.
func (r *Registry) List() []*Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Workflow, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of tracked workflows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workflows)
}
