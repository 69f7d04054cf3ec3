package media

import (
	"sync"

	"github.com/google/uuid"

	"github.com/aiimpactmedia/casting/internal/model"
)

// Preview is a handle that keeps an artifact viewable until released
type Preview struct {
	ID   string
	pool *PreviewPool
	once sync.Once
}

// Release drops the handle. Safe to call more than once.
func (p *Preview) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.pool.release(p.ID)
	})
}

// PreviewPool tracks live preview handles
type PreviewPool struct {
	mu   sync.RWMutex
	live map[string]model.Artifact
}

// NewPreviewPool creates an empty pool
func NewPreviewPool() *PreviewPool {
	return &PreviewPool{live: make(map[string]model.Artifact)}
}

// Acquire registers a new handle for a
func (p *PreviewPool) Acquire(a model.Artifact) *Preview {
	id := uuid.New().String()

	p.mu.Lock()
	p.live[id] = a
	p.mu.Unlock()

	return &Preview{ID: id, pool: p}
}

// Lookup returns the artifact behind a live handle
func (p *PreviewPool) Lookup(id string) (model.Artifact, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.live[id]
	return a, ok
}

// Live returns the number of handles not yet released
func (p *PreviewPool) Live() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.live)
}

func (p *PreviewPool) release(id string) {
	p.mu.Lock()
	delete(p.live, id)
	p.mu.Unlock()
}
