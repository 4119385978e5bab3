// Package memory implements an in-memory model store for tests and ephemeral
// runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"genomecore/pkg/domain"
)

var _ domain.ModelStore = (*Store)(nil)

type record struct {
	info    domain.ModelInfo
	payload []byte
}

// Store keeps serialized model documents in process memory.
type Store struct {
	mu          sync.RWMutex
	models      map[string]record
	now         func() time.Time
	newRevision func() string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		models:      make(map[string]record),
		now:         func() time.Time { return time.Now().UTC() },
		newRevision: uuid.NewString,
	}
}

// Save replaces the stored document and mints a new revision.
func (s *Store) Save(ctx context.Context, name string, payload []byte) (domain.ModelInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.ModelInfo{}, err
	}
	if name == "" {
		return domain.ModelInfo{}, domain.Contract("Save", domain.ErrInvalidArgument, "model name required")
	}
	info := domain.ModelInfo{
		Name:      name,
		Revision:  s.newRevision(),
		Size:      int64(len(payload)),
		UpdatedAt: s.now(),
	}
	s.mu.Lock()
	s.models[name] = record{info: info, payload: append([]byte(nil), payload...)}
	s.mu.Unlock()
	return info, nil
}

// Load returns a copy of the stored document.
func (s *Store) Load(ctx context.Context, name string) ([]byte, domain.ModelInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.ModelInfo{}, err
	}
	s.mu.RLock()
	rec, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ModelInfo{}, domain.Contract("Load", domain.ErrNotFound, "model %s", name)
	}
	return append([]byte(nil), rec.payload...), rec.info, nil
}

// List returns every stored model in name order.
func (s *Store) List(ctx context.Context) ([]domain.ModelInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.ModelInfo, 0, len(s.models))
	for _, rec := range s.models {
		out = append(out, rec.info)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a model, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.models[name]
	delete(s.models, name)
	return ok, nil
}
