package domain

import (
	"context"
	"time"
)

// ModelInfo describes a stored model document.
type ModelInfo struct {
	Name      string    `json:"name"`
	Revision  string    `json:"revision"`
	Size      int64     `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModelStore persists serialized model documents keyed by name. Every Save
// mints a new revision.
type ModelStore interface {
	Save(ctx context.Context, name string, payload []byte) (ModelInfo, error)
	Load(ctx context.Context, name string) ([]byte, ModelInfo, error)
	List(ctx context.Context) ([]ModelInfo, error)
	Delete(ctx context.Context, name string) (bool, error)
}
