package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"peerprep/interview/internal/models"
)

// Repository stores one candidate's session under a fixed key.
type Repository struct {
	backend Backend
	key     string
}

// NewRepository scopes the session storage key to candidateID.
func NewRepository(backend Backend, candidateID string) *Repository {
	return &Repository{backend: backend, key: SessionKey(candidateID)}
}

func SessionKey(candidateID string) string {
	if candidateID == "" {
		return models.SessionStorageKey
	}
	return models.SessionStorageKey + ":" + candidateID
}

func (r *Repository) Key() string { return r.key }

// Load returns nil without error when no session is stored.
func (r *Repository) Load(ctx context.Context) (*models.Session, error) {
	data, err := r.backend.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", r.key, err)
	}
	return &session, nil
}

func (r *Repository) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return r.backend.Put(ctx, r.key, data)
}

func (r *Repository) Clear(ctx context.Context) error {
	return r.backend.Delete(ctx, r.key)
}
