package sessions

import (
	"context"
	"fmt"
	"time"

	"peerprep/interview/internal/interview"
	"peerprep/interview/internal/store"

	"go.uber.org/zap"
)

// Machines hands out one interview.Machine per candidate, rehydrated from
// the session store the first time it is needed after an idle eviction.
type Machines struct {
	registry *Registry[*interview.Machine]
	backend  interview.Backend
	store    store.Backend
	logger   *zap.Logger
}

func NewMachines(backend interview.Backend, sessionStore store.Backend, idleTTL time.Duration, logger *zap.Logger) *Machines {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machines{
		registry: NewRegistry[*interview.Machine](idleTTL, logger),
		backend:  backend,
		store:    sessionStore,
		logger:   logger,
	}
}

// Get returns the candidate's machine, restoring its saved session on creation.
func (m *Machines) Get(ctx context.Context, candidateID string) (*interview.Machine, error) {
	return m.registry.GetOrCreate(candidateID, func() (*interview.Machine, error) {
		repo := store.NewRepository(m.store, candidateID)
		machine := interview.NewMachine(m.backend, repo, m.logger.With(zap.String("candidate_id", candidateID)))
		if err := machine.Restore(ctx); err != nil {
			return nil, fmt.Errorf("failed to restore session for %s: %w", candidateID, err)
		}
		return machine, nil
	})
}

func (m *Machines) Size() int { return m.registry.Size() }

func (m *Machines) Close() { m.registry.Close() }
