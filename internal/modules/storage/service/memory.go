package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"smc_bot/internal/models"
)

// Memory is a process-local Store used for development and tests.
type Memory struct {
	mu      sync.RWMutex
	signals map[string]models.Signal
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{signals: make(map[string]models.Signal)}
}

func (m *Memory) Create(_ context.Context, s models.Signal) (string, error) {
	s.ID = uuid.NewString()
	s.Reasoning = append([]string(nil), s.Reasoning...)

	m.mu.Lock()
	m.signals[s.ID] = s
	m.mu.Unlock()
	return s.ID, nil
}

func (m *Memory) Get(_ context.Context, id string) (models.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.signals[id]
	if !ok {
		return models.Signal{}, models.ErrSignalNotFound
	}
	return models.SignalPatch{}.Apply(s), nil
}

func (m *Memory) Update(_ context.Context, id string, patch models.SignalPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signals[id]
	if !ok {
		return models.ErrSignalNotFound
	}
	m.signals[id] = patch.Apply(s)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signals[id]; !ok {
		return models.ErrSignalNotFound
	}
	delete(m.signals, id)
	return nil
}

func (m *Memory) List(_ context.Context, userID string, limit int) ([]models.Signal, error) {
	out := m.filter(userID, func(models.Signal) bool { return true })
	return limitList(out, limit), nil
}

func (m *Memory) Tracked(_ context.Context, userID string) ([]models.Signal, error) {
	return m.filter(userID, func(s models.Signal) bool { return s.Tracked }), nil
}

func (m *Memory) OpenTracked(_ context.Context, userID string) ([]models.Signal, error) {
	return m.filter(userID, models.Signal.Active), nil
}

func (m *Memory) filter(userID string, keep func(models.Signal) bool) []models.Signal {
	m.mu.RLock()
	out := make([]models.Signal, 0, len(m.signals))
	for _, s := range m.signals {
		if s.UserID == userID && keep(s) {
			out = append(out, models.SignalPatch{}.Apply(s))
		}
	}
	m.mu.RUnlock()
	newestFirst(out)
	return out
}
