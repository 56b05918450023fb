package store

import (
	"context"
	"sync"

	"noro/internal/sentinel"
	"noro/internal/tenant/models"
	id "noro/pkg/domain"
)

// Memory is an in-memory tenant store for tests and local development.
type Memory struct {
	mu      sync.RWMutex
	byID    map[id.TenantID]*models.Tenant
	bySlug  map[string]id.TenantID
}

// NewMemory creates an empty in-memory tenant store.
func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[id.TenantID]*models.Tenant),
		bySlug: make(map[string]id.TenantID),
	}
}

func (m *Memory) Create(_ context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySlug[tenant.Slug]; exists {
		return sentinel.ErrAlreadyUsed
	}

	cp := *tenant
	m.byID[tenant.ID] = &cp
	m.bySlug[tenant.Slug] = tenant.ID
	return nil
}

func (m *Memory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenant, ok := m.byID[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *tenant
	return &cp, nil
}

func (m *Memory) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenantID, ok := m.bySlug[slug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m.byID[tenantID]
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[tenant.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *tenant
	m.byID[tenant.ID] = &cp
	return nil
}

func (m *Memory) CountByStatus(_ context.Context, status models.TenantStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, tenant := range m.byID {
		if tenant.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}
