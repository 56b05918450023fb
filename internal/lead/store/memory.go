package store

import (
	"context"
	"sort"
	"sync"

	"noro/internal/lead/models"
	"noro/internal/sentinel"
	id "noro/pkg/domain"
)

// Memory is an in-memory lead store for tests and local development. State is
// partitioned by tenant ID, mirroring the per-schema isolation of the
// Postgres store.
type Memory struct {
	mu      sync.Mutex
	tenants map[id.TenantID]*memState
}

type memState struct {
	leads      map[id.LeadID]*models.Lead
	activities []*models.LeadActivity
	tasks      map[id.TaskID]*models.Task
}

// NewMemory creates an empty in-memory lead store.
func NewMemory() *Memory {
	return &Memory{tenants: make(map[id.TenantID]*memState)}
}

func (m *Memory) state(scope models.Scope) *memState {
	st, ok := m.tenants[scope.TenantID]
	if !ok {
		st = &memState{
			leads: make(map[id.LeadID]*models.Lead),
			tasks: make(map[id.TaskID]*models.Task),
		}
		m.tenants[scope.TenantID] = st
	}
	return st
}

// CreateLead appends the lead to the bottom of its stage and records the
// creation activity in the same step.
func (m *Memory) CreateLead(_ context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(scope)
	count := 0
	for _, existing := range st.leads {
		if existing.Stage == lead.Stage {
			count++
		}
	}
	lead.Position = count + 1

	cp := *lead
	st.leads[lead.ID] = &cp
	acp := *activity
	st.activities = append(st.activities, &acp)
	return nil
}

func (m *Memory) FindLead(_ context.Context, scope models.Scope, leadID id.LeadID) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.state(scope).leads[leadID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *lead
	return &cp, nil
}

// ListLeads returns leads ordered by stage then position. An empty stage
// returns the whole board.
func (m *Memory) ListLeads(_ context.Context, scope models.Scope, stage models.Stage) ([]*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Lead
	for _, lead := range m.state(scope).leads {
		if stage != "" && lead.Stage != stage {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateOwner persists a new owner and the assignment activity together.
func (m *Memory) UpdateOwner(_ context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	return m.updateWithActivity(scope, lead, activity)
}

// UpdateStage persists a stage change and the status activity together.
func (m *Memory) UpdateStage(_ context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	return m.updateWithActivity(scope, lead, activity)
}

func (m *Memory) updateWithActivity(scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(scope)
	if _, ok := st.leads[lead.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *lead
	st.leads[lead.ID] = &cp
	acp := *activity
	st.activities = append(st.activities, &acp)
	return nil
}

// Reorder assigns position index+1 to each listed lead. All updates land
// together or not at all; a lead that is missing or sits in another stage
// aborts the whole call.
func (m *Memory) Reorder(_ context.Context, scope models.Scope, stage models.Stage, ordered []id.LeadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state(scope)
	for _, leadID := range ordered {
		lead, ok := st.leads[leadID]
		if !ok || lead.Stage != stage {
			return sentinel.ErrNotFound
		}
	}
	for i, leadID := range ordered {
		st.leads[leadID].Position = i + 1
	}
	return nil
}

func (m *Memory) CreateTask(_ context.Context, scope models.Scope, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *task
	m.state(scope).tasks[task.ID] = &cp
	return nil
}

// ListActivities returns the activity history for one lead, oldest first.
func (m *Memory) ListActivities(_ context.Context, scope models.Scope, leadID id.LeadID) ([]*models.LeadActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.LeadActivity
	for _, activity := range m.state(scope).activities {
		if activity.LeadID != leadID {
			continue
		}
		cp := *activity
		out = append(out, &cp)
	}
	return out, nil
}
