package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/callrota/pkg/errors"
)

// MemoryStore 内存运行记录存储，未配置数据库时使用
type MemoryStore struct {
	runs        map[uuid.UUID]*RotaRun
	assignments map[uuid.UUID][]*RotaAssignment
	mu          sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:        make(map[uuid.UUID]*RotaRun),
		assignments: make(map[uuid.UUID][]*RotaAssignment),
	}
}

// SaveRun 保存运行记录；同 ID 视为冲突
func (m *MemoryStore) SaveRun(_ context.Context, run *RotaRun, assignments []*RotaAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if _, exists := m.runs[run.ID]; exists {
		return apperrors.InvalidInput("id", "运行记录已存在")
	}
	m.runs[run.ID] = run
	m.assignments[run.ID] = assignments
	return nil
}

// GetRun 获取运行记录
func (m *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*RotaRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, apperrors.NotFound("运行记录", id.String())
	}
	return run, nil
}

// ListRuns 列出运行记录，过滤与排序规则同 RotaRepository
func (m *MemoryStore) ListRuns(_ context.Context, filter ListFilter) ([]*RotaRun, int, error) {
	filter = filter.normalize()

	m.mu.RLock()
	var matched []*RotaRun
	for _, run := range m.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		if filter.Classification != "" && run.Classification != filter.Classification {
			continue
		}
		if filter.StartDate != "" && run.StartDate < filter.StartDate {
			continue
		}
		if filter.EndDate != "" && run.StartDate > filter.EndDate {
			continue
		}
		matched = append(matched, run)
	}
	m.mu.RUnlock()

	less := func(a, b *RotaRun) bool {
		switch filter.OrderBy {
		case "start_date":
			return a.StartDate < b.StartDate
		case "objective":
			return a.Objective < b.Objective
		case "status":
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if filter.OrderDir == "asc" {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

// GetAssignments 获取某次运行的全部分配
func (m *MemoryStore) GetAssignments(_ context.Context, runID uuid.UUID) ([]*RotaAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[runID]; !ok {
		return nil, apperrors.NotFound("运行记录", runID.String())
	}
	return m.assignments[runID], nil
}

// DeleteRun 删除运行记录
func (m *MemoryStore) DeleteRun(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return apperrors.NotFound("运行记录", id.String())
	}
	delete(m.runs, id)
	delete(m.assignments, id)
	return nil
}
