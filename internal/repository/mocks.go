package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kitbuilder587/fetscr/internal/domain"
)

type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account

	// для тестов сбоев хранилища
	IncrementErr error
	GetErr       error

	IncrementCalls int
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[int64]*domain.Account),
	}
}

// Put кладет копию аккаунта как есть
func (m *MockAccountRepository) Put(a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.accounts[a.ID] = &cp
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepository) GetOrCreate(ctx context.Context, id int64, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.accounts[id]; ok {
		if username != "" {
			a.Username = username
		}
		cp := *a
		return &cp, nil
	}

	a := domain.NewFreeAccount(id, username)
	m.accounts[id] = a
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepository) IncrementUsage(ctx context.Context, id int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IncrementCalls++
	if m.IncrementErr != nil {
		return nil, m.IncrementErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a.QueriesUsed++
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepository) IncrementUsageIfAvailable(ctx context.Context, id int64) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IncrementCalls++
	if m.IncrementErr != nil {
		return nil, m.IncrementErr
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if !a.HasQuota() {
		return nil, domain.ErrQuotaExceeded
	}
	a.QueriesUsed++
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepository) UpdatePlan(ctx context.Context, id int64, plan domain.PlanType, quota domain.Quota) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Plan = plan
	a.AllowedQueries = quota.AllowedQueries
	a.ResultsPerQuery = quota.ResultsPerQuery
	a.QueriesUsed = 0
	return nil
}

type MockUsageRepository struct {
	mu      sync.RWMutex
	records []domain.UsageRecord
	nextID  int64

	AppendErr error
}

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{nextID: 1}
}

func (m *MockUsageRepository) Append(ctx context.Context, record *domain.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return m.AppendErr
	}
	record.ID = m.nextID
	m.nextID++
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *MockUsageRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []domain.UsageRecord
	for _, r := range m.records {
		if r.AccountID == accountID {
			result = append(result, r)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Records - все записи в порядке добавления
func (m *MockUsageRepository) Records() []domain.UsageRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.UsageRecord, len(m.records))
	copy(out, m.records)
	return out
}
