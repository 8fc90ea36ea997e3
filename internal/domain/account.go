package domain

import "time"

// Account - аккаунт с тарифом и счетчиком использованных запросов.
// Живет в хранилище, сервисы работают только со снимком.
type Account struct {
	ID              int64
	Username        string
	Plan            PlanType
	AllowedQueries  int
	QueriesUsed     int
	ResultsPerQuery int
	CreatedAt       time.Time
}

func (a *Account) QueriesRemaining() int {
	if rem := a.AllowedQueries - a.QueriesUsed; rem > 0 {
		return rem
	}
	return 0
}

// HasQuota - можно ли принять еще один поиск
func (a *Account) HasQuota() bool {
	return a.QueriesUsed < a.AllowedQueries
}

// NewFreeAccount - так заводятся новые пользователи
func NewFreeAccount(id int64, username string) *Account {
	q := ResolvePlan(PlanFree, 0, 0)
	return &Account{
		ID:              id,
		Username:        username,
		Plan:            PlanFree,
		AllowedQueries:  q.AllowedQueries,
		ResultsPerQuery: q.ResultsPerQuery,
		CreatedAt:       time.Now(),
	}
}

// UsageRecord - строка аудита, одна на каждый завершенный поиск
type UsageRecord struct {
	ID          int64
	AccountID   int64
	Query       string
	ResultCount int
	CreatedAt   time.Time
}
