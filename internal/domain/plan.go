package domain

import "strings"

type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanSub1       PlanType = "sub1"
	PlanSub2       PlanType = "sub2"
	PlanSub3       PlanType = "sub3"
	PlanSub4       PlanType = "sub4"
	PlanEnterprise PlanType = "enterprise"
	PlanUnknown    PlanType = "unknown"
)

const (
	MaxEnterpriseQueries = 10000
	MaxEnterpriseResults = 100
)

// Quota - пара (allowed_queries, results_per_query)
type Quota struct {
	AllowedQueries  int
	ResultsPerQuery int
}

var fixedPlans = map[PlanType]Quota{
	PlanFree: {AllowedQueries: 2, ResultsPerQuery: 5},
	PlanSub1: {AllowedQueries: 30, ResultsPerQuery: 20},
	PlanSub2: {AllowedQueries: 30, ResultsPerQuery: 50},
	PlanSub3: {AllowedQueries: 30, ResultsPerQuery: 25},
	PlanSub4: {AllowedQueries: 20, ResultsPerQuery: 50},
}

// ParsePlan - только точное совпадение, всё прочее -> PlanUnknown
func ParsePlan(s string) PlanType {
	p := PlanType(strings.ToLower(strings.TrimSpace(s)))
	if p.IsValid() {
		return p
	}
	return PlanUnknown
}

func (p PlanType) IsValid() bool {
	switch p {
	case PlanFree, PlanSub1, PlanSub2, PlanSub3, PlanSub4, PlanEnterprise:
		return true
	}
	return false
}

func (p PlanType) String() string { return string(p) }

// ResolvePlan отдает квоты тарифа. requestedQueries/requestedResults
// учитываются только для enterprise. Неизвестный тариф -> нулевая квота.
func ResolvePlan(plan PlanType, requestedQueries, requestedResults int) Quota {
	if plan == PlanEnterprise {
		return Quota{
			AllowedQueries:  clamp(requestedQueries, 1, MaxEnterpriseQueries),
			ResultsPerQuery: clamp(requestedResults, 1, MaxEnterpriseResults),
		}
	}
	return fixedPlans[plan]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
