package domain

import "testing"

func TestAggregatedResult_Count(t *testing.T) {
	simple := &AggregatedResult{
		Mode:    ModeSimple,
		Results: make([]ResultItem, 7),
	}
	if got := simple.Count(); got != 7 {
		t.Errorf("simple Count() = %d, want 7", got)
	}

	kw := &AggregatedResult{
		Mode: ModeKeyword,
		ByKeyword: map[string][]ResultItem{
			"a": make([]ResultItem, 3),
			"b": nil,
			"c": make([]ResultItem, 5),
		},
		Keywords: []string{"a", "b", "c"},
	}
	if got := kw.Count(); got != 8 {
		t.Errorf("keyword Count() = %d, want 8", got)
	}
}

func TestAggregatedResult_Partial(t *testing.T) {
	r := &AggregatedResult{Mode: ModeKeyword}
	if r.Partial() {
		t.Error("Partial() = true for complete result")
	}
	r.Incomplete = []string{"b"}
	if !r.Partial() {
		t.Error("Partial() = false with incomplete keywords")
	}
}

func TestNewPlanInfo(t *testing.T) {
	info := NewPlanInfo(&Account{Plan: PlanSub1, AllowedQueries: 30, QueriesUsed: 31, ResultsPerQuery: 20})
	if info.QueriesRemaining != 0 {
		t.Errorf("QueriesRemaining = %d, want 0", info.QueriesRemaining)
	}
	if info.PlanType != PlanSub1 {
		t.Errorf("PlanType = %q, want sub1", info.PlanType)
	}
}
