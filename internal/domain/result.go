package domain

type SearchMode string

const (
	ModeSimple  SearchMode = "simple"
	ModeKeyword SearchMode = "keyword"
)

// ResultItem - одна выдача провайдера
type ResultItem struct {
	Title          string `json:"title"`
	Snippet        string `json:"snippet"`
	Link           string `json:"link"`
	Image          string `json:"image"`
	NextStartIndex int    `json:"startIndex"`
	HasMore        bool   `json:"hasMoreResults"`
}

// AggregatedResult - итог по всем подзапросам.
// Для keyword-режима порядок ключей хранится в Keywords.
type AggregatedResult struct {
	Mode       SearchMode
	Results    []ResultItem
	ByKeyword  map[string][]ResultItem
	Keywords   []string
	Incomplete []string
}

// Count - сколько результатов уйдет в аудит
func (r *AggregatedResult) Count() int {
	if r.Mode == ModeSimple {
		return len(r.Results)
	}
	n := 0
	for _, items := range r.ByKeyword {
		n += len(items)
	}
	return n
}

func (r *AggregatedResult) Partial() bool {
	return len(r.Incomplete) > 0
}

// SearchResponse - то, что видит вызывающая сторона
type SearchResponse struct {
	Mode               SearchMode              `json:"mode"`
	Results            []ResultItem            `json:"results"`
	ResultsByKeyword   map[string][]ResultItem `json:"resultsByKeyword,omitempty"`
	Keywords           []string                `json:"keywords,omitempty"`
	ResultCount        int                     `json:"resultCount"`
	QueriesUsed        int                     `json:"queriesUsed"`
	QueriesRemaining   int                     `json:"queriesRemaining"`
	PlanType           PlanType                `json:"planType"`
	AllowedQueries     int                     `json:"allowedQueries"`
	ResultsPerQuery    int                     `json:"resultsPerQuery"`
	Partial            bool                    `json:"partial"`
	IncompleteKeywords []string                `json:"incompleteKeywords,omitempty"`
}

// PlanInfo - текущее состояние тарифа аккаунта
type PlanInfo struct {
	PlanType         PlanType `json:"planType"`
	AllowedQueries   int      `json:"allowedQueries"`
	QueriesUsed      int      `json:"queriesUsed"`
	QueriesRemaining int      `json:"queriesRemaining"`
	ResultsPerQuery  int      `json:"resultsPerQuery"`
}

func NewPlanInfo(a *Account) *PlanInfo {
	return &PlanInfo{
		PlanType:         a.Plan,
		AllowedQueries:   a.AllowedQueries,
		QueriesUsed:      a.QueriesUsed,
		QueriesRemaining: a.QueriesRemaining(),
		ResultsPerQuery:  a.ResultsPerQuery,
	}
}
