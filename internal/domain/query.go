package domain

import (
	"strings"
)

// SearchRequest - входной поиск; AccountID уже проверен транспортом
type SearchRequest struct {
	AccountID int64
	Query     string
	Keywords  string
}

// SubQuery - одна единица поиска. Label пустой в простом режиме.
type SubQuery struct {
	Label string
	Text  string
}

func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" && strings.TrimSpace(r.Keywords) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// IsKeywordMode - запятая в keywords включает поиск по каждому слову отдельно
func (r *SearchRequest) IsKeywordMode() bool {
	return strings.Contains(r.Keywords, ",")
}

// AuditText - что пишем в историю запросов
func (r *SearchRequest) AuditText() string {
	if r.IsKeywordMode() {
		return strings.TrimSpace(r.Query) + " - " + strings.TrimSpace(r.Keywords)
	}
	return joinQuery(r.Query, r.Keywords)
}

// Expand разбивает запрос на подзапросы в порядке следования ключевых слов.
func Expand(query, keywords string) ([]SubQuery, error) {
	req := SearchRequest{Query: query, Keywords: keywords}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !req.IsKeywordMode() {
		return []SubQuery{{Label: "", Text: joinQuery(query, keywords)}}, nil
	}

	var subs []SubQuery
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		subs = append(subs, SubQuery{Label: kw, Text: joinQuery(query, kw)})
	}

	// ",,," и подобное - это не пустой результат, а кривой запрос
	if len(subs) == 0 {
		return nil, ErrInvalidRequest
	}
	return subs, nil
}

// IsSimple - ровно один подзапрос без метки
func IsSimple(subs []SubQuery) bool {
	return len(subs) == 1 && subs[0].Label == ""
}

func joinQuery(query, keywords string) string {
	return strings.TrimSpace(strings.TrimSpace(query) + " " + strings.TrimSpace(keywords))
}
