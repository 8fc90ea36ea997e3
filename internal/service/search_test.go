package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/repository"
	"github.com/kitbuilder587/fetscr/internal/search"
	"github.com/kitbuilder587/fetscr/internal/search/mock"
)

type searchFixture struct {
	accounts *repository.MockAccountRepository
	usage    *repository.MockUsageRepository
	client   *mock.Client
	metrics  *metrics.Metrics
	svc      SearchService
}

func newSearchFixture(t *testing.T, cfg SearchConfig) *searchFixture {
	t.Helper()
	f := &searchFixture{
		accounts: repository.NewMockAccountRepository(),
		usage:    repository.NewMockUsageRepository(),
		client:   mock.New(),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	f.svc = NewSearchService(SearchServiceDeps{
		Accounts: f.accounts,
		Usage:    f.usage,
		Fetcher:  f.client,
		Logger:   zap.NewNop(),
		Metrics:  f.metrics,
		Config:   cfg,
	})
	return f
}

func (f *searchFixture) used(t *testing.T, id int64) int {
	t.Helper()
	a, err := f.accounts.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%d) error = %v", id, err)
	}
	return a.QueriesUsed
}

func TestSearchService_Simple(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(domain.NewFreeAccount(1, "alice"))
	f.client.WithPages("golang jobs", 2, 10)

	resp, err := f.svc.Search(context.Background(), &domain.SearchRequest{
		AccountID: 1,
		Query:     "golang",
		Keywords:  "jobs",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if resp.Mode != domain.ModeSimple {
		t.Errorf("Mode = %v, want simple", resp.Mode)
	}
	if len(resp.Results) != 5 || resp.ResultCount != 5 {
		t.Errorf("results = %d / count %d, want 5", len(resp.Results), resp.ResultCount)
	}
	if resp.QueriesUsed != 1 || resp.QueriesRemaining != 1 {
		t.Errorf("usage = (%d used, %d left), want (1, 1)", resp.QueriesUsed, resp.QueriesRemaining)
	}
	if resp.PlanType != domain.PlanFree || resp.AllowedQueries != 2 || resp.ResultsPerQuery != 5 {
		t.Errorf("plan = %+v", resp)
	}
	if resp.Partial {
		t.Error("Partial = true, want false")
	}
	if f.client.CallCount != 1 {
		t.Errorf("upstream calls = %d, want 1", f.client.CallCount)
	}

	records := f.usage.Records()
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Query != "golang jobs" || records[0].ResultCount != 5 {
		t.Errorf("record = %+v", records[0])
	}
	if got := testutil.ToFloat64(f.metrics.SearchesTotal.WithLabelValues("simple", "success")); got != 1 {
		t.Errorf("searches{simple,success} = %v, want 1", got)
	}
}

func TestSearchService_KeywordsConsumeOneQuery(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{KeywordConcurrency: 2})
	f.accounts.Put(newAccount(1, domain.PlanSub1, 30, 0, 20))
	for _, kw := range []string{"a", "b", "c", "d"} {
		f.client.WithPages("shoes "+kw, 2, 10)
	}

	resp, err := f.svc.Search(context.Background(), &domain.SearchRequest{
		AccountID: 1,
		Query:     "shoes",
		Keywords:  "a, b, c, d",
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := f.used(t, 1); got != 1 {
		t.Errorf("QueriesUsed = %d, want 1", got)
	}
	if resp.Mode != domain.ModeKeyword {
		t.Errorf("Mode = %v, want keyword", resp.Mode)
	}
	if len(resp.Keywords) != 4 || resp.ResultCount != 80 {
		t.Errorf("keywords = %v, count = %d", resp.Keywords, resp.ResultCount)
	}
	if resp.Results != nil {
		t.Error("Results must be empty in keyword mode")
	}

	records := f.usage.Records()
	if len(records) != 1 || records[0].Query != "shoes - a, b, c, d" || records[0].ResultCount != 80 {
		t.Errorf("records = %+v", records)
	}
}

func TestSearchService_PartialKeywords(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(newAccount(1, domain.PlanSub1, 30, 0, 20))
	f.client.WithPages("q a", 2, 10)
	f.client.WithPages("q b", 1, 4)

	resp, err := f.svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "q", Keywords: "a,b,c"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !resp.Partial {
		t.Error("Partial = false, want true")
	}
	if len(resp.IncompleteKeywords) != 2 || resp.IncompleteKeywords[0] != "b" || resp.IncompleteKeywords[1] != "c" {
		t.Errorf("IncompleteKeywords = %v, want [b c]", resp.IncompleteKeywords)
	}
	if got := f.used(t, 1); got != 1 {
		t.Errorf("partial search must still be charged, QueriesUsed = %d", got)
	}
	if got := testutil.ToFloat64(f.metrics.IncompleteResultsTotal.WithLabelValues("keyword")); got != 1 {
		t.Errorf("incomplete{keyword} = %v, want 1", got)
	}
}

func TestSearchService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *searchFixture)
		req     *domain.SearchRequest
		wantErr error
	}{
		{
			name:    "empty query and keywords",
			setup:   func(f *searchFixture) { f.accounts.Put(domain.NewFreeAccount(1, "")) },
			req:     &domain.SearchRequest{AccountID: 1, Query: "  ", Keywords: ""},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "only commas",
			setup:   func(f *searchFixture) { f.accounts.Put(domain.NewFreeAccount(1, "")) },
			req:     &domain.SearchRequest{AccountID: 1, Query: "q", Keywords: " , ,"},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name: "invalid request never touches store",
			setup: func(f *searchFixture) {
				f.accounts.GetErr = errors.New("store must not be called")
			},
			req:     &domain.SearchRequest{AccountID: 1},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "unknown account",
			setup:   func(f *searchFixture) {},
			req:     &domain.SearchRequest{AccountID: 42, Query: "q"},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "zero quota plan",
			setup:   func(f *searchFixture) { f.accounts.Put(newAccount(1, domain.PlanUnknown, 0, 0, 0)) },
			req:     &domain.SearchRequest{AccountID: 1, Query: "q"},
			wantErr: domain.ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSearchFixture(t, SearchConfig{})
			f.client.WithPages("q", 1, 10)
			tt.setup(f)

			_, err := f.svc.Search(context.Background(), tt.req)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Search() error = %v, want %v", err, tt.wantErr)
			}
			if f.client.CallCount != 0 {
				t.Errorf("upstream calls = %d, want 0", f.client.CallCount)
			}
			if f.accounts.IncrementCalls != 0 {
				t.Errorf("increment calls = %d, want 0", f.accounts.IncrementCalls)
			}
		})
	}
}

func TestSearchService_QuotaExhausted(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(newAccount(1, domain.PlanFree, 2, 2, 5))
	f.client.WithPages("q", 1, 10)

	_, err := f.svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "q"})

	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("Search() error = %v, want ErrQuotaExceeded", err)
	}
	if f.client.CallCount != 0 {
		t.Errorf("upstream calls = %d, want 0", f.client.CallCount)
	}
	if got := f.used(t, 1); got != 2 {
		t.Errorf("QueriesUsed = %d, want 2", got)
	}
	if got := testutil.ToFloat64(f.metrics.QuotaDeniedTotal); got != 1 {
		t.Errorf("quota_denied = %v, want 1", got)
	}
}

func TestSearchService_EmptyUpstreamStillCharged(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(domain.NewFreeAccount(1, ""))

	resp, err := f.svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "nothing here"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.ResultCount != 0 || !resp.Partial {
		t.Errorf("resp = %+v, want zero results marked partial", resp)
	}
	if got := f.used(t, 1); got != 1 {
		t.Errorf("QueriesUsed = %d, want 1", got)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(body), `"results":[]`) {
		t.Errorf("body = %s, want empty results array", body)
	}
}

func TestSearchService_CancelledNotCharged(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(domain.NewFreeAccount(1, ""))
	f.client.WithPages("q", 1, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Search(ctx, &domain.SearchRequest{AccountID: 1, Query: "q"})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Search() error = %v, want context.Canceled", err)
	}
	if got := f.used(t, 1); got != 0 {
		t.Errorf("QueriesUsed = %d, want 0", got)
	}
	if len(f.usage.Records()) != 0 {
		t.Error("cancelled search must not be audited")
	}
}

// stallingFetcher отдает первую страницу сразу, а остальные держит до отмены ctx
type stallingFetcher struct {
	stalled chan struct{}
	once    sync.Once
}

func newStallingFetcher() *stallingFetcher {
	return &stallingFetcher{stalled: make(chan struct{})}
}

func (f *stallingFetcher) FetchPage(ctx context.Context, query string, start int) search.Page {
	if start == 1 {
		return mock.MakePage(query, 1, 10, 11, true)
	}
	f.once.Do(func() { close(f.stalled) })
	<-ctx.Done()
	return search.EmptyPage()
}

func newStallingService(f *searchFixture, fetcher search.PageFetcher, timeout time.Duration) SearchService {
	return NewSearchService(SearchServiceDeps{
		Accounts: f.accounts,
		Usage:    f.usage,
		Fetcher:  fetcher,
		Logger:   zap.NewNop(),
		Metrics:  f.metrics,
		Config:   SearchConfig{Timeout: timeout},
	})
}

func TestSearchService_TimeBudgetReturnsCollected(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(&domain.Account{ID: 1, Plan: domain.PlanSub1, AllowedQueries: 30, ResultsPerQuery: 20})
	svc := newStallingService(f, newStallingFetcher(), 50*time.Millisecond)

	resp, err := svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(resp.Results) != 10 || resp.ResultCount != 10 {
		t.Errorf("results = %d, want the 10 collected before the budget ran out", len(resp.Results))
	}
	if !resp.Partial {
		t.Error("Partial = false, want true")
	}
	if got := f.used(t, 1); got != 1 {
		t.Errorf("QueriesUsed = %d, want 1", got)
	}
	records := f.usage.Records()
	if len(records) != 1 || records[0].ResultCount != 10 {
		t.Errorf("usage records = %+v", records)
	}
}

func TestSearchService_CallerCancelWithinBudgetNotCharged(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(&domain.Account{ID: 1, Plan: domain.PlanSub1, AllowedQueries: 30, ResultsPerQuery: 20})
	fetcher := newStallingFetcher()
	svc := newStallingService(f, fetcher, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-fetcher.stalled
		cancel()
	}()

	_, err := svc.Search(ctx, &domain.SearchRequest{AccountID: 1, Query: "q"})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Search() error = %v, want context.Canceled", err)
	}
	if got := f.used(t, 1); got != 0 {
		t.Errorf("QueriesUsed = %d, want 0", got)
	}
	if len(f.usage.Records()) != 0 {
		t.Error("cancelled search must not be audited")
	}
}

func TestSearchService_IncrementFailure(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(domain.NewFreeAccount(1, ""))
	f.accounts.IncrementErr = errors.New("deadlock detected")
	f.client.WithPages("q", 1, 10)

	_, err := f.svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "q"})

	if !errors.Is(err, domain.ErrUsageNotRecorded) {
		t.Fatalf("Search() error = %v, want ErrUsageNotRecorded", err)
	}
	if got := testutil.ToFloat64(f.metrics.SearchesTotal.WithLabelValues("simple", "commit_error")); got != 1 {
		t.Errorf("searches{simple,commit_error} = %v, want 1", got)
	}
}

func TestSearchService_AuditFailureStillSucceeds(t *testing.T) {
	f := newSearchFixture(t, SearchConfig{})
	f.accounts.Put(domain.NewFreeAccount(1, ""))
	f.usage.AppendErr = errors.New("insert failed")
	f.client.WithPages("q", 1, 10)

	resp, err := f.svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "q"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.QueriesUsed != 1 {
		t.Errorf("QueriesUsed = %d, want 1", resp.QueriesUsed)
	}
}

// barrierFetcher держит все вызовы, пока не придут n штук,
// так оба поиска гарантированно проходят проверку квоты до коммита
type barrierFetcher struct {
	mu      sync.Mutex
	arrived int
	n       int
	release chan struct{}
}

func newBarrierFetcher(n int) *barrierFetcher {
	return &barrierFetcher{n: n, release: make(chan struct{})}
}

func (f *barrierFetcher) FetchPage(ctx context.Context, query string, start int) search.Page {
	f.mu.Lock()
	f.arrived++
	if f.arrived == f.n {
		close(f.release)
	}
	f.mu.Unlock()

	select {
	case <-f.release:
	case <-ctx.Done():
		return search.EmptyPage()
	}
	return mock.MakePage(query, start, 5, start+5, false)
}

func TestSearchService_LastSlotRace(t *testing.T) {
	tests := []struct {
		name         string
		strict       bool
		wantFailures int
		wantUsed     int
	}{
		{"baseline lets both through", false, 0, 3},
		{"strict rejects the loser", true, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := repository.NewMockAccountRepository()
			accounts.Put(newAccount(1, domain.PlanFree, 2, 1, 5))

			svc := NewSearchService(SearchServiceDeps{
				Accounts: accounts,
				Usage:    repository.NewMockUsageRepository(),
				Fetcher:  newBarrierFetcher(2),
				Logger:   zap.NewNop(),
				Config:   SearchConfig{StrictQuota: tt.strict, Timeout: 5 * time.Second},
			})

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = svc.Search(context.Background(), &domain.SearchRequest{AccountID: 1, Query: "q"})
				}()
			}
			wg.Wait()

			failures := 0
			for _, err := range errs {
				if err == nil {
					continue
				}
				if !errors.Is(err, domain.ErrQuotaExceeded) {
					t.Errorf("unexpected error: %v", err)
				}
				failures++
			}
			if failures != tt.wantFailures {
				t.Errorf("failures = %d, want %d", failures, tt.wantFailures)
			}

			a, _ := accounts.GetByID(context.Background(), 1)
			if a.QueriesUsed != tt.wantUsed {
				t.Errorf("QueriesUsed = %d, want %d", a.QueriesUsed, tt.wantUsed)
			}
		})
	}
}
