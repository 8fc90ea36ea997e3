package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/search"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

	defaultTimeout         = 15 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	maxBodySize            = 4 << 20
)

// причины деградации, они же значения label reason в метриках
const (
	reasonStatus      = "status"
	reasonTransport   = "transport"
	reasonDecode      = "decode"
	reasonNoItems     = "no_items"
	reasonBreakerOpen = "breaker_open"
	reasonRateLimited = "rate_limited"
)

var errBadRequest = errors.New("bad request")

type Config struct {
	APIKey  string
	CX      string
	BaseURL string
	Timeout time.Duration

	// RequestsPerSecond <= 0 - без ограничения
	RequestsPerSecond float64
	Burst             int

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Client - Google Custom Search JSON API
type Client struct {
	apiKey  string
	cx      string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*cseResponse]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = defaultBreakerFailures
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker[*cseResponse](gobreaker.Settings{
		Name:        "google-cse",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// 400 и отмена запроса клиентом - не проблема провайдера
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errBadRequest) || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		apiKey:  cfg.APIKey,
		cx:      cfg.CX,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		logger:  logger,
		metrics: m,
	}
}

type cseResponse struct {
	Items   []cseItem  `json:"items"`
	Queries cseQueries `json:"queries"`
}

type cseQueries struct {
	NextPage []cseQuery `json:"nextPage"`
}

type cseQuery struct {
	StartIndex int `json:"startIndex"`
}

type cseItem struct {
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Link    string     `json:"link"`
	Pagemap csePagemap `json:"pagemap"`
}

type csePagemap struct {
	Thumbnails []cseThumbnail `json:"cse_thumbnail"`
}

type cseThumbnail struct {
	Src string `json:"src"`
}

// FetchPage не возвращает ошибок: любой сбой провайдера дает пустую страницу.
func (c *Client) FetchPage(ctx context.Context, query string, start int) search.Page {
	started := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return c.degrade(query, start, reasonRateLimited, err, started)
	}

	resp, err := c.breaker.Execute(func() (*cseResponse, error) {
		return c.do(ctx, query, start)
	})
	if err != nil {
		return c.degrade(query, start, reasonFor(err), err, started)
	}

	if len(resp.Items) == 0 {
		return c.degrade(query, start, reasonNoItems, search.ErrEmptyResults, started)
	}

	if c.metrics != nil {
		c.metrics.RecordUpstreamPage("ok", time.Since(started))
	}
	return toPage(resp)
}

func (c *Client) do(ctx context.Context, query string, start int) (*cseResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", query)
	params.Set("start", strconv.Itoa(start))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &statusError{code: resp.StatusCode, err: search.ErrUnauthorized}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &statusError{code: resp.StatusCode, err: search.ErrRateLimit}
	case resp.StatusCode == http.StatusBadRequest:
		return nil, &statusError{code: resp.StatusCode, err: errBadRequest}
	default:
		return nil, &statusError{code: resp.StatusCode, err: search.ErrSearchFailed}
	}

	var cse cseResponse
	if err := json.Unmarshal(body, &cse); err != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrMalformed, err)
	}
	return &cse, nil
}

func (c *Client) degrade(query string, start int, reason string, err error, started time.Time) search.Page {
	c.logger.Warn("upstream page degraded to empty",
		zap.String("reason", reason),
		zap.String("query", query),
		zap.Int("start", start),
		zap.Error(err),
	)
	if c.metrics != nil {
		c.metrics.RecordDegraded(reason)
		c.metrics.RecordUpstreamPage("degraded", time.Since(started))
	}
	return search.EmptyPage()
}

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: status %d", e.err, e.code)
}

func (e *statusError) Unwrap() error { return e.err }

func reasonFor(err error) string {
	var se *statusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return reasonBreakerOpen
	case errors.As(err, &se):
		return reasonStatus
	case errors.Is(err, search.ErrMalformed):
		return reasonDecode
	default:
		return reasonTransport
	}
}

func toPage(resp *cseResponse) search.Page {
	next, hasMore := 1, false
	if len(resp.Queries.NextPage) > 0 {
		next = resp.Queries.NextPage[0].StartIndex
		hasMore = next <= search.MaxStartIndex
	}

	items := make([]domain.ResultItem, len(resp.Items))
	for i, it := range resp.Items {
		var image string
		if len(it.Pagemap.Thumbnails) > 0 {
			image = it.Pagemap.Thumbnails[0].Src
		}
		items[i] = domain.ResultItem{
			Title:          it.Title,
			Snippet:        it.Snippet,
			Link:           it.Link,
			Image:          image,
			NextStartIndex: next,
			HasMore:        hasMore,
		}
	}

	return search.Page{
		Items:          items,
		NextStartIndex: next,
		HasMore:        hasMore,
	}
}
