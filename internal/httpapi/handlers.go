package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/service"
)

type handlers struct {
	search   service.SearchService
	accounts service.AccountService
	logger   *zap.Logger
}

type registerRequest struct {
	Username string `json:"username"`
}

type scrapeRequest struct {
	Query    string `json:"query"`
	Keywords string `json:"keywords"`
}

type changePlanRequest struct {
	Plan            string `json:"plan"`
	Queries         int    `json:"queries"`
	ResultsPerQuery int    `json:"resultsPerQuery"`
}

type historyItem struct {
	ID          int64     `json:"id"`
	Query       string    `json:"query"`
	ResultCount int       `json:"resultCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	// тело опционально
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorMessage("invalid request body"))
			return
		}
	}

	account, err := h.accounts.Register(c.Request.Context(), c.GetInt64(accountKey), req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": domain.NewPlanInfo(account)})
}

func (h *handlers) scrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorMessage("invalid request body"))
		return
	}

	resp, err := h.search.Search(c.Request.Context(), &domain.SearchRequest{
		AccountID: c.GetInt64(accountKey),
		Query:     req.Query,
		Keywords:  req.Keywords,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

func (h *handlers) getPlan(c *gin.Context) {
	info, err := h.accounts.GetPlan(c.Request.Context(), c.GetInt64(accountKey))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

func (h *handlers) changePlan(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorMessage("invalid request body"))
		return
	}

	info, err := h.accounts.ChangePlan(c.Request.Context(), c.GetInt64(accountKey), req.Plan, req.Queries, req.ResultsPerQuery)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

func (h *handlers) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorMessage("invalid limit"))
			return
		}
		limit = n
	}

	records, err := h.accounts.History(c.Request.Context(), c.GetInt64(accountKey), limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, r := range records {
		items = append(items, historyItem{
			ID:          r.ID,
			Query:       r.Query,
			ResultCount: r.ResultCount,
			CreatedAt:   r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.Error(err),
			zap.Int64("account_id", c.GetInt64(accountKey)),
			zap.String("path", c.FullPath()),
		)
		// внутренности наружу не отдаем
		c.JSON(status, errorBody(domain.ErrInternal))
		return
	}
	c.JSON(status, errorBody(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidPlan):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	return errorMessage(err.Error())
}

func errorMessage(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}
