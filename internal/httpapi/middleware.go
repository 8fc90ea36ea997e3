package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/fetscr/internal/domain"
	"github.com/kitbuilder587/fetscr/internal/metrics"
	"github.com/kitbuilder587/fetscr/internal/ratelimit"
)

const (
	// AccountHeader выставляет gateway после проверки токена
	AccountHeader = "X-Account-ID"

	accountKey = "account_id"
	transport  = "http"
)

func requestLogger(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
		}
		if id, ok := c.Get(accountKey); ok {
			fields = append(fields, zap.Int64("account_id", id.(int64)))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", fields...)
		default:
			logger.Debug("http request", fields...)
		}

		if m != nil {
			m.RecordRequest(transport, strconv.Itoa(status), latency)
		}
	}
}

// requireAccount достает id аккаунта из заголовка, без него в /api не пускаем
func requireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(AccountHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(domain.ErrUnauthorized))
			return
		}
		c.Set(accountKey, id)
		c.Next()
	}
}

func rateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		id := c.GetInt64(accountKey)
		if !limiter.Allow(id) {
			if m != nil {
				m.RecordRateLimitHit(transport)
			}
			wait := limiter.RetryAfter(id)
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(domain.ErrRateLimited))
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.RemainingRequests(id)))
		c.Next()
	}
}
