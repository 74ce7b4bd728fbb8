package httpserver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/metrics"
	"storefront-sync/internal/service/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey string

const (
	sessionCtxKey ctxKey = "session"
	loggerKey            = "logger"
	requestIDHdr         = "X-Request-ID"
)

// loggingMiddleware attaches a request-scoped logger and logs one line per
// request once it completes.
func loggingMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHdr)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHdr, reqID)
		c.Set(loggerKey, logger.WithField("request_id", reqID))

		c.Next()

		status := c.Writer.Status()
		entry := requestLogger(c).WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}
		switch {
		case status >= 500:
			entry.Error("http request")
		case status >= 400:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}

func requestLogger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logging.Discard()
}

func metricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

func bearerToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// sessionMiddleware resolves the bearer token to a live session handle.
func sessionMiddleware(sessions sessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			writeError(c, domain.NewError(domain.KindNotAuthenticated, "httpserver.session", ""))
			return
		}
		h, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(loggerKey, requestLogger(c).WithField("session", h.ID))
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), sessionCtxKey, h))
		c.Next()
	}
}

func handleFrom(c *gin.Context) *session.Handle {
	h, _ := c.Request.Context().Value(sessionCtxKey).(*session.Handle)
	return h
}
