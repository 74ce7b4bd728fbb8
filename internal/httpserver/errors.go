package httpserver

import (
	"errors"
	"net/http"

	"storefront-sync/internal/domain"

	"github.com/gin-gonic/gin"
)

const kindInternal = "InternalError"

type errorDetail struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindNotAuthenticated:  http.StatusUnauthorized,
	domain.KindAuth:              http.StatusUnauthorized,
	domain.KindDuplicateItem:     http.StatusConflict,
	domain.KindRecordNotFound:    http.StatusNotFound,
	domain.KindValidation:        http.StatusUnprocessableEntity,
	domain.KindRemoteUnavailable: http.StatusServiceUnavailable,
	domain.KindCacheUnavailable:  http.StatusServiceUnavailable,
}

// statusFor maps an error to its HTTP status; untyped errors are 500.
func statusFor(err error) int {
	if s, ok := kindStatus[domain.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// writeError renders err. Causes are logged, never sent to the client.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	detail := errorDetail{Kind: kindInternal, Message: "internal error"}
	var de *domain.Error
	if errors.As(err, &de) {
		detail = errorDetail{Kind: string(de.Kind), Message: de.UserMessage(), Fields: de.Fields}
	}
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		requestLogger(c).WithError(err).WithField("kind", detail.Kind).Error("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: detail})
}

func writeBadRequest(c *gin.Context, field, message string) {
	writeError(c, domain.Invalid("httpserver.decode", map[string]string{field: message}))
}

// degraded reports whether err left the operation applied remotely with only
// the local mirror behind.
func degraded(err error) bool {
	return errors.Is(err, domain.ErrCacheUnavailable)
}

func warnings(err error) []string {
	var de *domain.Error
	if errors.As(err, &de) {
		return []string{de.UserMessage()}
	}
	return []string{err.Error()}
}

// respond writes body with status, turning a degraded err into a warning.
func respond(c *gin.Context, status int, body gin.H, err error) {
	if err != nil && !degraded(err) {
		writeError(c, err)
		return
	}
	if err != nil {
		requestLogger(c).WithError(err).Warn("request completed without local mirror")
		body["warnings"] = warnings(err)
	}
	c.JSON(status, body)
}
