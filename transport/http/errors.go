package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flarexio/movielist"
	"github.com/flarexio/movielist/resilience"
)

// statusOf maps an error to its HTTP status and response body.
func statusOf(err error) (int, string) {
	switch {
	case movielist.IsBusinessError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, resilience.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "service is unavailable"
	case errors.Is(err, resilience.ErrRetriesExhausted):
		return http.StatusServiceUnavailable, "all retries have exhausted"
	case errors.Is(err, resilience.ErrTimeout):
		return http.StatusRequestTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func fail(c *gin.Context, err error) {
	code, msg := statusOf(err)

	c.Abort()
	c.Error(err)
	c.String(code, msg)
}

func badRequest(c *gin.Context, err error) {
	c.Abort()
	c.Error(err)
	c.String(http.StatusBadRequest, err.Error())
}
