package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/cardroom/errs"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/network"
	"github.com/wfunc/cardroom/room"
)

var statusByKind = map[errs.Kind]int{
	errs.KindInternal:       http.StatusInternalServerError,
	errs.KindBadRequest:     http.StatusBadRequest,
	errs.KindForbidden:      http.StatusForbidden,
	errs.KindNotFound:       http.StatusNotFound,
	errs.KindConflict:       http.StatusConflict,
	errs.KindCapacity:       http.StatusConflict,
	errs.KindGameRule:       http.StatusUnprocessableEntity,
	errs.KindBadTokenFormat: http.StatusBadRequest,
	errs.KindInvalidToken:   http.StatusUnauthorized,
}

// gatewayKinds maps failures onto the gateway's Error kinds.
var gatewayKinds = map[errs.Kind]string{
	errs.KindInternal:       network.ErrorInternal,
	errs.KindBadRequest:     network.ErrorBadRequest,
	errs.KindForbidden:      network.ErrorForbidden,
	errs.KindNotFound:       network.ErrorNotFound,
	errs.KindConflict:       network.ErrorDeclined,
	errs.KindCapacity:       network.ErrorDeclined,
	errs.KindGameRule:       network.ErrorDeclined,
	errs.KindBadTokenFormat: network.ErrorBadTokenFormat,
	errs.KindInvalidToken:   network.ErrorInvalidToken,
}

func statusOf(err error) int {
	if status, ok := statusByKind[errs.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "message", "fields"?}. Internal
// details are logged, never returned.
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	body := gin.H{"error": kind.String(), "message": err.Error()}
	if kind == errs.KindInternal {
		logger.Log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		body["message"] = "internal error"
	}
	var fields room.FieldErrors
	if errors.As(err, &fields) {
		body["message"] = "invalid room settings"
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(statusOf(err), body)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, errs.Wrap(errs.KindBadRequest, "malformed request", err))
}

// observe records request latency.
func (s *GameServer) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.monitor.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
