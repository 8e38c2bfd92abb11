package logging

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/gitpress/internal/util"
	log "github.com/sirupsen/logrus"
)

// GinLogrusLogger logs each request served by the callback listener and stores a
// request ID in the request context (see GetRequestID). The query is masked first since
// it carries the authorization code and state:
//
//	[2026-01-02 15:04:05] [a1b2c3d4] [info ] 200 |      1ms | GET     "/oauth/callback?code=ab...cd&state=01...ef"
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		target := c.Request.URL.Path
		if q := util.MaskSensitiveQuery(c.Request.URL.RawQuery); q != "" {
			target += "?" + q
		}

		id := newRequestID()
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
		c.Next()

		status := c.Writer.Status()
		line := fmt.Sprintf("%3d | %8v | %-7s %q", status, time.Since(start).Truncate(time.Millisecond), c.Request.Method, target)
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			line += " | " + msg
		}

		entry := log.WithField("request_id", id)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(line)
		case status >= http.StatusBadRequest:
			entry.Warn(line)
		default:
			entry.Info(line)
		}
	}
}

// GinLogrusRecovery turns a handler panic into a logged 500 response.
func GinLogrusRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		// net/http aborts the connection quietly for ErrAbortHandler.
		if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			panic(http.ErrAbortHandler)
		}
		log.WithFields(log.Fields{
			"panic": recovered,
			"stack": string(debug.Stack()),
			"path":  c.Request.URL.Path,
		}).Error("recovered from panic in callback listener")
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
