package middleware

import (
	"net/http"
	"strings"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Sentry attaches a cloned sentry hub to every request
func Sentry(reportGinErrors bool) gin.HandlerFunc {
	handler := sentrygin.New(sentrygin.Options{Repanic: true})

	return func(c *gin.Context) {
		handler(c)

		if reportGinErrors {
			if hub := sentry.GetHubFromContext(c.Request.Context()); hub != nil {
				for _, err := range c.Errors {
					hub.CaptureException(err)
				}
			}
		}
	}
}

// ErrLogger logs any errors attached to the context by handlers downstream
func ErrLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.For(c).Errorf("%s %s %d: %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.Errors.JSON())
		}
	}
}

// HandleCORS sets the CORS headers for allowed origins
func HandleCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.Request.Header.Get("Origin")

		if IsOriginAllowed(requestOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", requestOrigin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, sentry-trace, baggage")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IsOriginAllowed checks an origin against the ALLOWED_ORIGINS environment variable
func IsOriginAllowed(requestOrigin string) bool {
	allowedOrigins := strings.Split(env.GetString("ALLOWED_ORIGINS"), ",")

	for _, allowedOrigin := range allowedOrigins {
		if allowedOrigin == "*" || strings.EqualFold(strings.TrimSpace(allowedOrigin), requestOrigin) {
			return true
		}
	}

	return false
}
