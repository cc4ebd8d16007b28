package sentryutil

import (
	"context"
	"time"

	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

const flushTimeout = 2 * time.Second

// ReportError reports an error to Sentry using the hub attached to ctx, falling back
// to the global hub
func ReportError(ctx context.Context, err error) {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub == nil {
		logger.For(ctx).Warnf("sentry not initialized; dropping error: %s", err)
		return
	}
	hub.CaptureException(err)
}

// RecoverAndRaise reports a panic to Sentry and re-raises it so the process-level
// handler still sees it
func RecoverAndRaise(ctx context.Context) {
	if rec := recover(); rec != nil {
		hub := SentryHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		if hub != nil {
			hub.RecoverWithContext(ctx, rec)
			hub.Flush(flushTimeout)
		}
		panic(rec)
	}
}

// SentryHubFromContext gets a Hub from the supplied context, or from an underlying
// gin.Context if one is available
func SentryHubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return nil
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	if gc, ok := ctx.(*gin.Context); ok {
		if hub := sentry.GetHubFromContext(gc.Request.Context()); hub != nil {
			return hub
		}
	}
	return nil
}
