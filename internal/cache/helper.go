package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// StartCacheSpan opens a tracing span for a cache operation. Returns nil when
// no Sentry hub is attached to the context; the other span helpers accept nil
// so call sites stay unconditional.
func StartCacheSpan(ctx context.Context, cacheName, operation string, params map[string]interface{}) *sentry.Span {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "cache."+cacheName+"."+operation)
	if span != nil {
		span.Description = "cache." + cacheName + "." + operation
		span.Op = "cache.memory"
		span.SetData("cache", cacheName)
		span.SetData("operation", operation)
		for k, v := range params {
			span.SetData(k, v)
		}
	}

	return span
}

// FinishSpan finishes a span, tolerating nil
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

// SetSpanError marks the span failed and records the error message
func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}

	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

// SetSpanSuccess marks the span as completed successfully
func SetSpanSuccess(span *sentry.Span) {
	if span != nil {
		span.Status = sentry.SpanStatusOK
	}
}
