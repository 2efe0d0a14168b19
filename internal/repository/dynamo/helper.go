package dynamo

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/numera/numera/internal/types"
)

// Key builders for the single ledger table. Every item of a customer lives
// under the same partition key; sort keys separate sequence counters from
// documents.
func customerPK(customerID string) string {
	return "CUST#" + customerID
}

func sequenceSK(docType types.DocumentType, year int) string {
	return fmt.Sprintf("SEQ#%s#%d", docType, year)
}

func documentSK(documentNumber string) string {
	return "DOC#" + documentNumber
}

func documentGSI1PK(customerID string) string {
	return "CUST#" + customerID + "#DOC"
}

// StartRepositorySpan opens a tracing span for an outbound ledger operation.
// Returns nil when no Sentry hub is attached to the context; the other span
// helpers accept nil so call sites stay unconditional.
func StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) *sentry.Span {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "repository."+repository+"."+operation)
	if span != nil {
		span.Description = "repository." + repository + "." + operation
		span.Op = "db.dynamodb"
		span.SetData("ledger", "outbound")
		span.SetData("repository", repository)
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
