package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const attrErrorKind = "error.kind"

// RecordSpanError marks span as failed with err, tagging the error kind.
func RecordSpanError(span trace.Span, err error, kind string) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(attrErrorKind, kind))
}
