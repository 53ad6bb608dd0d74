package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sqldump-importer"

// Span and resource attributes of a dump import
const (
	AttrImportDir  = attribute.Key("import.dir")
	AttrSessionID  = attribute.Key("import.session_id")
	AttrDumpFile   = attribute.Key("import.file")
	AttrByteOffset = attribute.Key("import.byte_offset")
	AttrLineNumber = attribute.Key("import.line")
	AttrDelimiter  = attribute.Key("import.delimiter")
	AttrStatus     = attribute.Key("import.status")
	AttrLinesRead  = attribute.Key("import.batch.lines_read")
	AttrStatements = attribute.Key("import.batch.statements")
	AttrErrors     = attribute.Key("import.batch.errors")
	AttrNonFatal   = attribute.Key("import.batch.non_fatal")
)

// StartSpan creates a new span for an operation
func StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, operationName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// EndSpan records the outcome on the span and ends it
func EndSpan(span trace.Span, err error, msg string) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("%s: %v", msg, err))
	} else {
		span.SetStatus(codes.Ok, msg)
	}
	span.End()
}
