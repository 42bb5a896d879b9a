/*
Package tracing correlates local API requests with the cloud API calls
they cause.

Every request handled by the daemon opens a span. The trace ID travels in
the request context and is copied into the X-Trace-ID and X-Span-ID
headers of each outgoing filesystem call, so a slow operation can be
followed from the browser to the cloud and back in the logs.

# Usage

	tracer := tracing.New("desktop", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "zip")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Finished spans are buffered (1000) and written asynchronously. Spans are
dropped rather than blocking a request when the buffer is full.
*/
package tracing
