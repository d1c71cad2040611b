// Package otel provides OpenTelemetry tracing and metrics for HTTP client requests.
//
// Three levels of telemetry are provided:
//
//  1. The root span "restflow.go.client.request" wraps one logical request,
//     including all redirects and retries.
//  2. The span "http.request" is created for every HTTP request attempt.
//     The span "restflow.go.client.retry.delay" tracks the delay before a retry.
//  3. Low-level httptrace spans, for example "http.dns", "http.connect", "http.tls".
//
// Metric names start with "restflow.go.client." and "restflow.go.http.",
// for the full list see the newMeters function.
package otel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	otelTrace "go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/restflow/go-restflow/pkg/client/trace"
	"github.com/restflow/go-restflow/pkg/request"
)

// TraceAppName is the instrumentation scope of all spans and metrics.
const TraceAppName = "github.com/restflow/go-restflow"

const (
	attrResourceName = attribute.Key("resource.name")
	// Low-level tracing, for each attempt.
	httpSpanPrefix           = "http."
	httpRequestSpanName      = httpSpanPrefix + "request"
	httpDNSSpanName          = httpSpanPrefix + "dns"
	httpConnectSpanName      = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName = httpSpanPrefix + "tls"
	attrDNSHost              = attribute.Key("http.dns.host")
	attrDNSAddresses         = attribute.Key("http.dns.addrs")
	attrRemoteAddr           = attribute.Key("http.remote")
	attrConnectNetwork       = attribute.Key("http.conn.network")
	// High-level tracing.
	clientSpanPrefix         = "restflow.go.client."
	clientRequestSpanName    = clientSpanPrefix + "request"
	clientRetryDelaySpanName = clientSpanPrefix + "retry.delay"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates a trace.Factory reporting spans and metrics to the given providers.
// A nil provider falls back to a noop implementation.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = traceNoop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(TraceAppName)
	meters := newMeters(meterProvider.Meter(TraceAppName))

	return func(rootCtx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, reqDef)
		var retryDelaySpan otelTrace.Span

		// Root span and metrics, it may contain multiple HTTP requests (redirects, retries).
		var rootSpan otelTrace.Span
		startTime := time.Now()
		meters.client.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))
		rootCtx, rootSpan = tracer.Start(
			rootCtx,
			clientRequestSpanName,
			otelTrace.WithSpanKind(otelTrace.SpanKindClient),
			otelTrace.WithAttributes(
				attrResourceName.String(attrs.definitionPath),
				attrSpanKind.String(attrSpanKindValueClient),
				attrSpanType.String(attrSpanTypeValueHTTP),
			),
			otelTrace.WithAttributes(attrs.definition...),
			otelTrace.WithAttributes(attrs.definitionExtra...),
		)
		tc.RequestProcessed = func(res *http.Response, err error) {
			elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)

			// Metrics, in_flight must use the same attributes/dimensions as above (+1)!
			meterAttrs := append(attrs.definition, attrs.httpResponse...)
			meters.client.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.definition...))
			meters.client.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(meterAttrs...))

			// Tracing
			if retryDelaySpan != nil {
				retryDelaySpan.End()
				retryDelaySpan = nil
			}
			rootSpan.SetAttributes(attrs.httpResponse...)
			if err == nil {
				rootSpan.End()
			} else {
				rootSpan.RecordError(err)
				rootSpan.SetStatus(codes.Error, err.Error())
				rootSpan.End(otelTrace.WithStackTrace(true))
			}
		}

		// Per-attempt span and metrics
		var httpCtx context.Context
		var httpSpan otelTrace.Span
		var httpRequestStart time.Time
		tc.HTTPRequestStart = func(req *http.Request) {
			// End retry delay span
			if retryDelaySpan != nil {
				retryDelaySpan.End()
				retryDelaySpan = nil
			}

			httpRequestStart = time.Now()
			attrs.SetFromRequest(req)
			httpCtx, httpSpan = tracer.Start(
				rootCtx,
				httpRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrResourceName.String(attrs.httpPath),
					attrSpanKind.String(attrSpanKindValueClient),
					attrSpanType.String(attrSpanTypeValueHTTP),
				),
				otelTrace.WithAttributes(attrs.httpRequest...),
				otelTrace.WithAttributes(attrs.httpRequestExtra...),
			)

			// Inject trace headers
			if cfg.propagators != nil {
				cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
			}

			meters.http.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.httpRequest...))
		}
		tc.HTTPRequestDone = func(res *http.Response, err error) {
			attrs.SetFromResponse(res, err)
			elapsedTime := float64(time.Since(httpRequestStart)) / float64(time.Millisecond)

			// Metrics, in_flight must use the same attributes/dimensions as in HTTPRequestStart!
			meters.http.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.httpRequest...))
			meters.http.duration.Record(
				rootCtx,
				elapsedTime,
				otelMetric.WithAttributes(attrs.httpRequest...),
				otelMetric.WithAttributes(attrs.httpResponse...),
				otelMetric.WithAttributes(attrs.httpResponseError...),
			)

			// Tracing
			if httpSpan != nil {
				httpSpan.SetAttributes(attrs.httpResponse...)
				switch {
				case err != nil:
					httpSpan.RecordError(err)
					httpSpan.SetStatus(codes.Error, err.Error())
				case res != nil && res.StatusCode >= http.StatusBadRequest:
					httpErr := fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
					httpSpan.RecordError(httpErr)
					httpSpan.SetStatus(codes.Error, httpErr.Error())
				}
				httpSpan.End()
				httpSpan = nil
			}
		}

		// Retry delay, the span is ended by the HTTPRequestStart hook,
		// or by the RequestProcessed hook if an error occurred, e.g., request timeout.
		tc.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			_, retryDelaySpan = tracer.Start(
				rootCtx,
				clientRetryDelaySpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(attrs.httpRequest...),
				otelTrace.WithAttributes(attrs.httpResponse...),
				otelTrace.WithAttributes(
					attribute.Int("api.request.retry.attempt", attempt),
					attribute.Int64("api.request.retry.delay_ms", delay.Milliseconds()),
				),
			)
		}

		// The body stream is consumed after the Send method returns,
		// the final byte count is known when the stream is released.
		tc.BodyClosed = func(bytesRead int64, err error) {
			meters.client.bodyBytes.Add(
				rootCtx,
				bytesRead,
				otelMetric.WithAttributes(attrs.definition...),
				otelMetric.WithAttributes(attrs.httpResponse...),
			)
		}

		// Low-level httptrace spans.
		// The "otelhttptrace" pkg from the opentelemetry-contrib module is not used,
		// it does not end spans: https://github.com/open-telemetry/opentelemetry-go-contrib/issues/399
		{
			var dnsSpan otelTrace.Span
			tc.DNSStart = func(info httptrace.DNSStartInfo) {
				_, dnsSpan = tracer.Start(
					httpCtx,
					httpDNSSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(attrDNSHost.String(info.Host)),
				)
			}
			tc.DNSDone = func(info httptrace.DNSDoneInfo) {
				if dnsSpan != nil {
					var addrs []string
					for _, netAddr := range info.Addrs {
						addrs = append(addrs, netAddr.String())
					}
					dnsSpan.SetAttributes(attrDNSAddresses.String(strings.Join(addrs, ";")))
					if info.Err != nil {
						dnsSpan.RecordError(info.Err)
						dnsSpan.SetStatus(codes.Error, info.Err.Error())
					}
					dnsSpan.End()
					dnsSpan = nil
				}
			}
		}
		{
			var connectSpan otelTrace.Span
			tc.ConnectStart = func(network, addr string) {
				_, connectSpan = tracer.Start(
					httpCtx,
					httpConnectSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrRemoteAddr.String(addr),
						attrConnectNetwork.String(network),
					),
				)
			}
			tc.ConnectDone = func(network, addr string, err error) {
				if connectSpan != nil {
					if err != nil {
						connectSpan.RecordError(err)
						connectSpan.SetStatus(codes.Error, err.Error())
					}
					connectSpan.End()
					connectSpan = nil
				}
			}
		}
		// Note: the TLS handshake is not reported if the http2.Transport is used directly,
		// without upgrade from http.Transport.
		{
			var tlsSpan otelTrace.Span
			tc.TLSHandshakeStart = func() {
				_, tlsSpan = tracer.Start(
					httpCtx,
					httpTLSHandshakeSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				)
			}
			tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
				if tlsSpan != nil {
					if err != nil {
						tlsSpan.RecordError(err)
						tlsSpan.SetStatus(codes.Error, err.Error())
					}
					tlsSpan.End()
					tlsSpan = nil
				}
			}
		}

		return rootCtx, tc
	}
}
