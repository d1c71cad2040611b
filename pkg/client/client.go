// Package client provides a configurable HTTP transport for an API client.
//
// Client is the default implementation of the request.Sender interface.
// It is based on the standard net/http package and adds retries, content
// decoding and tracing/telemetry on top of it.
//
// Client does not interpret the response body, the Send method returns a
// single-use request.Response handle and the dispatch package maps its
// stream to a typed value. A non-2xx status code is not an error here,
// the classification belongs to the dispatch package too.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/restflow/go-restflow/pkg/client/counter"
	"github.com/restflow/go-restflow/pkg/client/decode"
	"github.com/restflow/go-restflow/pkg/client/trace"
	"github.com/restflow/go-restflow/pkg/client/trace/otel"
	"github.com/restflow/go-restflow/pkg/request"
)

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
// It supports retry and tracing/telemetry.
type Client struct {
	transport      http.RoundTripper
	baseURL        *url.URL
	header         http.Header
	retry          RetryConfig
	traceFactories []trace.Factory
	tracer         otelTrace.Tracer
}

// New creates a new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header), retry: DefaultRetry()}
	c.header.Set("User-Agent", "go-restflow")
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	c.header = c.header.Clone()
	c.header.Set("User-Agent", v)
	return c
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil || transport == http.RoundTripper(nil) {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithRetry returns a clone of the Client with retry config set.
func (c Client) WithRetry(retry RetryConfig) Client {
	c.retry = retry
	return c
}

// AndTrace returns a clone of the Client with an additional trace.Factory.
// Hooks from all registered factories are composed.
func (c Client) AndTrace(fn trace.Factory) Client {
	if fn == nil {
		return c
	}
	c.traceFactories = append(c.traceFactories[:len(c.traceFactories):len(c.traceFactories)], fn)
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics registered.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	if tracerProvider != nil {
		c.tracer = tracerProvider.Tracer(otel.TraceAppName)
	}
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Tracer returns the telemetry tracer, if the telemetry is enabled, see WithTelemetry, or nil.
func (c Client) Tracer() otelTrace.Tracer {
	return c.tracer
}

// Send method sends the defined HTTP request and returns a single-use response handle,
// it implements the request.Sender interface.
//
// The response body stream is unconsumed, even for a non-2xx status code,
// the caller owns the stream and must close the handle.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (response *request.Response, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// If method or url is not set, a panic occurs, so get these values first
	method := reqDef.Method()
	urlStr := reqDef.URL().String()

	// Init trace
	var tc *trace.ClientTrace
	for _, factory := range c.traceFactories {
		oldTc := tc
		ctx, tc = factory(ctx, reqDef)
		tc.Compose(oldTc)
	}
	if tc != nil {
		ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)
	}

	// Replace path parameters
	for k, v := range reqDef.PathParams() {
		urlStr = strings.ReplaceAll(urlStr, url.PathEscape("{"+k+"}"), url.PathEscape(v))
	}

	// Convert to absolute url
	var reqURL *url.URL
	if c.baseURL == nil {
		reqURL, err = url.Parse(urlStr)
	} else {
		reqURL, err = c.baseURL.Parse(urlStr)
	}
	if err != nil {
		return nil, err
	}

	// Query parameters of the descriptor take precedence over the query within the URL.
	// If none were set, the query within the URL is kept, so a pre-built URL,
	// for example from a pagination Link header, works as is.
	if params := reqDef.QueryParams(); params != nil {
		reqURL.RawQuery = params.Encode()
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range reqDef.RequestHeader() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Body
	if reqDef.RequestBody() != nil {
		// GetBody factory is used for requests when a redirect/retry requires reading the body more than once.
		req.GetBody = func() (io.ReadCloser, error) {
			if body, err := requestBody(reqDef); err == nil {
				return body, nil
			} else {
				return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
			}
		}
		req.Body, err = req.GetBody()
		if err != nil {
			return nil, err
		}
	}

	// Setup native client
	nativeClient := http.Client{
		Timeout:   c.retry.TotalRequestTimeout,
		Transport: roundTripper{ctx: ctx, retry: c.retry, trace: tc, wrapped: c.transport}, // wrapped transport for trace/retry
	}

	// Send request
	startedAt := time.Now()
	var res *http.Response
	res, err = nativeClient.Do(req)

	// Trace request processed
	if tc != nil && tc.RequestProcessed != nil {
		defer func() {
			tc.RequestProcessed(res, err)
		}()
	}

	// Handle send error
	if err != nil {
		return nil, handleSendError(startedAt, c.retry.TotalRequestTimeout, req, err)
	}

	// Decode the body stream by the Content-Encoding header
	raw := res.Body
	decoded, err := decode.Decode(raw, res.Header.Get("Content-Encoding"))
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	// Track bytes read and the stream release
	var bodyStream io.ReadCloser
	if decoded == raw {
		bodyStream = raw
	} else {
		bodyStream = bodyCloser{Reader: decoded, decoded: decoded, raw: raw}
	}
	res.Body = counter.NewReadCloser(bodyStream, func(bytesRead int64, closeErr error) {
		if tc != nil && tc.BodyClosed != nil {
			tc.BodyClosed(bytesRead, closeErr)
		}
	})

	return request.NewResponse(res), nil
}

func requestBody(r request.HTTPRequest) (io.ReadCloser, error) {
	contentType := r.RequestHeader().Get("Content-Type")
	body := r.RequestBody()
	if v, ok := body.(string); ok {
		return io.NopCloser(strings.NewReader(v)), nil
	}
	if v, ok := body.([]byte); ok {
		return io.NopCloser(bytes.NewReader(v)), nil
	}
	if v, ok := body.(io.ReadSeekCloser); ok {
		// io.ReadSeekCloser stream
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return v, nil
	}
	if v, ok := body.(io.ReadSeeker); ok {
		// io.ReadSeeker stream
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(v), nil
	}
	if body != nil && isJSONContentType(contentType) {
		// Json body
		c, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
		return io.NopCloser(bytes.NewReader(c)), nil
	}
	// empty body
	return nil, nil
}

func handleSendError(startedAt time.Time, clientTimeout time.Duration, req *http.Request, err error) error {
	// Timeout
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s", time.Since(startedAt)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(err.Error(), "Client.Timeout exceeded") {
			err = urlError(req, fmt.Errorf("timeout after %s", clientTimeout))
		} else {
			err = urlError(req, fmt.Errorf("timeout after %s", time.Since(startedAt)))
		}
	}
	return err
}

// roundTripper wraps a http.RoundTripper and adds trace and retry functionality.
type roundTripper struct {
	ctx     context.Context
	trace   *trace.ClientTrace
	retry   RetryConfig
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	state := rt.retry.NewBackoff()
	attempt := 0
	for {
		// Trace request start
		if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
			rt.trace.HTTPRequestStart(req)
		}

		// Send
		res, err := rt.wrapped.RoundTrip(req)

		// Trace request done
		if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
			rt.trace.HTTPRequestDone(res, err)
		}

		// Check if we should retry
		if rt.retry.Condition == nil || !rt.retry.Condition(res, err) || attempt >= rt.retry.Count {
			// No retry
			return res, err
		}

		// Get next delay
		delay := state.NextBackOff()
		if delay == backoff.Stop {
			// Stop
			return res, err
		}

		// Release the unused response before retry
		if res != nil && res.Body != nil {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
		}

		// Trace retry
		attempt++
		if rt.trace != nil && rt.trace.HTTPRequestRetry != nil {
			rt.trace.HTTPRequestRetry(attempt, delay)
		}

		// Rewind body before retry
		if req.GetBody != nil {
			req.Body, err = req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("cannot rewind body: %w", err)
			}
		}

		// Wait
		select {
		case <-req.Context().Done():
			// context is canceled
			return nil, req.Context().Err()
		case <-time.NewTimer(delay).C:
			// time elapsed, retry
		}
	}
}

// bodyCloser closes the decoding layer together with the raw network stream.
type bodyCloser struct {
	io.Reader
	decoded io.Closer
	raw     io.Closer
}

func (b bodyCloser) Close() error {
	err := b.decoded.Close()
	if rawErr := b.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
