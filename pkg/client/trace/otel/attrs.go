package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/restflow/go-restflow/pkg/request"
)

const (
	maskedAttrValue = "****"
)

type attributes struct {
	config config
	// definitionPath is the URL path of the request descriptor, for the resource name
	definitionPath string
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// httpPath is the URL path of the current attempt, for the resource name
	httpPath string
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseError attributes for metrics
	httpResponseError []attribute.KeyValue
}

func newAttributes(cfg config, reqDef request.HTTPRequest) *attributes {
	out := &attributes{config: cfg}
	reqURL := reqDef.URL()

	// Definition base
	out.definitionPath = mustURLPathUnescape(reqURL.Path)
	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", reqDef.Method()),
		attribute.String("definition.url.path", out.definitionPath),
		attribute.String("definition.url.host", reqURL.Host),
	}

	// Definition headers, with sensitive values masked
	var headerAttrs []attribute.KeyValue
	for k, values := range reqDef.RequestHeader() {
		key := strings.ToLower(k)
		value := strings.Join(values, ";")
		if _, found := cfg.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		headerAttrs = append(headerAttrs, attribute.String("definition.header."+key, value))
	}
	sort.SliceStable(headerAttrs, func(i, j int) bool {
		return headerAttrs[i].Key < headerAttrs[j].Key
	})
	out.definitionExtra = append(out.definitionExtra, headerAttrs...)

	// Definition params
	for k, values := range reqDef.QueryParams() {
		value := strings.Join(values, ";")
		if _, found := cfg.redactedQueryParams[strings.ToLower(k)]; found {
			value = maskedAttrValue
		}
		out.definitionExtra = append(out.definitionExtra, attribute.String("definition.params.query."+k, value))
	}
	for k, v := range reqDef.PathParams() {
		if _, found := cfg.redactedPathParams[strings.ToLower(k)]; found {
			v = maskedAttrValue
		}
		out.definitionExtra = append(out.definitionExtra, attribute.String("definition.params.path."+k, v))
	}

	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpPath = ""
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	// Base
	v.httpPath = mustURLPathUnescape(req.URL.Path)
	v.httpRequest = []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("server.address", req.URL.Host),
		attribute.String("url.path", v.httpPath),
		attribute.String("url.scheme", req.URL.Scheme),
	}

	// Extra
	var attrs []attribute.KeyValue
	for k, values := range req.Header {
		key := strings.ToLower(k)
		value := strings.Join(values, ";")
		if _, found := v.config.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String("http.header."+key, value))
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	v.httpRequestExtra = attrs
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
	} else {
		v.httpResponse = []attribute.KeyValue{
			attribute.Int("http.response.status_code", res.StatusCode),
		}
	}

	// Error
	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseError = []attribute.KeyValue{
		attribute.Bool("http.response.is_success", isSuccess(res, err)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	}
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}
