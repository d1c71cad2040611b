// Package decode translates the Content-Encoding response header to a decoding reader.
package decode

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode wraps the body stream by a decoder matching the Content-Encoding header.
// An unknown or empty encoding returns the stream unchanged.
// The returned reader does not close the underlying stream, the caller owns both.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(contentEncoding) {
	case "gzip":
		if v, err := gzip.NewReader(body); err == nil {
			return v, nil
		} else {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return body, nil
	}
}
