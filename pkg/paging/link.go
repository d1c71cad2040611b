package paging

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/umisama/go-regexpcache"

	"github.com/restflow/go-restflow/pkg/request"
)

// LinkNextPage discovers the next page from the Link response header, RFC 5988.
// It is the default NextPageFunc of a Sequence.
//
// The next descriptor reuses the current one, only the URL and the query
// parameters are replaced, so the method, headers and path parameters of the
// first request carry over to all pages. A relative next URL is resolved
// against the current request URL.
func LinkNextPage(current request.HTTPRequest, _ int, header http.Header) (request.HTTPRequest, bool) {
	raw, found := nextLink(header)
	if !found {
		return nil, false
	}

	nextURL, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if !nextURL.IsAbs() {
		nextURL = current.URL().ResolveReference(nextURL)
	}

	// Query parameters set on the descriptor would shadow the query of the
	// next URL, move them to the descriptor instead.
	query := nextURL.Query()
	withoutQuery := *nextURL
	withoutQuery.RawQuery = ""
	return current.WithURL(withoutQuery.String()).WithQueryValues(query), true
}

// nextLink returns the URL of the `rel="next"` entry, if any.
// Example header value:
//
//	<https://api.example.com/items?page=2>; rel="next", <https://api.example.com/items?page=9>; rel="last"
func nextLink(header http.Header) (string, bool) {
	for _, value := range header.Values("Link") {
		for _, entry := range strings.Split(value, ",") {
			match := regexpcache.MustCompile(`^\s*<([^>]*)>(.*)$`).FindStringSubmatch(entry)
			if match == nil {
				continue
			}
			if regexpcache.MustCompile(`;\s*rel\s*=\s*"?next"?\s*(;|$)`).MatchString(match[2]) {
				return match[1], true
			}
		}
	}
	return "", false
}
