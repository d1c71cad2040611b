package client

import (
	"github.com/umisama/go-regexpcache"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
)

// isJSONContentType matches "application/json" and its "application/*+json" variants.
func isJSONContentType(contentType string) bool {
	return regexpcache.MustCompile(ContentTypeApplicationJSONRegexp).MatchString(contentType)
}
