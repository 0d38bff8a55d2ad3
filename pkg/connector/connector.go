package connector

import (
	"context"
	"net/http"
)

// MaxResponseLength caps the maximum byte-length of responses that connectors must support.
const MaxResponseLength = 10000000

// Requester performs one logical JSON request against the backend.
type Requester interface {
	// Do sends body (JSON-encoded, omitted when nil) to url and decodes the JSON response into out.
	// A nil out discards the response after validating it.
	//
	// Errors are classified with [protocol.Error]. Implementations must be thread safe.
	Do(ctx context.Context, method, url string, body interface{}, header http.Header, out interface{}) error
}
