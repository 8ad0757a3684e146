package dataapi

import (
	"errors"
	"net/http"
)

// KeyTransport signs every outbound request with an API key query
// parameter. The key never leaves the transport.
type KeyTransport struct {
	Key  string
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *KeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Key == "" {
		return nil, errors.New("dataapi: no API key configured")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// RoundTrippers must not modify the caller's request.
	signed := req.Clone(req.Context())
	q := signed.URL.Query()
	q.Set("key", t.Key)
	signed.URL.RawQuery = q.Encode()
	return base.RoundTrip(signed)
}
