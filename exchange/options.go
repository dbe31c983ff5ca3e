package exchange

import (
	"net/http"
	"time"
)

type Options struct {
	Timeout         time.Duration
	FollowRedirects bool
	SkipVerify      bool
	ForceHTTP1      bool

	// BaseURL is used by requests that carry no URL of their own.
	BaseURL string
	// Header is added to every request sent through the Client unless the
	// request already sets it.
	Header http.Header
	// Transport replaces the cloned http.DefaultTransport. Tests use it.
	Transport http.RoundTripper
}
