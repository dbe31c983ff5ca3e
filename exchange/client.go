package exchange

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"

	"github.com/HexmosTech/httpchain/reqerr"
)

func BuildHTTPClient(options *Options) (*http.Client, error) {
	checkRedirect := func(req *http.Request, via []*http.Request) error {
		// Do not follow redirects
		return http.ErrUseLastResponse
	}
	if options.FollowRedirects {
		checkRedirect = nil
	}

	client := http.Client{
		CheckRedirect: checkRedirect,
		Timeout:       options.Timeout,
	}

	var transp http.RoundTripper
	if options.Transport == nil {
		transp = http.DefaultTransport.(*http.Transport).Clone()
	} else {
		transp = options.Transport
	}
	if httpTransport, ok := transp.(*http.Transport); ok {
		if httpTransport.TLSClientConfig == nil {
			httpTransport.TLSClientConfig = &tls.Config{}
		}
		httpTransport.TLSClientConfig.InsecureSkipVerify = options.SkipVerify
		if options.ForceHTTP1 {
			httpTransport.TLSClientConfig.NextProtos = []string{"http/1.1", "http/1.0"}
			httpTransport.TLSNextProto = make(map[string]func(string, *tls.Conn) http.RoundTripper)
		}
	}
	client.Transport = transp

	return &client, nil
}

// Client is a reusable transport bound to an optional base URL and a set of
// default headers. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	header  http.Header
}

func NewClient(options *Options) (*Client, error) {
	if options.Timeout < 0 {
		return nil, reqerr.Errorf(reqerr.InvalidConfiguration, "timeout must not be negative: %v", options.Timeout)
	}
	if options.BaseURL != "" {
		u, err := url.Parse(options.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, reqerr.Errorf(reqerr.InvalidConfiguration, "base URL must be absolute: %s", options.BaseURL)
		}
	}
	httpClient, err := BuildHTTPClient(options)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:    httpClient,
		baseURL: options.BaseURL,
		header:  options.Header.Clone(),
	}, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.Prepare(req)
	return c.http.Do(req)
}

// Prepare adds the default headers of c to req. A default is skipped when req
// already has a header of the same name, compared case-insensitively since
// request header names are kept as written.
func (c *Client) Prepare(req *http.Request) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	for name, values := range c.header {
		if hasHeader(req.Header, name) {
			continue
		}
		req.Header[name] = append([]string(nil), values...)
	}
}

func hasHeader(header http.Header, name string) bool {
	for key := range header {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) HTTPClient() *http.Client {
	return c.http
}
