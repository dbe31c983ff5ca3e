package request

import (
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/HexmosTech/httpchain/exchange"
	"github.com/HexmosTech/httpchain/reqerr"
)

// Factory returns the client that sends a request built against baseURL.
type Factory func(baseURL string) exchange.Doer

// baseURLer is implemented by clients bound to a base URL, like
// *exchange.Client.
type baseURLer interface {
	BaseURL() string
}

var (
	defaultMu      sync.Mutex
	defaultFactory atomic.Pointer[Factory]
)

// SetClientFactory sets the factory used by requests that have no injected
// one. nil clears it. Requests already executing keep the factory they read.
func SetClientFactory(factory Factory) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if factory == nil {
		defaultFactory.Store(nil)
		return
	}
	defaultFactory.Store(&factory)
}

// UseDefaultClient installs a shared *exchange.Client built from options on
// first use as the default factory. A client that fails to build makes every
// request that falls back to it fail with InvalidConfiguration.
func UseDefaultClient(options *exchange.Options) error {
	if options == nil {
		return reqerr.Errorf(reqerr.InvalidArgument, "client options are required")
	}
	var (
		once   sync.Once
		client exchange.Doer
	)
	opts := *options
	SetClientFactory(func(string) exchange.Doer {
		once.Do(func() {
			c, err := exchange.NewClient(&opts)
			if err != nil {
				client = brokenClient{err: err}
				return
			}
			client = c
		})
		return client
	})
	return nil
}

// brokenClient stands in for a client that could not be built.
type brokenClient struct {
	err error
}

func (c brokenClient) Do(*http.Request) (*http.Response, error) {
	return nil, c.err
}

func (r *Request) resolve() (exchange.Doer, error) {
	factory := r.factory
	if factory == nil {
		if p := defaultFactory.Load(); p != nil {
			factory = *p
		}
	}
	if factory == nil {
		return nil, reqerr.Errorf(reqerr.ClientUnresolved, "no client injected and no default client factory configured")
	}
	client := factory(r.baseURL)
	if b, ok := client.(brokenClient); ok {
		return nil, reqerr.Wrapf(reqerr.InvalidConfiguration, b.err, "building default client")
	}
	if isNil(client) {
		return nil, reqerr.Errorf(reqerr.InvalidConfiguration, "client factory returned no client")
	}
	return client, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
