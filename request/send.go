package request

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/HexmosTech/httpchain/exchange"
)

// Result is delivered by the asynchronous verbs.
type Result struct {
	Response *http.Response
	Err      error
}

// Build resolves the client and returns the request that Do would send,
// without sending it.
func (r *Request) Build(ctx context.Context, method string) (*http.Request, error) {
	_, req, err := r.prepare(ctx, method)
	return req, err
}

func (r *Request) prepare(ctx context.Context, method string) (exchange.Doer, *http.Request, error) {
	if r.err != nil {
		return nil, nil, r.err
	}
	client, err := r.resolve()
	if err != nil {
		return nil, nil, err
	}
	baseURL := r.baseURL
	if baseURL == "" {
		if b, ok := client.(baseURLer); ok {
			baseURL = b.BaseURL()
		}
	}
	req, err := exchange.Build(ctx, r.transforms, baseURL, method)
	if err != nil {
		return nil, nil, err
	}
	return client, req, nil
}

// Do builds and sends the request once. The response is returned unconsumed;
// read it with the response package. Transport failures skip the callbacks.
func (r *Request) Do(ctx context.Context, method string) (*http.Response, error) {
	client, req, err := r.prepare(ctx, method)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.logger.DebugContext(ctx, "sending request", "method", req.Method, "url", req.URL.String())
	resp, err := exchange.Send(client, req)
	if err != nil {
		r.logger.DebugContext(ctx, "request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, err
	}
	r.logger.DebugContext(ctx, "received response",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	r.dispatch(resp)
	return resp, nil
}

// dispatch runs the callback matching the status of resp. If the callback
// panics, the body is closed before the panic continues.
func (r *Request) dispatch(resp *http.Response) {
	defer func() {
		if p := recover(); p != nil {
			resp.Body.Close()
			panic(p)
		}
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if r.onSuccess != nil {
			r.onSuccess(resp)
		}
	} else if r.onError != nil {
		r.onError(resp)
	}
}

func (r *Request) Get(ctx context.Context) (*http.Response, error) {
	return r.Do(ctx, http.MethodGet)
}

func (r *Request) Post(ctx context.Context) (*http.Response, error) {
	return r.Do(ctx, http.MethodPost)
}

func (r *Request) Put(ctx context.Context) (*http.Response, error) {
	return r.Do(ctx, http.MethodPut)
}

func (r *Request) Patch(ctx context.Context) (*http.Response, error) {
	return r.Do(ctx, http.MethodPatch)
}

func (r *Request) Delete(ctx context.Context) (*http.Response, error) {
	return r.Do(ctx, http.MethodDelete)
}

// DoAsync runs Do on its own goroutine. The channel receives exactly one
// Result and is then closed. A panic in a callback is delivered as Err and
// the response body is closed.
func (r *Request) DoAsync(ctx context.Context, method string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		defer func() {
			if p := recover(); p != nil {
				ch <- Result{Err: errors.Errorf("callback panicked: %v", p)}
			}
		}()
		resp, err := r.Do(ctx, method)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

func (r *Request) GetAsync(ctx context.Context) <-chan Result {
	return r.DoAsync(ctx, http.MethodGet)
}

func (r *Request) PostAsync(ctx context.Context) <-chan Result {
	return r.DoAsync(ctx, http.MethodPost)
}

func (r *Request) PutAsync(ctx context.Context) <-chan Result {
	return r.DoAsync(ctx, http.MethodPut)
}

func (r *Request) PatchAsync(ctx context.Context) <-chan Result {
	return r.DoAsync(ctx, http.MethodPatch)
}

func (r *Request) DeleteAsync(ctx context.Context) <-chan Result {
	return r.DoAsync(ctx, http.MethodDelete)
}
