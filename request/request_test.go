package request

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexmosTech/httpchain/exchange"
	"github.com/HexmosTech/httpchain/reqerr"
)

type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func fakeClient(rt RoundTripperFunc) Factory {
	c := &http.Client{Transport: rt}
	return func(string) exchange.Doer { return c }
}

func respond(status int, body string) RoundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    r,
		}, nil
	}
}

func resetDefault(t *testing.T) {
	t.Helper()
	SetClientFactory(nil)
	t.Cleanup(func() { SetClientFactory(nil) })
}

func TestRequest_NoClientIsUnresolved(t *testing.T) {
	resetDefault(t)

	var dialed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dialed.Add(1)
	}))
	defer srv.Close()

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		resp, err := New(srv.URL).Do(context.Background(), method)
		assert.Nil(t, resp)
		assert.True(t, reqerr.Is(err, reqerr.ClientUnresolved), "method %s: err=%v", method, err)
	}
	assert.Equal(t, int32(0), dialed.Load())
}

func TestRequest_NilClientIsInvalidConfiguration(t *testing.T) {
	resetDefault(t)

	var typedNil *http.Client
	testCases := []struct {
		title   string
		factory Factory
	}{
		{title: "untyped nil", factory: func(string) exchange.Doer { return nil }},
		{title: "typed nil", factory: func(string) exchange.Doer { return typedNil }},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			_, err := New("http://x.test").InjectClient(tt.factory).Get(context.Background())
			assert.True(t, reqerr.Is(err, reqerr.InvalidConfiguration), "err=%v", err)

			SetClientFactory(tt.factory)
			_, err = New("http://x.test").Get(context.Background())
			assert.True(t, reqerr.Is(err, reqerr.InvalidConfiguration), "err=%v", err)
			SetClientFactory(nil)
		})
	}
}

func TestRequest_InjectedClientWinsOverDefault(t *testing.T) {
	resetDefault(t)

	var usedDefault, usedInjected bool
	SetClientFactory(fakeClient(func(r *http.Request) (*http.Response, error) {
		usedDefault = true
		return respond(200, "")(r)
	}))
	injected := fakeClient(func(r *http.Request) (*http.Response, error) {
		usedInjected = true
		return respond(200, "")(r)
	})

	_, err := New("http://x.test").InjectClient(injected).Get(context.Background())
	require.NoError(t, err)
	assert.True(t, usedInjected)
	assert.False(t, usedDefault)

	_, err = New("http://x.test").Get(context.Background())
	require.NoError(t, err)
	assert.True(t, usedDefault)
}

func TestRequest_EndToEnd(t *testing.T) {
	// Setup
	resetDefault(t)
	var got *http.Request
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	// Exercise
	var succeeded bool
	resp, err := New(srv.URL).
		InjectClient(func(string) exchange.Doer { return srv.Client() }).
		WithSegments("users", "42").
		WithQuery(map[string]string{"a": "1"}).
		WithQuery(map[string]string{"b": "2"}).
		WithHeader(struct {
			Some_name string
		}{"v"}).
		WithCookies(map[string]string{"key1": "value1", "key2": "value2"}).
		WithBasicAuth("myuser", "mypass").
		WithJSONBody(map[string]int{"x": 1}).
		OnSuccess(func(*http.Response) { succeeded = true }).
		Post(context.Background())

	// Verify
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, succeeded)

	require.NotNil(t, got)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/users/42", got.URL.Path)
	assert.Equal(t, "a=1&b=2", got.URL.RawQuery)
	assert.Equal(t, "v", got.Header.Get("Some-Name"))
	assert.Equal(t, "key1=value1;key2=value2", got.Header.Get("Cookie"))
	assert.Equal(t, "Basic bXl1c2VyOm15cGFzcw==", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"x":1}`, gotBody)

	// The response is handed back unconsumed.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(body))
}

func TestRequest_Callbacks(t *testing.T) {
	testCases := []struct {
		title       string
		status      int
		wantSuccess int
		wantError   int
	}{
		{title: "2xx calls OnSuccess", status: 204, wantSuccess: 1},
		{title: "3xx calls OnError", status: 302, wantError: 1},
		{title: "5xx calls OnError", status: 503, wantError: 1},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			var success, failure int
			resp, err := New("http://x.test").
				InjectClient(fakeClient(respond(tt.status, "body"))).
				OnSuccess(func(*http.Response) { success = 100 }).
				OnSuccess(func(*http.Response) { success++ }).
				OnError(func(*http.Response) { failure++ }).
				Get(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.wantSuccess, success)
			assert.Equal(t, tt.wantError, failure)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, "body", string(body), "callbacks must not consume the body")
		})
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	// Setup
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	var calls int
	callback := func(*http.Response) { calls++ }

	// Exercise
	resp, err := New("http://x.test").
		InjectClient(fakeClient(func(*http.Request) (*http.Response, error) { return nil, dialErr })).
		OnSuccess(callback).
		OnError(callback).
		Get(context.Background())

	// Verify
	assert.Nil(t, resp)
	assert.True(t, reqerr.Is(err, reqerr.TransportFailure), "err=%v", err)
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr))
	assert.Same(t, dialErr, opErr)
	assert.Equal(t, 0, calls)
}

func TestRequest_ConfigurationErrors(t *testing.T) {
	var typedNil *struct{}
	testCases := []struct {
		title string
		build func(*Request) *Request
	}{
		{title: "no segments", build: func(r *Request) *Request { return r.WithSegments() }},
		{title: "empty segment", build: func(r *Request) *Request { return r.WithSegments("a", "") }},
		{title: "nil query", build: func(r *Request) *Request { return r.WithQuery(nil) }},
		{title: "nil header", build: func(r *Request) *Request { return r.WithHeader(typedNil) }},
		{title: "nil cookies", build: func(r *Request) *Request { return r.WithCookies(nil) }},
		{title: "nil form data", build: func(r *Request) *Request { return r.WithFormData(nil) }},
		{title: "empty username", build: func(r *Request) *Request { return r.WithBasicAuth("", "p") }},
		{title: "empty password", build: func(r *Request) *Request { return r.WithBasicAuth("u", "") }},
		{title: "empty token", build: func(r *Request) *Request { return r.WithBearerToken("") }},
		{title: "nil JSON body", build: func(r *Request) *Request { return r.WithJSONBody(nil) }},
		{title: "nil form file", build: func(r *Request) *Request { return r.AddFormFile(nil, "f", "a.txt") }},
		{title: "no form files", build: func(r *Request) *Request { return r.AddFormFiles() }},
		{title: "nil success callback", build: func(r *Request) *Request { return r.OnSuccess(nil) }},
		{title: "nil error callback", build: func(r *Request) *Request { return r.OnError(nil) }},
		{title: "nil client factory", build: func(r *Request) *Request { return r.InjectClient(nil) }},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			var sent bool
			r := New("http://x.test").InjectClient(fakeClient(func(req *http.Request) (*http.Response, error) {
				sent = true
				return respond(200, "")(req)
			}))

			r = tt.build(r)

			assert.True(t, reqerr.Is(r.Err(), reqerr.InvalidArgument), "err=%v", r.Err())
			assert.Empty(t, r.Transforms(), "a failed call must not register a transform")

			_, err := r.Get(context.Background())
			assert.Equal(t, r.Err(), err)
			assert.False(t, sent)
		})
	}
}

func TestRequest_FirstConfigurationErrorIsKept(t *testing.T) {
	r := New("http://x.test").WithBearerToken("").WithSegments().WithSegments("ok")
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "token")
	assert.Len(t, r.Transforms(), 1)
}

func TestRequest_TransformOrder(t *testing.T) {
	r := New("http://x.test").
		WithSegments("a").
		WithQuery(map[string]string{"q": "1"}).
		WithBearerToken("t").
		WithSegments("b")

	require.NoError(t, r.Err())
	assert.Equal(t, []exchange.Transform{
		exchange.Segments{"a"},
		exchange.Query{{Name: "q", Value: "1"}},
		exchange.BearerAuth{Token: "t"},
		exchange.Segments{"b"},
	}, r.Transforms())
}

func TestRequest_FormFiles(t *testing.T) {
	r := New("http://x.test").
		AddFormFile(strings.NewReader("one"), "", "").
		AddFormFile(strings.NewReader("two"), "", "b.txt").
		AddFormFiles(strings.NewReader("three"), strings.NewReader("four"))

	require.NoError(t, r.Err())
	transforms := r.Transforms()
	require.Len(t, transforms, 4)

	seen := map[string]bool{}
	for _, tr := range transforms {
		f, ok := tr.(exchange.FormFile)
		require.True(t, ok)
		assert.NotEmpty(t, f.FileName)
		assert.NotEmpty(t, f.FieldName)
		assert.False(t, seen[f.FieldName], "duplicate part name %s", f.FieldName)
		seen[f.FieldName] = true
	}
	second := transforms[1].(exchange.FormFile)
	assert.Equal(t, "b.txt", second.FileName)
	assert.Equal(t, "b.txt", second.FieldName)

	req, err := r.InjectClient(fakeClient(respond(200, ""))).Build(context.Background(), http.MethodPost)
	require.NoError(t, err)
	require.NoError(t, req.ParseMultipartForm(1<<20))
	assert.Len(t, req.MultipartForm.File, 4)
}

func TestRequest_BaseURLFromClient(t *testing.T) {
	// Setup
	resetDefault(t)
	var got string
	err := UseDefaultClient(&exchange.Options{
		BaseURL: "http://api.test/v1",
		Header:  http.Header{"X-Default": {"yes"}},
		Transport: RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			got = r.URL.String() + " " + r.Header.Get("X-Default")
			return respond(200, "")(r)
		}),
	})
	require.NoError(t, err)

	// Exercise
	_, err = New("").WithSegments("users").Get(context.Background())

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/v1/users yes", got)
}

func TestUseDefaultClient_Errors(t *testing.T) {
	resetDefault(t)

	err := UseDefaultClient(nil)
	assert.True(t, reqerr.Is(err, reqerr.InvalidArgument), "err=%v", err)

	require.NoError(t, UseDefaultClient(&exchange.Options{BaseURL: "not-absolute"}))
	for i := 0; i < 2; i++ {
		_, err = New("http://x.test").Get(context.Background())
		assert.True(t, reqerr.Is(err, reqerr.InvalidConfiguration), "err=%v", err)
		assert.Contains(t, err.Error(), "base URL must be absolute")
	}
}

func TestRequest_UnresolvedURL(t *testing.T) {
	_, err := New("").
		InjectClient(fakeClient(respond(200, ""))).
		WithSegments("users").
		Get(context.Background())
	assert.True(t, reqerr.Is(err, reqerr.UnresolvedURL), "err=%v", err)
}

func TestRequest_Async(t *testing.T) {
	r := New("http://x.test").InjectClient(fakeClient(respond(202, "")))

	results := []<-chan Result{
		r.GetAsync(context.Background()),
		r.PostAsync(context.Background()),
		r.PutAsync(context.Background()),
		r.PatchAsync(context.Background()),
		r.DeleteAsync(context.Background()),
	}
	methods := map[string]bool{}
	for _, ch := range results {
		res, ok := <-ch
		require.True(t, ok)
		require.NoError(t, res.Err)
		assert.Equal(t, 202, res.Response.StatusCode)
		methods[res.Response.Request.Method] = true
		_, open := <-ch
		assert.False(t, open)
	}
	assert.Len(t, methods, 5)
}

func TestRequest_AsyncCallbackPanic(t *testing.T) {
	res := <-New("http://x.test").
		InjectClient(fakeClient(respond(200, ""))).
		OnSuccess(func(*http.Response) { panic("boom") }).
		GetAsync(context.Background())

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
}

type closeTracker struct {
	io.Reader
	closed atomic.Int32
}

func (c *closeTracker) Close() error {
	c.closed.Add(1)
	return nil
}

func TestRequest_CallbackPanicClosesBody(t *testing.T) {
	testCases := []struct {
		title  string
		status int
		async  bool
	}{
		{title: "async success callback", status: 200, async: true},
		{title: "async error callback", status: 500, async: true},
		{title: "sync error callback", status: 500},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			// Setup
			body := &closeTracker{Reader: strings.NewReader("data")}
			panicking := func(*http.Response) { panic("boom") }
			r := New("http://x.test").
				InjectClient(fakeClient(func(req *http.Request) (*http.Response, error) {
					return &http.Response{StatusCode: tt.status, Header: http.Header{}, Body: body, Request: req}, nil
				})).
				OnSuccess(panicking).
				OnError(panicking)

			// Exercise
			if tt.async {
				res := <-r.GetAsync(context.Background())
				require.Error(t, res.Err)
			} else {
				assert.Panics(t, func() { _, _ = r.Get(context.Background()) })
			}

			// Verify
			assert.Equal(t, int32(1), body.closed.Load())
		})
	}
}

func TestRequest_CallbackPanicPropagates(t *testing.T) {
	r := New("http://x.test").
		InjectClient(fakeClient(respond(500, ""))).
		OnError(func(*http.Response) { panic("boom") })

	assert.PanicsWithValue(t, "boom", func() { _, _ = r.Get(context.Background()) })
}

func TestRequest_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).
		InjectClient(func(string) exchange.Doer { return srv.Client() }).
		Get(ctx)

	assert.True(t, reqerr.Is(err, reqerr.TransportFailure), "err=%v", err)
	assert.ErrorIs(t, err, context.Canceled)
}
