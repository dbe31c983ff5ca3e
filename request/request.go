// Package request is the fluent façade over the transform pipeline.
//
// A Request collects transforms in call order and sends them with one of the
// terminal verbs:
//
//	resp, err := request.New("https://api.example.com").
//		WithSegments("users", "42").
//		WithQuery(map[string]string{"fields": "name"}).
//		WithBearerToken(token).
//		Get(ctx)
//
// Configuration mistakes are recorded on the Request and returned by the
// terminal verb before any network activity. Err reports them early.
package request

import (
	"io"
	"log/slog"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/HexmosTech/httpchain/exchange"
	"github.com/HexmosTech/httpchain/input"
	"github.com/HexmosTech/httpchain/reqerr"
)

// Callback observes a response the transport returned. It must not consume
// the body.
type Callback func(resp *http.Response)

type Request struct {
	baseURL    string
	transforms []exchange.Transform
	onSuccess  Callback
	onError    Callback
	factory    Factory
	logger     *slog.Logger
	err        error
}

// New returns a Request against baseURL. baseURL may be empty when the
// resolved client supplies one.
func New(baseURL string) *Request {
	return &Request{baseURL: baseURL, logger: slog.Default()}
}

// Err returns the first configuration error, if any.
func (r *Request) Err() error {
	return r.err
}

// Transforms returns a copy of the registered transforms in call order.
func (r *Request) Transforms() []exchange.Transform {
	return append([]exchange.Transform(nil), r.transforms...)
}

func (r *Request) fail(err error) *Request {
	if r.err == nil {
		r.err = err
	}
	return r
}

func (r *Request) failf(format string, args ...interface{}) *Request {
	return r.fail(reqerr.Errorf(reqerr.InvalidArgument, format, args...))
}

func (r *Request) add(t exchange.Transform) *Request {
	r.transforms = append(r.transforms, t)
	return r
}

func (r *Request) WithSegments(paths ...string) *Request {
	if len(paths) == 0 {
		return r.failf("segments are required")
	}
	for i, p := range paths {
		if p == "" {
			return r.failf("segment %d is empty", i)
		}
	}
	return r.add(exchange.Segments(append([]string(nil), paths...)))
}

// WithQuery appends the pairs of record to the query string. record is
// anything input.Fields accepts.
func (r *Request) WithQuery(record interface{}) *Request {
	fields, err := input.Fields(record)
	if err != nil {
		return r.fail(reqerr.Wrapf(reqerr.InvalidArgument, err, "query"))
	}
	return r.add(exchange.Query(fields))
}

// WithHeader adds one header per pair of record. Underscores in names become
// dashes.
func (r *Request) WithHeader(record interface{}) *Request {
	fields, err := input.Fields(record)
	if err != nil {
		return r.fail(reqerr.Wrapf(reqerr.InvalidArgument, err, "header"))
	}
	return r.add(exchange.Header(fields))
}

func (r *Request) WithCookies(record interface{}) *Request {
	fields, err := input.Fields(record)
	if err != nil {
		return r.fail(reqerr.Wrapf(reqerr.InvalidArgument, err, "cookies"))
	}
	return r.add(exchange.Cookie(fields))
}

func (r *Request) WithBasicAuth(username, password string) *Request {
	if username == "" {
		return r.failf("username is required")
	}
	if password == "" {
		return r.failf("password is required")
	}
	return r.add(exchange.BasicAuth{Username: username, Password: password})
}

func (r *Request) WithBearerToken(token string) *Request {
	if token == "" {
		return r.failf("token is required")
	}
	return r.add(exchange.BearerAuth{Token: token})
}

// WithFormData adds the pairs of record as multipart text fields.
func (r *Request) WithFormData(record interface{}) *Request {
	fields, err := input.Fields(record)
	if err != nil {
		return r.fail(reqerr.Wrapf(reqerr.InvalidArgument, err, "form data"))
	}
	return r.add(exchange.FormField(fields))
}

// AddFormFile adds content as a multipart file part. An empty fileName is
// replaced by a random one, and an empty fieldName falls back to fileName.
func (r *Request) AddFormFile(content io.Reader, fieldName, fileName string) *Request {
	if content == nil {
		return r.failf("form file content is required")
	}
	if fileName == "" {
		name, err := gonanoid.New()
		if err != nil {
			return r.fail(reqerr.Wrapf(reqerr.InvalidArgument, err, "generating form file name"))
		}
		fileName = name
	}
	if fieldName == "" {
		fieldName = fileName
	}
	return r.add(exchange.FormFile{FieldName: fieldName, FileName: fileName, Content: content})
}

// AddFormFiles adds every reader as its own file part under a random name.
func (r *Request) AddFormFiles(contents ...io.Reader) *Request {
	if len(contents) == 0 {
		return r.failf("form files are required")
	}
	for i, c := range contents {
		if c == nil {
			return r.failf("form file %d is nil", i)
		}
	}
	files := make([]exchange.FormFile, 0, len(contents))
	for _, c := range contents {
		name, err := gonanoid.New()
		if err != nil {
			return r.fail(reqerr.Wrapf(reqerr.InvalidArgument, err, "generating form file name"))
		}
		files = append(files, exchange.FormFile{FieldName: name, FileName: name, Content: c})
	}
	for _, f := range files {
		r.add(f)
	}
	return r
}

// WithJSONBody replaces any body staged before it with the JSON encoding of v.
func (r *Request) WithJSONBody(v interface{}) *Request {
	if isNil(v) {
		return r.failf("JSON body is required")
	}
	return r.add(exchange.JSONBody{Value: v})
}

// WithRawBody sends data unchanged.
func (r *Request) WithRawBody(data []byte, contentType string) *Request {
	if data == nil {
		return r.failf("raw body is required")
	}
	return r.add(exchange.RawBody{Data: data, ContentType: contentType})
}

// OnSuccess sets the callback for 2xx responses. The last one set wins.
func (r *Request) OnSuccess(fn Callback) *Request {
	if fn == nil {
		return r.failf("success callback is required")
	}
	r.onSuccess = fn
	return r
}

// OnError sets the callback for non-2xx responses. The last one set wins.
func (r *Request) OnError(fn Callback) *Request {
	if fn == nil {
		return r.failf("error callback is required")
	}
	r.onError = fn
	return r
}

// InjectClient makes this Request use factory instead of the default one.
func (r *Request) InjectClient(factory Factory) *Request {
	if factory == nil {
		return r.failf("client factory is required")
	}
	r.factory = factory
	return r
}

func (r *Request) WithLogger(logger *slog.Logger) *Request {
	if logger == nil {
		return r.failf("logger is required")
	}
	r.logger = logger
	return r
}
