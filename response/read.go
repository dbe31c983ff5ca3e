// Package response drains HTTP responses exactly once.
//
// Every reader consumes the whole body, closes it on every path and replaces
// it with a body that fails with ErrReleased, so a response cannot be read
// twice by mistake.
package response

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/HexmosTech/httpchain/reqerr"
)

// ErrReleased is returned when reading a response that was already drained.
var ErrReleased = errors.New("response already read and released")

type releasedBody struct{}

func (releasedBody) Read([]byte) (int, error) { return 0, ErrReleased }
func (releasedBody) Close() error             { return nil }

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// drain reads the body of resp and releases resp, whatever happens.
func drain(ctx context.Context, resp *http.Response) ([]byte, error) {
	if resp == nil {
		return nil, reqerr.Errorf(reqerr.InvalidArgument, "response is required")
	}
	body := resp.Body
	resp.Body = releasedBody{}
	if body == nil {
		return []byte{}, nil
	}
	defer body.Close()

	if _, ok := body.(releasedBody); ok {
		return nil, ErrReleased
	}
	data, err := io.ReadAll(ctxReader{ctx: ctx, r: body})
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return data, nil
}

func ReadString(ctx context.Context, resp *http.Response) (string, error) {
	data, err := drain(ctx, resp)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadJSON decodes the body into a T.
func ReadJSON[T any](ctx context.Context, resp *http.Response) (T, error) {
	var v T
	data, err := drain(ctx, resp)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, reqerr.Wrapf(reqerr.InvalidPayload, err, "decoding response body")
	}
	return v, nil
}

// ReadJSONDynamic returns the body as an untyped JSON document.
func ReadJSONDynamic(ctx context.Context, resp *http.Response) (gjson.Result, error) {
	data, err := drain(ctx, resp)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, reqerr.Errorf(reqerr.InvalidPayload, "response body is not valid JSON")
	}
	return gjson.ParseBytes(data), nil
}

// ReadStream buffers the body so the returned reader outlives resp.
func ReadStream(ctx context.Context, resp *http.Response) (*bytes.Reader, error) {
	data, err := drain(ctx, resp)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
