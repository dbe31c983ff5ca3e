package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"github.com/HexmosTech/httpchain/reqerr"
	"github.com/HexmosTech/httpchain/version"
)

// Build applies transforms in order to a fresh Draft and turns the result into
// an *http.Request bound to ctx. Transforms are only read, so the same slice can
// be built any number of times.
func Build(ctx context.Context, transforms []Transform, baseURL, method string) (*http.Request, error) {
	d, err := NewDraft(method, baseURL)
	if err != nil {
		return nil, err
	}
	for _, t := range transforms {
		if err := t.Apply(d); err != nil {
			return nil, err
		}
	}
	return d.Request(ctx)
}

// Request materializes the draft.
func (d *Draft) Request(ctx context.Context) (*http.Request, error) {
	if !d.Resolved() {
		return nil, reqerr.Errorf(reqerr.UnresolvedURL, "request URL %q has no scheme or host", d.URL.String())
	}

	bodyTuple, err := d.buildHTTPBody()
	if err != nil {
		return nil, err
	}

	switch d.Body {
	case BodyMultipart:
		d.SetHeader("Content-Type", bodyTuple.contentType)
	default:
		if _, ok := d.HeaderValue("Content-Type"); !ok && bodyTuple.contentType != "" {
			d.AddHeader("Content-Type", bodyTuple.contentType)
		}
	}
	if _, ok := d.HeaderValue("User-Agent"); !ok {
		d.AddHeader("User-Agent", UserAgent())
	}

	r, err := http.NewRequestWithContext(ctx, d.Method, d.URL.String(), bodyTuple.body)
	if err != nil {
		return nil, reqerr.Wrapf(reqerr.UnresolvedURL, err, "creating %s request", d.Method)
	}
	for _, f := range d.Header {
		r.Header[f.Name] = append(r.Header[f.Name], f.Value)
	}
	if host, ok := d.HeaderValue("Host"); ok {
		r.Host = host
	}
	return r, nil
}

func UserAgent() string {
	return fmt.Sprintf("httpchain/%s", version.Current())
}

type bodyTuple struct {
	body        io.Reader
	contentType string
}

func (d *Draft) buildHTTPBody() (bodyTuple, error) {
	switch d.Body {
	case BodyNone:
		return bodyTuple{}, nil
	case BodyJSON:
		return bodyTuple{
			body:        bytes.NewReader(d.JSON),
			contentType: "application/json",
		}, nil
	case BodyRaw:
		return bodyTuple{
			body:        bytes.NewReader(d.Raw),
			contentType: d.RawType,
		}, nil
	case BodyMultipart:
		return buildMultipartBody(d.Parts)
	default:
		return bodyTuple{}, errors.Errorf("unknown body kind: %v", d.Body)
	}
}

func buildMultipartBody(parts []Part) (bodyTuple, error) {
	var buffer bytes.Buffer
	multipartWriter := multipart.NewWriter(&buffer)

	for _, part := range parts {
		if part.FileName == "" {
			if err := multipartWriter.WriteField(part.FieldName, part.Value); err != nil {
				return bodyTuple{}, errors.Wrapf(err, "writing multipart field '%s'", part.FieldName)
			}
			continue
		}
		w, err := multipartWriter.CreateFormFile(part.FieldName, part.FileName)
		if err != nil {
			return bodyTuple{}, errors.Wrapf(err, "creating multipart part '%s'", part.FieldName)
		}
		if part.Content != nil {
			if _, err := io.Copy(w, part.Content); err != nil {
				return bodyTuple{}, reqerr.Wrapf(reqerr.InvalidArgument, err, "reading content of '%s'", part.FileName)
			}
		}
	}
	if err := multipartWriter.Close(); err != nil {
		return bodyTuple{}, errors.Wrap(err, "closing multipart writer")
	}

	return bodyTuple{
		body:        &buffer,
		contentType: multipartWriter.FormDataContentType(),
	}, nil
}
