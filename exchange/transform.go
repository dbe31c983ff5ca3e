package exchange

import (
	"encoding/base64"
	"io"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/HexmosTech/httpchain/input"
	"github.com/HexmosTech/httpchain/reqerr"
)

// Transform is one mutation of a Draft. Implementations hold everything they
// need from construction on and never modify themselves in Apply.
type Transform interface {
	Apply(d *Draft) error
}

// Segments appends path segments to the URL.
type Segments []string

func (s Segments) Apply(d *Draft) error {
	if len(s) == 0 {
		return nil
	}
	if d.URL.Host != "" && d.URL.Path == "" {
		d.URL.Path = "/"
	}
	d.URL = d.URL.JoinPath(s...)
	return nil
}

// Query appends URL-encoded pairs to the query string.
type Query []input.Field

func (q Query) Apply(d *Draft) error {
	if len(q) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(d.URL.RawQuery)
	for _, f := range q {
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	d.URL.RawQuery = sb.String()
	return nil
}

var headerValueReplacer = strings.NewReplacer("\r", " ", "\n", " ")

// Header adds request headers. Underscores in names become dashes.
type Header []input.Field

func (h Header) Apply(d *Draft) error {
	for _, f := range h {
		d.AddHeader(HeaderName(f.Name), headerValueReplacer.Replace(f.Value))
	}
	return nil
}

// HeaderName turns a record field name into a header name.
func HeaderName(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) Apply(d *Draft) error {
	creds := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	d.SetHeader("Authorization", "Basic "+creds)
	return nil
}

type BearerAuth struct {
	Token string
}

func (a BearerAuth) Apply(d *Draft) error {
	d.SetHeader("Authorization", "Bearer "+a.Token)
	return nil
}

// Cookie joins pairs as "k1=v1;k2=v2" into the Cookie header, merging with a
// Cookie header set earlier.
type Cookie []input.Field

func (c Cookie) Apply(d *Draft) error {
	if len(c) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(c))
	for _, f := range c {
		pairs = append(pairs, f.Name+"="+url.PathEscape(f.Value))
	}
	value := strings.Join(pairs, ";")
	if prev, ok := d.HeaderValue("Cookie"); ok && prev != "" {
		value = prev + ";" + value
	}
	d.SetHeader("Cookie", value)
	return nil
}

// FormField adds multipart text parts.
type FormField []input.Field

func (f FormField) Apply(d *Draft) error {
	parts := make([]Part, 0, len(f))
	for _, field := range f {
		parts = append(parts, Part{FieldName: field.Name, Value: field.Value})
	}
	d.addParts(parts...)
	return nil
}

// FormFile adds a multipart file part read from Content.
type FormFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

func (f FormFile) Apply(d *Draft) error {
	d.addParts(Part{FieldName: f.FieldName, FileName: f.FileName, Content: f.Content})
	return nil
}

// JSONBody serializes Value and replaces whatever body was staged before.
type JSONBody struct {
	Value interface{}
}

func (j JSONBody) Apply(d *Draft) error {
	body, err := json.Marshal(j.Value)
	if err != nil {
		return reqerr.Wrapf(reqerr.InvalidArgument, err, "marshaling JSON of HTTP body")
	}
	d.setJSON(body)
	return nil
}

// RawBody sends Data as is. An empty ContentType leaves Content-Type unset.
type RawBody struct {
	Data        []byte
	ContentType string
}

func (r RawBody) Apply(d *Draft) error {
	d.setRaw(r.Data, r.ContentType)
	return nil
}
