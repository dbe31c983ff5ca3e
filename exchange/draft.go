package exchange

import (
	"io"
	"net/url"
	"strings"

	"github.com/HexmosTech/httpchain/input"
	"github.com/HexmosTech/httpchain/reqerr"
)

type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyMultipart
	BodyRaw
)

// Part is one multipart section. Parts with a FileName are file uploads and
// stream Content; the others carry Value.
type Part struct {
	FieldName string
	FileName  string
	Value     string
	Content   io.Reader
}

// Draft is the request being assembled by the transforms of one execution.
//
// URL starts as the base URL, or as an empty relative URL when no base is
// known. Header keeps insertion order and the names exactly as given.
type Draft struct {
	Method string
	URL    *url.URL
	Header []input.Field
	Body   BodyKind
	JSON   []byte
	Parts  []Part

	Raw     []byte
	RawType string
}

func NewDraft(method, baseURL string) (*Draft, error) {
	d := &Draft{Method: method, URL: &url.URL{}}
	if baseURL == "" {
		return d, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, reqerr.Wrapf(reqerr.UnresolvedURL, err, "parsing base URL %q", baseURL)
	}
	d.URL = u
	return d, nil
}

// Resolved reports whether URL is absolute and names a host.
func (d *Draft) Resolved() bool {
	return d.URL != nil && d.URL.IsAbs() && d.URL.Host != ""
}

func (d *Draft) AddHeader(name, value string) {
	d.Header = append(d.Header, input.Field{Name: name, Value: value})
}

// SetHeader replaces every header named name (case-insensitively) with a single value.
func (d *Draft) SetHeader(name, value string) {
	d.DelHeader(name)
	d.AddHeader(name, value)
}

func (d *Draft) DelHeader(name string) {
	kept := d.Header[:0]
	for _, f := range d.Header {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	d.Header = kept
}

// HeaderValue returns the first value of the header named name.
func (d *Draft) HeaderValue(name string) (string, bool) {
	for _, f := range d.Header {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

func (d *Draft) setJSON(body []byte) {
	d.reset()
	d.Body = BodyJSON
	d.JSON = body
}

func (d *Draft) setRaw(body []byte, contentType string) {
	d.reset()
	d.Body = BodyRaw
	d.Raw = body
	d.RawType = contentType
}

func (d *Draft) reset() {
	d.Body = BodyNone
	d.JSON = nil
	d.Parts = nil
	d.Raw = nil
	d.RawType = ""
}

func (d *Draft) addParts(parts ...Part) {
	if d.Body != BodyMultipart {
		d.reset()
		d.Body = BodyMultipart
	}
	d.Parts = append(d.Parts, parts...)
}
