package response

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HexmosTech/httpchain/reqerr"
)

type trackingBody struct {
	io.Reader
	closed int
	err    error
}

func (b *trackingBody) Read(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	return b.Reader.Read(p)
}

func (b *trackingBody) Close() error {
	b.closed++
	return nil
}

func newResponse(body string) (*http.Response, *trackingBody) {
	b := &trackingBody{Reader: strings.NewReader(body)}
	return &http.Response{StatusCode: 200, Header: http.Header{}, Body: b}, b
}

func TestReadString(t *testing.T) {
	// Setup
	resp, body := newResponse("hello")

	// Exercise
	s, err := ReadString(context.Background(), resp)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, 1, body.closed)
}

func TestReadJSON(t *testing.T) {
	// Setup
	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	resp, body := newResponse(`{"id":1,"name":"alice"}`)

	// Exercise
	u, err := ReadJSON[user](context.Background(), resp)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, user{ID: 1, Name: "alice"}, u)
	assert.Equal(t, 1, body.closed)
}

func TestReadJSON_InvalidPayload(t *testing.T) {
	testCases := []struct {
		title string
		body  string
	}{
		{title: "not JSON", body: "<html>"},
		{title: "wrong shape", body: `{"id":"one"}`},
	}
	for _, tt := range testCases {
		t.Run(tt.title, func(t *testing.T) {
			resp, body := newResponse(tt.body)

			_, err := ReadJSON[struct {
				ID int `json:"id"`
			}](context.Background(), resp)

			assert.True(t, reqerr.Is(err, reqerr.InvalidPayload), "err=%v", err)
			assert.Equal(t, 1, body.closed)
		})
	}
}

func TestReadJSONDynamic(t *testing.T) {
	resp, _ := newResponse(`{"items":[{"name":"a"},{"name":"b"}]}`)

	doc, err := ReadJSONDynamic(context.Background(), resp)

	require.NoError(t, err)
	assert.Equal(t, "b", doc.Get("items.1.name").String())
	assert.Equal(t, int64(2), doc.Get("items.#").Int())

	resp, body := newResponse(`{"broken"`)
	_, err = ReadJSONDynamic(context.Background(), resp)
	assert.True(t, reqerr.Is(err, reqerr.InvalidPayload), "err=%v", err)
	assert.Equal(t, 1, body.closed)
}

func TestReadStream(t *testing.T) {
	// Setup
	payload := strings.Repeat("0123456789", 1000)
	resp, body := newResponse(payload)

	// Exercise
	stream, err := ReadStream(context.Background(), resp)

	// Verify
	require.NoError(t, err)
	assert.Equal(t, 1, body.closed)
	assert.Equal(t, int64(len(payload)), stream.Size())
	pos, err := stream.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	// The response is released: reading it again fails.
	_, err = ReadStream(context.Background(), resp)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = resp.Body.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrReleased)
	assert.Equal(t, 1, body.closed)
}

func TestRead_ClosesOnFailure(t *testing.T) {
	resp, body := newResponse("ignored")
	body.err = io.ErrUnexpectedEOF

	_, err := ReadString(context.Background(), resp)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 1, body.closed)
}

func TestRead_Cancelled(t *testing.T) {
	resp, body := newResponse("data")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadString(ctx, resp)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, body.closed)
}

func TestRead_NilResponse(t *testing.T) {
	_, err := ReadString(context.Background(), nil)
	assert.True(t, reqerr.Is(err, reqerr.InvalidArgument), "err=%v", err)
}
