package exchange

import (
	"net/http"

	"github.com/HexmosTech/httpchain/reqerr"
)

// Doer sends one request. *http.Client and *Client both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Send performs req once. Transport errors come back as TransportFailure
// with the original error reachable through errors.As.
func Send(client Doer, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, reqerr.Transport(err)
	}
	return resp, nil
}
