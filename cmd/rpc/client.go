package rpc

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cedoor/sparse-merkle-tree/lib"
	"github.com/cenkalti/backoff/v4"
)

// maxRetries bounds the retries of read-only requests on transport failures
const maxRetries = 3

type Client struct {
	rpcURL string
	client http.Client
}

// NewClient() creates a client for the server at rpcURL
func NewClient(rpcURL string, timeout time.Duration) *Client {
	return &Client{rpcURL: strings.TrimSuffix(rpcURL, "/"), client: http.Client{Timeout: timeout}}
}

func (c *Client) Version() (version *string, err lib.ErrorI) {
	version = new(string)
	err = c.get(VersionRouteName, version)
	return
}

func (c *Client) Root() (p *RootResponse, err lib.ErrorI) {
	p = new(RootResponse)
	err = c.post(RootRouteName, nil, p)
	return
}

func (c *Client) Entry(key string) (p *lib.Entry, err lib.ErrorI) {
	p = new(lib.Entry)
	err = c.post(EntryRouteName, keyRequest{Key: key}, p)
	return
}

func (c *Client) Proof(key string) (p *lib.Proof, err lib.ErrorI) {
	p = new(lib.Proof)
	err = c.post(ProofRouteName, keyRequest{Key: key}, p)
	return
}

func (c *Client) Verify(proof *lib.Proof) (p *VerifyResponse, err lib.ErrorI) {
	p = new(VerifyResponse)
	err = c.post(VerifyRouteName, proofRequest{Proof: proof}, p)
	return
}

func (c *Client) Add(key, value string) (p *RootResponse, err lib.ErrorI) {
	p = new(RootResponse)
	err = c.post(AddRouteName, entryRequest{keyRequest: keyRequest{Key: key}, Value: value}, p)
	return
}

func (c *Client) Update(key, value string) (p *RootResponse, err lib.ErrorI) {
	p = new(RootResponse)
	err = c.post(UpdateRouteName, entryRequest{keyRequest: keyRequest{Key: key}, Value: value}, p)
	return
}

func (c *Client) Delete(key string) (p *RootResponse, err lib.ErrorI) {
	p = new(RootResponse)
	err = c.post(DeleteRouteName, keyRequest{Key: key}, p)
	return
}

func (c *Client) url(routeName string) string {
	return c.rpcURL + routePaths[routeName].Path
}

func (c *Client) post(routeName string, request any, ptr any) lib.ErrorI {
	var bz []byte
	if request != nil {
		var err lib.ErrorI
		if bz, err = lib.MarshalJSON(request); err != nil {
			return err
		}
	}
	return c.do(routeName, ptr, func() (*http.Response, lib.ErrorI) {
		resp, err := c.client.Post(c.url(routeName), ApplicationJSON, bytes.NewReader(bz))
		if err != nil {
			return nil, ErrPostRequest(err)
		}
		return resp, nil
	})
}

func (c *Client) get(routeName string, ptr any) lib.ErrorI {
	return c.do(routeName, ptr, func() (*http.Response, lib.ErrorI) {
		resp, err := c.client.Get(c.url(routeName))
		if err != nil {
			return nil, ErrGetRequest(err)
		}
		return resp, nil
	})
}

// do() executes the request, retrying transport failures with exponential backoff for read-only routes
func (c *Client) do(routeName string, ptr any, request func() (*http.Response, lib.ErrorI)) lib.ErrorI {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if readOnlyRoutes[routeName] {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	}
	var result lib.ErrorI
	_ = backoff.Retry(func() error {
		resp, err := request()
		if err != nil {
			result = err
			return err
		}
		// a response was received, never retry past this point
		result = c.unmarshal(resp, ptr)
		return nil
	}, b)
	return result
}

// unmarshal() decodes a successful response into ptr, or rebuilds the error the server responded with
func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	defer func() { _ = resp.Body.Close() }()
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrReadBody(err)
	}
	if resp.StatusCode != http.StatusOK {
		if e, ok := lib.ErrorFromJSON(bz); ok {
			return e
		}
		return ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	return lib.UnmarshalJSON(bz, ptr)
}
