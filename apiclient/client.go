package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"go.vocdoni.io/tokenvote/crypto/ethereum"
	"go.vocdoni.io/tokenvote/httprouter"
	"go.vocdoni.io/tokenvote/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = "GET"
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = "POST"

	// DefaultTimeout is the timeout of every HTTP request.
	DefaultTimeout = 10 * time.Second
)

// APIerror is an error reply of the API server.
type APIerror struct {
	HTTPstatus int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"error"`
}

func (e *APIerror) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("API server returned status code %d: %s", e.HTTPstatus, e.Message)
	}
	return fmt.Sprintf("API error %d (status %d): %s", e.Code, e.HTTPstatus, e.Message)
}

// HTTPclient is the election node API client.
type HTTPclient struct {
	c       *http.Client
	token   *uuid.UUID
	addr    *url.URL
	account *ethereum.SignKeys
	chainID string
}

// NewHTTPclient creates a new API client for the node at addr, and fetches
// its chain ID. The bearer token is only needed for admin methods.
func NewHTTPclient(addr *url.URL, bearerToken *uuid.UUID) (*HTTPclient, error) {
	tr := &http.Transport{
		IdleConnTimeout: 10 * time.Second,
	}
	c := &HTTPclient{
		c:     &http.Client{Transport: tr, Timeout: DefaultTimeout},
		token: bearerToken,
		addr:  addr,
	}
	info, err := c.ChainInfo()
	if err != nil {
		return nil, fmt.Errorf("cannot get chain info: %w", err)
	}
	c.chainID = info.ChainID
	return c, nil
}

// ChainID returns the chain the transactions are signed for.
func (c *HTTPclient) ChainID() string {
	return c.chainID
}

// SetAccount sets the account used for signing transactions.
func (c *HTTPclient) SetAccount(accountPrivateKey string) error {
	account := ethereum.NewSignKeys()
	if err := account.AddHexKey(accountPrivateKey); err != nil {
		return err
	}
	c.account = account
	return nil
}

// Account returns the account used for signing transactions, if any.
func (c *HTTPclient) Account() *ethereum.SignKeys {
	return c.account
}

// SetAuthToken configures the bearer authentication token.
func (c *HTTPclient) SetAuthToken(token *uuid.UUID) {
	c.token = token
}

// Request performs a raw request to the endpoint at urlPath. If jsonBody is
// not nil it is sent JSON encoded. It returns the response body and the
// status code.
func (c *HTTPclient) Request(method string, jsonBody any, urlPath ...string) ([]byte, int, error) {
	var body io.Reader
	if jsonBody != nil {
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(data)
	}
	u := *c.addr
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "tokenvote API client / 1.0")
	if jsonBody != nil {
		req.Header.Set("Content-Type", httprouter.DefaultContentType)
	}
	if c.token != nil {
		req.Header.Set("Authorization", "Bearer "+c.token.String())
	}
	log.Debugf("%s %s", method, u.String())
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return data, resp.StatusCode, nil
}

// request performs the request and decodes a 200 reply into v. Other
// replies are returned as *APIerror.
func (c *HTTPclient) request(method string, jsonBody, v any, urlPath ...string) error {
	data, status, err := c.Request(method, jsonBody, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &APIerror{HTTPstatus: status}
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cannot decode response: %w", err)
	}
	return nil
}
