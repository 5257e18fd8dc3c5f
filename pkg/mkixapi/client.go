// Package mkixapi is the authenticated HTTP client for MkIX's REST
// surface: one method per operation, all bound to a shared *config.Config.
package mkixapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/mkerr"
)

const device = "00000000"

// Client issues MkIX REST calls on behalf of a single bot account.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New builds a Client whose TLS verification follows cfg.SSLCheck.
func New(cfg *config.Config) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.SSLCheck}, //nolint:gosec
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
	}
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	u := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.ServerURL, "/"), endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) authHeader() string { return c.cfg.Token }

type requestOpts struct {
	headers map[string]string
	body    string
	json    any
	timeout time.Duration
}

func (c *Client) do(ctx context.Context, method, reqURL string, opts requestOpts) (*http.Response, error) {
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	var bodyReader io.Reader
	switch {
	case opts.json != nil:
		buf, err := json.Marshal(opts.json)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding request body: %v", mkerr.ErrUsage, err)
		}
		bodyReader = strings.NewReader(string(buf))
	case opts.body != "":
		bodyReader = strings.NewReader(opts.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", mkerr.ErrUsage, err)
	}
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}
	if opts.json != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mkerr.ClassifyNetError(err)
	}
	// Read the body before the deferred cancel runs: once ctx is cancelled
	// the transport fails further reads of res.Body.
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", mkerr.ErrIO, err)
	}
	res.Body = io.NopCloser(bytes.NewReader(body))
	return res, nil
}

// decode reads res, classifying non-2xx responses per mkerr's taxonomy,
// and unmarshals the JSON body into out when it is non-nil.
func decode(res *http.Response, out any) error {
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response body: %v", mkerr.ErrIO, err)
	}

	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: MkIX server error %d", mkerr.ErrServer, res.StatusCode)
	}
	if res.StatusCode >= 300 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &detail)
		return fmt.Errorf("%w: HTTP %d detail=%s", mkerr.ErrProtocol, res.StatusCode, detail.Detail)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", mkerr.ErrProtocol, err)
	}
	return nil
}
