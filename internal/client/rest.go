package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// RESTClient is a small general-purpose HTTP client used by the test
// tooling. Responses are echoed to out, pretty-printed when they carry
// JSON.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	out        io.Writer
}

func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		out:        os.Stdout,
	}
}

type Response struct {
	StatusCode int
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Text returns the response body as-is.
func (r *Response) Text() string {
	return string(r.Body)
}

func (c *RESTClient) Get(ctx context.Context, endpoint string, params url.Values, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, params, nil, "", headers)
}

func (c *RESTClient) Post(ctx context.Context, endpoint string, body []byte, contentType string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, contentType, headers)
}

func (c *RESTClient) Put(ctx context.Context, endpoint string, body []byte, contentType string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodPut, endpoint, nil, body, contentType, headers)
}

func (c *RESTClient) Delete(ctx context.Context, endpoint string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, "", headers)
}

func (c *RESTClient) do(ctx context.Context, method, endpoint string, params url.Values, body []byte, contentType string, headers map[string]string) (*Response, error) {
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	result := &Response{StatusCode: resp.StatusCode, Body: data}
	c.printResponse(method, endpoint, result)
	return result, nil
}

func (c *RESTClient) printResponse(method, endpoint string, resp *Response) {
	if c.out == nil {
		return
	}

	fmt.Fprintf(c.out, "%s %s -> %d\n", method, endpoint, resp.StatusCode)

	var pretty bytes.Buffer
	if json.Indent(&pretty, resp.Body, "", "  ") == nil {
		fmt.Fprintln(c.out, pretty.String())
	} else if len(resp.Body) > 0 {
		fmt.Fprintln(c.out, string(resp.Body))
	}
}
