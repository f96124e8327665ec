package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for JSON calls against the provider API.
type Client struct {
	r *resty.Client
}

// Response is the status and raw body of a completed call. Non-2xx statuses
// are not errors at this level; callers decide what they mean.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a new HTTP client with sensible defaults.
// Retries only fire on transport errors and 5xx/429 responses.
func New() *Client {
	r := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	return &Client{r: r}
}

// WithBaseURL sets the prefix prepended to every request path.
func (c *Client) WithBaseURL(url string) *Client {
	c.r.SetBaseURL(url)
	return c
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithRetryCount sets how many times a failed call is retried. Zero disables retries.
func (c *Client) WithRetryCount(n int) *Client {
	c.r.SetRetryCount(n)
	return c
}

// WithRetryWait sets the backoff bounds between retries.
func (c *Client) WithRetryWait(wait, maxWait time.Duration) *Client {
	c.r.SetRetryWaitTime(wait).SetRetryMaxWaitTime(maxWait)
	return c
}

// WithBearerToken sets a bearer token for authentication.
func (c *Client) WithBearerToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// WithHeader sets a custom header.
func (c *Client) WithHeader(key, value string) *Client {
	c.r.SetHeader(key, value)
	return c
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	req := c.r.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	return wrap(req.Get(path))
}

// Post sends a POST request with JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

// Put sends a PUT request with JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPut, path, body)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return wrap(c.r.R().SetContext(ctx).Delete(path))
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*Response, error) {
	req := c.r.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	return wrap(req.Execute(method, path))
}

func wrap(resp *resty.Response, err error) (*Response, error) {
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}
