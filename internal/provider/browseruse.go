package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/httpclient"
)

// UserAgent identifies this service to the provider.
const UserAgent = "scheduled-task-gateway/1.0"

// listItemKeys are the envelope keys the listing endpoint has used for its items, in lookup order.
var listItemKeys = []string{"items", "scheduled_tasks", "tasks", "data"}

// BrowserUseClient implements Client against the Browser Use cloud API.
type BrowserUseClient struct {
	reads   *httpclient.Client
	writes  *httpclient.Client
	limiter *rate.Limiter
	credErr error
	logger  *zap.Logger
}

// New creates a provider client. A missing credential does not fail
// construction; every call returns config.ErrMissingCredential instead.
func New(cfg config.ProviderConfig, logger *zap.Logger) *BrowserUseClient {
	key, credErr := cfg.Credential()

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	wait := cfg.RetryWait
	if wait <= 0 {
		wait = time.Second
	}

	return &BrowserUseClient{
		// Reads are safe to repeat; writes are not, a retried POST would create a second task.
		reads: httpclient.New().
			WithBaseURL(cfg.BaseURL).
			WithTimeout(cfg.Timeout).
			WithRetryCount(cfg.RetryCount).
			WithRetryWait(wait, 5*wait).
			WithHeader("User-Agent", UserAgent).
			WithBearerToken(key),
		writes: httpclient.New().
			WithBaseURL(cfg.BaseURL).
			WithTimeout(cfg.Timeout).
			WithRetryCount(0).
			WithHeader("User-Agent", UserAgent).
			WithBearerToken(key),
		limiter: rate.NewLimiter(limit, burst),
		credErr: credErr,
		logger:  logger,
	}
}

func (c *BrowserUseClient) GetTask(ctx context.Context, id string) (Record, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	resp, err := c.reads.Get(ctx, taskPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("provider get task %s: %w", id, err)
	}
	return decodeRecord("get", resp)
}

func (c *BrowserUseClient) CreateTask(ctx context.Context, payload any) (Record, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	resp, err := c.writes.Post(ctx, "/scheduled-task", payload)
	if err != nil {
		return nil, fmt.Errorf("provider create task: %w", err)
	}
	return decodeRecord("create", resp)
}

func (c *BrowserUseClient) UpdateTask(ctx context.Context, id string, payload any) (Record, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	resp, err := c.writes.Put(ctx, taskPath(id), payload)
	if err != nil {
		return nil, fmt.Errorf("provider update task %s: %w", id, err)
	}
	return decodeRecord("update", resp)
}

func (c *BrowserUseClient) DeleteTask(ctx context.Context, id string) (any, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	resp, err := c.writes.Delete(ctx, taskPath(id))
	if err != nil {
		return nil, fmt.Errorf("provider delete task %s: %w", id, err)
	}
	if !resp.OK() {
		return nil, &Error{Op: "delete", StatusCode: resp.StatusCode, Body: decodeBody(resp.Body)}
	}
	return decodeBody(resp.Body), nil
}

func (c *BrowserUseClient) ListTasks(ctx context.Context, page, limit int) (*Page, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	resp, err := c.reads.Get(ctx, "/scheduled-tasks", map[string]string{
		"page":  strconv.Itoa(page),
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("provider list tasks: %w", err)
	}
	if !resp.OK() {
		return nil, &Error{Op: "list", StatusCode: resp.StatusCode, Body: decodeBody(resp.Body)}
	}
	p, err := decodePage(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Listed provider tasks",
		zap.Int("page", page),
		zap.Int("limit", limit),
		zap.Int("count", len(p.Items)),
	)
	return p, nil
}

// ready checks the credential and waits for the shared rate limiter.
func (c *BrowserUseClient) ready(ctx context.Context) error {
	if c.credErr != nil {
		return c.credErr
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("provider rate limit: %w", err)
	}
	return nil
}

func taskPath(id string) string {
	return "/scheduled-task/" + url.PathEscape(id)
}

func decodeRecord(op string, resp *httpclient.Response) (Record, error) {
	if !resp.OK() {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Body: decodeBody(resp.Body)}
	}
	var rec Record
	if len(resp.Body) == 0 {
		return Record{}, nil
	}
	if err := json.Unmarshal(resp.Body, &rec); err != nil {
		return nil, fmt.Errorf("provider %s: parse response: %w", op, err)
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

func decodePage(raw []byte) (*Page, error) {
	var arr []Record
	if err := json.Unmarshal(raw, &arr); err == nil {
		if arr == nil {
			arr = []Record{}
		}
		return &Page{Items: arr}, nil
	}

	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("provider list: parse response: %w", err)
	}
	page := &Page{Envelope: env}
	for _, key := range listItemKeys {
		v, present := env[key]
		if !present {
			continue
		}
		items, ok := v.([]any)
		if !ok && v != nil {
			continue
		}
		page.ItemsKey = key
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				page.Items = append(page.Items, Record(m))
			}
		}
		break
	}
	if page.ItemsKey == "" {
		return nil, fmt.Errorf("provider list: response has none of the item keys %v", listItemKeys)
	}
	delete(env, page.ItemsKey)
	if page.Items == nil {
		page.Items = []Record{}
	}
	return page, nil
}
