package uomi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. Invocations may wait on a language model, so it is
// longer than a plain REST call would need.
const DefaultHTTPTimeout = 90 * time.Second

// InvocationHeader carries the server-assigned invocation identifier.
const InvocationHeader = "X-Invocation-ID"

// Client wraps the HTTP interactions with the UOMI agent daemon.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// Message is a single chat message sent to the agent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the single output of one invocation.
type Reply struct {
	InvocationID string
	ContentType  string
	Body         []byte
}

// Text returns the reply body as a string.
func (r *Reply) Text() string {
	return string(r.Body)
}

// Envelope mirrors the enveloped response format of the agent.
type Envelope struct {
	Response             string  `json:"response"`
	TimeTaken            float64 `json:"time_taken"`
	TokensPerSecond      float64 `json:"tokens_per_second"`
	TotalTokensGenerated int     `json:"total_tokens_generated"`
}

// Envelope decodes the reply as an envelope. It reports false when the body
// is not an envelope, e.g. because the daemon runs in plain mode.
func (r *Reply) Envelope() (Envelope, bool) {
	var env Envelope
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &probe); err != nil {
		return env, false
	}
	if _, ok := probe["response"]; !ok {
		return env, false
	}
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return env, false
	}
	return env, true
}

// APIError represents a non-2xx answer from the daemon.
type APIError struct {
	StatusCode   int
	Code         string `json:"code"`
	Message      string `json:"error"`
	InvocationID string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("uomi api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("uomi api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the agent daemon. When httpClient is
// nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SetAccessToken sets the bearer token sent with every request. An empty
// token disables the Authorization header.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = strings.TrimSpace(token)
}

// AccessToken returns the currently stored token string.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// Invoke runs one invocation with the given transcript, oldest message first.
func (c *Client) Invoke(ctx context.Context, messages []Message) (*Reply, error) {
	if messages == nil {
		messages = []Message{}
	}
	body, err := json.Marshal(struct {
		Messages []Message `json:"messages"`
	}{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/invocations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return &Reply{
		InvocationID: resp.Header.Get(InvocationHeader),
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         data,
	}, nil
}

// Health checks the daemon liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	_, _, err = c.do(req)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, InvocationID: resp.Header.Get(InvocationHeader)}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return nil, nil, apiErr
	}
	return resp, data, nil
}
