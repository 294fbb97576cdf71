package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/clippy-ai/clippy-ctl/internal/errors"
	"github.com/clippy-ai/clippy-ctl/internal/logging"
)

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 120 * time.Second

// Roles of chat messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 2048

// Message is one entry of the chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessages wraps each text as a user message.
func UserMessages(texts ...string) []Message {
	msgs := make([]Message, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, Message{Role: RoleUser, Content: t})
	}
	return msgs
}

// TemplateResponse is the result of POST /template.
type TemplateResponse struct {
	// Prompts are sent to /chat ahead of the user's prompt.
	Prompts []string `json:"prompts"`
	// UIPrompts carry the starter directives; the first one is parsed.
	UIPrompts []string `json:"uiPrompts"`
}

// Client calls the generation service.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Template asks the service which starter template fits prompt.
func (c *Client) Template(ctx context.Context, prompt string) (TemplateResponse, error) {
	body, err := c.post(ctx, "/template", map[string]string{"prompt": strings.TrimSpace(prompt)})
	if err != nil {
		return TemplateResponse{}, err
	}

	var resp TemplateResponse
	for _, p := range gjson.GetBytes(body, "prompts").Array() {
		resp.Prompts = append(resp.Prompts, p.String())
	}
	for _, p := range gjson.GetBytes(body, "uiPrompts").Array() {
		resp.UIPrompts = append(resp.UIPrompts, p.String())
	}
	if len(resp.UIPrompts) == 0 {
		return TemplateResponse{}, errors.BackendFailed("/template", fmt.Errorf("response has no uiPrompts"))
	}
	return resp, nil
}

// Chat sends the message history and returns the directive text.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := c.post(ctx, "/chat", map[string][]Message{"messages": messages})
	if err != nil {
		return "", err
	}

	res := gjson.GetBytes(body, "response")
	if !res.Exists() {
		return "", errors.BackendFailed("/chat", fmt.Errorf("response field missing"))
	}
	return res.String(), nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.BackendFailed(endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, errors.BackendFailed(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.BackendFailed(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.BackendFailed(endpoint, err)
	}
	logging.Debug("backend request", "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, errors.BackendFailed(endpoint, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.BackendFailed(endpoint, fmt.Errorf("response is not valid JSON"))
	}
	return body, nil
}
