package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/feichai0017/assistant-provisioner/internal/models"
	"github.com/feichai0017/assistant-provisioner/internal/platform"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

const userAgent = "assistant-provisioner/1.0"

// Config configures the Pinecone Assistant REST client.
type Config struct {
	ControlURL   string
	APIVersion   string
	Instructions string
	Region       string
	ChatModel    string
	// ReadyInterval is how often CreateAssistant re-describes a new
	// assistant while waiting for it to become ready.
	ReadyInterval time.Duration
	// HTTPClient carries no timeout; callers bound calls through ctx.
	HTTPClient *http.Client
}

// APIError is returned for non-2xx platform responses.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinecone %s %s failed: %d %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the platform.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	apiKey string
	cfg    Config
	http   *http.Client
	logger logger.Logger
}

// NewClient builds a client without contacting the platform.
func NewClient(apiKey string, cfg Config, log logger.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}
	if strings.IndexFunc(apiKey, unicode.IsSpace) >= 0 {
		return nil, errors.New("api key contains whitespace")
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = "https://api.pinecone.io"
	}
	if _, err := url.Parse(cfg.ControlURL); err != nil {
		return nil, fmt.Errorf("invalid control url: %w", err)
	}
	cfg.ControlURL = strings.TrimRight(cfg.ControlURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2025-01"
	}
	if cfg.ReadyInterval <= 0 {
		cfg.ReadyInterval = 2 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiKey: apiKey,
		cfg:    cfg,
		http:   httpClient,
		logger: log.Named("pinecone"),
	}, nil
}

// NewFactory adapts NewClient to platform.Factory.
func NewFactory(cfg Config, log logger.Logger) platform.Factory {
	return func(apiKey string) (platform.Client, error) {
		return NewClient(apiKey, cfg, log)
	}
}

type assistantModel struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Host   string `json:"host"`
}

func (m assistantModel) info() models.AssistantInfo {
	return models.AssistantInfo{
		Name:   m.Name,
		Status: models.AssistantStatus(m.Status),
		Host:   m.Host,
	}
}

func (c *Client) ListAssistants(ctx context.Context) ([]models.AssistantInfo, error) {
	var resp struct {
		Assistants []assistantModel `json:"assistants"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.cfg.ControlURL+"/assistant/assistants", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.AssistantInfo, 0, len(resp.Assistants))
	for _, a := range resp.Assistants {
		out = append(out, a.info())
	}
	return out, nil
}

func (c *Client) CreateAssistant(ctx context.Context, name string, timeout time.Duration) (platform.Assistant, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body := map[string]any{
		"name":         name,
		"instructions": c.cfg.Instructions,
	}
	if c.cfg.Region != "" {
		body["region"] = c.cfg.Region
	}
	var created assistantModel
	if err := c.doJSON(ctx, http.MethodPost, c.cfg.ControlURL+"/assistant/assistants", body, &created); err != nil {
		return nil, err
	}
	c.logger.Info("Assistant created",
		logger.String("assistant", name),
		logger.String("status", created.Status),
	)

	current := created
	for models.AssistantStatus(current.Status) != models.AssistantReady {
		if models.AssistantStatus(current.Status) == models.AssistantFailed {
			return nil, fmt.Errorf("assistant %s failed to initialize", name)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("assistant %s not ready: %w", name, ctx.Err())
		case <-time.After(c.cfg.ReadyInterval):
		}
		if err := c.doJSON(ctx, http.MethodGet, c.cfg.ControlURL+"/assistant/assistants/"+url.PathEscape(name), nil, &current); err != nil {
			return nil, err
		}
	}

	return c.Open(current.info()), nil
}

func (c *Client) Open(info models.AssistantInfo) platform.Assistant {
	host := strings.TrimRight(info.Host, "/")
	if host != "" && !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if host == "" {
		host = c.cfg.ControlURL
	}
	return &assistant{client: c, name: info.Name, host: host}
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", c.cfg.APIVersion)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinecone %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			Method:     req.Method,
			URL:        req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
