// Package chatstore provides the HTTP client for the external chat
// persistence collaborator
package chatstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/huynhbao103/dietchat/internal/domain/chat"
	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"github.com/huynhbao103/dietchat/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client talks to the chat storage collaborator. The wire contract is
// treated as opaque: save/list/delete, nothing more.
type Client struct {
	baseURL    string
	token      string
	listLimit  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new chat store client
func NewClient(cfg config.ChatStoreConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limit := cfg.ListLimit
	if limit <= 0 {
		limit = 50
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		token:     cfg.BearerToken,
		listLimit: limit,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("chatstore-client"),
	}
}

// saveResponse wraps the created or updated chat record
type saveResponse struct {
	Chat struct {
		ID string `json:"_id"`
	} `json:"chat"`
}

// listResponse wraps the saved chat listing
type listResponse struct {
	Chats []outbound.SavedChat `json:"chats"`
}

// Save persists a transcript snapshot. A snapshot without a chat id creates
// a record; one with a chat id updates it. Returns the server-assigned id.
func (c *Client) Save(ctx context.Context, req chat.SaveRequest) (string, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal save request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.NewPersistenceError("save chat", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewPersistenceError("read save response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Chat save rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return "", errors.NewPersistenceError("save chat",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var saved saveResponse
	if err := json.Unmarshal(body, &saved); err != nil {
		return "", errors.NewPersistenceError("decode save response", err)
	}
	if saved.Chat.ID == "" {
		return "", errors.NewPersistenceError("save chat",
			fmt.Errorf("response missing chat id"))
	}

	c.logger.Debug("Chat saved",
		zap.String("chat_id", saved.Chat.ID),
		zap.Int("turns", len(req.Turns)))

	return saved.Chat.ID, nil
}

// List fetches the most-recently-updated saved chats
func (c *Client) List(ctx context.Context) ([]outbound.SavedChat, error) {
	u := c.baseURL + "/chat?limit=" + strconv.Itoa(c.listLimit)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewPersistenceError("list chats", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewPersistenceError("read list response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewPersistenceError("list chats",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var listing listResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, errors.NewPersistenceError("decode list response", err)
	}

	return listing.Chats, nil
}

// Delete removes one saved chat
func (c *Client) Delete(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.NewBadRequestError("chat id is required")
	}

	u := c.baseURL + "/chat?id=" + url.QueryEscape(chatID)

	req, err := http.NewRequestWithContext(ctx, "DELETE", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewPersistenceError("delete chat", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return errors.NewChatNotFoundError(chatID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.NewPersistenceError("delete chat",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
