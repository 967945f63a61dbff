// Package langgraph provides the HTTP client for the LangGraph
// recommendation backend's two-phase protocol
package langgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huynhbao103/dietchat/internal/infrastructure/config"
	"github.com/huynhbao103/dietchat/internal/infrastructure/monitoring"
	"github.com/huynhbao103/dietchat/internal/ports/outbound"
	"github.com/huynhbao103/dietchat/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	processPath        = "/langgraph/process"
	processCookingPath = "/langgraph/process-cooking"
)

// Client implements the RecommendationService interface against the
// LangGraph backend
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewClient creates a new LangGraph backend client
func NewClient(cfg config.RecommendConfig, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	logger.Info("LangGraph client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", timeout))

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.BearerToken,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  logger.Named("langgraph-client"),
		metrics: metrics,
	}
}

// ProcessQuestion runs the analysis phase
func (c *Client) ProcessQuestion(ctx context.Context, req outbound.PhaseOneRequest) (*outbound.Reply, error) {
	return c.process(ctx, monitoring.PhaseAnalysis, processPath, req)
}

// ProcessCooking runs the preference-confirmation phase
func (c *Client) ProcessCooking(ctx context.Context, req outbound.PhaseTwoRequest) (*outbound.Reply, error) {
	return c.process(ctx, monitoring.PhaseCooking, processCookingPath, req)
}

func (c *Client) process(ctx context.Context, phase, path string, body interface{}) (*outbound.Reply, error) {
	start := time.Now()

	reply, err := c.post(ctx, path, body)

	outcome := monitoring.OutcomeOK
	if err != nil {
		outcome = monitoring.OutcomeTransport
		if errors.Is(err, errors.CodeBackend) {
			outcome = monitoring.OutcomeBackend
		}
	}
	if c.metrics != nil {
		c.metrics.RecordPhaseRequest(phase, outcome, time.Since(start))
	}

	return reply, err
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*outbound.Reply, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend unreachable", zap.String("path", path), zap.Error(err))
		return nil, errors.NewTransportError("recommendation backend", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError("recommendation backend", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := bestErrorMessage(respBody)
		c.logger.Error("Backend error response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)))
		return nil, errors.NewBackendError("recommendation backend", resp.StatusCode, message)
	}

	reply, nerr := Normalize(respBody)
	if nerr != nil {
		if c.metrics != nil {
			c.metrics.RecordNormalizerFallback()
		}
		c.logger.Warn("Payload degraded to stringified output",
			zap.String("path", path),
			zap.Error(nerr),
			zap.String("payload", string(respBody)))
	}

	return reply, nil
}

// bestErrorMessage extracts the best-available human message from a
// structured error body
func bestErrorMessage(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, m := range []string{payload.Detail, payload.Message, payload.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}
