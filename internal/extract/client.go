package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/WakuwakuP/stellasora-tools-sub001/internal/effect"
)

const (
	defaultTimeout  = 60 * time.Second
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

var tracer = otel.Tracer("github.com/WakuwakuP/stellasora-tools-sub001/internal/extract")

// ClientConfig configures the inference endpoint and HTTP behavior.
type ClientConfig struct {
	Endpoint   string // responses-style URL accepting {"model","input"}
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls an inference backend over HTTP and parses its answer.
type Client struct {
	cfg ClientConfig
}

// NewClient builds a Client. It fails when endpoint or model is missing.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("extraction endpoint is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("extraction model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg}, nil
}

// Extract sends the prompt for req and parses the descriptors out of the answer.
func (c *Client) Extract(ctx context.Context, req Request) ([]effect.Descriptor, error) {
	ctx, span := tracer.Start(ctx, "extract.Extract", trace.WithAttributes(
		attribute.String("extract.model", c.cfg.Model),
		attribute.String("extract.fingerprint", req.Fingerprint()),
	))
	defer span.End()

	answer, err := c.invoke(ctx, BuildPrompt(req))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoke failed")
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	descs, err := ParseEffects(answer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("extract.effects", len(descs)))
	slog.Debug("extracted effects", "count", len(descs), "model", c.cfg.Model)
	return descs, nil
}

func (c *Client) invoke(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal invoke request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		if err != nil {
			return "", fmt.Errorf("read invoke error body: %w", err)
		}
		return "", fmt.Errorf("invoke request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read invoke response: %w", err)
	}
	text := outputText(body)
	if text == "" {
		return "", fmt.Errorf("invoke response missing output text")
	}
	return text, nil
}

// outputText finds the answer in a responses-style or chat-completions-style payload.
func outputText(body []byte) string {
	if s := strings.TrimSpace(gjson.GetBytes(body, "output_text").String()); s != "" {
		return s
	}
	var text string
	gjson.GetBytes(body, "output").ForEach(func(_, item gjson.Result) bool {
		item.Get("content").ForEach(func(_, content gjson.Result) bool {
			text = strings.TrimSpace(content.Get("text").String())
			return text == ""
		})
		return text == ""
	})
	if text != "" {
		return text
	}
	return strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String())
}
