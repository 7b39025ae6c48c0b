package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"hospital-jobs/internal/config"
)

// Client sends a posting prompt to an external text classifier and returns
// the single label it answers with.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

type labelRequest struct {
	Prompt string `json:"prompt"`
}

type labelResponse struct {
	Label string `json:"label"`
}

// New returns nil when no classifier URL is configured; callers treat a nil
// *Client as "no labeler".
func New(cfg config.ClassifierConfig, logger *log.Logger) *Client {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (c *Client) Label(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", errors.New("nil classifier client")
	}
	endpoint := c.baseURL + "/label"

	b, err := json.Marshal(labelRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		bodyStr := strings.TrimSpace(string(rb))
		if c.logger != nil {
			c.logger.Printf("[Classifier] Label error endpoint=%s status=%d body=%q", endpoint, resp.StatusCode, bodyStr)
		}
		return "", fmt.Errorf("classifier label failed: status=%d body=%s", resp.StatusCode, bodyStr)
	}

	var out labelResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return "", fmt.Errorf("classifier label decode: %w", err)
	}
	label := strings.ToLower(strings.TrimSpace(out.Label))
	if label == "" {
		return "", errors.New("classifier returned empty label")
	}
	return label, nil
}
