package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storyreel/config"
)

// ErrMissingAPIKey is a configuration error detected before any network call.
var ErrMissingAPIKey = errors.New("image generation API token not configured")

// GenerationError reports a terminal "failed" status from the collaborator,
// carrying its error message. Distinguishable from ErrPollTimeout.
type GenerationError struct {
	Message string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("image generation failed: %s", e.Message)
}

// Result is one generated (or substituted) image.
type Result struct {
	URL        string
	Width      int
	Height     int
	IsFallback bool
}

// Client drives a two-phase submit/poll image generation collaborator.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	pollInterval time.Duration
	maxAttempts  int
	maxRetries   int
	backoffStep  time.Duration
}

// NewClient builds an image generation client from the configuration.
func NewClient(cfg config.Config) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.ImageGenBaseURL, "/"),
		apiKey:       cfg.ImageGenAPIKey,
		model:        cfg.ImageGenModel,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: config.PollInterval,
		maxAttempts:  config.MaxPollAttempts,
		maxRetries:   config.MaxSubmitRetries,
		backoffStep:  config.RetryBackoffStep,
	}
}

// Dimensions converts a "W:H" aspect ratio into pixel dimensions anchored at
// a 1024px long edge. An unparseable ratio yields a 1024 square.
func Dimensions(aspectRatio string) (int, int) {
	width, height := config.GenerationLongEdge, config.GenerationLongEdge

	parts := strings.Split(aspectRatio, ":")
	if len(parts) != 2 {
		return width, height
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return width, height
	}

	if w > h {
		height = height * h / w
	} else if h > w {
		width = width * w / h
	}
	return width, height
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

type statusResponse struct {
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
}

// Generate submits the prompt and polls for completion. Errors are typed: a
// terminal "failed" status yields *GenerationError, an exhausted poll budget
// yields ErrPollTimeout, submit failures after all retries return the last
// network error. No fallback substitution happens here; see
// GenerateWithFallback.
func (c *Client) Generate(ctx context.Context, prompt, aspectRatio string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, ErrMissingAPIKey
	}

	width, height := Dimensions(aspectRatio)

	jobID, err := c.submitWithRetry(ctx, prompt, width, height)
	if err != nil {
		return Result{}, err
	}

	url, err := Poll(ctx, c.pollInterval, c.maxAttempts, func(ctx context.Context) (string, bool, error) {
		status, err := c.checkStatus(ctx, jobID)
		if err != nil {
			return "", false, err
		}
		switch status.Status {
		case "succeeded":
			if len(status.Output) == 0 {
				return "", true, errors.New("generation succeeded but returned no output URL")
			}
			return status.Output[0], true, nil
		case "failed", "canceled":
			return "", true, &GenerationError{Message: status.Error}
		default:
			return "", false, nil
		}
	})
	if err != nil {
		return Result{}, err
	}

	return Result{URL: url, Width: width, Height: height}, nil
}

// GenerateWithFallback degrades any generation error to a deterministic
// placeholder from the stock pool, marked IsFallback so downstream consumers
// can tell placeholders from real generations. It never returns an error
// except for missing configuration or a canceled context.
func (c *Client) GenerateWithFallback(ctx context.Context, prompt, aspectRatio string) (Result, error) {
	result, err := c.Generate(ctx, prompt, aspectRatio)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ErrMissingAPIKey) || ctx.Err() != nil {
		return Result{}, err
	}

	log.Printf("image generation degraded to fallback: %v", err)
	width, height := Dimensions(aspectRatio)
	return Result{URL: FallbackURL(prompt), Width: width, Height: height, IsFallback: true}, nil
}

// submitWithRetry creates the generation job, retrying transient network
// errors with a linearly increasing delay.
func (c *Client) submitWithRetry(ctx context.Context, prompt string, width, height int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoffStep):
			}
		}

		id, err := c.submit(ctx, prompt, width, height)
		if err == nil {
			return id, nil
		}
		lastErr = err
		log.Printf("image submit attempt %d/%d failed: %v", attempt+1, c.maxRetries, err)
	}
	return "", lastErr
}

func (c *Client) submit(ctx context.Context, prompt string, width, height int) (string, error) {
	payload := map[string]interface{}{
		"input": map[string]interface{}{
			"prompt":      prompt,
			"width":       width,
			"height":      height,
			"num_outputs": 1,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/models/%s/predictions", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("submit returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	if parsed.ID == "" {
		return "", errors.New("submit response contained no job id")
	}
	return parsed.ID, nil
}

func (c *Client) checkStatus(ctx context.Context, jobID string) (*statusResponse, error) {
	url := fmt.Sprintf("%s/v1/predictions/%s", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &parsed, nil
}
