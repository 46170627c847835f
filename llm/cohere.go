package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// cohereClient implements Client using the Cohere Chat API.
// Docs: https://docs.cohere.com/reference/chat
type cohereClient struct {
	client *cohereclient.Client
	model  string
}

func newCohereClient(apiKey, model string) *cohereClient {
	if model == "" {
		model = "command-r-plus"
	}
	// Disable HTTP/2: Cohere's edge occasionally stalls h2 streams
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &cohereClient{client: client, model: model}
}

func (c *cohereClient) ModelName() string { return c.model }

func (c *cohereClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:  userPrompt,
		Model:    &c.model,
		Preamble: &systemPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}
