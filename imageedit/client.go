package imageedit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is a configuration error detected before any network call.
var ErrMissingAPIKey = errors.New("image editing API key not configured")

// Params carries one edit request. Mask is optional; when present it must
// follow the alpha contract: opaque pixels mark regions to edit.
type Params struct {
	Prompt string
	Image  []byte
	Mask   []byte
	Size   string
}

// Client calls an image-editing collaborator with a multipart form of
// prompt, source image and optional mask.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an image editing client for the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// Edit submits the edit and returns the resulting image bytes. The
// collaborator answers with base64 or a URL reference; both are resolved to
// raw bytes here.
func (c *Client) Edit(ctx context.Context, params Params) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if len(params.Image) == 0 {
		return nil, errors.New("no source image supplied")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	_ = writer.WriteField("model", "gpt-image-1")
	_ = writer.WriteField("prompt", params.Prompt)
	if params.Size != "" {
		_ = writer.WriteField("size", params.Size)
	}

	part, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(params.Image); err != nil {
		return nil, err
	}

	if len(params.Mask) > 0 {
		maskPart, err := writer.CreateFormFile("mask", "mask.png")
		if err != nil {
			return nil, err
		}
		if _, err := maskPart.Write(params.Mask); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/edits", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error.Message != "" {
			return nil, fmt.Errorf("edit API returned %d: %s", resp.StatusCode, errBody.Error.Message)
		}
		return nil, fmt.Errorf("edit API returned %d", resp.StatusCode)
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
			URL     string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode edit response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("edit response contained no image data")
	}

	entry := parsed.Data[0]
	if entry.B64JSON != "" {
		return base64.StdEncoding.DecodeString(entry.B64JSON)
	}
	if entry.URL != "" {
		return c.download(ctx, entry.URL)
	}
	return nil, errors.New("edit response contained neither base64 nor URL image")
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download edited image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download edited image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
