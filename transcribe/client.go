package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storyreel/types"
)

// ErrMissingAPIKey is a configuration error detected before any network call.
var ErrMissingAPIKey = errors.New("transcription API key not configured")

// Options mirrors the transcription collaborator's tunables.
type Options struct {
	TagAudioEvents bool
	Diarize        bool
	LanguageCode   string
}

// Client sends audio to a speech-to-text collaborator and returns the full
// text plus time-aligned segments. One call per audio upload; the result is
// immutable afterwards.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a transcription client for the given endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Transcribe uploads the audio binary and returns the transcription. The raw
// response JSON is returned alongside for debug display.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string, opts Options) (*types.AudioTranscription, string, error) {
	if c.apiKey == "" {
		return nil, "", ErrMissingAPIKey
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, "", fmt.Errorf("failed to buffer audio: %w", err)
	}

	_ = writer.WriteField("model_id", "scribe_v1")
	_ = writer.WriteField("tag_audio_events", strconv.FormatBool(opts.TagAudioEvents))
	_ = writer.WriteField("diarize", strconv.FormatBool(opts.Diarize))
	if opts.LanguageCode != "" {
		_ = writer.WriteField("language_code", opts.LanguageCode)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read transcription response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &errBody)
		if errBody.Detail != "" {
			return nil, string(body), fmt.Errorf("transcription error %d: %s", resp.StatusCode, errBody.Detail)
		}
		return nil, string(body), fmt.Errorf("transcription error %d", resp.StatusCode)
	}

	var result types.AudioTranscription
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, string(body), fmt.Errorf("failed to decode transcription: %w", err)
	}

	return &result, string(body), nil
}
