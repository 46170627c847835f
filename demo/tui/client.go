package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"storyreel/types"
)

// PipelineClient is a thin HTTP client for the slideshow pipeline API.
type PipelineClient struct {
	baseURL string
	client  *http.Client
}

// NewPipelineClient creates a new pipeline client.
func NewPipelineClient(baseURL string) *PipelineClient {
	return &PipelineClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// CreateJob uploads the audio file and returns the new job id.
func (c *PipelineClient) CreateJob(audioPath string, durationSeconds float64, aspectRatio string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	_ = w.WriteField("duration_seconds", fmt.Sprintf("%g", durationSeconds))
	_ = w.WriteField("aspect_ratio", aspectRatio)
	if err := w.Close(); err != nil {
		return "", err
	}

	resp, err := c.client.Post(c.baseURL+"/api/jobs", w.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return created.ID, nil
}

// GetStatus fetches the current job snapshot.
func (c *PipelineClient) GetStatus(jobID string) (*types.JobStatus, error) {
	resp, err := c.client.Get(c.baseURL + "/api/jobs/" + jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}

	var status types.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}

// StartGeneration triggers the image generation batch.
func (c *PipelineClient) StartGeneration(jobID string) error {
	resp, err := c.client.Post(c.baseURL+"/api/jobs/"+jobID+"/generate", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("failed to start generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

// Export downloads the finished artifact to outPath.
func (c *PipelineClient) Export(jobID string, format types.ExportFormat, outPath string) (string, error) {
	resp, err := c.client.Post(c.baseURL+"/api/jobs/"+jobID+"/export?format="+string(format), "application/json", nil)
	if err != nil {
		return "", fmt.Errorf("failed to export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", err
	}
	return outPath, nil
}
