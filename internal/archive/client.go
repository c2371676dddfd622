// Package archive hands finished recordings to the external database
// service.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vibe-virtuoso/backend/internal/instrument"
)

var metricSaves = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "archive_saves_total",
	Help: "Recording hand-offs to the database service, by result",
}, []string{"result"})

// Recording is the metadata record the database service stores for one
// recorded take.
type Recording struct {
	Filename        string          `json:"filename"`
	Instrument      instrument.Name `json:"instrument"`
	DurationSeconds float64         `json:"duration_seconds"`
	FilePath        string          `json:"file_path"`
}

// SaveResult is the database service's reply to a save.
type SaveResult struct {
	Success     bool   `json:"success"`
	RecordingID string `json:"recording_id"`
	Message     string `json:"message"`
}

// Sink receives finished recordings.
type Sink interface {
	Save(ctx context.Context, rec Recording) (*SaveResult, error)
}

// Discard is a Sink that drops every recording.
type Discard struct{}

func (Discard) Save(context.Context, Recording) (*SaveResult, error) {
	return &SaveResult{}, nil
}

// Client talks to the database service's REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8001").
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Save sends POST /recording/save.
func (c *Client) Save(ctx context.Context, rec Recording) (*SaveResult, error) {
	var out SaveResult
	if err := c.post(ctx, "/recording/save", rec, &out); err != nil {
		metricSaves.WithLabelValues("error").Inc()
		return nil, err
	}
	metricSaves.WithLabelValues("ok").Inc()
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, string(respBody))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
