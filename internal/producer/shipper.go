package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"facewatch/internal/models"
)

// Shipper posts producer output to the ingestion API. Event shipping is
// best-effort at-most-once: callers fire it from a detached goroutine and
// discard the error after logging.
type Shipper struct {
	baseURL    string
	httpClient *http.Client
}

// NewShipper creates a shipper for the ingestion API at baseURL.
func NewShipper(baseURL string) *Shipper {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Shipper{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
	}
}

func (s *Shipper) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

// ShipEvent posts one telemetry event.
func (s *Shipper) ShipEvent(ctx context.Context, ev models.PostEventRequest) error {
	return s.post(ctx, "/events", ev, nil)
}

// EnrollFace posts one enrollment record. Unlike event shipping this error
// surfaces to the user, so the server's 400 on missing fields matters.
func (s *Shipper) EnrollFace(ctx context.Context, label string, descriptor []float64) error {
	return s.post(ctx, "/faces", models.EnrollFaceRequest{Label: label, Descriptor: descriptor}, nil)
}

// CreateSession registers a session grouping tag and returns its id.
func (s *Shipper) CreateSession(ctx context.Context, name string, meta map[string]any) (int64, error) {
	var namePtr *string
	if name != "" {
		namePtr = &name
	}
	var resp struct {
		OK bool  `json:"ok"`
		ID int64 `json:"id"`
	}
	err := s.post(ctx, "/sessions", models.CreateSessionRequest{Name: namePtr, Meta: meta}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Healthy reports whether the ingestion API answers its health check.
func (s *Shipper) Healthy(ctx context.Context) bool {
	u, err := url.JoinPath(s.baseURL, "/health")
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
