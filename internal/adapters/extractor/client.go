package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/ports"
)

// Client calls the external PDF extraction service.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.Extractor = (*Client)(nil)

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

// Extract uploads the PDF and decodes the extracted certificate fields. A 4xx
// reply with a JSON error body is returned as *domain.ErrorResponse.
func (c *Client) Extract(ctx context.Context, doc domain.Document) (domain.ExtractedCertificate, error) {
	var out domain.ExtractedCertificate

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", doc.Name)
	if err != nil {
		return out, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(doc.Content); err != nil {
		return out, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return out, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/extract", body)
	if err != nil {
		return out, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var er domain.ErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if json.Unmarshal(raw, &er) == nil && (er.Err != "" || er.Message != "" || len(er.Errors) > 0) {
			er.Status = http.StatusUnprocessableEntity
			return out, &er
		}
		return out, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
