// Package apiclient talks to the verification API on behalf of an
// interactive workflow session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/workflow"
)

const maxErrorBody = 1 << 20

type Client struct {
	base *url.URL
	http *http.Client
}

var (
	_ workflow.Submitter    = (*Client)(nil)
	_ workflow.FoodSearcher = (*Client)(nil)
)

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

// Submit uploads doc to /api/certificates/verify with the resubmission
// parameters in the query string.
func (c *Client) Submit(ctx context.Context, doc domain.Document, params domain.SubmitParams) (domain.VerificationResult, error) {
	var out domain.VerificationResult

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := doc.Name
	if name == "" {
		name = "certificate.pdf"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return out, err
	}
	if _, err := part.Write(doc.Content); err != nil {
		return out, err
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	q := url.Values{}
	if params.Overwrite {
		q.Set("overwrite", "true")
	}
	if params.SelectedFood != "" {
		q.Set("selectedFood", params.SelectedFood)
	}
	if params.SkipFoodValidation {
		q.Set("skipFoodValidation", strconv.FormatBool(true))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/certificates/verify", q), &body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = c.do(req, &out)
	return out, err
}

// SearchFoods runs a free-text food search.
func (c *Client) SearchFoods(ctx context.Context, query string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/foods/search", url.Values{"q": {query}}), nil)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrNetwork, err)
	}
	return nil
}

// decodeError turns a non-200 reply into an *domain.ErrorResponse carrying
// the HTTP status. Bodies that are not JSON keep only the status.
func decodeError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%w: read error body: %v", domain.ErrNetwork, err)
	}
	var er domain.ErrorResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &er)
	}
	er.Status = resp.StatusCode
	return &er
}
