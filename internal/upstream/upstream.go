// Package upstream implements thin HTTP clients for the three external
// collaborators: the disease-detection model server, the streaming assistant,
// and the clinic (places) search API.
//
// The clients own transport concerns only: request construction, status
// checking, and incremental body reads. Interpretation of results (default
// recommendations, transcript updates, filtering) belongs to the calling
// services. All calls honor the provided context; cancelling it aborts the
// request, including a stream in progress.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// ErrUpstream indicates that an external service rejected the request or was
// unreachable. Callers surface it as a generic user-facing failure and never
// retry automatically.
var ErrUpstream = errors.New("upstream request failed")

// DetectionResult is the structured response of the disease-detection
// endpoint. Recommendation may be absent.
type DetectionResult struct {
	PredictedCondition string `json:"predicted_condition"`
	Recommendation     string `json:"recommendation"`
}

// DetectionClient calls the image classification endpoint.
type DetectionClient struct {
	URL        string
	HTTPClient *http.Client
}

// Detect submits the image as a multipart body under the "image" field and
// decodes the structured result.
func (c *DetectionClient) Detect(ctx context.Context, filename string, image []byte) (*DetectionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: detection returned %d", ErrUpstream, resp.StatusCode)
	}

	var out DetectionResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode detection response: %v", ErrUpstream, err)
	}
	return &out, nil
}

// AssistantClient calls the conversational endpoint. Replies arrive as an
// incrementally delivered plain-text body terminated by transport close; the
// configured http.Client must not carry an overall timeout or long replies
// would be cut off mid-stream.
type AssistantClient struct {
	URL        string
	HTTPClient *http.Client
}

// Stream posts the user input and invokes onChunk once per received chunk,
// in arrival order, until the body is exhausted. No end-of-message marker is
// expected in the payload. A non-nil error from onChunk stops the read loop
// and is returned as-is.
func (c *AssistantClient) Stream(ctx context.Context, input string, onChunk func(chunk string) error) error {
	payload, err := json.Marshal(map[string]string{"input": input})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: assistant returned %d", ErrUpstream, resp.StatusCode)
	}

	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if cbErr := onChunk(string(buf[:n])); cbErr != nil {
				return cbErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read stream: %v", ErrUpstream, err)
		}
	}
}

// placesResponse mirrors the nearby-search envelope.
type placesResponse struct {
	Results []domain.Clinic `json:"results"`
}

// PlacesClient calls the nearby-clinic search API.
type PlacesClient struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// Nearby runs a radius search for skin and dermatology clinics centered on
// the given coordinates. The upstream keyword/type narrowing matches what the
// product has always requested.
func (c *PlacesClient) Nearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]domain.Clinic, error) {
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("radius", strconv.Itoa(radiusMeters))
	q.Set("type", "hospital")
	q.Set("keyword", "skin dermatology")
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}

	sep := "?"
	if strings.Contains(c.URL, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+sep+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: places returned %d", ErrUpstream, resp.StatusCode)
	}

	var out placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode places response: %v", ErrUpstream, err)
	}
	return out.Results, nil
}
