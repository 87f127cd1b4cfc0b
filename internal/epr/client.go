// Package epr is the narrow EPR (electronic patient record) FHIR adapter
// spec.md §1 names as an external collaborator with a narrow contract.
// Ported from original_source's epr_client.py FHIR-bundle unwrapping.
package epr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/resilience"
)

// Client is the only contract the orchestrator depends on for EPR access.
type Client interface {
	FetchPatient(ctx context.Context, nhsNumber string) (map[string]any, error)
	FetchObservations(ctx context.Context, patientID string) ([]map[string]any, error)
	FetchMedications(ctx context.Context, patientID string) ([]map[string]any, error)
}

// HTTPClient is a Client implementation over a FHIR-compliant REST endpoint,
// wrapped in a circuit breaker so a downed EPR surfaces as
// DEPENDENCY_UNAVAILABLE (spec.md §7) instead of hanging the on-demand
// fetch.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	breaker *resilience.HTTPClientWrapper
}

// NewHTTPClient builds a Client against baseURL. apiKey may be empty
// (unauthenticated), a bearer token ("Bearer ..."), or a raw API key sent
// as X-API-Key, mirroring original_source's header selection.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		breaker: resilience.NewHTTPClientWrapper("epr-client"),
	}
}

func (c *HTTPClient) FetchPatient(ctx context.Context, nhsNumber string) (map[string]any, error) {
	data, status, err := c.get(ctx, "/Patient", map[string]string{"identifier": nhsNumber})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return unwrapSingleResource(data), nil
}

func (c *HTTPClient) FetchObservations(ctx context.Context, patientID string) ([]map[string]any, error) {
	data, _, err := c.get(ctx, "/Observation", map[string]string{"patient": patientID})
	if err != nil {
		return nil, err
	}
	return unwrapList(data), nil
}

func (c *HTTPClient) FetchMedications(ctx context.Context, patientID string) ([]map[string]any, error) {
	data, _, err := c.get(ctx, "/MedicationRequest", map[string]string{"patient": patientID})
	if err != nil {
		return nil, err
	}
	return unwrapList(data), nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params map[string]string) (any, int, error) {
	result, err := c.breaker.Execute(ctx, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, domain.Internal("build EPR request", err)
		}
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
		c.setAuthHeader(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, domain.DependencyUnavailable(fmt.Sprintf("EPR request to %s failed", path), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return eprResponse{status: resp.StatusCode}, nil
		}
		if resp.StatusCode >= 500 {
			return nil, domain.DependencyUnavailable(fmt.Sprintf("EPR returned %d for %s", resp.StatusCode, path), nil)
		}
		if resp.StatusCode >= 400 {
			return nil, domain.Validation(fmt.Sprintf("EPR returned %d for %s", resp.StatusCode, path), "", nil)
		}

		var body any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, domain.Internal("decode EPR response", err)
		}
		return eprResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	r := result.(eprResponse)
	return r.body, r.status, nil
}

func (c *HTTPClient) setAuthHeader(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	if strings.HasPrefix(c.apiKey, "Bearer ") {
		req.Header.Set("Authorization", c.apiKey)
		return
	}
	req.Header.Set("X-API-Key", c.apiKey)
}

type eprResponse struct {
	status int
	body   any
}
