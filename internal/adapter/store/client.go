// Package store is the HTTP client for the row store's report collection.
// The store speaks a PostgREST-style dialect: POST inserts, Prefer headers
// select the response representation, and constraint violations come back as
// structured JSON errors with a SQLSTATE code.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumenmap/lightwatch/internal/domain"
)

// constraintCodes are the SQLSTATE classes that mean "a value was rejected
// by a schema constraint" — invalid enum input and check violations. These
// trigger the submission pipeline's synonym fallback.
var constraintCodes = map[string]bool{
	"22P02": true, // invalid_text_representation (unknown enum variant)
	"23514": true, // check_violation
	"23502": true, // not_null_violation
}

// Client implements submit.ReportStore against the row store REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a row store client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// InsertReport POSTs one report row. On success it returns the
// server-confirmed row; a store configured for minimal returns yields a
// zero-ID row, which callers treat as "accepted, keep the local copy".
func (c *Client) InsertReport(ctx context.Context, r domain.Report) (domain.Report, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return domain.Report{}, fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reports", bytes.NewReader(body))
	if err != nil {
		return domain.Report{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Report{}, &domain.UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return decodeInserted(resp.Body)
	case resp.StatusCode >= 500:
		payload, _ := io.ReadAll(resp.Body)
		return domain.Report{}, &domain.UnavailableError{
			Err: fmt.Errorf("store returned %d: %s", resp.StatusCode, payload),
		}
	default:
		return domain.Report{}, decodeError(resp.StatusCode, resp.Body)
	}
}

// decodeInserted reads the confirmed row from a 2xx response. PostgREST
// returns a single-element array; an empty body means the store could not
// return the representation.
func decodeInserted(body io.Reader) (domain.Report, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return domain.Report{}, &domain.UnavailableError{Err: fmt.Errorf("read response: %w", err)}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return domain.Report{}, nil
	}

	var rows []domain.Report
	if err := json.Unmarshal(data, &rows); err == nil {
		if len(rows) == 0 {
			return domain.Report{}, nil
		}
		return rows[0], nil
	}

	var row domain.Report
	if err := json.Unmarshal(data, &row); err != nil {
		return domain.Report{}, fmt.Errorf("decode inserted row: %w", err)
	}
	return row, nil
}

// storeError is the row store's JSON error payload.
type storeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeError maps a 4xx response to the domain taxonomy.
func decodeError(status int, body io.Reader) error {
	payload, _ := io.ReadAll(body)

	var se storeError
	if err := json.Unmarshal(payload, &se); err == nil && constraintCodes[se.Code] {
		return &domain.ConstraintError{Code: se.Code, Message: se.Message}
	}
	return fmt.Errorf("store rejected insert: status %d: %s", status, payload)
}
